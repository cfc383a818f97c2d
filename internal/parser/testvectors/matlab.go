// Package testvectors adapts the original implementation's MATLAB
// double-precision reference-vector format (SPEC_FULL §4): chunks of 2048
// complex amplitudes, written as 2048 real float64s followed by 2048
// imaginary float64s, used to check a reconstruction run's output against a
// reference decompression to within the tolerance the original found
// achievable.
package testvectors

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// ChunkSamples is the number of complex samples in one MATLAB chunk.
const ChunkSamples = 2048

// Threshold is the maximum per-sample Euclidean distance between a
// reconstructed sample and its reference value that still counts as a
// match. Determined empirically by the original implementation to be as
// close as its reconstruction can get in the worst case.
const Threshold = 2.5e-3

// MatlabReader reads compressed amplitude chunks from a MATLAB-format byte
// source, numbering them starting at time 1 (matching the original, which
// avoids a time value of 0 because its decompressor treats it specially).
type MatlabReader struct {
	r    io.Reader
	next uint64
}

// NewMatlabReader wraps r as a MatlabReader.
func NewMatlabReader(r io.Reader) *MatlabReader {
	return &MatlabReader{r: r, next: 1}
}

// ReadChunk reads one chunk of ChunkSamples complex amplitudes and the
// chunk's sequential time value. It returns io.EOF once the source is
// exhausted between chunks; a source that ends partway through a chunk
// returns io.ErrUnexpectedEOF.
func (m *MatlabReader) ReadChunk() (timestamp uint64, amplitudes []complex64, err error) {
	raw := make([]float64, ChunkSamples*2)
	buf := make([]byte, 8)
	for i := range raw {
		if _, err := io.ReadFull(m.r, buf); err != nil {
			if err == io.EOF {
				if i == 0 {
					return 0, nil, io.EOF
				}
				return 0, nil, io.ErrUnexpectedEOF
			}
			return 0, nil, err
		}
		bits := binary.LittleEndian.Uint64(buf)
		raw[i] = math.Float64frombits(bits)
	}

	out := make([]complex64, ChunkSamples)
	for i := 0; i < ChunkSamples; i++ {
		out[i] = complex(float32(raw[i]), float32(raw[ChunkSamples+i]))
	}

	timestamp = m.next
	m.next++
	return timestamp, out, nil
}

// UncompressedReader reads a reference or candidate output stream: a flat
// sequence of interleaved little-endian float32 real/imaginary pairs, with
// no chunking or framing.
type UncompressedReader struct {
	r io.Reader
}

// NewUncompressedReader wraps r as an UncompressedReader.
func NewUncompressedReader(r io.Reader) *UncompressedReader {
	return &UncompressedReader{r: r}
}

// ReadSample reads one complex64 sample, returning io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF if the stream ends partway through a
// sample.
func (u *UncompressedReader) ReadSample() (complex64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(u.r, buf[:]); err != nil {
		return 0, err
	}
	real := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4]))
	imag := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8]))
	return complex(real, imag), nil
}

// SampleApproxEqual reports whether two samples are within Threshold of
// each other in the complex plane.
func SampleApproxEqual(a, b complex64) bool {
	d := a - b
	return math.Hypot(float64(real(d)), float64(imag(d))) < Threshold
}

// CompareStreams reads equal-length sequences of samples from expected and
// actual and reports the first index at which they differ by more than
// Threshold, or -1 if every sample matched and both streams ended at the
// same length.
func CompareStreams(expected, actual io.Reader) (mismatchIndex int, err error) {
	er := NewUncompressedReader(expected)
	ar := NewUncompressedReader(actual)

	for i := 0; ; i++ {
		e, eerr := er.ReadSample()
		a, aerr := ar.ReadSample()

		eEOF := eerr == io.EOF
		aEOF := aerr == io.EOF
		if eEOF && aEOF {
			return -1, nil
		}
		if eerr != nil && !eEOF {
			return -1, fmt.Errorf("testvectors: reading expected stream: %w", eerr)
		}
		if aerr != nil && !aEOF {
			return -1, fmt.Errorf("testvectors: reading actual stream: %w", aerr)
		}
		if eEOF != aEOF {
			return i, fmt.Errorf("testvectors: streams have different lengths")
		}
		if !SampleApproxEqual(e, a) {
			return i, nil
		}
	}
}
