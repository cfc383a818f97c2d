package reconstruct

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// inverseFFT wraps a gonum CmplxFFT plan sized for one worker's FFT size,
// applying the exact scalar correction spec §4.5 step 4 calls for.
//
// gonum's CmplxFFT.Sequence (the inverse transform) already divides by N, so
// this only needs to multiply by fftSize to undo that before applying the
// pipeline's own hop/(W*D*N) scale.
type inverseFFT struct {
	plan  *fourier.CmplxFFT
	scale complex64
	buf   []complex128
}

// newInverseFFT builds the plan and precomputes the scale factor.
//
// W is the sum of the compression-side analysis window (Hann, per spec §2),
// subsampled every D = compressionFFTSize/fftSize samples, as the original
// implementation precomputes once per worker at construction time.
func newInverseFFT(fftSize, compressionFFTSize int) *inverseFFT {
	d := compressionFFTSize / fftSize
	hop := compressionFFTSize / 2 / d
	w := hannWindowSum(compressionFFTSize, d)

	scale := float64(fftSize) * float64(hop) / (w * float64(d) * float64(fftSize))

	return &inverseFFT{
		plan:  fourier.NewCmplxFFT(fftSize),
		scale: complex(float32(scale), 0),
		buf:   make([]complex128, fftSize),
	}
}

// hannWindowSum returns the sum of a length-size Hann window evaluated at
// every d-th sample, matching the original's windowed overlap-add gain
// normalization.
//
// This uses the periodic form (n/size, not n/(size-1)): using the symmetric
// form here shifts reconstructed amplitudes enough to miss the reference
// vector tolerance.
func hannWindowSum(size, d int) float64 {
	sum := 0.0
	for n := 0; n < size; n += d {
		sum += 0.5 * (1 - math.Cos(2*math.Pi*float64(n)/float64(size)))
	}
	return sum
}

// transform runs the inverse FFT on fftBins (FFT-order, length fftSize) and
// writes the scaled time-domain result into out, which must have the same
// length.
func (f *inverseFFT) transform(fftBins []complex64, out []complex64) {
	for i, v := range fftBins {
		f.buf[i] = complex(float64(real(v)), float64(imag(v)))
	}
	f.plan.Sequence(f.buf, f.buf)
	for i, v := range f.buf {
		out[i] = complex64(complex(real(v), imag(v))) * f.scale
	}
}
