// Package reconstruct implements the per-window pipeline (overflow-correct,
// shift, fan-out) and the per-band FFT-and-output worker described in spec
// §4.4–§4.5: the part of the system that turns logical-order windows into
// narrowband time-domain IQ streams.
package reconstruct

import (
	"fmt"
	"time"

	"github.com/cwsl/sparsdr-reconstruct/internal/bins"
)

// SampleSink is the external output interface (spec §6): a destination that
// accepts zero or more reconstructed complex samples at a time.
type SampleSink interface {
	WriteSamples(samples []complex64) error
}

// OverlapKind selects the overlap-add strategy used by every worker in a
// run (spec §4.5 step 5).
type OverlapKind int

const (
	// OverlapFlush is classic 50% overlap-add with a timeout-driven final
	// emission.
	OverlapFlush OverlapKind = iota
	// OverlapGaps is timestamp-aware reconstruction: missing windows
	// produce zero samples instead of being skipped.
	OverlapGaps
)

// OverlapMode configures step 5 of the worker pipeline.
type OverlapMode struct {
	Kind OverlapKind
	// FlushTrailingZeroSamples is appended after each flushed window in
	// Flush mode only; it exists to "kick" downstream decoders (spec §9).
	FlushTrailingZeroSamples int
}

// BandSpec is the immutable, fully-derived configuration for one output band
// (spec §3). Once built it never changes for the pipeline's lifetime.
type BandSpec struct {
	ReconstructionBins bins.Range
	FFTSize            int
	FcBinsWhole        int32
	BinOffsetFrac      float32
	Sink               SampleSink
	Timeout            time.Duration

	// OnWindowEmitted is an optional supplemented hook (SPEC_FULL §4) used
	// by internal/metrics to report per-band throughput without every sink
	// having to parse its own byte stream.
	OnWindowEmitted func(timestamp uint64, sampleCount int)
}

// workerKey identifies the FFT-and-output worker that a band belongs to.
// Bands sharing a key differ only in BinOffsetFrac (spec §3's "Worker key").
type workerKey struct {
	bins        bins.Range
	fcBinsWhole int32
}

func (b BandSpec) key() workerKey {
	return workerKey{bins: b.ReconstructionBins, fcBinsWhole: b.FcBinsWhole}
}

// DefaultTimeout is the default per-receive timeout for Flush-mode workers
// (spec §5).
const DefaultTimeout = 500 * time.Millisecond

// BandSetupBuilder derives a BandSpec from caller-friendly parameters (spec
// §4.5.1): a center frequency and bandwidth in Hz rather than raw bin
// indices.
type BandSetupBuilder struct {
	sink                SampleSink
	captureBandwidthHz  float64
	compressionFFTSize  int
	reconstructionBins  int
	centerFrequencyHz   float64
	timeout             time.Duration
}

// NewBandSetupBuilder creates a builder for a band that will decompress
// reconstructionBinsCount bins out of a capture with the given bandwidth and
// compression FFT size, writing reconstructed samples to sink.
func NewBandSetupBuilder(sink SampleSink, captureBandwidthHz float64, compressionFFTSize int, reconstructionBinsCount int) *BandSetupBuilder {
	return &BandSetupBuilder{
		sink:               sink,
		captureBandwidthHz: captureBandwidthHz,
		compressionFFTSize: compressionFFTSize,
		reconstructionBins: reconstructionBinsCount,
		timeout:            DefaultTimeout,
	}
}

// CenterFrequency sets the desired center frequency, in Hz, relative to the
// center of the compressed capture.
func (b *BandSetupBuilder) CenterFrequency(hz float64) *BandSetupBuilder {
	b.centerFrequencyHz = hz
	return b
}

// Timeout overrides the default per-receive flush timeout.
func (b *BandSetupBuilder) Timeout(d time.Duration) *BandSetupBuilder {
	b.timeout = d
	return b
}

// Build derives and returns the immutable BandSpec (spec §4.5.1).
func (b *BandSetupBuilder) Build() (BandSpec, error) {
	if b.reconstructionBins < 2 {
		return BandSpec{}, fmt.Errorf("reconstruction bin count must be at least 2, got %d", b.reconstructionBins)
	}
	if b.reconstructionBins%2 != 0 {
		return BandSpec{}, fmt.Errorf("reconstruction bin count must be even, got %d", b.reconstructionBins)
	}
	fftSize := nextPow2(b.reconstructionBins)
	if fftSize > b.compressionFFTSize {
		return BandSpec{}, fmt.Errorf("reconstruction fft size %d exceeds compression fft size %d", fftSize, b.compressionFFTSize)
	}

	exactBinOffset := float64(b.compressionFFTSize) * b.centerFrequencyHz / b.captureBandwidthHz
	fcBinsWhole := int32(exactBinOffset) // truncation toward zero, as int32() does in Go
	binOffsetFrac := float32(exactBinOffset - float64(fcBinsWhole))

	reconstructionRange := bins.ChooseBins(b.reconstructionBins, int(fcBinsWhole), b.compressionFFTSize)

	return BandSpec{
		ReconstructionBins: reconstructionRange,
		FFTSize:            fftSize,
		FcBinsWhole:        fcBinsWhole,
		BinOffsetFrac:      binOffsetFrac,
		Sink:               b.sink,
		Timeout:            b.timeout,
	}, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
