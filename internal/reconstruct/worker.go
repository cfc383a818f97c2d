package reconstruct

import (
	"log"
	"math"
	"math/cmplx"

	"github.com/cwsl/sparsdr-reconstruct/internal/bins"
	"github.com/cwsl/sparsdr-reconstruct/internal/window"
)

// filterBins zeros every bin outside r, rotates the range to the center of
// a fftSize-wide window, and truncates to fftSize bins (spec §4.5 step 1,
// grounded on the original's FilterBins step). The window stays in Logical
// order; the caller re-shifts it to FFT order next.
func filterBins(w window.Window, r bins.Range, fftSize int) window.Window {
	out := make([]complex64, len(w.Bins))
	copy(out, w.Bins)
	for i := 0; i < r.Start; i++ {
		out[i] = 0
	}
	for i := r.End; i < len(out); i++ {
		out[i] = 0
	}

	middle := (r.Start + r.End) / 2
	offset := middle - fftSize/2
	rotated := rotateLeft(out, offset)
	if len(rotated) > fftSize {
		rotated = rotated[:fftSize]
	}
	return window.Window{Timestamp: w.Timestamp, Bins: rotated, Order: window.LogicalOrder}
}

// rotateLeft rotates a slice left by n positions, wrapping with modular
// arithmetic so a negative n rotates right.
func rotateLeft(s []complex64, n int) []complex64 {
	size := len(s)
	n = ((n % size) + size) % size
	out := make([]complex64, size)
	copy(out, s[n:])
	copy(out[size-n:], s[:n])
	return out
}

// phaseCorrect carries the per-worker multiplicative accumulator from spec
// §4.5 step 2: every bin of window n is multiplied by
// e^(i*pi*fcBinsWhole*n), computed incrementally across windows rather than
// recomputed per window.
type phaseCorrect struct {
	base       complex64
	correction complex64
}

func newPhaseCorrect(fcBinsWhole int32) *phaseCorrect {
	theta := math.Pi * float64(fcBinsWhole)
	base := complexExp(theta)
	return &phaseCorrect{base: base, correction: 1}
}

func (p *phaseCorrect) correctWindow(w window.Window) {
	for i, v := range w.Bins {
		w.Bins[i] = v * p.correction
	}
	p.correction *= p.base
}

// frequencyCorrect carries the per-output multiplicative accumulator from
// spec §4.5 step 6: every sample n of an output's time-domain stream is
// multiplied by e^(-i*2*pi*binOffsetFrac/fftSize*n), applied per-sample
// across window boundaries.
type frequencyCorrect struct {
	base       complex64
	correction complex64
}

func newFrequencyCorrect(binOffsetFrac float32, fftSize int) *frequencyCorrect {
	theta := 2 * math.Pi * (-float64(binOffsetFrac) / float64(fftSize))
	base := complexExp(theta)
	return &frequencyCorrect{base: base, correction: 1}
}

func (f *frequencyCorrect) correctSamples(samples []complex64) {
	for i, v := range samples {
		samples[i] = v * f.correction
		f.correction *= f.base
	}
}

func complexExp(theta float64) complex64 {
	c := cmplx.Exp(complex(0, theta))
	return complex64(c)
}

// worker runs the FFT-and-output pipeline for every band sharing one
// (BinRange, fcBinsWhole) key: filter bins, re-shift, phase-correct, inverse
// FFT, overlap, then per-output frequency-correct and emit (spec §4.5).
type worker struct {
	binRange    bins.Range
	fftSize     int
	fcBinsWhole int32
	bands       []BandSpec
	mode        OverlapMode

	phase *phaseCorrect
	ifft  *inverseFFT

	flush *overlapFlush
	gaps  *overlapGaps

	freqCorrect []*frequencyCorrect
}

func newWorker(binRange bins.Range, fcBinsWhole int32, compressionFFTSize int, bands []BandSpec, mode OverlapMode) *worker {
	fftSize := bands[0].FFTSize
	w := &worker{
		binRange:    binRange,
		fftSize:     fftSize,
		fcBinsWhole: fcBinsWhole,
		bands:       bands,
		mode:        mode,
		phase:       newPhaseCorrect(fcBinsWhole),
		ifft:        newInverseFFT(fftSize, compressionFFTSize),
	}
	switch mode.Kind {
	case OverlapGaps:
		w.gaps = newOverlapGaps(fftSize)
	default:
		w.flush = newOverlapFlush(fftSize)
	}
	w.freqCorrect = make([]*frequencyCorrect, len(bands))
	for i, b := range bands {
		w.freqCorrect[i] = newFrequencyCorrect(b.BinOffsetFrac, fftSize)
	}
	return w
}

// handleWindow runs one routed window through the pipeline up to and
// including the overlap step, then dispatches every resulting chunk to each
// band's output chain. A non-nil error means a sink write failed and the
// owning worker must stop (spec §7): the caller is expected to exit its
// goroutine rather than keep pumping windows into a dead sink.
func (w *worker) handleWindow(rw routedWindow) error {
	if rw.isFirst {
		if w.gaps != nil {
			return w.emitAll(w.gaps.push(overlapEvent{kind: overlapEventFirstWindowTime, firstTS: rw.firstTS}))
		}
		return nil
	}

	filtered := filterBins(rw.window, w.binRange, w.fftSize)
	shifted := window.Shift(filtered)
	w.phase.correctWindow(shifted)

	timeDomain := make([]complex64, w.fftSize)
	w.ifft.transform(shifted.Bins, timeDomain)
	full := window.Window{Timestamp: rw.window.Timestamp, Bins: timeDomain}

	if w.gaps != nil {
		return w.emitAll(w.gaps.push(overlapEvent{kind: overlapEventWindow, window: full}))
	}
	return w.emitFlush(w.flush.push(overlapEvent{kind: overlapEventWindow, window: full}), false)
}

// handleTimeout runs the Flush-mode timeout path: the Gaps mode ignores
// timeouts entirely (spec §4.5 step 5).
func (w *worker) handleTimeout() error {
	if w.flush == nil {
		return nil
	}
	return w.emitFlush(w.flush.push(overlapEvent{kind: overlapEventTimeout}), true)
}

func (w *worker) emitAll(outs []window.Window) error {
	for _, out := range outs {
		if err := w.emit(out, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) emitFlush(outs []window.Window, flushed bool) error {
	for _, out := range outs {
		if err := w.emit(out, flushed); err != nil {
			return err
		}
	}
	return nil
}

// emit writes one chunk to every band sharing this worker. A sink write
// error terminates the worker (spec §7): it stops and returns the error
// immediately rather than writing the remaining bands.
func (w *worker) emit(out window.Window, flushed bool) error {
	for i, band := range w.bands {
		samples := make([]complex64, len(out.Bins))
		copy(samples, out.Bins)
		w.freqCorrect[i].correctSamples(samples)

		if err := band.Sink.WriteSamples(samples); err != nil {
			log.Printf("ERROR: sparsdr reconstruct: sink write failed, stopping worker for band %s: %v", band.ReconstructionBins, err)
			return err
		}
		if band.OnWindowEmitted != nil {
			band.OnWindowEmitted(out.Timestamp, len(samples))
		}
		if flushed && w.mode.FlushTrailingZeroSamples > 0 {
			zeros := make([]complex64, w.mode.FlushTrailingZeroSamples)
			if err := band.Sink.WriteSamples(zeros); err != nil {
				log.Printf("ERROR: sparsdr reconstruct: sink write failed on trailing zeros for band %s: %v", band.ReconstructionBins, err)
				return err
			}
		}
	}
	return nil
}
