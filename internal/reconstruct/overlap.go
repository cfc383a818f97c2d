package reconstruct

import "github.com/cwsl/sparsdr-reconstruct/internal/window"

// overlapEventKind tags what drove one call into an overlap state machine.
type overlapEventKind int

const (
	overlapEventWindow overlapEventKind = iota
	overlapEventTimeout
	overlapEventFirstWindowTime
)

// overlapEvent is one external input to an overlap state machine: either a
// freshly IFFT'd, frequency-corrected full-length window, a receive timeout,
// or the FirstWindowTime sentinel the router sends once at startup.
type overlapEvent struct {
	kind    overlapEventKind
	window  window.Window
	firstTS uint64
}

// overlapFlush implements classic 50% overlap-add (spec §4.5 step 5, Flush
// mode): each full window is added to the trailing half of the previous one
// and the combined half is emitted; a receive timeout flushes whatever half
// is outstanding exactly once, so a burst of timeouts on an idle input
// doesn't re-emit the same half window repeatedly.
type overlapFlush struct {
	halfSize          int
	previousSecondHalf []complex64
	flushedSinceInput bool
}

func newOverlapFlush(fftSize int) *overlapFlush {
	half := fftSize / 2
	return &overlapFlush{
		halfSize:           half,
		previousSecondHalf: make([]complex64, half),
		flushedSinceInput:  true,
	}
}

// push feeds one full-length window or timeout and returns zero or one
// output windows to emit.
func (o *overlapFlush) push(evt overlapEvent) []window.Window {
	switch evt.kind {
	case overlapEventWindow:
		w := evt.window
		out := make([]complex64, o.halfSize)
		for i := 0; i < o.halfSize; i++ {
			out[i] = o.previousSecondHalf[i] + w.Bins[i]
		}
		o.previousSecondHalf = append([]complex64(nil), w.Bins[o.halfSize:]...)
		o.flushedSinceInput = false
		return []window.Window{{Timestamp: w.Timestamp, Bins: out}}

	case overlapEventTimeout:
		if o.flushedSinceInput {
			return nil
		}
		o.flushedSinceInput = true
		flushed := o.previousSecondHalf
		o.previousSecondHalf = make([]complex64, o.halfSize)
		return []window.Window{{Timestamp: 0, Bins: flushed}}

	default:
		return nil
	}
}

// overlapGapsState names the states of the Gaps-mode state machine (spec
// §4.5 step 5, Gaps mode), grounded on the original's overlap_gaps step: a
// missing window produces zero samples rather than being skipped, so output
// sample counts stay tied to elapsed time instead of received windows.
type overlapGapsState int

const (
	gapsIdle overlapGapsState = iota
	gapsInitialGap
	gapsGap
	gapsOverlap
)

type overlapGaps struct {
	fftSize int
	state   overlapGapsState

	firstWindowTimestamp uint64

	remainingHalfWindows uint64
	nextWindow           window.Window

	previousHalf     []complex64
	previousHalfTime uint64
}

func newOverlapGaps(fftSize int) *overlapGaps {
	return &overlapGaps{fftSize: fftSize, state: gapsIdle}
}

// push feeds one event and returns the (possibly empty, possibly
// multi-element) sequence of half-windows it produces. A window gap longer
// than one half-window surfaces as several zero-filled half-windows emitted
// together in response to the single event that closed the gap.
func (o *overlapGaps) push(evt overlapEvent) []window.Window {
	half := o.fftSize / 2
	switch o.state {
	case gapsIdle:
		switch evt.kind {
		case overlapEventWindow:
			w := evt.window
			firstHalf := append([]complex64(nil), w.Bins[:half]...)
			o.previousHalf = append([]complex64(nil), w.Bins[half:]...)
			o.previousHalfTime = w.Timestamp
			o.state = gapsOverlap
			return []window.Window{{Timestamp: w.Timestamp, Bins: firstHalf}}
		case overlapEventFirstWindowTime:
			o.firstWindowTimestamp = evt.firstTS
			o.state = gapsInitialGap
		}
		return nil

	case gapsInitialGap:
		if evt.kind != overlapEventWindow {
			return nil
		}
		w := evt.window
		o.remainingHalfWindows = w.Timestamp - o.firstWindowTimestamp
		o.nextWindow = w
		return o.drainGap()

	case gapsOverlap:
		switch evt.kind {
		case overlapEventWindow:
			w := evt.window
			diff := w.Timestamp - o.previousHalfTime
			switch {
			case diff == 1:
				overlapped := make([]complex64, half)
				for i := 0; i < half; i++ {
					overlapped[i] = o.previousHalf[i] + w.Bins[i]
				}
				o.previousHalf = append([]complex64(nil), w.Bins[half:]...)
				o.previousHalfTime = w.Timestamp
				return []window.Window{{Timestamp: w.Timestamp - 1, Bins: overlapped}}
			case diff == 2:
				samples := append(append([]complex64(nil), o.previousHalf...), w.Bins[:half]...)
				out := window.Window{Timestamp: o.previousHalfTime, Bins: samples}
				o.previousHalf = append([]complex64(nil), w.Bins[half:]...)
				o.previousHalfTime = w.Timestamp
				return []window.Window{out}
			default:
				prev := window.Window{Timestamp: o.previousHalfTime, Bins: o.previousHalf}
				o.remainingHalfWindows = diff - 2
				o.nextWindow = w
				o.state = gapsGap
				return append([]window.Window{prev}, o.drainGap()...)
			}
		case overlapEventTimeout:
			// Unreachable in practice: the worker's timeout path only
			// fires in Flush mode (handleTimeout no-ops when a worker
			// has no overlapFlush). Kept so this state machine mirrors
			// overlap_gaps.rs's State::Overlap timeout arm if Gaps mode
			// is ever wired to the timeout path (see DESIGN.md's Open
			// Questions).
			prev := window.Window{Timestamp: o.previousHalfTime, Bins: o.previousHalf}
			o.state = gapsIdle
			return []window.Window{prev}
		}
		return nil

	default:
		return nil
	}
}

// drainGap produces every half-window the Gap state owes before new input
// is needed again: zero-filled half-windows for the remaining gap, then the
// first half of the window that closed the gap.
func (o *overlapGaps) drainGap() []window.Window {
	half := o.fftSize / 2
	var out []window.Window
	for o.remainingHalfWindows > 0 {
		out = append(out, window.Window{Timestamp: o.nextWindow.Timestamp, Bins: make([]complex64, half)})
		o.remainingHalfWindows--
	}
	w := o.nextWindow
	firstHalf := append([]complex64(nil), w.Bins[:half]...)
	o.previousHalf = append([]complex64(nil), w.Bins[half:]...)
	o.previousHalfTime = w.Timestamp
	o.state = gapsOverlap
	return append(out, window.Window{Timestamp: w.Timestamp, Bins: firstHalf})
}
