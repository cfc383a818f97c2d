package reconstruct

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sparsdr-reconstruct/internal/bins"
	"github.com/cwsl/sparsdr-reconstruct/internal/window"
)

// captureSink is a SampleSink that records every call for assertions. When
// notify is non-nil, every call also sends on it, letting a test synchronize
// with a worker goroutine instead of polling.
type captureSink struct {
	mu     sync.Mutex
	calls  [][]complex64
	notify chan struct{}
}

func (c *captureSink) WriteSamples(samples []complex64) error {
	c.mu.Lock()
	cp := append([]complex64(nil), samples...)
	c.calls = append(c.calls, cp)
	c.mu.Unlock()
	if c.notify != nil {
		c.notify <- struct{}{}
	}
	return nil
}

func (c *captureSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		n += len(call)
	}
	return n
}

func (c *captureSink) allZero() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		for _, s := range call {
			if s != 0 {
				return false
			}
		}
	}
	return true
}

// failingSink always errors, used to exercise the worker-termination path
// (spec §7).
type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) WriteSamples(samples []complex64) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("sink unavailable")
}

func (f *failingSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestWorkerHandleWindowReturnsErrorOnSinkFailure pins down spec §7: a sink
// write error must be surfaced by handleWindow so the owning goroutine
// (runWorker) can stop, instead of being silently swallowed.
func TestWorkerHandleWindowReturnsErrorOnSinkFailure(t *testing.T) {
	sink := &failingSink{}
	spec, err := NewBandSetupBuilder(sink, 8, 8, 4).Build()
	require.NoError(t, err)

	w := newWorker(spec.ReconstructionBins, spec.FcBinsWhole, 8, []BandSpec{spec}, OverlapMode{})

	zero := window.Window{Timestamp: 1, Bins: make([]complex64, 8), Order: window.LogicalOrder}
	err = w.handleWindow(routedWindow{window: zero})
	assert.Error(t, err)
	assert.Equal(t, 1, sink.count())
}

// TestWorkerEmitStopsAtFirstSinkError verifies that when two bands share one
// worker, a write failure on the first band's sink stops emit before it
// reaches the second band's sink at all: the whole worker is terminating,
// not just skipping one bad write.
func TestWorkerEmitStopsAtFirstSinkError(t *testing.T) {
	sinkA := &failingSink{}
	sinkB := &captureSink{}
	specA, err := NewBandSetupBuilder(sinkA, 8, 8, 4).Build()
	require.NoError(t, err)
	specB, err := NewBandSetupBuilder(sinkB, 8, 8, 4).Build()
	require.NoError(t, err)
	require.Equal(t, specA.key(), specB.key())

	w := newWorker(specA.ReconstructionBins, specA.FcBinsWhole, 8, []BandSpec{specA, specB}, OverlapMode{})

	zero := window.Window{Timestamp: 1, Bins: make([]complex64, 8), Order: window.LogicalOrder}
	err = w.handleWindow(routedWindow{window: zero})
	assert.Error(t, err)
	assert.Equal(t, 1, sinkA.count())
	assert.Empty(t, sinkB.calls, "the worker must stop before writing to bands after the failed one")
}

func TestFilterBinsZeroesOutsideRangeAndCenters(t *testing.T) {
	w := window.Window{
		Timestamp: 1,
		Bins:      []complex64{1, 2, 3, 4, 5, 6, 7, 8},
		Order:     window.LogicalOrder,
	}
	out := filterBins(w, bins.Range{Start: 2, End: 6}, 4)
	require.Len(t, out.Bins, 4)
	assert.Equal(t, window.LogicalOrder, out.Order)
	// Bins 2..6 are {3,4,5,6}; the range's midpoint (4) is rotated to the
	// center of a 4-wide output (index 2).
	assert.ElementsMatch(t, []complex64{3, 4, 5, 6}, out.Bins)
}

// TestWorkerGapsInitialGapZeroInvariant grounds the "missing windows produce
// zero samples" property (the Gaps-mode initial gap, spec's "zero input
// yields zero output" invariant) at the worker level: an all-zero input
// window, several half-windows after the first window the router ever saw,
// must still surface as exactly that many zero-filled half-windows.
func TestWorkerGapsInitialGapZeroInvariant(t *testing.T) {
	sink := &captureSink{}
	builder := NewBandSetupBuilder(sink, 8, 8, 4) // fftSize = 4, compression fftSize = 8
	spec, err := builder.Build()
	require.NoError(t, err)
	require.Equal(t, bins.Range{Start: 2, End: 6}, spec.ReconstructionBins)

	w := newWorker(spec.ReconstructionBins, spec.FcBinsWhole, 8, []BandSpec{spec}, OverlapMode{Kind: OverlapGaps})

	w.handleWindow(routedWindow{isFirst: true, firstTS: 10})
	assert.Equal(t, 0, sink.total(), "the FirstWindowTime sentinel alone emits nothing")

	zero := window.Window{Timestamp: 13, Bins: make([]complex64, 8), Order: window.LogicalOrder}
	w.handleWindow(routedWindow{window: zero})

	// 3 half-windows of gap (13-10) plus the real window's first half: 4
	// half-windows of size fftSize/2 = 2.
	require.Len(t, sink.calls, 4)
	for _, call := range sink.calls {
		assert.Len(t, call, 2)
	}
	assert.Equal(t, 8, sink.total())
	assert.True(t, sink.allZero())
}

// TestWorkerFlushModeZeroInvariant exercises the Flush-mode path end to end:
// all-zero input windows must still produce all-zero overlap-added output.
func TestWorkerFlushModeZeroInvariant(t *testing.T) {
	sink := &captureSink{}
	builder := NewBandSetupBuilder(sink, 8, 8, 4)
	spec, err := builder.Build()
	require.NoError(t, err)

	w := newWorker(spec.ReconstructionBins, spec.FcBinsWhole, 8, []BandSpec{spec}, OverlapMode{})

	zero := window.Window{Bins: make([]complex64, 8), Order: window.LogicalOrder}
	zero.Timestamp = 1
	w.handleWindow(routedWindow{window: zero})
	zero.Timestamp = 2
	w.handleWindow(routedWindow{window: zero})

	require.Len(t, sink.calls, 2)
	assert.True(t, sink.allZero())

	w.handleTimeout()
	require.Len(t, sink.calls, 3, "the outstanding trailing half flushes once after input stops")
	w.handleTimeout()
	assert.Len(t, sink.calls, 3, "a second consecutive timeout must not re-flush")
}

// TestWorkerEmitsToEveryBandSharingTheWorker verifies the multi-band fan-out
// within a single worker (spec §3's worker-sharing rule): one routed window
// reaches every band's own sink and its own OnWindowEmitted hook exactly
// once per emitted chunk.
func TestWorkerEmitsToEveryBandSharingTheWorker(t *testing.T) {
	sinkA := &captureSink{}
	sinkB := &captureSink{}

	var gotA, gotB int
	specA, err := NewBandSetupBuilder(sinkA, 8, 8, 4).Build()
	require.NoError(t, err)
	specA.OnWindowEmitted = func(uint64, int) { gotA++ }
	specB, err := NewBandSetupBuilder(sinkB, 8, 8, 4).Build()
	require.NoError(t, err)
	specB.OnWindowEmitted = func(uint64, int) { gotB++ }
	require.Equal(t, specA.key(), specB.key(), "both bands must share one worker key for this test to be meaningful")

	w := newWorker(specA.ReconstructionBins, specA.FcBinsWhole, 8, []BandSpec{specA, specB}, OverlapMode{})

	zero := window.Window{Timestamp: 1, Bins: make([]complex64, 8), Order: window.LogicalOrder}
	w.handleWindow(routedWindow{window: zero})

	assert.Len(t, sinkA.calls, 1)
	assert.Len(t, sinkB.calls, 1)
	assert.Equal(t, 1, gotA)
	assert.Equal(t, 1, gotB)
}
