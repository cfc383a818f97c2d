package reconstruct

import (
	"sync/atomic"

	"github.com/cwsl/sparsdr-reconstruct/internal/bins"
	"github.com/cwsl/sparsdr-reconstruct/internal/metrics"
	"github.com/cwsl/sparsdr-reconstruct/internal/window"
)

// routedWindow is what crosses the channel into a worker: either a regular
// window, or the one-time FirstWindowTime sentinel (spec §4.4) that tells a
// worker the absolute timestamp of the very first window seen by the router,
// regardless of whether that worker was interested in it.
type routedWindow struct {
	window  window.Window
	isFirst bool
	firstTS uint64
}

// workerQueue is one worker's inbox plus the bin range it filters on.
type workerQueue struct {
	key bins.Range
	ch  chan routedWindow
}

// Router fans a stream of Logical-order windows out to the workers whose bin
// range overlaps the window's active bins (spec §4.4). A worker is reused
// across every BandSpec that shares its (BinRange, fcBinsWhole) key; the
// router only needs the BinRange half of that key to decide interest, since
// all bands sharing a worker necessarily share the same range.
type Router struct {
	queues   []*workerQueue
	capacity int
	sawFirst bool
	firstTS  uint64
	stop     *atomic.Bool
	metrics  *metrics.Metrics
}

// NewRouter creates a router with the given per-worker channel capacity
// (spec §5: this is the bound that provides backpressure).
func NewRouter(capacity int, stop *atomic.Bool) *Router {
	return &Router{capacity: capacity, stop: stop}
}

// WithMetrics attaches a metrics sink used to report per-band routing
// throughput and queue depth.
func (r *Router) WithMetrics(m *metrics.Metrics) *Router {
	r.metrics = m
	return r
}

// AddWorker registers a new worker inbox for the given bin range and returns
// the receive end. Must be called before Route.
func (r *Router) AddWorker(binRange bins.Range) <-chan routedWindow {
	q := &workerQueue{key: binRange, ch: make(chan routedWindow, r.capacity)}
	r.queues = append(r.queues, q)
	return q.ch
}

// Close closes every worker's channel, signalling them to drain and exit.
// Must only be called after the last call to Route has returned.
func (r *Router) Close() {
	for _, q := range r.queues {
		close(q.ch)
	}
}

// Route delivers one window to every worker whose bin range overlaps the
// window's active bins, cloning it per interested worker so each worker owns
// an independent copy (spec §4.4). Before the first regular window it sends
// every worker a FirstWindowTime sentinel carrying that window's timestamp.
//
// Route blocks on a full worker channel, which is the system's only
// backpressure mechanism (spec §5): a slow worker throttles the whole
// pipeline rather than dropping data. It checks the shared stop flag before
// each blocking send so a shutdown in progress cannot wedge on a dead
// consumer.
func (r *Router) Route(w window.Window) {
	if !r.sawFirst {
		r.sawFirst = true
		r.firstTS = w.Timestamp
		for _, q := range r.queues {
			if r.stop != nil && r.stop.Load() {
				return
			}
			q.ch <- routedWindow{isFirst: true, firstTS: r.firstTS}
		}
	}

	mask := bins.FromComplexBins(w.Bins)
	for _, q := range r.queues {
		if !mask.OverlapsRange(q.key) {
			continue
		}
		if r.stop != nil && r.stop.Load() {
			return
		}
		q.ch <- routedWindow{window: w.Clone()}
		r.metrics.RecordWindowRouted(q.key.String())
		r.metrics.SetQueueDepth(q.key.String(), len(q.ch))
	}
}
