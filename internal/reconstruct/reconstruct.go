// Package reconstruct implements the per-window pipeline (overflow-correct,
// shift, fan-out) and the per-band FFT-and-output worker described in spec
// §4.4-§4.5: the part of the system that turns a compressed byte stream
// into narrowband time-domain IQ streams.
package reconstruct

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwsl/sparsdr-reconstruct/internal/metrics"
	"github.com/cwsl/sparsdr-reconstruct/internal/overflow"
	"github.com/cwsl/sparsdr-reconstruct/internal/parser"
	"github.com/cwsl/sparsdr-reconstruct/internal/window"
)

// DecompressSetup holds everything needed to start a Reconstruct pipeline
// (spec §6): the wire parser to use, sizing parameters shared by every
// worker, and the list of bands to decompress.
type DecompressSetup struct {
	Parser             parser.Parser
	CompressionFFTSize int
	TimestampBits      uint32
	ChannelCapacity    int
	OverlapMode        OverlapMode
	Bands              []BandSpec

	// Stop lets a caller request shutdown from outside the Reconstruct
	// value itself; if nil, a fresh flag is created.
	Stop *atomic.Bool

	// Metrics is optional; a nil value disables Prometheus instrumentation.
	Metrics *metrics.Metrics
}

// Reconstruct runs the parser -> overflow -> shift -> router chain on the
// caller's goroutine and owns one worker goroutine per unique
// (BinRange, fcBinsWhole) key (spec §5).
type Reconstruct struct {
	parser   parser.Parser
	overflow *overflow.Expander
	router   *Router

	stop    *atomic.Bool
	wg      sync.WaitGroup
	metrics *metrics.Metrics
}

// Start builds the worker goroutines and the router, and returns a ready to
// use Reconstruct. Configuration errors (an empty band list, a non-positive
// channel capacity) are reported before any goroutine starts (spec §7). Band
// parameters are not checked here; BandSetupBuilder.Build checks them.
func Start(setup DecompressSetup) (*Reconstruct, error) {
	if len(setup.Bands) == 0 {
		return nil, fmt.Errorf("sparsdr reconstruct: at least one band is required")
	}
	if setup.ChannelCapacity <= 0 {
		return nil, fmt.Errorf("sparsdr reconstruct: channel capacity must be positive")
	}

	stop := setup.Stop
	if stop == nil {
		stop = &atomic.Bool{}
	}

	groups := groupBandsByWorkerKey(setup.Bands)

	router := NewRouter(setup.ChannelCapacity, stop).WithMetrics(setup.Metrics)
	r := &Reconstruct{
		parser:   setup.Parser,
		overflow: overflow.New(setup.TimestampBits),
		router:   router,
		stop:     stop,
		metrics:  setup.Metrics,
	}

	for _, g := range groups {
		inbox := router.AddWorker(g.key.bins)
		w := newWorker(g.key.bins, g.key.fcBinsWhole, setup.CompressionFFTSize, g.bands, setup.OverlapMode)
		r.wg.Add(1)
		go r.runWorker(w, inbox)
	}
	r.metrics.SetWorkersRunning(len(groups))

	return r, nil
}

type bandGroup struct {
	key   workerKey
	bands []BandSpec
}

// groupBandsByWorkerKey implements spec §3's worker-sharing rule: bands
// with identical bin range and whole-bin center frequency share one FFT
// plan and differ only in the fractional offset applied during frequency
// correction.
func groupBandsByWorkerKey(specs []BandSpec) []bandGroup {
	var order []workerKey
	byKey := make(map[workerKey]*bandGroup)
	for _, b := range specs {
		k := b.key()
		g, ok := byKey[k]
		if !ok {
			g = &bandGroup{key: k}
			byKey[k] = g
			order = append(order, k)
		}
		g.bands = append(g.bands, b)
	}
	groups := make([]bandGroup, 0, len(order))
	for _, k := range order {
		groups = append(groups, *byKey[k])
	}
	return groups
}

// runWorker drives one worker until its inbox closes, the pipeline is asked
// to stop, or a sink write fails. A sink error terminates only this worker's
// goroutine (spec §7); every other band's worker keeps running.
func (r *Reconstruct) runWorker(w *worker, inbox <-chan routedWindow) {
	defer r.wg.Done()
	timeout := w.bands[0].Timeout
	for {
		select {
		case rw, ok := <-inbox:
			if !ok {
				return
			}
			if err := w.handleWindow(rw); err != nil {
				return
			}
		case <-time.After(timeout):
			if err := w.handleTimeout(); err != nil {
				return
			}
		}
		if r.stop.Load() {
			return
		}
	}
}

// ProcessSamples feeds a chunk of raw wire bytes through the parser,
// overflow expander, shifter and router (spec §6's ProcessSamples entry
// point). samples' length must be a multiple of the parser's sample size.
func (r *Reconstruct) ProcessSamples(samples []byte) error {
	step := r.parser.SampleBytes()
	if len(samples)%step != 0 {
		return fmt.Errorf("sparsdr reconstruct: %d bytes is not a multiple of the %d-byte sample size", len(samples), step)
	}
	for off := 0; off < len(samples); off += step {
		if r.stop.Load() {
			return nil
		}
		win, err := r.parser.Parse(samples[off : off+step])
		if err != nil {
			// The parser has already logged and resynchronized; data
			// errors are counted and logged but never stop processing
			// (spec §7).
			r.metrics.RecordParseError()
			continue
		}
		if win == nil || win.Kind != parser.Data {
			continue
		}
		r.metrics.RecordWindowParsed()
		r.routeWindow(win)
	}
	return nil
}

func (r *Reconstruct) routeWindow(w *parser.Window) {
	expanded := r.overflow.Expand(w.Timestamp)
	complexBins := scaleBins(w.Bins)
	raw := window.Window{Timestamp: expanded, Bins: complexBins, Order: window.FFTOrder}
	logical := window.Shift(raw)
	r.router.Route(logical)
}

// scaleBins converts raw int16 wire values to complex64 in [-1, 1], per
// spec §3.
func scaleBins(in []parser.ComplexI16) []complex64 {
	const scale = 1.0 / 32768.0
	out := make([]complex64, len(in))
	for i, v := range in {
		out[i] = complex(float32(v.Real)*scale, float32(v.Imag)*scale)
	}
	return out
}

// Shutdown stops all workers and waits for them to exit. After Shutdown
// returns, ProcessSamples must not be called again.
func (r *Reconstruct) Shutdown() {
	r.stop.Store(true)
	r.router.Close()
	r.wg.Wait()
}
