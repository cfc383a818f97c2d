// Package metrics exposes Prometheus collectors for the reconstruction
// pipeline, grounded on the teacher's prometheus.go promauto idiom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the reconstruction pipeline updates. A nil
// *Metrics is safe to call methods on, so wiring it is optional.
type Metrics struct {
	windowsParsed    prometheus.Counter
	parseErrors      prometheus.Counter
	windowsRouted    *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	samplesEmitted   *prometheus.CounterVec
	workersRunning   prometheus.Gauge
}

// New creates and registers the reconstruction pipeline's metrics.
func New() *Metrics {
	return &Metrics{
		windowsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparsdr_reconstruct_windows_parsed_total",
			Help: "Total data windows successfully parsed from the wire format.",
		}),
		parseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sparsdr_reconstruct_parse_errors_total",
			Help: "Total malformed wire samples discarded by the parser.",
		}),
		windowsRouted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparsdr_reconstruct_windows_routed_total",
			Help: "Total windows delivered to a band's worker queue, by bin range.",
		}, []string{"bin_range"}),
		queueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sparsdr_reconstruct_worker_queue_depth",
			Help: "Current number of windows buffered in a worker's inbox.",
		}, []string{"bin_range"}),
		samplesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sparsdr_reconstruct_samples_emitted_total",
			Help: "Total reconstructed samples written to an output sink, by band name.",
		}, []string{"band"}),
		workersRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sparsdr_reconstruct_workers_running",
			Help: "Number of FFT-and-output worker goroutines started by the pipeline; not lowered when a worker exits.",
		}),
	}
}

func (m *Metrics) RecordWindowParsed() {
	if m == nil {
		return
	}
	m.windowsParsed.Inc()
}

func (m *Metrics) RecordParseError() {
	if m == nil {
		return
	}
	m.parseErrors.Inc()
}

func (m *Metrics) RecordWindowRouted(binRange string) {
	if m == nil {
		return
	}
	m.windowsRouted.WithLabelValues(binRange).Inc()
}

func (m *Metrics) SetQueueDepth(binRange string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(binRange).Set(float64(depth))
}

func (m *Metrics) RecordSamplesEmitted(band string, n int) {
	if m == nil {
		return
	}
	m.samplesEmitted.WithLabelValues(band).Add(float64(n))
}

func (m *Metrics) SetWorkersRunning(n int) {
	if m == nil {
		return
	}
	m.workersRunning.Set(float64(n))
}
