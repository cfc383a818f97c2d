package sink

// DiscardSink implements reconstruct.SampleSink by dropping every sample.
// Useful for bands configured only to exercise the pipeline (benchmarks,
// tests) without a live subscriber.
type DiscardSink struct{}

// WriteSamples implements reconstruct.SampleSink.
func (DiscardSink) WriteSamples(samples []complex64) error {
	return nil
}
