// Package config loads the YAML configuration for the sparsdr-reconstruct
// CLI: wire format selection, FFT sizing, the band list, and sink targets
// (SPEC_FULL §2). None of the core packages parse this file themselves; it
// exists only for the cmd/sparsdr-reconstruct entry point.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML document.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Reconstruct ReconstructConfig `yaml:"reconstruct"`
	Bands      []BandConfig     `yaml:"bands"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Websocket  WebsocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig selects the wire format and where the compressed byte stream
// comes from.
type SourceConfig struct {
	// Format is one of "v1-n210", "v1-pluto", "v2".
	Format string `yaml:"format"`
	// CompressionFFTSize is the FFT size used on the compression side
	// (the number of bins per window on the wire).
	CompressionFFTSize int `yaml:"compression_fft_size"`
	// TimestampBits is the width of the wire timestamp field, used by the
	// overflow expander.
	TimestampBits uint32 `yaml:"timestamp_bits"`
	// Path is a capture file to read from. A .zst suffix is decompressed
	// transparently. Empty means read from stdin.
	Path string `yaml:"path"`
}

// ReconstructConfig holds pipeline-wide sizing and concurrency settings
// (spec §5).
type ReconstructConfig struct {
	// ChannelCapacity bounds each worker's inbox and provides backpressure.
	ChannelCapacity int `yaml:"channel_capacity"`
	// Overlap selects the overlap-add strategy: "flush" or "gaps".
	Overlap string `yaml:"overlap"`
	// FlushTrailingZeroSamples is appended after each flushed window in
	// flush mode only (spec §9).
	FlushTrailingZeroSamples int `yaml:"flush_trailing_zero_samples"`
	// TimeoutMs is the per-worker receive timeout in flush mode.
	TimeoutMs int `yaml:"timeout_ms"`
}

// BandConfig describes one output band (spec §4.5.1).
type BandConfig struct {
	Name                string  `yaml:"name"`
	CaptureBandwidthHz  float64 `yaml:"capture_bandwidth_hz"`
	CenterFrequencyHz   float64 `yaml:"center_frequency_hz"`
	ReconstructionBins  int     `yaml:"reconstruction_bins"`
	// Sink is one of "websocket" or "discard".
	Sink string `yaml:"sink"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// WebsocketConfig controls the live-streaming sink's HTTP listener.
type WebsocketConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig holds the logging section of the YAML document. Verbose is
// parsed but no package reads it; log output is the same either way.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Load reads and parses filename, applying defaults for anything left
// unspecified, then validates the result.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("sparsdr config: failed to read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sparsdr config: failed to parse %s: %w", filename, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Source.TimestampBits == 0 {
		c.Source.TimestampBits = 20
	}
	if c.Reconstruct.ChannelCapacity == 0 {
		c.Reconstruct.ChannelCapacity = 64
	}
	if c.Reconstruct.Overlap == "" {
		c.Reconstruct.Overlap = "flush"
	}
	if c.Reconstruct.TimeoutMs == 0 {
		c.Reconstruct.TimeoutMs = 500
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9100"
	}
	if c.Websocket.Listen == "" {
		c.Websocket.Listen = ":9101"
	}
	for i := range c.Bands {
		if c.Bands[i].Sink == "" {
			c.Bands[i].Sink = "websocket"
		}
	}
}

// Validate reports the first configuration error found, if any.
func (c *Config) Validate() error {
	switch c.Source.Format {
	case "v1-n210", "v1-pluto", "v2":
	default:
		return fmt.Errorf("sparsdr config: source.format must be one of v1-n210, v1-pluto, v2, got %q", c.Source.Format)
	}
	if c.Source.CompressionFFTSize < 2 {
		return fmt.Errorf("sparsdr config: source.compression_fft_size must be at least 2")
	}
	switch c.Reconstruct.Overlap {
	case "flush", "gaps":
	default:
		return fmt.Errorf("sparsdr config: reconstruct.overlap must be flush or gaps, got %q", c.Reconstruct.Overlap)
	}
	if c.Reconstruct.ChannelCapacity < 1 {
		return fmt.Errorf("sparsdr config: reconstruct.channel_capacity must be at least 1")
	}
	if len(c.Bands) == 0 {
		return fmt.Errorf("sparsdr config: at least one band is required")
	}
	for i, b := range c.Bands {
		if b.ReconstructionBins < 2 {
			return fmt.Errorf("sparsdr config: bands[%d].reconstruction_bins must be at least 2", i)
		}
		if b.CaptureBandwidthHz <= 0 {
			return fmt.Errorf("sparsdr config: bands[%d].capture_bandwidth_hz must be positive", i)
		}
		switch b.Sink {
		case "websocket", "discard":
		default:
			return fmt.Errorf("sparsdr config: bands[%d].sink must be websocket or discard, got %q", i, b.Sink)
		}
	}
	return nil
}

// Timeout returns the configured flush-mode worker timeout as a
// time.Duration.
func (c *ReconstructConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
