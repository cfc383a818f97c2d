package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const minimalConfig = `
source:
  format: v2
  compression_fft_size: 2048
bands:
  - name: fm
    capture_bandwidth_hz: 100000000
    center_frequency_hz: 0
    reconstruction_bins: 1024
`

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(20), cfg.Source.TimestampBits)
	assert.Equal(t, 64, cfg.Reconstruct.ChannelCapacity)
	assert.Equal(t, "flush", cfg.Reconstruct.Overlap)
	assert.Equal(t, 500, cfg.Reconstruct.TimeoutMs)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconstruct.Timeout())
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
	assert.Equal(t, ":9101", cfg.Websocket.Listen)
	require.Len(t, cfg.Bands, 1)
	assert.Equal(t, "websocket", cfg.Bands[0].Sink)
}

func TestLoadPreservesExplicitValues(t *testing.T) {
	path := writeConfig(t, `
source:
  format: v1-n210
  compression_fft_size: 2048
  timestamp_bits: 32
reconstruct:
  channel_capacity: 8
  overlap: gaps
  timeout_ms: 250
bands:
  - name: fm
    capture_bandwidth_hz: 100000000
    center_frequency_hz: 0
    reconstruction_bins: 1024
    sink: discard
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), cfg.Source.TimestampBits)
	assert.Equal(t, 8, cfg.Reconstruct.ChannelCapacity)
	assert.Equal(t, "gaps", cfg.Reconstruct.Overlap)
	assert.Equal(t, "discard", cfg.Bands[0].Sink)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, `
source:
  format: v3
  compression_fft_size: 2048
bands:
  - name: fm
    capture_bandwidth_hz: 100000000
    reconstruction_bins: 1024
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNoBands(t *testing.T) {
	path := writeConfig(t, `
source:
  format: v2
  compression_fft_size: 2048
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadBandSink(t *testing.T) {
	cfg := &Config{
		Source: SourceConfig{Format: "v2", CompressionFFTSize: 2048},
		Reconstruct: ReconstructConfig{
			ChannelCapacity: 1,
			Overlap:         "flush",
		},
		Bands: []BandConfig{{
			CaptureBandwidthHz: 1,
			ReconstructionBins: 2,
			Sink:               "udp",
		}},
	}
	assert.Error(t, cfg.Validate())
}
