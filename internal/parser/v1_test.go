package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func n210DataSample(timestamp uint32, binIndex uint16, real, imag int16) []byte {
	b := make([]byte, 8)
	fftIndex := (binIndex << 4) & 0x7ff0
	timeLow := uint16(timestamp & 0xffff)
	binary.LittleEndian.PutUint16(b[0:2], fftIndex)
	binary.LittleEndian.PutUint16(b[2:4], timeLow)
	binary.LittleEndian.PutUint16(b[4:6], uint16(real))
	binary.LittleEndian.PutUint16(b[6:8], uint16(imag))
	return b
}

func TestV1N210SingleSampleWindow(t *testing.T) {
	p := NewV1N210(2048)

	w, err := p.Parse(n210DataSample(1, 5, 100, -200))
	require.NoError(t, err)
	assert.Nil(t, w, "first sample only starts the window, nothing to flush yet")

	// A second sample with a different timestamp flushes the first window.
	w, err = p.Parse(n210DataSample(2, 6, 1, 1))
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, uint32(1), w.Timestamp)
	assert.Equal(t, Data, w.Kind)
	assert.Equal(t, ComplexI16{Real: 100, Imag: -200}, w.Bins[5])
	assert.Equal(t, ComplexI16{}, w.Bins[6])
}

func TestV1N210AccumulatesSameTimestamp(t *testing.T) {
	p := NewV1N210(2048)

	_, err := p.Parse(n210DataSample(1, 5, 10, 20))
	require.NoError(t, err)
	_, err = p.Parse(n210DataSample(1, 6, 30, 40))
	require.NoError(t, err)

	w, err := p.Parse(n210DataSample(2, 0, 0, 0))
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, ComplexI16{Real: 10, Imag: 20}, w.Bins[5])
	assert.Equal(t, ComplexI16{Real: 30, Imag: 40}, w.Bins[6])
}

func TestV1WrongLengthIsParseError(t *testing.T) {
	p := NewV1N210(2048)
	_, err := p.Parse(make([]byte, 7))
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestV1SampleBytesIs8(t *testing.T) {
	assert.Equal(t, 8, NewV1N210(2048).SampleBytes())
	assert.Equal(t, 8, NewV1Pluto(2048).SampleBytes())
}
