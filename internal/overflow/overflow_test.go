package overflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const counterMax = 0xfffff // 20 bits

func TestNoOverflow(t *testing.T) {
	e := New(20)
	assert.Equal(t, uint64(0), e.Expand(0))
	assert.Equal(t, uint64(0), e.Expand(0))
	assert.Equal(t, uint64(1), e.Expand(1))
	assert.Equal(t, uint64(2), e.Expand(2))
	assert.Equal(t, uint64(counterMax), e.Expand(counterMax))
}

func TestOverflow(t *testing.T) {
	e := New(20)
	assert.Equal(t, uint64(0), e.Expand(0))
	assert.Equal(t, uint64(counterMax), e.Expand(counterMax))
	assert.Equal(t, uint64(counterMax+1), e.Expand(0))
	assert.Equal(t, uint64(counterMax+2), e.Expand(1))
}

// TestFirstValueNotNormalized pins down the expander's documented
// semantics: the first call sets previous_raw with offset starting at
// zero, so a non-zero first counter value is returned unchanged rather
// than being normalized to zero.
func TestFirstValueNotNormalized(t *testing.T) {
	e := New(20)
	assert.Equal(t, uint64(10), e.Expand(10))
	assert.Equal(t, uint64(11), e.Expand(11))
}

func TestExpandMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SampledFrom([]uint32{20, 21, 30}).Draw(t, "bits")
		max := (uint64(1) << bits) - 1
		e := New(bits)

		n := rapid.IntRange(1, 30).Draw(t, "n")
		var last uint64
		first := true
		raw := uint32(0)
		for i := 0; i < n; i++ {
			step := rapid.Uint32Range(0, uint32(max)).Draw(t, "step")
			raw = step
			got := e.Expand(raw)
			if !first {
				assert.GreaterOrEqual(t, got, last)
			}
			last = got
			first = false
		}
	})
}

func TestExpandSingleWrapAddsCounterWidth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SampledFrom([]uint32{20, 21, 30}).Draw(t, "bits")
		max := (uint64(1) << bits) - 1
		e := New(bits)

		high := uint32(max)
		_ = e.Expand(high)
		wrapped := e.Expand(0)
		assert.Equal(t, max+1, wrapped-uint64(high))
	})
}
