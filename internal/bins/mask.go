package bins

import "math/bits"

const wordBits = 64

// Mask is a fixed-width bitset, one bit per compression-FFT bin, used to
// cheaply test whether a window has any active bin inside a worker's bin
// range. Grounded on the original's sparsdr_bin_mask crate, generalized
// here to an arbitrary size instead of a hardcoded 1024/2048.
type Mask struct {
	words []uint64
	size  int
}

// NewMask returns a zeroed mask with room for size bits.
func NewMask(size int) Mask {
	return Mask{words: make([]uint64, (size+wordBits-1)/wordBits), size: size}
}

// Set sets or clears the bit at index.
func (m Mask) Set(index int, v bool) {
	if index < 0 || index >= m.size {
		panic("bins: mask index out of range")
	}
	word, bit := index/wordBits, uint(index%wordBits)
	if v {
		m.words[word] |= 1 << bit
	} else {
		m.words[word] &^= 1 << bit
	}
}

// Get returns the bit at index.
func (m Mask) Get(index int) bool {
	word, bit := index/wordBits, uint(index%wordBits)
	return (m.words[word]>>bit)&1 == 1
}

// SetRange sets bits in [r.Start, r.End) to true.
func (m Mask) SetRange(r Range) {
	for i := r.Start; i < r.End; i++ {
		m.Set(i, true)
	}
}

// OverlapsRange reports whether any bit within r is set.
func (m Mask) OverlapsRange(r Range) bool {
	for i := r.Start; i < r.End; i++ {
		if m.Get(i) {
			return true
		}
	}
	return false
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, w := range m.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// FromComplexBins builds a Mask flagging every index whose value is non-zero.
func FromComplexBins(values []complex64) Mask {
	m := NewMask(len(values))
	for i, v := range values {
		if v != 0 {
			m.Set(i, true)
		}
	}
	return m
}
