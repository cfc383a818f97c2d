// Package overflow monotonizes the small wrapping window-timestamp counter
// carried in the wire format into a 64-bit monotonic counter (spec §4.2).
package overflow

// Expander keeps track of a periodically overflowing counter of the
// configured width and expands its values into 64-bit integers.
//
// A wrap of more than one counter cycle between consecutive calls is
// undetectable; callers must ensure the upstream parser never drops that
// many windows in a row.
type Expander struct {
	offset   uint64
	previous uint32
	max      uint64
}

// New creates an Expander for a counter of the given bit width (20, 21 or 30
// in the recognized wire formats).
func New(counterBits uint32) *Expander {
	return &Expander{max: (uint64(1) << counterBits) - 1}
}

// Expand maps a raw wrapping counter value to a 64-bit monotonic value.
func (e *Expander) Expand(value uint32) uint64 {
	if value < e.previous {
		e.offset += e.max + 1
	}
	expanded := e.offset + uint64(value)
	e.previous = value
	return expanded
}
