// Package window holds the compressed-sample window type shared by the
// parser, overflow expander, shifter and router.
package window

// Sample is a single complex baseband value, scaled to [-1, 1].
type Sample = complex64

// Order tags whether a Window's bins are in FFT order (DC at index 0) or
// Logical order (DC at the middle bin). The shift operation flips this tag.
type Order int

const (
	// FFTOrder places DC at bin 0, as produced by a real FFT/IFFT.
	FFTOrder Order = iota
	// LogicalOrder places DC at the middle bin; the router and bin masks
	// reason about bins in this order.
	LogicalOrder
)

// Window is a single compressed-capture window: a timestamp, a fixed-length
// vector of bins and the order tag of those bins. It holds no active-bin
// mask; the router derives one from Bins with bins.FromComplexBins.
type Window struct {
	Timestamp uint64
	Bins      []Sample
	Order     Order
}

// NewData creates a Logical-order data window with the given bins. The slice
// is retained, not copied.
func NewData(timestamp uint64, bins []Sample) Window {
	return Window{Timestamp: timestamp, Bins: bins, Order: LogicalOrder}
}

// Clone returns an independent copy of w, suitable for handing to a single
// worker that will own it exclusively from here on.
func (w Window) Clone() Window {
	bins := make([]Sample, len(w.Bins))
	copy(bins, w.Bins)
	return Window{Timestamp: w.Timestamp, Bins: bins, Order: w.Order}
}

// Shift rotates the bin vector by N/2, swapping the two halves into a newly
// allocated slice (w's own bins are left unchanged), and flips the order tag. N (len(w.Bins)) must be even.
//
// Shift is its own inverse: Shift(Shift(w)) == w.
func Shift(w Window) Window {
	n := len(w.Bins)
	half := n / 2
	shifted := make([]Sample, n)
	copy(shifted[:half], w.Bins[half:])
	copy(shifted[half:], w.Bins[:half])
	order := FFTOrder
	if w.Order == FFTOrder {
		order = LogicalOrder
	}
	return Window{Timestamp: w.Timestamp, Bins: shifted, Order: order}
}
