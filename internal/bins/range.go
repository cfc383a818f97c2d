// Package bins implements the half-open bin-range type and the bitset used
// by the router to test overlap between a window's active bins and a
// worker's bin range cheaply.
package bins

import "fmt"

// Range is a half-open [Start, End) range of bin indices in Logical order.
// Size() is always even and at least 2 for a valid reconstruction band.
type Range struct {
	Start, End int
}

// Size returns End - Start.
func (r Range) Size() int {
	return r.End - r.Start
}

// Contains reports whether index is within [Start, End).
func (r Range) Contains(index int) bool {
	return index >= r.Start && index < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Union returns the smallest range containing both r and other.
func (r Range) Union(other Range) Range {
	start := r.Start
	if other.Start < start {
		start = other.Start
	}
	end := r.End
	if other.End > end {
		end = other.End
	}
	return Range{Start: start, End: end}
}

// ChooseBins derives the reconstruction bin range for a band, per spec
// §4.5.1: a range of width binCount centered on fcBinsWhole, clamped to
// [0, compressionFFTSize).
func ChooseBins(binCount int, fcBinsWhole int, compressionFFTSize int) Range {
	half := binCount / 2
	start := fcBinsWhole - half + compressionFFTSize/2
	end := start + binCount
	if start < 0 {
		end -= start
		start = 0
	}
	if end > compressionFFTSize {
		start -= end - compressionFFTSize
		end = compressionFFTSize
	}
	if start < 0 {
		start = 0
	}
	return Range{Start: start, End: end}
}
