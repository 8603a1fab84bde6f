package memguard

import "math"

// Region is a closed address interval [Start, End]. Start <= End always
// holds for a region built with NewRegion.
type Region struct {
	Start uint64
	End   uint64
}

// NewRegion builds the closed interval covering both bounds, swapping
// them if given out of order.
func NewRegion(start, end uint64) Region {
	if start > end {
		start, end = end, start
	}
	return Region{Start: start, End: end}
}

// Intersects reports whether the two closed intervals share at least one
// address: [a,b] and [c,d] intersect iff a <= d && c <= b.
func (r Region) Intersects(other Region) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// spanRegion converts an (addr, size) operation into the closed interval
// it touches. size must be nonzero and addr+size must not overflow; both
// are checked by the guard before this is called.
func spanRegion(addr uint64, size uint16) Region {
	return Region{Start: addr, End: addr + uint64(size) - 1}
}

// spanOverflows reports whether addr+size would wrap around the address
// width: size > 0 && addr > max - size + 1.
func spanOverflows(addr uint64, size uint16) bool {
	return size > 0 && addr > math.MaxUint64-uint64(size)+1
}
