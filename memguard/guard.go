package memguard

import "errors"

// Range-set capacities. The sets are small unordered arrays scanned
// linearly; checks happen once per memory block on the hot path and the
// counts never exceed low tens.
const (
	// MaxForbiddenRanges bounds the forbidden-range set
	MaxForbiddenRanges = 8

	// MaxReadOnlyRanges bounds the read-only-range set
	MaxReadOnlyRanges = 8
)

// Guard verdicts.
var (
	// ErrForbidden is returned when an operation intersects a range its
	// kind is not allowed to touch
	ErrForbidden = errors.New("memguard: address range is forbidden")

	// ErrAddressOverflow is returned when addr+size wraps around the
	// address width
	ErrAddressOverflow = errors.New("memguard: address range overflows address space")

	// ErrRangeTableFull is returned when a range set is at capacity
	ErrRangeTableFull = errors.New("memguard: range table is full")
)

// Guard enforces the memory-access policy: reads must avoid forbidden
// ranges, writes must avoid forbidden and read-only ranges, and no
// operation may wrap around the address space. All target access flows
// through Read and Write so the policy cannot be bypassed.
//
// The range sets are fixed after construction; Guard is read-only on the
// hot path.
type Guard struct {
	mem       Memory
	forbidden []Region
	readOnly  []Region
}

// New builds a guard over mem with the given range sets. The slices are
// copied. An error is returned if a set exceeds its capacity.
func New(mem Memory, forbidden, readOnly []Region) (*Guard, error) {
	if len(forbidden) > MaxForbiddenRanges || len(readOnly) > MaxReadOnlyRanges {
		return nil, ErrRangeTableFull
	}

	g := &Guard{
		mem:       mem,
		forbidden: make([]Region, len(forbidden)),
		readOnly:  make([]Region, len(readOnly)),
	}
	copy(g.forbidden, forbidden)
	copy(g.readOnly, readOnly)
	return g, nil
}

// ForbiddenRegions returns the forbidden-range set.
func (g *Guard) ForbiddenRegions() []Region {
	return g.forbidden
}

// ReadOnlyRegions returns the read-only-range set.
func (g *Guard) ReadOnlyRegions() []Region {
	return g.readOnly
}

// CheckRead verifies that reading size bytes at addr is allowed. A read
// of size zero touches nothing and always passes.
func (g *Guard) CheckRead(addr uint64, size uint16) error {
	if size == 0 {
		return nil
	}
	if spanOverflows(addr, size) {
		return ErrAddressOverflow
	}

	span := spanRegion(addr, size)
	for _, r := range g.forbidden {
		if span.Intersects(r) {
			return ErrForbidden
		}
	}
	return nil
}

// CheckWrite verifies that writing size bytes at addr is allowed. Writes
// additionally must avoid read-only ranges.
func (g *Guard) CheckWrite(addr uint64, size uint16) error {
	if err := g.CheckRead(addr, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}

	span := spanRegion(addr, size)
	for _, r := range g.readOnly {
		if span.Intersects(r) {
			return ErrForbidden
		}
	}
	return nil
}

// Read checks the policy and copies len(dst) bytes from addr into dst.
func (g *Guard) Read(addr uint64, dst []byte) error {
	if err := g.CheckRead(addr, uint16(len(dst))); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	return g.mem.Read(addr, dst)
}

// Write checks the policy and copies src to addr.
func (g *Guard) Write(addr uint64, src []byte) error {
	if err := g.CheckWrite(addr, uint16(len(src))); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	return g.mem.Write(addr, src)
}
