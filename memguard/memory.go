package memguard

import "fmt"

// Memory is the only path to the target's address space. Addresses are
// opaque integers in the target's width, never host pointers.
//
// Implementations can provide:
//   - a byte-slice region standing in for target RAM (BufferMemory)
//   - mocked memory for unit tests
//   - a real address-space bridge on the target itself
type Memory interface {
	// Read copies len(dst) bytes starting at addr into dst. The read is
	// all-or-nothing: an error means dst was not usefully filled.
	Read(addr uint64, dst []byte) error

	// Write copies src into the address space starting at addr. The
	// write is all-or-nothing.
	Write(addr uint64, src []byte) error
}

// BufferMemory implements Memory over a single contiguous byte slice
// mapped at a base address.
type BufferMemory struct {
	// BaseAddr is the target address of the first byte of Data
	BaseAddr uint64

	// Data holds the memory contents
	Data []byte
}

// NewBufferMemory maps data at baseAddr.
func NewBufferMemory(baseAddr uint64, data []byte) *BufferMemory {
	return &BufferMemory{BaseAddr: baseAddr, Data: data}
}

func (m *BufferMemory) locate(addr uint64, n int) (int, error) {
	if addr < m.BaseAddr {
		return 0, fmt.Errorf("address 0x%X is before buffer base 0x%X", addr, m.BaseAddr)
	}

	offset := addr - m.BaseAddr
	if offset > uint64(len(m.Data)) || uint64(n) > uint64(len(m.Data))-offset {
		return 0, fmt.Errorf("range [0x%X, 0x%X+%d) is beyond buffer range (0x%X - 0x%X)",
			addr, addr, n, m.BaseAddr, m.BaseAddr+uint64(len(m.Data)))
	}

	return int(offset), nil
}

// Read implements Memory.
func (m *BufferMemory) Read(addr uint64, dst []byte) error {
	offset, err := m.locate(addr, len(dst))
	if err != nil {
		return err
	}
	copy(dst, m.Data[offset:offset+len(dst)])
	return nil
}

// Write implements Memory.
func (m *BufferMemory) Write(addr uint64, src []byte) error {
	offset, err := m.locate(addr, len(src))
	if err != nil {
		return err
	}
	copy(m.Data[offset:offset+len(src)], src)
	return nil
}
