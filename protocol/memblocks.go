package protocol

import "encoding/binary"

// MemoryBlock is one (address, length) unit of a memory read or write
// request. Data is only set for write blocks and borrows the request
// buffer.
type MemoryBlock struct {
	Address uint64
	Length  uint16
	Data    []byte
}

// ReadBlocksParser walks the payload of a MemoryControl.Read request:
// a repeated sequence of ADDR + SIZE. The whole payload is validated on
// construction; a payload whose length is not an exact multiple of
// BlockHeaderLength is invalid.
type ReadBlocksParser struct {
	buf            []byte
	offset         int
	invalid        bool
	requiredTxSize int
}

// ParseReadBlocks validates a read request payload and returns a parser
// positioned on the first block.
func ParseReadBlocks(req *Request) ReadBlocksParser {
	p := ReadBlocksParser{buf: req.Data[:req.DataLength]}
	p.validate()
	return p
}

func (p *ReadBlocksParser) validate() {
	if len(p.buf)%BlockHeaderLength != 0 || len(p.buf) == 0 {
		p.invalid = true
		return
	}

	for cursor := 0; cursor < len(p.buf); cursor += BlockHeaderLength {
		length := binary.BigEndian.Uint16(p.buf[cursor+AddressSize:])
		p.requiredTxSize += BlockHeaderLength + int(length)
	}
}

// Valid reports whether the payload matched the read-request grammar.
func (p *ReadBlocksParser) Valid() bool {
	return !p.invalid
}

// RequiredTxSize returns the total response payload size the full request
// will produce, computed during validation.
func (p *ReadBlocksParser) RequiredTxSize() int {
	return p.requiredTxSize
}

// Next fills block with the next (address, length) pair. It returns false
// once the payload is exhausted or if the parser is invalid.
func (p *ReadBlocksParser) Next(block *MemoryBlock) bool {
	if p.invalid || p.offset >= len(p.buf) {
		return false
	}

	block.Address = DecodeAddress(p.buf[p.offset:])
	block.Length = binary.BigEndian.Uint16(p.buf[p.offset+AddressSize:])
	block.Data = nil
	p.offset += BlockHeaderLength
	return true
}

// Reset rewinds the parser to the first block so the payload can be
// walked a second time.
func (p *ReadBlocksParser) Reset() {
	p.offset = 0
}

// WriteBlocksParser walks the payload of a MemoryControl.Write request:
// a repeated sequence of ADDR + SIZE + DATA[SIZE]. The sequence must
// consume the payload exactly; any residue or truncation is invalid.
type WriteBlocksParser struct {
	buf            []byte
	offset         int
	invalid        bool
	requiredTxSize int
}

// ParseWriteBlocks validates a write request payload and returns a parser
// positioned on the first block.
func ParseWriteBlocks(req *Request) WriteBlocksParser {
	p := WriteBlocksParser{buf: req.Data[:req.DataLength]}
	p.validate()
	return p
}

func (p *WriteBlocksParser) validate() {
	if len(p.buf) == 0 {
		p.invalid = true
		return
	}

	cursor := 0
	for cursor < len(p.buf) {
		if cursor+BlockHeaderLength > len(p.buf) {
			p.invalid = true
			return
		}

		length := int(binary.BigEndian.Uint16(p.buf[cursor+AddressSize:]))
		cursor += BlockHeaderLength + length
		if cursor > len(p.buf) {
			p.invalid = true
			return
		}

		p.requiredTxSize += BlockHeaderLength
	}
}

// Valid reports whether the payload matched the write-request grammar.
func (p *WriteBlocksParser) Valid() bool {
	return !p.invalid
}

// RequiredTxSize returns the total response payload size the full request
// will produce: one block echo per written block.
func (p *WriteBlocksParser) RequiredTxSize() int {
	return p.requiredTxSize
}

// Next fills block with the next (address, length, data) triple. Data
// borrows the request buffer. It returns false once the payload is
// exhausted or if the parser is invalid.
func (p *WriteBlocksParser) Next(block *MemoryBlock) bool {
	if p.invalid || p.offset >= len(p.buf) {
		return false
	}

	block.Address = DecodeAddress(p.buf[p.offset:])
	block.Length = binary.BigEndian.Uint16(p.buf[p.offset+AddressSize:])
	p.offset += BlockHeaderLength
	block.Data = p.buf[p.offset : p.offset+int(block.Length)]
	p.offset += int(block.Length)
	return true
}

// Reset rewinds the parser to the first block.
func (p *WriteBlocksParser) Reset() {
	p.offset = 0
}

// ReadBlocksEncoder appends read-block echoes (ADDR + SIZE + DATA) to a
// response payload. Capacity is checked before anything is written, so a
// block either lands completely or not at all; once a block does not fit
// the encoder latches overflow.
type ReadBlocksEncoder struct {
	resp     *Response
	cursor   int
	limit    int
	overflow bool
}

// NewReadBlocksEncoder starts encoding into resp with the given payload
// capacity. The response payload length is reset to zero.
func NewReadBlocksEncoder(resp *Response, maxSize int) ReadBlocksEncoder {
	resp.DataLength = 0
	return ReadBlocksEncoder{resp: resp, limit: maxSize}
}

// AppendBlock writes the header for one block and returns the slice the
// block's data must be copied into. It returns nil after an overflow.
func (e *ReadBlocksEncoder) AppendBlock(addr uint64, length uint16) []byte {
	if e.overflow || e.cursor+BlockHeaderLength+int(length) > e.limit {
		e.overflow = true
		return nil
	}

	EncodeAddress(e.resp.Data[e.cursor:], addr)
	binary.BigEndian.PutUint16(e.resp.Data[e.cursor+AddressSize:], length)
	e.cursor += BlockHeaderLength

	dst := e.resp.Data[e.cursor : e.cursor+int(length)]
	e.cursor += int(length)
	e.resp.DataLength = uint16(e.cursor)
	return dst
}

// Overflow reports whether a block failed to fit.
func (e *ReadBlocksEncoder) Overflow() bool {
	return e.overflow
}

// WriteBlocksEncoder appends write-block echoes (ADDR + SIZE) to a
// response payload.
type WriteBlocksEncoder struct {
	resp     *Response
	cursor   int
	limit    int
	overflow bool
}

// NewWriteBlocksEncoder starts encoding into resp with the given payload
// capacity. The response payload length is reset to zero.
func NewWriteBlocksEncoder(resp *Response, maxSize int) WriteBlocksEncoder {
	resp.DataLength = 0
	return WriteBlocksEncoder{resp: resp, limit: maxSize}
}

// AppendBlock writes the echo of one written block. It returns false and
// latches overflow if the echo does not fit.
func (e *WriteBlocksEncoder) AppendBlock(addr uint64, length uint16) bool {
	if e.overflow || e.cursor+BlockHeaderLength > e.limit {
		e.overflow = true
		return false
	}

	EncodeAddress(e.resp.Data[e.cursor:], addr)
	binary.BigEndian.PutUint16(e.resp.Data[e.cursor+AddressSize:], length)
	e.cursor += BlockHeaderLength
	e.resp.DataLength = uint16(e.cursor)
	return true
}

// Overflow reports whether a block echo failed to fit.
func (e *WriteBlocksEncoder) Overflow() bool {
	return e.overflow
}
