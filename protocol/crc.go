package protocol

import "hash/crc32"

// The wire CRC is CRC-32/IEEE: polynomial 0x04C11DB7 reflected, initial
// value 0xFFFFFFFF, final XOR 0xFFFFFFFF. hash/crc32 implements exactly
// these parameters with its IEEE table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 computes the frame CRC over a byte span.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// CRC32Update continues a CRC computation over an additional span. On the
// agent side the header and payload of a frame live in separate buffers,
// so RequestCRC and ResponseCRC compute the frame CRC in two passes.
func CRC32Update(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, crcTable, data)
}

// RequestCRC computes the CRC of a request frame from its parts. The CRC
// covers CMD, SUBFN, LEN (big-endian) and the payload.
func RequestCRC(commandID, subfunctionID uint8, data []byte) uint32 {
	header := [RequestHeaderLength]byte{
		commandID,
		subfunctionID,
		byte(len(data) >> 8),
		byte(len(data)),
	}
	crc := CRC32(header[:])
	return CRC32Update(crc, data)
}

// ResponseCRC computes the CRC of a response frame from its parts. The CRC
// covers CMD, SUBFN, CODE, LEN (big-endian) and the payload.
func ResponseCRC(commandID, subfunctionID uint8, code ResponseCode, data []byte) uint32 {
	header := [ResponseHeaderLength]byte{
		commandID,
		subfunctionID,
		uint8(code),
		byte(len(data) >> 8),
		byte(len(data)),
	}
	crc := CRC32(header[:])
	return CRC32Update(crc, data)
}
