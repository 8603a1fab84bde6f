package protocol

import (
	"encoding/binary"
	"fmt"
)

// Host-side helpers. The agent never allocates; these builders exist for
// hosts, tests and tooling that talk to an agent and can afford to.

// BuildRequest constructs a complete request frame ready to send.
//
// Frame structure:
//
//	[CMD][SUBFN][LEN_H][LEN_L][DATA...][CRC32 (4, big-endian)]
func BuildRequest(commandID, subfunctionID uint8, data []byte) ([]byte, error) {
	if len(data) > MaxDataLength {
		return nil, fmt.Errorf("data length %d exceeds maximum %d bytes", len(data), MaxDataLength)
	}

	frame := make([]byte, 0, RequestHeaderLength+len(data)+CRCLength)
	frame = append(frame, commandID, subfunctionID, byte(len(data)>>8), byte(len(data)))
	frame = append(frame, data...)

	crc := CRC32(frame)
	frame = binary.BigEndian.AppendUint32(frame, crc)

	return frame, nil
}

// ParsedResponse is a response frame decoded by ParseResponse. Data
// aliases the input frame.
type ParsedResponse struct {
	CommandID     uint8
	SubfunctionID uint8
	Code          ResponseCode
	Data          []byte
}

// ParseResponse validates a complete response frame and extracts its
// parts. The command byte keeps the ResponseFlag stripped off.
//
// Frame structure:
//
//	[CMD|0x80][SUBFN][CODE][LEN_H][LEN_L][DATA...][CRC32 (4, big-endian)]
func ParseResponse(frame []byte) (*ParsedResponse, error) {
	const minSize = ResponseHeaderLength + CRCLength

	if len(frame) < minSize {
		return nil, fmt.Errorf("frame too short: got %d bytes, minimum is %d", len(frame), minSize)
	}

	if frame[0]&ResponseFlag == 0 {
		return nil, fmt.Errorf("response flag not set on command byte 0x%02X", frame[0])
	}

	dataLen := int(binary.BigEndian.Uint16(frame[3:5]))
	expectedLen := minSize + dataLen
	if len(frame) != expectedLen {
		return nil, fmt.Errorf("frame length mismatch: got %d bytes, expected %d (header=%d + dataLen=%d + crc=%d)",
			len(frame), expectedLen, ResponseHeaderLength, dataLen, CRCLength)
	}

	crcExpected := binary.BigEndian.Uint32(frame[len(frame)-CRCLength:])
	crcActual := CRC32(frame[:len(frame)-CRCLength])
	if crcExpected != crcActual {
		return nil, fmt.Errorf("crc mismatch: got 0x%08X, expected 0x%08X", crcActual, crcExpected)
	}

	return &ParsedResponse{
		CommandID:     frame[0] &^ ResponseFlag,
		SubfunctionID: frame[1],
		Code:          ResponseCode(frame[2]),
		Data:          frame[ResponseHeaderLength : ResponseHeaderLength+dataLen],
	}, nil
}

// BuildDiscoverRequest constructs a Discover request frame carrying the
// protocol magic and the given challenge.
func BuildDiscoverRequest(challenge [DiscoverChallengeSize]byte) ([]byte, error) {
	payload := make([]byte, 0, len(DiscoverMagic)+DiscoverChallengeSize)
	payload = append(payload, DiscoverMagic[:]...)
	payload = append(payload, challenge[:]...)
	return BuildRequest(CmdCommControl, SubfnCommDiscover, payload)
}

// BuildHeartbeatRequest constructs a Heartbeat request frame carrying a
// u32 challenge.
func BuildHeartbeatRequest(challenge uint32) ([]byte, error) {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], challenge)
	return BuildRequest(CmdCommControl, SubfnCommHeartbeat, payload[:])
}

// BuildReadRequest constructs a MemoryControl.Read request frame for the
// given blocks. Block data fields are ignored.
func BuildReadRequest(blocks []MemoryBlock) ([]byte, error) {
	payload := make([]byte, 0, len(blocks)*BlockHeaderLength)
	var addr [AddressSize]byte
	for _, b := range blocks {
		EncodeAddress(addr[:], b.Address)
		payload = append(payload, addr[:]...)
		payload = append(payload, byte(b.Length>>8), byte(b.Length))
	}
	return BuildRequest(CmdMemoryControl, SubfnMemoryRead, payload)
}

// BuildWriteRequest constructs a MemoryControl.Write request frame for the
// given blocks. Every block's Length must equal len(block.Data).
func BuildWriteRequest(blocks []MemoryBlock) ([]byte, error) {
	var payload []byte
	var addr [AddressSize]byte
	for i, b := range blocks {
		if int(b.Length) != len(b.Data) {
			return nil, fmt.Errorf("block %d: declared length %d does not match %d data bytes", i, b.Length, len(b.Data))
		}
		EncodeAddress(addr[:], b.Address)
		payload = append(payload, addr[:]...)
		payload = append(payload, byte(b.Length>>8), byte(b.Length))
		payload = append(payload, b.Data...)
	}
	return BuildRequest(CmdMemoryControl, SubfnMemoryWrite, payload)
}
