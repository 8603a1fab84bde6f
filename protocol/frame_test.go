package protocol

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestLayout(t *testing.T) {
	payload := []byte{0xAA, 0xBB}

	frame, err := BuildRequest(CmdMemoryControl, SubfnMemoryRead, payload)
	require.NoError(t, err)
	require.Len(t, frame, RequestHeaderLength+2+CRCLength)

	assert.Equal(t, uint8(CmdMemoryControl), frame[0])
	assert.Equal(t, uint8(SubfnMemoryRead), frame[1])
	assert.Equal(t, uint16(2), binary.BigEndian.Uint16(frame[2:4]))
	assert.Equal(t, payload, frame[4:6])
	assert.Equal(t, CRC32(frame[:6]), binary.BigEndian.Uint32(frame[6:]))
}

func TestBuildRequestEmptyPayload(t *testing.T) {
	frame, err := BuildRequest(CmdGetInfo, SubfnGetProtocolVersion, nil)
	require.NoError(t, err)
	require.Len(t, frame, RequestHeaderLength+CRCLength)
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(frame[2:4]))
}

func TestParseResponse(t *testing.T) {
	payload := []byte{0x01, 0x00}
	frame := []byte{CmdGetInfo | ResponseFlag, SubfnGetProtocolVersion, uint8(CodeOK), 0x00, 0x02}
	frame = append(frame, payload...)
	frame = binary.BigEndian.AppendUint32(frame, CRC32(frame))

	parsed, err := ParseResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, uint8(CmdGetInfo), parsed.CommandID)
	assert.Equal(t, uint8(SubfnGetProtocolVersion), parsed.SubfunctionID)
	assert.Equal(t, CodeOK, parsed.Code)
	assert.Equal(t, payload, parsed.Data)
}

func TestParseResponseErrors(t *testing.T) {
	valid := []byte{CmdGetInfo | ResponseFlag, SubfnGetProtocolVersion, uint8(CodeOK), 0x00, 0x00}
	valid = binary.BigEndian.AppendUint32(valid, CRC32(valid))

	corruptCRC := append([]byte{}, valid...)
	corruptCRC[len(corruptCRC)-1] ^= 0xFF

	noFlag := append([]byte{}, valid...)
	noFlag[0] &^= ResponseFlag

	badLength := append([]byte{}, valid...)
	badLength[4] = 5

	tests := []struct {
		name   string
		frame  []byte
		errMsg string
	}{
		{name: "too short", frame: valid[:8], errMsg: "frame too short"},
		{name: "crc mismatch", frame: corruptCRC, errMsg: "crc mismatch"},
		{name: "missing response flag", frame: noFlag, errMsg: "response flag not set"},
		{name: "length mismatch", frame: badLength, errMsg: "frame length mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.frame)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestBuildDiscoverRequest(t *testing.T) {
	challenge := [DiscoverChallengeSize]byte{1, 2, 3, 4}

	frame, err := BuildDiscoverRequest(challenge)
	require.NoError(t, err)

	assert.Equal(t, uint8(CmdCommControl), frame[0])
	assert.Equal(t, uint8(SubfnCommDiscover), frame[1])
	assert.Equal(t, uint16(20), binary.BigEndian.Uint16(frame[2:4]))
	assert.Equal(t, DiscoverMagic[:], frame[4:20])
	assert.Equal(t, challenge[:], frame[20:24])
}

func TestBuildWriteRequestLengthMismatch(t *testing.T) {
	_, err := BuildWriteRequest([]MemoryBlock{{Address: 0x1000, Length: 3, Data: []byte{0x01}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestProtocolErrorMessage(t *testing.T) {
	err := &ProtocolError{Operation: "memory read", Code: CodeForbidden}
	assert.Equal(t, "memory read failed: forbidden (0x06)", err.Error())
	assert.True(t, IsProtocolError(err))
	assert.False(t, IsProtocolError(assert.AnError))
}
