package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(commandID, subfunctionID uint8, data []byte) *Request {
	return &Request{
		CommandID:     commandID,
		SubfunctionID: subfunctionID,
		DataLength:    uint16(len(data)),
		Data:          data,
		Valid:         true,
	}
}

func newResponse() *Response {
	return &Response{Data: make([]byte, TxBufferSize)}
}

func TestDecodeDiscoverRequest(t *testing.T) {
	challenge := [DiscoverChallengeSize]byte{0xDE, 0xAD, 0xBE, 0xEF}

	goodPayload := append(append([]byte{}, DiscoverMagic[:]...), challenge[:]...)
	badMagic := append([]byte{}, goodPayload...)
	badMagic[0] ^= 0xFF

	tests := []struct {
		name     string
		payload  []byte
		wantCode ResponseCode
	}{
		{name: "valid", payload: goodPayload, wantCode: CodeOK},
		{name: "wrong magic", payload: badMagic, wantCode: CodeInvalidRequest},
		{name: "too short", payload: goodPayload[:19], wantCode: CodeInvalidRequest},
		{name: "too long", payload: append(append([]byte{}, goodPayload...), 0x00), wantCode: CodeInvalidRequest},
		{name: "empty", payload: nil, wantCode: CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded DiscoverRequest
			code := DecodeDiscoverRequest(newRequest(CmdCommControl, SubfnCommDiscover, tt.payload), &decoded)
			assert.Equal(t, tt.wantCode, code)

			if tt.wantCode == CodeOK {
				want := DiscoverRequest{Magic: DiscoverMagic, Challenge: challenge}
				if diff := cmp.Diff(want, decoded); diff != "" {
					t.Errorf("decoded payload mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestDiscoverResponseEcho(t *testing.T) {
	challengeResponse := [DiscoverChallengeSize]byte{0x21, 0xE7, 0x03, 0x76}

	resp := newResponse()
	code := EncodeDiscoverResponse(challengeResponse, resp)
	require.Equal(t, CodeOK, code)
	require.Equal(t, uint16(20), resp.DataLength)

	assert.Equal(t, DiscoverMagic[:], resp.Data[:16])
	assert.Equal(t, challengeResponse[:], resp.Data[16:20])
}

func TestHeartbeatRoundTrip(t *testing.T) {
	var decoded HeartbeatRequest
	code := DecodeHeartbeatRequest(newRequest(CmdCommControl, SubfnCommHeartbeat, []byte{0x12, 0x34, 0x56, 0x78}), &decoded)
	require.Equal(t, CodeOK, code)
	assert.Equal(t, uint32(0x12345678), decoded.Challenge)

	resp := newResponse()
	require.Equal(t, CodeOK, EncodeHeartbeatResponse(^decoded.Challenge, resp))
	require.Equal(t, uint16(4), resp.DataLength)
	assert.Equal(t, []byte{0xED, 0xCB, 0xA9, 0x87}, resp.Data[:4])
}

func TestDecodeHeartbeatRequestBadLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 5, 8} {
		var decoded HeartbeatRequest
		code := DecodeHeartbeatRequest(newRequest(CmdCommControl, SubfnCommHeartbeat, make([]byte, n)), &decoded)
		assert.Equal(t, CodeInvalidRequest, code, "payload length %d", n)
	}
}

func TestEncodeProtocolVersionResponse(t *testing.T) {
	resp := newResponse()
	require.Equal(t, CodeOK, EncodeProtocolVersionResponse(1, 0, resp))
	assert.Equal(t, uint16(2), resp.DataLength)
	assert.Equal(t, []byte{1, 0}, resp.Data[:2])
}

func TestEncodeSoftwareIDResponse(t *testing.T) {
	id := make([]byte, 16)
	for i := range id {
		id[i] = byte(i)
	}

	resp := newResponse()
	require.Equal(t, CodeOK, EncodeSoftwareIDResponse(id, resp))
	assert.Equal(t, uint16(16), resp.DataLength)
	assert.Equal(t, id, resp.Data[:16])
}

func TestEncodeSoftwareIDResponseOverflow(t *testing.T) {
	resp := &Response{Data: make([]byte, 8)}
	assert.Equal(t, CodeOverflow, EncodeSoftwareIDResponse(make([]byte, 9), resp))
}

func TestEncodeGetParamsResponse(t *testing.T) {
	params := CommParams{
		RxBufferSize:       128,
		TxBufferSize:       256,
		MaxBitrate:         100000,
		HeartbeatTimeoutUs: 5000000,
		RxTimeoutUs:        50000,
	}

	resp := newResponse()
	require.Equal(t, CodeOK, EncodeGetParamsResponse(&params, resp))
	require.Equal(t, uint16(16), resp.DataLength)

	want := []byte{
		0x00, 0x80,
		0x01, 0x00,
		0x00, 0x01, 0x86, 0xA0,
		0x00, 0x4C, 0x4B, 0x40,
		0x00, 0x00, 0xC3, 0x50,
	}
	assert.Equal(t, want, resp.Data[:16])
}

func TestRegionLocationRoundTrip(t *testing.T) {
	var decoded RegionLocationRequest
	code := DecodeRegionLocationRequest(newRequest(CmdGetInfo, SubfnGetSpecialMemoryRegionLocation, []byte{RegionTypeForbidden, 2}), &decoded)
	require.Equal(t, CodeOK, code)

	want := RegionLocationRequest{RegionType: RegionTypeForbidden, RegionIndex: 2}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("decoded payload mismatch (-want +got):\n%s", diff)
	}

	resp := newResponse()
	require.Equal(t, CodeOK, EncodeRegionLocationResponse(decoded.RegionType, decoded.RegionIndex, 0x1000, 0x1FFF, resp))
	require.Equal(t, uint16(2+2*AddressSize), resp.DataLength)

	assert.Equal(t, []byte{RegionTypeForbidden, 2}, resp.Data[:2])
	assert.Equal(t, uint64(0x1000), DecodeAddress(resp.Data[2:]))
	assert.Equal(t, uint64(0x1FFF), DecodeAddress(resp.Data[2+AddressSize:]))
}

func TestAddressRoundTrip(t *testing.T) {
	addrs := []uint64{0, 1, 0x1234, 0xDEADBEEF, 0xFFFFFFFFFFFFFFFF}

	var buf [AddressSize]byte
	for _, addr := range addrs {
		EncodeAddress(buf[:], addr)
		assert.Equal(t, addr, DecodeAddress(buf[:]))
	}
}
