package protocol

import "encoding/binary"

// Typed payloads for the fixed-layout commands. Memory read/write payloads
// are repeated structures and stream through the parsers in memblocks.go
// instead.

// DiscoverRequest is the payload of CommControl.Discover.
type DiscoverRequest struct {
	Magic     [16]byte
	Challenge [DiscoverChallengeSize]byte
}

// HeartbeatRequest is the payload of CommControl.Heartbeat.
type HeartbeatRequest struct {
	Challenge uint32
}

// CommParams is the payload of the CommControl.GetParams response.
type CommParams struct {
	RxBufferSize       uint16
	TxBufferSize       uint16
	MaxBitrate         uint32
	HeartbeatTimeoutUs uint32
	RxTimeoutUs        uint32
}

// RegionLocationRequest is the payload of GetSpecialMemoryRegionLocation.
type RegionLocationRequest struct {
	RegionType  uint8
	RegionIndex uint8
}

// DecodeDiscoverRequest reads a Discover payload. The payload must be
// exactly magic + challenge and the magic must match DiscoverMagic.
func DecodeDiscoverRequest(req *Request, out *DiscoverRequest) ResponseCode {
	const datalen = len(DiscoverMagic) + DiscoverChallengeSize

	if int(req.DataLength) != datalen {
		return CodeInvalidRequest
	}

	copy(out.Magic[:], req.Data[:len(DiscoverMagic)])
	if out.Magic != DiscoverMagic {
		return CodeInvalidRequest
	}
	copy(out.Challenge[:], req.Data[len(DiscoverMagic):datalen])

	return CodeOK
}

// EncodeDiscoverResponse writes the Discover response: the magic followed
// by the challenge response.
func EncodeDiscoverResponse(challengeResponse [DiscoverChallengeSize]byte, resp *Response) ResponseCode {
	const datalen = len(DiscoverMagic) + DiscoverChallengeSize

	copy(resp.Data[:len(DiscoverMagic)], DiscoverMagic[:])
	copy(resp.Data[len(DiscoverMagic):datalen], challengeResponse[:])
	resp.DataLength = uint16(datalen)

	return CodeOK
}

// DecodeHeartbeatRequest reads a Heartbeat payload: a single u32 challenge.
func DecodeHeartbeatRequest(req *Request, out *HeartbeatRequest) ResponseCode {
	const datalen = 4

	if int(req.DataLength) != datalen {
		return CodeInvalidRequest
	}

	out.Challenge = binary.BigEndian.Uint32(req.Data[:datalen])
	return CodeOK
}

// EncodeHeartbeatResponse writes the Heartbeat response: the u32 challenge
// response.
func EncodeHeartbeatResponse(challengeResponse uint32, resp *Response) ResponseCode {
	binary.BigEndian.PutUint32(resp.Data[:4], challengeResponse)
	resp.DataLength = 4
	return CodeOK
}

// EncodeProtocolVersionResponse writes the GetProtocolVersion response.
func EncodeProtocolVersionResponse(major, minor uint8, resp *Response) ResponseCode {
	resp.Data[0] = major
	resp.Data[1] = minor
	resp.DataLength = 2
	return CodeOK
}

// EncodeSoftwareIDResponse writes the GetSoftwareID response: the raw
// firmware fingerprint bytes.
func EncodeSoftwareIDResponse(softwareID []byte, resp *Response) ResponseCode {
	if len(softwareID) > len(resp.Data) {
		return CodeOverflow
	}

	copy(resp.Data, softwareID)
	resp.DataLength = uint16(len(softwareID))
	return CodeOK
}

// EncodeGetParamsResponse writes the GetParams response.
func EncodeGetParamsResponse(params *CommParams, resp *Response) ResponseCode {
	binary.BigEndian.PutUint16(resp.Data[0:2], params.RxBufferSize)
	binary.BigEndian.PutUint16(resp.Data[2:4], params.TxBufferSize)
	binary.BigEndian.PutUint32(resp.Data[4:8], params.MaxBitrate)
	binary.BigEndian.PutUint32(resp.Data[8:12], params.HeartbeatTimeoutUs)
	binary.BigEndian.PutUint32(resp.Data[12:16], params.RxTimeoutUs)
	resp.DataLength = 16
	return CodeOK
}

// EncodeRegionCountResponse writes the GetSpecialMemoryRegionCount
// response: one count per region type.
func EncodeRegionCountResponse(readOnlyCount, forbiddenCount uint8, resp *Response) ResponseCode {
	resp.Data[0] = readOnlyCount
	resp.Data[1] = forbiddenCount
	resp.DataLength = 2
	return CodeOK
}

// DecodeRegionLocationRequest reads a GetSpecialMemoryRegionLocation
// payload: region type + region index.
func DecodeRegionLocationRequest(req *Request, out *RegionLocationRequest) ResponseCode {
	const datalen = 2

	if int(req.DataLength) != datalen {
		return CodeInvalidRequest
	}

	out.RegionType = req.Data[0]
	out.RegionIndex = req.Data[1]
	return CodeOK
}

// EncodeRegionLocationResponse writes the GetSpecialMemoryRegionLocation
// response: type, index, then the region's start and end addresses.
func EncodeRegionLocationResponse(regionType, regionIndex uint8, start, end uint64, resp *Response) ResponseCode {
	resp.Data[0] = regionType
	resp.Data[1] = regionIndex
	EncodeAddress(resp.Data[2:], start)
	EncodeAddress(resp.Data[2+AddressSize:], end)
	resp.DataLength = 2 + 2*AddressSize
	return CodeOK
}
