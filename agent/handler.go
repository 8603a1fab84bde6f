package agent

import (
	"fmt"

	"github.com/scrutinydebugger/scrutiny/memguard"
	"github.com/scrutinydebugger/scrutiny/protocol"
)

// subhandler executes one command family. It fills the response payload
// and returns the response code; the main handler takes care of the
// header and of zeroing the payload on any non-OK code.
type subhandler func(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode

// MainHandler is the agent's entry point. The host firmware constructs
// one, feeds transport bytes to Comm().ReceiveData, calls Process on
// every tick and drains Comm().PopData back into the transport.
//
// All state mutation happens inside Process and the Comm methods; they
// must be called from a single context (the superloop or one dedicated
// low-priority task). Nothing blocks: every call returns after a bounded
// amount of work, linear in the size of one frame.
type MainHandler struct {
	timebase Timebase
	comm     CommHandler
	config   Config
	guard    *memguard.Guard
	logger   Logger

	dispatch          map[uint8]subhandler
	processingRequest bool
}

// New builds a handler over the target memory with the given
// configuration. The config is sealed and copied; later mutations of the
// caller's copy have no effect.
func New(mem memguard.Memory, config *Config, opts ...Option) (*MainHandler, error) {
	if mem == nil {
		return nil, fmt.Errorf("agent: memory cannot be nil")
	}
	if config == nil {
		config = &Config{ProtocolMajor: protocol.VersionMajor, ProtocolMinor: protocol.VersionMinor}
	}

	config.sealed = true

	h := &MainHandler{config: *config}

	guard, err := memguard.New(mem, config.forbidden, config.readOnly)
	if err != nil {
		return nil, fmt.Errorf("agent: build memory guard: %w", err)
	}
	h.guard = guard

	h.comm.Init(&h.timebase, &h.config)

	h.dispatch = map[uint8]subhandler{
		protocol.CmdGetInfo:       h.processGetInfo,
		protocol.CmdCommControl:   h.processCommControl,
		protocol.CmdMemoryControl: h.processMemoryControl,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Comm exposes the communication handler for transport integration and
// manual session control.
func (h *MainHandler) Comm() *CommHandler {
	return &h.comm
}

// Guard exposes the memory guard.
func (h *MainHandler) Guard() *memguard.Guard {
	return h.guard
}

// Process advances the agent by one tick. dtUs is the number of
// microseconds elapsed since the previous call. At most one request is
// dispatched per tick, synchronously and to completion; the next request
// is not accepted until the response has fully drained.
func (h *MainHandler) Process(dtUs uint32) {
	h.timebase.Step(dtUs)

	if h.comm.CheckHeartbeatTimeout() {
		h.logInfo("session dropped on heartbeat timeout",
			"session_id", h.comm.SessionID())
	}

	if h.comm.RequestReceived() && !h.processingRequest {
		h.processingRequest = true

		req := h.comm.Request()
		resp := h.comm.PrepareResponse()
		h.processRequest(req, resp)

		if resp.Valid {
			if err := h.comm.SendResponse(resp); err != nil {
				h.logError("send response", "error", err.Error())
			}
		}
	}

	if h.processingRequest && !h.comm.Transmitting() {
		h.comm.RequestProcessed()
		h.processingRequest = false
	}
}

// processRequest routes one validated request through the dispatch table
// and finalizes the response header.
func (h *MainHandler) processRequest(req *protocol.Request, resp *protocol.Response) {
	code := protocol.CodeFailureToProceed

	if !req.Valid {
		return
	}

	resp.CommandID = req.CommandID
	resp.SubfunctionID = req.SubfunctionID
	resp.Valid = true

	if handler, ok := h.dispatch[req.CommandID]; ok {
		code = handler(req, resp)
	} else {
		code = protocol.CodeUnsupportedFeature
	}

	resp.Code = code
	if code != protocol.CodeOK {
		resp.DataLength = 0
	}

	h.logDebug("request processed",
		"command", fmt.Sprintf("0x%02X", req.CommandID),
		"subfunction", fmt.Sprintf("0x%02X", req.SubfunctionID),
		"code", code.String(),
	)
}

func (h *MainHandler) processGetInfo(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	switch req.SubfunctionID {
	case protocol.SubfnGetProtocolVersion:
		return protocol.EncodeProtocolVersionResponse(h.config.ProtocolMajor, h.config.ProtocolMinor, resp)

	case protocol.SubfnGetSoftwareID:
		return protocol.EncodeSoftwareIDResponse(h.config.softwareID(), resp)

	case protocol.SubfnGetSupportedFeatures:
		// Reserved: the feature bitmap layout is not defined yet.
		return protocol.CodeUnsupportedFeature

	case protocol.SubfnGetSpecialMemoryRegionCount:
		return protocol.EncodeRegionCountResponse(
			uint8(len(h.guard.ReadOnlyRegions())),
			uint8(len(h.guard.ForbiddenRegions())),
			resp,
		)

	case protocol.SubfnGetSpecialMemoryRegionLocation:
		return h.processRegionLocation(req, resp)

	default:
		return protocol.CodeUnsupportedFeature
	}
}

func (h *MainHandler) processRegionLocation(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	var reqData protocol.RegionLocationRequest
	if code := protocol.DecodeRegionLocationRequest(req, &reqData); code != protocol.CodeOK {
		return code
	}

	var regions []memguard.Region
	switch reqData.RegionType {
	case protocol.RegionTypeReadOnly:
		regions = h.guard.ReadOnlyRegions()
	case protocol.RegionTypeForbidden:
		regions = h.guard.ForbiddenRegions()
	default:
		return protocol.CodeInvalidRequest
	}

	if int(reqData.RegionIndex) >= len(regions) {
		return protocol.CodeInvalidRequest
	}

	region := regions[reqData.RegionIndex]
	return protocol.EncodeRegionLocationResponse(reqData.RegionType, reqData.RegionIndex, region.Start, region.End, resp)
}

func (h *MainHandler) processCommControl(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	switch req.SubfunctionID {
	case protocol.SubfnCommDiscover:
		var reqData protocol.DiscoverRequest
		if code := protocol.DecodeDiscoverRequest(req, &reqData); code != protocol.CodeOK {
			return code
		}

		var challengeResponse [protocol.DiscoverChallengeSize]byte
		for i, b := range reqData.Challenge {
			challengeResponse[i] = ^b
		}

		h.logInfo("host discovered agent", "session_id", h.comm.SessionID())
		return protocol.EncodeDiscoverResponse(challengeResponse, resp)

	case protocol.SubfnCommHeartbeat:
		var reqData protocol.HeartbeatRequest
		if code := protocol.DecodeHeartbeatRequest(req, &reqData); code != protocol.CodeOK {
			return code
		}

		if !h.comm.Heartbeat(reqData.Challenge) {
			return protocol.CodeInvalidRequest
		}

		return protocol.EncodeHeartbeatResponse(^reqData.Challenge, resp)

	case protocol.SubfnCommGetParams:
		params := protocol.CommParams{
			RxBufferSize:       protocol.RxBufferSize,
			TxBufferSize:       protocol.TxBufferSize,
			MaxBitrate:         h.config.MaxBitrate,
			HeartbeatTimeoutUs: uint32(h.config.heartbeatTimeoutUs()),
			RxTimeoutUs:        uint32(h.config.rxTimeoutUs()),
		}
		return protocol.EncodeGetParamsResponse(&params, resp)

	default:
		return protocol.CodeUnsupportedFeature
	}
}

func (h *MainHandler) processMemoryControl(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	switch req.SubfunctionID {
	case protocol.SubfnMemoryRead:
		return h.processMemoryRead(req, resp)
	case protocol.SubfnMemoryWrite:
		return h.processMemoryWrite(req, resp)
	default:
		return protocol.CodeUnsupportedFeature
	}
}

// processMemoryRead serves a multi-block read. The guard clears every
// block before a single byte of target memory is touched: a denied block
// fails the whole request with no partial response.
func (h *MainHandler) processMemoryRead(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	parser := protocol.ParseReadBlocks(req)
	if !parser.Valid() {
		return protocol.CodeInvalidRequest
	}

	var block protocol.MemoryBlock
	for parser.Next(&block) {
		if err := h.guard.CheckRead(block.Address, block.Length); err != nil {
			return protocol.CodeForbidden
		}
	}

	parser.Reset()
	encoder := protocol.NewReadBlocksEncoder(resp, protocol.TxBufferSize)
	for parser.Next(&block) {
		dst := encoder.AppendBlock(block.Address, block.Length)
		if encoder.Overflow() {
			return protocol.CodeOverflow
		}
		if err := h.guard.Read(block.Address, dst); err != nil {
			h.logError("memory read", "address", fmt.Sprintf("0x%X", block.Address), "error", err.Error())
			return protocol.CodeFailureToProceed
		}
	}

	return protocol.CodeOK
}

// processMemoryWrite serves a multi-block write. Guard clearance and the
// response-size check both happen before the first byte is written, so a
// denied or oversized request leaves target memory untouched. If the
// memory itself rejects a block, the blocks before it stay written.
func (h *MainHandler) processMemoryWrite(req *protocol.Request, resp *protocol.Response) protocol.ResponseCode {
	parser := protocol.ParseWriteBlocks(req)
	if !parser.Valid() {
		return protocol.CodeInvalidRequest
	}

	var block protocol.MemoryBlock
	for parser.Next(&block) {
		if err := h.guard.CheckWrite(block.Address, block.Length); err != nil {
			return protocol.CodeForbidden
		}
	}

	if parser.RequiredTxSize() > protocol.TxBufferSize {
		return protocol.CodeOverflow
	}

	parser.Reset()
	encoder := protocol.NewWriteBlocksEncoder(resp, protocol.TxBufferSize)
	for parser.Next(&block) {
		if err := h.guard.Write(block.Address, block.Data); err != nil {
			h.logError("memory write", "address", fmt.Sprintf("0x%X", block.Address), "error", err.Error())
			return protocol.CodeFailureToProceed
		}
		if !encoder.AppendBlock(block.Address, block.Length) {
			return protocol.CodeOverflow
		}
	}

	return protocol.CodeOK
}

func (h *MainHandler) logDebug(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, keysAndValues...)
	}
}

func (h *MainHandler) logInfo(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, keysAndValues...)
	}
}

func (h *MainHandler) logError(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Error(msg, keysAndValues...)
	}
}
