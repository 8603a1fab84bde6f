package agent

import (
	"encoding/binary"
	"errors"

	"github.com/scrutinydebugger/scrutiny/protocol"
)

// Transmit-path errors.
var (
	// ErrCommDisabled is returned when sending before a Discover
	// handshake has enabled the link
	ErrCommDisabled = errors.New("agent: communication not established")

	// ErrCommBusy is returned when a response is still draining
	ErrCommBusy = errors.New("agent: transmitter busy")

	// ErrTxOverflow is returned for a response payload larger than the
	// transmission buffer
	ErrTxOverflow = errors.New("agent: response exceeds tx buffer")
)

type commState uint8

const (
	stateIdle commState = iota
	stateReceiving
	stateTransmitting
)

type rxState uint8

const (
	rxWaitCommand rxState = iota
	rxWaitSubfunction
	rxWaitLength
	rxWaitData
	rxWaitCRC
	rxWaitProcess
	rxError
)

// CommHandler owns the reception and transmission buffers and everything
// session-related: frame reassembly, the discover gate, heartbeat state
// and the half-duplex interlock. It is driven from a single context; no
// method blocks.
type CommHandler struct {
	timebase *Timebase

	enabled bool

	// Reception
	rxBuffer            [protocol.RxBufferSize]byte
	request             protocol.Request
	state               commState
	rxState             rxState
	requestReceived     bool
	lengthBytesReceived uint8
	crcBytesReceived    uint8
	dataBytesReceived   uint16
	lastRxTimestamp     uint64
	rxTimeoutUs         uint64

	// Transmission
	txBuffer     [protocol.TxBufferSize]byte
	response     protocol.Response
	txHeader     [protocol.ResponseHeaderLength]byte
	txCRC        [protocol.CRCLength]byte
	txPayload    []byte
	nbytesToSend int
	nbytesSent   int

	// Session
	heartbeatTimeoutUs uint64
	lastHeartbeatUs    uint64
	lastChallenge      uint32
	hasChallenge       bool
	sessionActive      bool
	sessionSeed        uint32
	sessionCounter     uint32
	sessionID          uint32
}

// Init wires the handler to the shared timebase and installs the timing
// parameters. Must be called before anything else.
func (c *CommHandler) Init(timebase *Timebase, cfg *Config) {
	c.timebase = timebase
	c.rxTimeoutUs = cfg.rxTimeoutUs()
	c.heartbeatTimeoutUs = cfg.heartbeatTimeoutUs()
	c.sessionSeed = cfg.SessionIDSeed
	c.enabled = false
	c.Reset()
}

// Reset drops any partial frame, any queued response and the session.
func (c *CommHandler) Reset() {
	c.state = stateIdle
	c.enabled = false
	c.sessionActive = false
	c.hasChallenge = false
	c.resetRx()
	c.resetTx()
}

// ReceiveData feeds bytes from the transport into the reception state
// machine. While a response is draining the link is half duplex and
// incoming bytes are discarded. Once a complete request is exposed, the
// remaining bytes of the burst are dropped until RequestProcessed.
func (c *CommHandler) ReceiveData(data []byte) {
	if c.state == stateTransmitting {
		return
	}

	// A frame stalled mid-assembly for too long is abandoned before the
	// new bytes start a fresh one.
	if c.rxState != rxWaitCommand && !c.requestReceived && len(data) != 0 &&
		c.timebase.IsElapsed(c.lastRxTimestamp, c.rxTimeoutUs) {
		c.resetRx()
		c.state = stateIdle
	}

	if len(data) != 0 {
		c.lastRxTimestamp = c.timebase.Now()
		if c.state == stateIdle {
			c.state = stateReceiving
		}
	}

	i := 0
	for i < len(data) && !c.requestReceived && c.rxState != rxError {
		switch c.rxState {
		case rxWaitCommand:
			c.request.CommandID = data[i] &^ protocol.ResponseFlag
			c.rxState = rxWaitSubfunction
			i++

		case rxWaitSubfunction:
			c.request.SubfunctionID = data[i]
			c.rxState = rxWaitLength
			i++

		case rxWaitLength:
			if c.lengthBytesReceived == 0 {
				c.request.DataLength = uint16(data[i]) << 8
			} else {
				c.request.DataLength |= uint16(data[i])
			}
			c.lengthBytesReceived++
			i++

			if c.lengthBytesReceived == 2 {
				if c.request.DataLength == 0 {
					c.rxState = rxWaitCRC
				} else {
					c.rxState = rxWaitData
				}
			}

		case rxWaitData:
			if int(c.request.DataLength) > protocol.RxBufferSize {
				c.rxState = rxError
				break
			}

			missing := int(c.request.DataLength) - int(c.dataBytesReceived)
			chunk := len(data) - i
			if chunk > missing {
				chunk = missing
			}

			copy(c.rxBuffer[c.dataBytesReceived:], data[i:i+chunk])
			c.dataBytesReceived += uint16(chunk)
			i += chunk

			if c.dataBytesReceived >= c.request.DataLength {
				c.rxState = rxWaitCRC
			}

		case rxWaitCRC:
			c.request.CRC |= uint32(data[i]) << (24 - 8*uint(c.crcBytesReceived))
			c.crcBytesReceived++
			i++

			if c.crcBytesReceived == 4 {
				c.state = stateIdle
				c.finishFrame()
			}

		default:
			return
		}
	}
}

// finishFrame validates the assembled frame and decides whether to expose
// it. A CRC mismatch is dropped silently: a corrupt command or length
// cannot be safely attributed, so no error response is possible.
func (c *CommHandler) finishFrame() {
	if !c.checkCRC() {
		c.resetRx()
		return
	}

	if c.isDiscoverFrame() {
		c.openSession()
	}

	if !c.enabled {
		c.resetRx()
		return
	}

	c.request.Valid = true
	c.rxState = rxWaitProcess
	c.requestReceived = true
}

func (c *CommHandler) checkCRC() bool {
	crc := protocol.RequestCRC(
		c.request.CommandID,
		c.request.SubfunctionID,
		c.request.Data[:c.request.DataLength],
	)
	return crc == c.request.CRC
}

// isDiscoverFrame recognizes a CRC-valid Discover carrying the protocol
// magic. Such a frame is the only thing that can enable communication.
func (c *CommHandler) isDiscoverFrame() bool {
	if c.request.CommandID != protocol.CmdCommControl ||
		c.request.SubfunctionID != protocol.SubfnCommDiscover {
		return false
	}
	if int(c.request.DataLength) < len(protocol.DiscoverMagic) {
		return false
	}

	for i, b := range protocol.DiscoverMagic {
		if c.request.Data[i] != b {
			return false
		}
	}
	return true
}

// openSession enables the link and starts a fresh logical session. The
// heartbeat clock stays disarmed until the first accepted heartbeat.
func (c *CommHandler) openSession() {
	c.enabled = true
	c.sessionActive = false
	c.hasChallenge = false
	c.sessionCounter++
	c.sessionID = c.sessionSeed + c.sessionCounter
}

// RequestReceived reports whether a complete validated request is ready
// and the previous response has fully transmitted.
func (c *CommHandler) RequestReceived() bool {
	return c.requestReceived && c.state != stateTransmitting
}

// Request returns the active request. Only meaningful while
// RequestReceived is true.
func (c *CommHandler) Request() *protocol.Request {
	return &c.request
}

// RequestProcessed releases the active request and allows reception of
// the next one. The main handler calls it exactly once per accepted
// request, after the response has drained.
func (c *CommHandler) RequestProcessed() {
	c.resetRx()
}

// PrepareResponse resets the response and hands it out, backed by the
// transmission buffer.
func (c *CommHandler) PrepareResponse() *protocol.Response {
	c.response.Reset()
	c.response.Data = c.txBuffer[:]
	return &c.response
}

// SendResponse seals a response and queues it for transmission: the
// command byte gets the response flag, the CRC is computed over the
// serialized header and payload, and the transmitter takes over.
func (c *CommHandler) SendResponse(resp *protocol.Response) error {
	if !c.enabled {
		return ErrCommDisabled
	}
	if c.state == stateTransmitting {
		return ErrCommBusy
	}
	if int(resp.DataLength) > protocol.TxBufferSize {
		c.resetTx()
		return ErrTxOverflow
	}

	cmd := resp.CommandID | protocol.ResponseFlag
	payload := resp.Data[:resp.DataLength]

	c.txHeader = [protocol.ResponseHeaderLength]byte{
		cmd,
		resp.SubfunctionID,
		uint8(resp.Code),
		byte(resp.DataLength >> 8),
		byte(resp.DataLength),
	}
	resp.CRC = protocol.ResponseCRC(cmd, resp.SubfunctionID, resp.Code, payload)
	binary.BigEndian.PutUint32(c.txCRC[:], resp.CRC)

	c.txPayload = payload
	c.nbytesToSend = len(c.txHeader) + len(payload) + len(c.txCRC)
	c.nbytesSent = 0
	c.state = stateTransmitting
	return nil
}

// DataToSend returns the number of response bytes still queued.
func (c *CommHandler) DataToSend() int {
	if c.state != stateTransmitting {
		return 0
	}
	return c.nbytesToSend - c.nbytesSent
}

// PopData drains up to len(buf) queued response bytes FIFO into buf and
// returns how many were copied.
func (c *CommHandler) PopData(buf []byte) int {
	if c.state != stateTransmitting {
		return 0
	}

	n := 0
	for n < len(buf) && c.nbytesSent < c.nbytesToSend {
		pos := c.nbytesSent
		switch {
		case pos < len(c.txHeader):
			buf[n] = c.txHeader[pos]
		case pos < len(c.txHeader)+len(c.txPayload):
			buf[n] = c.txPayload[pos-len(c.txHeader)]
		default:
			buf[n] = c.txCRC[pos-len(c.txHeader)-len(c.txPayload)]
		}
		n++
		c.nbytesSent++
	}

	if c.nbytesSent >= c.nbytesToSend {
		c.resetTx()
	}
	return n
}

// Transmitting reports whether response bytes remain queued.
func (c *CommHandler) Transmitting() bool {
	return c.state == stateTransmitting
}

// Receiving reports whether a frame is being assembled.
func (c *CommHandler) Receiving() bool {
	return c.state == stateReceiving
}

// Connected reports whether the link is enabled, i.e. a Discover has been
// accepted since the last reset, disconnect or heartbeat timeout.
func (c *CommHandler) Connected() bool {
	return c.enabled
}

// SessionID returns the identifier of the current logical session.
func (c *CommHandler) SessionID() uint32 {
	return c.sessionID
}

// Connect enables the link without a Discover handshake. Primarily for
// tests and host-driven setups.
func (c *CommHandler) Connect() {
	c.openSession()
}

// Disconnect drops the session and flushes reception. A response already
// queued keeps draining.
func (c *CommHandler) Disconnect() {
	c.enabled = false
	c.sessionActive = false
	c.hasChallenge = false
	c.resetRx()
}

// Heartbeat records a heartbeat challenge. The first accepted heartbeat
// arms the timeout clock; a challenge equal to the previous accepted one
// is a replay and is rejected.
func (c *CommHandler) Heartbeat(challenge uint32) bool {
	if c.hasChallenge && challenge == c.lastChallenge {
		return false
	}

	c.lastChallenge = challenge
	c.hasChallenge = true
	c.lastHeartbeatUs = c.timebase.Now()
	c.sessionActive = true
	return true
}

// CheckHeartbeatTimeout drops the session when the heartbeat clock is
// armed and has expired. Reception is flushed; an in-flight response
// still goes out. Returns true when a timeout fired.
func (c *CommHandler) CheckHeartbeatTimeout() bool {
	if !c.sessionActive || !c.timebase.IsElapsed(c.lastHeartbeatUs, c.heartbeatTimeoutUs) {
		return false
	}

	c.Disconnect()
	return true
}

func (c *CommHandler) resetRx() {
	c.request.Reset()
	c.request.Data = c.rxBuffer[:]
	c.rxState = rxWaitCommand
	c.requestReceived = false
	c.lengthBytesReceived = 0
	c.crcBytesReceived = 0
	c.dataBytesReceived = 0
	if c.timebase != nil {
		c.lastRxTimestamp = c.timebase.Now()
	}

	if c.state == stateReceiving {
		c.state = stateIdle
	}
}

func (c *CommHandler) resetTx() {
	c.response.Reset()
	c.txPayload = nil
	c.nbytesToSend = 0
	c.nbytesSent = 0

	if c.state == stateTransmitting {
		c.state = stateIdle
	}
}
