// Package agent implements the embedded side of the Scrutiny debug
// protocol: a non-blocking instrumentation agent that lives inside a
// target firmware and exposes its memory and state to a host over any
// byte pipe.
//
// # Integration
//
// The host firmware owns the loop. On every tick it feeds whatever bytes
// the transport produced, advances the agent, and drains whatever the
// agent wants to send:
//
//	mem := memguard.NewBufferMemory(0x2000_0000, ram)
//	cfg := agent.Config{ProtocolMajor: 1, ProtocolMinor: 0}
//	cfg.AddForbiddenAddressRange(0x2000_1000, 0x2000_1FFF)
//
//	handler, err := agent.New(mem, &cfg)
//
//	for {
//	    handler.Comm().ReceiveData(transportRead())
//	    handler.Process(dtUs)
//	    if n := handler.Comm().DataToSend(); n > 0 {
//	        handler.Comm().PopData(out[:n])
//	        transportWrite(out[:n])
//	    }
//	}
//
// Process never blocks and performs a bounded amount of work, so it is
// safe to call from a superloop or a tick ISR's bottom half. If an ISR
// delivers transport bytes directly, funnel them through a lock-free
// SPSC FIFO first; the agent itself is strictly single-context.
//
// # Session
//
// A freshly reset agent ignores everything until a Discover frame
// carrying the protocol magic arrives. The first heartbeat after the
// handshake arms the session timeout; from then on the host must
// heartbeat with a fresh challenge before the timeout expires or the
// agent silently drops back to the discover-gated state.
package agent
