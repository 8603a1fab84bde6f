// Package protocol implements the Scrutiny debug-agent wire format.
//
// This package contains the pure parts of the protocol: constants, the
// frame CRC, typed payload codecs, and the streaming parsers and encoders
// for memory-block payloads. Nothing here holds session state; everything
// operates on borrowed byte slices so the embedded side never allocates.
//
// # Frame layout
//
// All multi-byte integers are big-endian. The CRC is CRC-32/IEEE over
// every preceding byte of the frame.
//
//	Request:  [CMD][SUBFN][LEN(2)][DATA...][CRC(4)]
//	Response: [CMD|0x80][SUBFN][CODE][LEN(2)][DATA...][CRC(4)]
//
// The high bit of the response command byte makes a response visibly
// distinct from a request echo on a shared medium.
//
// # Agent-side codecs
//
// Decode* functions read a typed payload out of a validated Request and
// return a ResponseCode; Encode* functions write a typed payload into a
// Response without partial writes. Memory read/write payloads repeat, so
// they stream through ReadBlocksParser / WriteBlocksParser and the
// matching encoders instead of materializing.
//
// # Host-side helpers
//
// Build* functions construct complete request frames and ParseResponse
// validates and splits a response frame. These allocate and are meant for
// hosts, tests and tooling, not for the agent loop.
package protocol
