package agent

import (
	"errors"

	"github.com/scrutinydebugger/scrutiny/memguard"
)

// Default timing parameters.
const (
	// DefaultHeartbeatTimeoutUs is the session drop delay when no valid
	// heartbeat arrives. The protocol allows 3-10 s; 5 s matches the
	// reference firmware.
	DefaultHeartbeatTimeoutUs = 5_000_000

	// DefaultRxTimeoutUs resets the reception state machine when a frame
	// stalls mid-assembly for that long.
	DefaultRxTimeoutUs = 50_000
)

// ErrConfigSealed is returned when a range is added to a Config that has
// already been installed into a handler.
var ErrConfigSealed = errors.New("agent: config is sealed after handler init")

// Config is the per-session configuration of the agent. It is copied by
// value into the handler at init and immutable afterwards.
type Config struct {
	// ProtocolMajor and ProtocolMinor are reported by GetProtocolVersion
	ProtocolMajor uint8
	ProtocolMinor uint8

	// MaxBitrate is the ceiling, in bits per second, the host should not
	// exceed on the transport. Zero means unlimited. Reported by GetParams.
	MaxBitrate uint32

	// DisplayName identifies this target in host-side tooling
	DisplayName string

	// SessionIDSeed is the starting point for session identifiers handed
	// out on each accepted Discover
	SessionIDSeed uint32

	// HeartbeatTimeoutUs overrides DefaultHeartbeatTimeoutUs when nonzero
	HeartbeatTimeoutUs uint32

	// RxTimeoutUs overrides DefaultRxTimeoutUs when nonzero
	RxTimeoutUs uint32

	// SoftwareID overrides DefaultSoftwareID when non-nil
	SoftwareID []byte

	forbidden []memguard.Region
	readOnly  []memguard.Region
	sealed    bool
}

// AddForbiddenAddressRange declares the closed interval [start, end] as
// unreachable for both reads and writes. Fails once the config is sealed
// or the table is full.
func (c *Config) AddForbiddenAddressRange(start, end uint64) error {
	if c.sealed {
		return ErrConfigSealed
	}
	if len(c.forbidden) >= memguard.MaxForbiddenRanges {
		return memguard.ErrRangeTableFull
	}

	c.forbidden = append(c.forbidden, memguard.NewRegion(start, end))
	return nil
}

// AddReadOnlyAddressRange declares the closed interval [start, end] as
// readable but not writable. Fails once the config is sealed or the
// table is full.
func (c *Config) AddReadOnlyAddressRange(start, end uint64) error {
	if c.sealed {
		return ErrConfigSealed
	}
	if len(c.readOnly) >= memguard.MaxReadOnlyRanges {
		return memguard.ErrRangeTableFull
	}

	c.readOnly = append(c.readOnly, memguard.NewRegion(start, end))
	return nil
}

// heartbeatTimeoutUs returns the effective heartbeat timeout.
func (c *Config) heartbeatTimeoutUs() uint64 {
	if c.HeartbeatTimeoutUs != 0 {
		return uint64(c.HeartbeatTimeoutUs)
	}
	return DefaultHeartbeatTimeoutUs
}

// rxTimeoutUs returns the effective mid-frame reception timeout.
func (c *Config) rxTimeoutUs() uint64 {
	if c.RxTimeoutUs != 0 {
		return uint64(c.RxTimeoutUs)
	}
	return DefaultRxTimeoutUs
}

// softwareID returns the effective firmware fingerprint.
func (c *Config) softwareID() []byte {
	if c.SoftwareID != nil {
		return c.SoftwareID
	}
	return DefaultSoftwareID[:]
}
