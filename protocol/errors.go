package protocol

import "fmt"

// ProtocolError represents a non-OK response code returned by the agent.
// Hosts use it to surface a failed command with context.
type ProtocolError struct {
	// Operation is the command that failed
	Operation string

	// Code is the response code carried by the response frame
	Code ResponseCode
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (0x%02X)", e.Operation, e.Code, uint8(e.Code))
}

// IsProtocolError returns true if the error is a ProtocolError.
func IsProtocolError(err error) bool {
	_, ok := err.(*ProtocolError)
	return ok
}
