package agent

// SoftwareIDLength is the size of the firmware fingerprint reported by
// GetInfo.GetSoftwareID.
const SoftwareIDLength = 16

// DefaultSoftwareID is the placeholder fingerprint compiled into the
// agent. Firmware builds replace it with a hash of the binary so the host
// can match a running target against its build artifacts.
var DefaultSoftwareID = [SoftwareIDLength]byte{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}
