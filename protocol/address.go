package protocol

import "encoding/binary"

// EncodeAddress writes an address into buf as AddressSize big-endian
// bytes. buf must hold at least AddressSize bytes.
func EncodeAddress(buf []byte, addr uint64) {
	binary.BigEndian.PutUint64(buf[:AddressSize], addr)
}

// DecodeAddress reads an AddressSize big-endian address out of buf.
func DecodeAddress(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf[:AddressSize])
}
