// Package memguard mediates every access the debug agent makes to the
// target's memory.
//
// The Memory interface abstracts the target address space; BufferMemory
// maps a byte slice at a base address for tests, examples and soft
// targets. Guard layers the access policy on top: forbidden ranges reject
// reads and writes, read-only ranges reject writes, and any span that
// would wrap around the address width is rejected before a range is even
// consulted. A multi-block request is checked block by block before any
// byte moves, so a denied block means the target was never touched.
package memguard
