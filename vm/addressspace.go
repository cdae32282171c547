package vm

import (
	"encoding/binary"
	"fmt"
)

// AddressSpace is a flat, growable byte-slice-backed guest memory region.
// Syscalls and Move/MoveAddr operands read and write through it instead of
// dereferencing raw host pointers, giving a portable reimplementation a
// guest-address → host-buffer translation layer.
type AddressSpace struct {
	mem []byte
}

// NewAddressSpace returns an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

func (a *AddressSpace) ensure(n uint64) {
	if uint64(len(a.mem)) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, a.mem)
	a.mem = grown
}

// ReadAt returns a copy of n bytes starting at addr.
func (a *AddressSpace) ReadAt(addr uint64, n int) ([]byte, error) {
	end := addr + uint64(n)
	if end > uint64(len(a.mem)) {
		return nil, fmt.Errorf("%w: read [%d, %d) beyond %d-byte space", ErrOutOfRange, addr, end, len(a.mem))
	}
	out := make([]byte, n)
	copy(out, a.mem[addr:end])
	return out, nil
}

// WriteAt writes data starting at addr, growing the backing store if
// necessary.
func (a *AddressSpace) WriteAt(addr uint64, data []byte) error {
	a.ensure(addr + uint64(len(data)))
	copy(a.mem[addr:], data)
	return nil
}

// Uint64At reads a little-endian 64-bit value at addr.
func (a *AddressSpace) Uint64At(addr uint64) (uint64, error) {
	b, err := a.ReadAt(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// PutUint64At writes a little-endian 64-bit value at addr.
func (a *AddressSpace) PutUint64At(addr uint64, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return a.WriteAt(addr, buf[:])
}

// textPreamble is the reserved null-sentinel region at the base of the
// mapped TEXT section, matching objfile/builder's offset-8 string table
// convention.
const textPreamble = 8

// LoadTextSection lays out strings at the base of the address space using
// the same offset scheme the builder's string table uses: an 8-byte
// reserved preamble, then for each string an 8-byte length prefix, its raw
// bytes, and 8 zero padding bytes. The returned map keys each string's
// table offset (as returned by builder.Builder.AddString) to its payload
// address — the address Map should resolve to.
func (a *AddressSpace) LoadTextSection(strings [][]byte) map[uint64]uint64 {
	payloadAddrs := make(map[uint64]uint64, len(strings))

	addr := uint64(textPreamble)
	for _, s := range strings {
		_ = a.PutUint64At(addr, uint64(len(s)))
		_ = a.WriteAt(addr+8, s)
		payloadAddrs[addr] = addr + 8
		addr += 16 + uint64(len(s))
	}
	return payloadAddrs
}
