package vm

import (
	"encoding/binary"
	"fmt"
)

// StackSize is the fixed capacity of a Stack, matching the reference
// implementation's 4 KiB byte buffer.
const StackSize = 4096

// Stack is a fixed-capacity byte buffer with a single allocated-bytes
// pointer. Push copies raw bytes and advances it; Pop returns a slice and
// retreats it.
type Stack struct {
	buf       [StackSize]byte
	allocated int
}

// Allocated reports how many bytes are currently pushed onto the stack.
func (s *Stack) Allocated() int { return s.allocated }

// Push copies data onto the top of the stack.
func (s *Stack) Push(data []byte) error {
	if s.allocated+len(data) > len(s.buf) {
		return fmt.Errorf("%w: pushing %d bytes at offset %d exceeds %d-byte capacity", ErrStackOverflow, len(data), s.allocated, len(s.buf))
	}
	copy(s.buf[s.allocated:], data)
	s.allocated += len(data)
	return nil
}

// Pop removes and returns the top n bytes of the stack.
func (s *Stack) Pop(n int) ([]byte, error) {
	if n > s.allocated {
		return nil, fmt.Errorf("%w: popping %d bytes with only %d allocated", ErrStackUnderflow, n, s.allocated)
	}
	s.allocated -= n
	out := make([]byte, n)
	copy(out, s.buf[s.allocated:s.allocated+n])
	return out, nil
}

// PushUint64 pushes a little-endian 64-bit value.
func (s *Stack) PushUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return s.Push(buf[:])
}

// PopUint64 pops a little-endian 64-bit value.
func (s *Stack) PopUint64() (uint64, error) {
	b, err := s.Pop(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// LoadAt reads an 8-byte value starting offset bytes below the current top
// of stack, without altering allocated. offset == 0 reads the most
// recently pushed quad-word.
func (s *Stack) LoadAt(offset uint64) (uint64, error) {
	end := s.allocated - int(offset)
	start := end - 8
	if start < 0 || end > s.allocated {
		return 0, fmt.Errorf("%w: stack load at offset %d out of range (allocated=%d)", ErrStackUnderflow, offset, s.allocated)
	}
	return binary.LittleEndian.Uint64(s.buf[start:end]), nil
}
