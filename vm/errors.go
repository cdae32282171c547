package vm

import "errors"

var (
	// ErrStackOverflow is returned when a push would exceed the stack's
	// fixed capacity.
	ErrStackOverflow = errors.New("vm: stack overflow")

	// ErrStackUnderflow is returned when a pop or stack-relative load
	// requests more bytes than are currently allocated.
	ErrStackUnderflow = errors.New("vm: stack underflow")

	// ErrOutOfRange is returned when an address operand falls outside the
	// guest address space.
	ErrOutOfRange = errors.New("vm: address out of range")

	// ErrHalted is returned by Step when called on a VM that has already
	// halted (returned from its outermost procedure with an empty call
	// stack).
	ErrHalted = errors.New("vm: machine halted")

	// ErrNoSyscallHandler is returned when a Syscall opcode executes but
	// the VM was constructed without a Syscaller.
	ErrNoSyscallHandler = errors.New("vm: no syscall handler installed")
)
