package builder

import "errors"

var (
	// ErrBadOperandType is returned when an operand-kind combination has no
	// valid emission (e.g. an address destination with a literal 0 or 1
	// source, which would otherwise specialize into an alt-mode Clear/Set).
	ErrBadOperandType = errors.New("builder: bad operand type combination")

	// ErrBadOperandValue is returned when an operand's kind is acceptable
	// but its value is not (reserved for future value-range checks).
	ErrBadOperandValue = errors.New("builder: bad operand value")

	// ErrTooManyArgsForSyscall is returned when Syscall is asked to encode
	// more than six arguments.
	ErrTooManyArgsForSyscall = errors.New("builder: too many arguments for syscall")

	// ErrWrite is returned when the object file's output sink refuses bytes.
	ErrWrite = errors.New("builder: write failed")
)
