package hostio

import "errors"

var (
	// ErrBadFileID is returned when a syscall names a FileID the bridge
	// has no open file for (including BADFID itself).
	ErrBadFileID = errors.New("hostio: bad file id")

	// ErrInvalidPath is returned when an Open path argument is not valid
	// UTF-8.
	ErrInvalidPath = errors.New("hostio: path is not valid utf-8")

	// ErrShortWrite is returned when fewer bytes were written than were
	// requested — a hard error in this implementation, matching the
	// reference behavior.
	ErrShortWrite = errors.New("hostio: short write")

	// ErrUnknownFlags is returned when Open's flags argument sets a bit
	// outside the recognized OpenFlags bitset.
	ErrUnknownFlags = errors.New("hostio: unrecognized open flags")

	// ErrUnsupportedSyscall is returned when a syscall index outside
	// 0..3 is dispatched.
	ErrUnsupportedSyscall = errors.New("hostio: unsupported syscall index")
)
