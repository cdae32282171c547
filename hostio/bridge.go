// Package hostio implements the Dream Machine's host bridge: the four
// host-mediated syscalls (Read, Write, Open, Close), the FileID space that
// names open files and standard streams, and the OpenFlags bitset Open
// accepts. It targets POSIX file descriptors via Go's os.File, which
// already abstracts the platform difference the reference implementation
// handled with separate Unix/Windows raw-handle code paths.
package hostio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dreamkit/dream/vm"
)

// Bridge dispatches the four host-mediated syscalls against a table of
// open *os.File handles keyed by FileID, translating the three reserved
// IDs to the process's standard streams. It implements vm.Syscaller.
type Bridge struct {
	files map[FileID]*os.File
	next  FileID
}

// NewBridge returns a Bridge with no files open beyond the three reserved
// standard streams.
func NewBridge() *Bridge {
	return &Bridge{
		files: make(map[FileID]*os.File),
		next:  Stderr + 1,
	}
}

func (b *Bridge) resolve(id FileID) (*os.File, error) {
	switch id {
	case Stdin:
		return os.Stdin, nil
	case Stdout:
		return os.Stdout, nil
	case Stderr:
		return os.Stderr, nil
	case BadFID:
		return nil, fmt.Errorf("%w: %s", ErrBadFileID, id)
	default:
		f, ok := b.files[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadFileID, id)
		}
		return f, nil
	}
}

// Open opens path with the given flags, returning a fresh FileID.
func (b *Bridge) Open(path string, flags OpenFlags) (FileID, error) {
	if !utf8.ValidString(path) {
		return BadFID, ErrInvalidPath
	}
	if flags&^knownFlags != 0 {
		return BadFID, fmt.Errorf("%w: %#x", ErrUnknownFlags, uint64(flags&^knownFlags))
	}

	f, err := os.OpenFile(path, flags.osFlags(), 0o644)
	if err != nil {
		return BadFID, err
	}

	id := b.next
	b.next++
	b.files[id] = f
	return id, nil
}

// Read reads into buf from the file named by id.
func (b *Bridge) Read(id FileID, buf []byte) (int, error) {
	f, err := b.resolve(id)
	if err != nil {
		return 0, err
	}
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, nil
}

// Write writes data to the file named by id. Writing fewer bytes than
// requested is a hard error.
func (b *Bridge) Write(id FileID, data []byte) (int, error) {
	f, err := b.resolve(id)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		return n, err
	}
	if n < len(data) {
		return n, fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(data))
	}
	return n, nil
}

// Close closes the file named by id. Closing a reserved standard stream is
// a no-op, since the bridge never owns those handles.
func (b *Bridge) Close(id FileID) error {
	switch id {
	case Stdin, Stdout, Stderr:
		return nil
	default:
		f, ok := b.files[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrBadFileID, id)
		}
		delete(b.files, id)
		return f.Close()
	}
}

// Syscall implements vm.Syscaller, dispatching on the syscall ABI's four
// indices: 0=Read, 1=Write, 2=Open, 3=Close.
func (b *Bridge) Syscall(index uint16, args [6]uint64, mem *vm.AddressSpace) (uint64, error) {
	switch index {
	case 0: // Read
		id, ptr, length := FileID(args[0]), args[1], args[2]
		buf := make([]byte, length)
		n, err := b.Read(id, buf)
		if err != nil {
			return 0, err
		}
		if err := mem.WriteAt(ptr, buf[:n]); err != nil {
			return 0, err
		}
		return uint64(n), nil

	case 1: // Write
		id, ptr, length := FileID(args[0]), args[1], args[2]
		data, err := mem.ReadAt(ptr, int(length))
		if err != nil {
			return 0, err
		}
		if _, err := b.Write(id, data); err != nil {
			return 0, err
		}
		return 0, nil

	case 2: // Open
		ptr, length, flags := args[0], args[1], OpenFlags(args[2])
		raw, err := mem.ReadAt(ptr, int(length))
		if err != nil {
			return 0, err
		}
		if !utf8.Valid(raw) {
			return 0, ErrInvalidPath
		}
		id, err := b.Open(string(raw), flags)
		if err != nil {
			return 0, err
		}
		return uint64(id), nil

	case 3: // Close
		if err := b.Close(FileID(args[0])); err != nil {
			return 0, err
		}
		return 0, nil

	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedSyscall, index)
	}
}
