// Package objfile implements the Dream Machine's binary object format: the
// header, the TEXT string table section, and the CODE instruction section
// described by the on-disk ".dream" layout. It only knows how to read and
// write bytes in that exact shape; building up a program's strings and code
// is the builder package's job.
package objfile

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the fixed five-byte signature every Dream object file opens with.
const Magic = "DREAM"

// Section tags, each exactly four ASCII bytes.
const (
	OuttTag = "OUTT"
	TextTag = "TEXT"
	CodeTag = "CODE"
)

// OutputType distinguishes a standalone executable from a library object
// file. It is encoded as a 4-byte little-endian value following the "OUTT"
// marker.
type OutputType uint32

const (
	OutputBinary  OutputType = 0
	OutputLibrary OutputType = 1
)

// String renders the output type's canonical name, as used in disassembly
// listings (e.g. "#OutputType Binary").
func (t OutputType) String() string {
	switch t {
	case OutputBinary:
		return "Binary"
	case OutputLibrary:
		return "Library"
	default:
		return fmt.Sprintf("OutputType(%d)", uint32(t))
	}
}

// OutputTypeFromUint32 validates a raw discriminant against the two known
// output types.
func OutputTypeFromUint32(n uint32) (OutputType, error) {
	switch OutputType(n) {
	case OutputBinary, OutputLibrary:
		return OutputType(n), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidOutputType, n)
	}
}

// Writer is the sink every section writer targets. It is satisfied by
// *os.File, *bytes.Buffer, os.Stdout, or anything else implementing
// io.Writer — object-file serialization never needs more than that.
type Writer = io.Writer

// stringEntrySize is the per-entry overhead (8-byte length prefix + 8 bytes
// of trailing zero padding) that surrounds every string's raw bytes.
const stringEntrySize = 16

// EntrySize returns the number of TEXT-section payload bytes a string of
// length n occupies once wrapped in its length prefix and padding.
func EntrySize(n int) uint64 {
	return stringEntrySize + uint64(n)
}

func writeAll(w io.Writer, p []byte) error {
	if _, err := w.Write(p); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func writeUint32LE(w io.Writer, n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	return writeAll(w, buf[:])
}

func writeUint64LE(w io.Writer, n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return writeAll(w, buf[:])
}

// WriteHeader writes the magic bytes, the 3-digit version, and the OUTT
// output-type marker — everything that precedes the TEXT section.
func WriteHeader(w Writer, version Version, outType OutputType) error {
	if err := writeAll(w, []byte(Magic)); err != nil {
		return err
	}
	vb := version.Bytes()
	if err := writeAll(w, vb[:]); err != nil {
		return err
	}
	if err := writeAll(w, []byte(OuttTag)); err != nil {
		return err
	}
	return writeUint32LE(w, uint32(outType))
}

// WriteTextSection writes the "TEXT" tag, 4 zero padding bytes, the 8-byte
// payload size, and the length-prefixed, zero-padded string entries in the
// given order. strings is the builder's deduplicated, offset-stable list.
func WriteTextSection(w Writer, strings [][]byte) error {
	if err := writeAll(w, []byte(TextTag)); err != nil {
		return err
	}
	if err := writeAll(w, make([]byte, 4)); err != nil {
		return err
	}

	var payloadSize uint64
	for _, s := range strings {
		payloadSize += EntrySize(len(s))
	}
	if err := writeUint64LE(w, payloadSize); err != nil {
		return err
	}

	pad := make([]byte, 8)
	for _, s := range strings {
		if err := writeUint64LE(w, uint64(len(s))); err != nil {
			return err
		}
		if err := writeAll(w, s); err != nil {
			return err
		}
		if err := writeAll(w, pad); err != nil {
			return err
		}
	}
	return nil
}

// WriteCodeSection writes the "CODE" tag, 4 zero padding bytes, the 8-byte
// code length, the 8-byte entry offset, and the raw instruction bytes.
func WriteCodeSection(w Writer, code []byte, entryOffset uint64) error {
	if err := writeAll(w, []byte(CodeTag)); err != nil {
		return err
	}
	if err := writeAll(w, make([]byte, 4)); err != nil {
		return err
	}
	if err := writeUint64LE(w, uint64(len(code))); err != nil {
		return err
	}
	if err := writeUint64LE(w, entryOffset); err != nil {
		return err
	}
	return writeAll(w, code)
}

// WriteObjectFile writes a complete object file: header, TEXT section, then
// CODE section, in that fixed order.
func WriteObjectFile(w Writer, version Version, outType OutputType, strings [][]byte, code []byte, entryOffset uint64) error {
	if err := WriteHeader(w, version, outType); err != nil {
		return err
	}
	if err := WriteTextSection(w, strings); err != nil {
		return err
	}
	return WriteCodeSection(w, code, entryOffset)
}
