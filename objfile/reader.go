package objfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// ErrMalformed wraps every structural decode failure ReadObjectFile hits:
// bad magic, a bad section tag, or a truncated stream.
var ErrMalformed = fmt.Errorf("objfile: malformed object file")

// ObjectFile is the fully decoded, in-memory form of a Dream object file,
// as produced by ReadObjectFile and consumed by the VM loader.
type ObjectFile struct {
	Version    Version
	OutputType OutputType
	Strings    [][]byte
	Code       []byte
	Entry      uint64
}

func readExactR(r io.ByteReader, n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated stream (wanted %d bytes, got %d): %v", ErrMalformed, n, i, err)
		}
		buf[i] = b
	}
	return buf, nil
}

func readU64R(r io.ByteReader) (uint64, error) {
	b, err := readExactR(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadObjectFile parses a complete object file from r: the header, the
// TEXT section's strings (in order), and the CODE section's bytes and
// entry offset.
func ReadObjectFile(r io.Reader) (*ObjectFile, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	magic, err := readExactR(br, len(Magic))
	if err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformed, magic)
	}

	verBytes, err := readExactR(br, 3)
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(verBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	outtTag, err := readExactR(br, 4)
	if err != nil {
		return nil, err
	}
	if string(outtTag) != OuttTag {
		return nil, fmt.Errorf("%w: expected OUTT marker, got %q", ErrMalformed, outtTag)
	}
	outBytes, err := readExactR(br, 4)
	if err != nil {
		return nil, err
	}
	outType, err := OutputTypeFromUint32(binary.LittleEndian.Uint32(outBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	obj := &ObjectFile{Version: version, OutputType: outType}
	var sawText, sawCode bool

	for {
		first, err := br.ReadByte()
		if err != nil {
			break
		}
		rest, err := readExactR(br, 3)
		if err != nil {
			return nil, err
		}
		tag := append([]byte{first}, rest...)

		switch string(tag) {
		case TextTag:
			if sawText {
				return nil, fmt.Errorf("%w: duplicate TEXT section", ErrMalformed)
			}
			sawText = true
			strs, err := readTextSection(br)
			if err != nil {
				return nil, err
			}
			obj.Strings = strs

		case CodeTag:
			if sawCode {
				return nil, fmt.Errorf("%w: duplicate CODE section", ErrMalformed)
			}
			sawCode = true
			code, entry, err := readCodeSection(br)
			if err != nil {
				return nil, err
			}
			obj.Code = code
			obj.Entry = entry

		default:
			return nil, fmt.Errorf("%w: unrecognized section tag %q", ErrMalformed, tag)
		}
	}

	return obj, nil
}

func readTextSection(br io.ByteReader) ([][]byte, error) {
	if _, err := readExactR(br, 4); err != nil {
		return nil, err
	}
	remaining, err := readU64R(br)
	if err != nil {
		return nil, err
	}

	var strs [][]byte
	for remaining > 0 {
		l, err := readU64R(br)
		if err != nil {
			return nil, err
		}
		data, err := readExactR(br, int(l))
		if err != nil {
			return nil, err
		}
		if _, err := readExactR(br, 8); err != nil {
			return nil, err
		}
		strs = append(strs, data)

		consumed := EntrySize(int(l))
		if consumed > remaining {
			return nil, fmt.Errorf("%w: TEXT entry overruns declared payload size", ErrMalformed)
		}
		remaining -= consumed
	}
	return strs, nil
}

func readCodeSection(br io.ByteReader) ([]byte, uint64, error) {
	if _, err := readExactR(br, 4); err != nil {
		return nil, 0, err
	}
	codeSize, err := readU64R(br)
	if err != nil {
		return nil, 0, err
	}
	entry, err := readU64R(br)
	if err != nil {
		return nil, 0, err
	}
	code, err := readExactR(br, int(codeSize))
	if err != nil {
		return nil, 0, err
	}
	return code, entry, nil
}
