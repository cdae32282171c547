// Package disasm implements a single-pass disassembler for Dream object
// files: it consumes a byte stream exactly once, in order, and writes an
// annotated textual listing.
package disasm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dreamkit/dream/isa"
	"github.com/dreamkit/dream/objfile"
)

// countingReader layers an offset counter over an io.ByteReader so the
// listing can annotate every section and instruction with its position in
// the stream.
type countingReader struct {
	r      io.ByteReader
	offset uint64
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.offset++
	}
	return b, err
}

func readExact(r io.ByteReader, n int) ([]byte, error) {
	buf := make([]byte, n)
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: truncated stream (wanted %d bytes, got %d)", ErrDisassemble, n, i)
			}
			return nil, fmt.Errorf("%w: %v", ErrDisassemble, err)
		}
		buf[i] = b
	}
	return buf, nil
}

func readU64(r io.ByteReader) (uint64, error) {
	b, err := readExact(r, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func isAllZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

func formatReg(b byte) (string, error) {
	r, err := isa.RegisterFromByte(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDisassemble, err)
	}
	return r.String(), nil
}

// Disassemble consumes r exactly once, writing an annotated textual listing
// to w. It fails on truncated input, an unrecognized section tag, more than
// one TEXT or CODE section, or an undecodable instruction.
func Disassemble(r io.ByteReader, w io.Writer) error {
	cr := &countingReader{r: r}

	magic, err := readExact(cr, len(objfile.Magic))
	if err != nil {
		return err
	}
	if string(magic) != objfile.Magic {
		return fmt.Errorf("%w: bad magic %q", ErrDisassemble, magic)
	}

	verBytes, err := readExact(cr, 3)
	if err != nil {
		return err
	}
	if _, err := objfile.ParseVersion(verBytes); err != nil {
		return fmt.Errorf("%w: %v", ErrDisassemble, err)
	}
	fmt.Fprintf(w, "#Version %s\n", verBytes)

	outtTag, err := readExact(cr, 4)
	if err != nil {
		return err
	}
	if string(outtTag) != objfile.OuttTag {
		return fmt.Errorf("%w: expected OUTT marker, got %q", ErrDisassemble, outtTag)
	}
	outBytes, err := readExact(cr, 4)
	if err != nil {
		return err
	}
	outType, err := objfile.OutputTypeFromUint32(binary.LittleEndian.Uint32(outBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDisassemble, err)
	}
	fmt.Fprintf(w, "#OutputType %s\n\n", outType)

	var sawText, sawCode bool
	for {
		tagStart := cr.offset
		tag, err := readExact(cr, 4)
		if err != nil {
			if cr.offset == tagStart {
				break
			}
			return err
		}

		switch string(tag) {
		case objfile.TextTag:
			if sawText {
				return fmt.Errorf("%w: duplicate TEXT section at offset %d", ErrDisassemble, tagStart)
			}
			sawText = true
			if err := disassembleText(cr, w, tagStart); err != nil {
				return err
			}
		case objfile.CodeTag:
			if sawCode {
				return fmt.Errorf("%w: duplicate CODE section at offset %d", ErrDisassemble, tagStart)
			}
			sawCode = true
			if err := disassembleCode(cr, w, tagStart); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unrecognized section tag %q at offset %d", ErrDisassemble, tag, tagStart)
		}
	}

	return nil
}

func disassembleText(cr *countingReader, w io.Writer, tagStart uint64) error {
	fmt.Fprintf(w, "%d  TEXT:\n", tagStart)

	pad, err := readExact(cr, 4)
	if err != nil {
		return err
	}
	if !isAllZero(pad) {
		return fmt.Errorf("%w: nonzero TEXT padding at offset %d", ErrDisassemble, tagStart+4)
	}

	sizeBytes, err := readExact(cr, 8)
	if err != nil {
		return err
	}
	remaining := binary.LittleEndian.Uint64(sizeBytes)

	for remaining > 0 {
		lenBytes, err := readExact(cr, 8)
		if err != nil {
			return err
		}
		l := binary.LittleEndian.Uint64(lenBytes)

		data, err := readExact(cr, int(l))
		if err != nil {
			return err
		}

		entryPad, err := readExact(cr, 8)
		if err != nil {
			return err
		}
		if !isAllZero(entryPad) {
			return fmt.Errorf("%w: nonzero string entry padding", ErrDisassemble)
		}

		fmt.Fprintf(w, "  %q\n", data)

		consumed := objfile.EntrySize(int(l))
		if consumed > remaining {
			return fmt.Errorf("%w: TEXT entry overruns declared payload size", ErrDisassemble)
		}
		remaining -= consumed
	}

	fmt.Fprintln(w)
	return nil
}

func disassembleCode(cr *countingReader, w io.Writer, tagStart uint64) error {
	fmt.Fprintf(w, "%d  CODE:\n", tagStart)

	pad, err := readExact(cr, 4)
	if err != nil {
		return err
	}
	if !isAllZero(pad) {
		return fmt.Errorf("%w: nonzero CODE padding at offset %d", ErrDisassemble, tagStart+4)
	}

	sizeBytes, err := readExact(cr, 8)
	if err != nil {
		return err
	}
	codeSize := binary.LittleEndian.Uint64(sizeBytes)

	entryBytes, err := readExact(cr, 8)
	if err != nil {
		return err
	}
	entry := binary.LittleEndian.Uint64(entryBytes)

	codeBegin := cr.offset
	var remaining uint64 = codeSize

	for remaining > 0 {
		instOffset := cr.offset
		if instOffset-codeBegin == entry {
			fmt.Fprintln(w, "ENTRY:")
		}

		before := cr.offset
		if err := decodeInstruction(cr, w, instOffset); err != nil {
			return err
		}
		consumed := cr.offset - before

		if consumed > remaining {
			return fmt.Errorf("%w: instruction at offset %d overruns declared code length", ErrDisassemble, instOffset)
		}
		remaining -= consumed
	}

	fmt.Fprintln(w)
	return nil
}

func decodeInstruction(cr *countingReader, w io.Writer, offset uint64) error {
	opByte, err := cr.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated stream reading opcode at offset %d", ErrDisassemble, offset)
	}
	altMode := opByte&isa.AltMode != 0
	inst, err := isa.InstructionFromByte(opByte)
	if err != nil {
		return fmt.Errorf("%w: %v at offset %d", ErrDisassemble, err, offset)
	}

	noAlt := func() error {
		if altMode {
			return fmt.Errorf("%w: %s has no alt-mode encoding (offset %d)", ErrDisassemble, inst, offset)
		}
		return nil
	}

	switch inst {
	case isa.NoOp:
		fmt.Fprintf(w, "%d  NoOp\n", offset)

	case isa.Move:
		if altMode {
			addr, err := readU64(cr)
			if err != nil {
				return err
			}
			srcB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading Move operand at offset %d", ErrDisassemble, offset)
			}
			src, err := formatReg(srcB)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  Move [%#x], %s\n", offset, addr, src)
		} else {
			dstB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading Move operand at offset %d", ErrDisassemble, offset)
			}
			srcB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading Move operand at offset %d", ErrDisassemble, offset)
			}
			dst, err := formatReg(dstB)
			if err != nil {
				return err
			}
			src, err := formatReg(srcB)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  Move %s, %s\n", offset, dst, src)
		}

	case isa.MoveImm:
		if altMode {
			addr, err := readU64(cr)
			if err != nil {
				return err
			}
			val, err := readU64(cr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  MoveImm [%#x], $%d\n", offset, addr, val)
		} else {
			dstB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading MoveImm operand at offset %d", ErrDisassemble, offset)
			}
			dst, err := formatReg(dstB)
			if err != nil {
				return err
			}
			val, err := readU64(cr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  MoveImm %s, $%d\n", offset, dst, val)
		}

	case isa.MoveAddr:
		if altMode {
			dstAddr, err := readU64(cr)
			if err != nil {
				return err
			}
			srcAddr, err := readU64(cr)
			if err != nil {
				return err
			}
			size, err := readU64(cr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  MoveAddr [%#x], [%#x], $%d\n", offset, dstAddr, srcAddr, size)
		} else {
			dstB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading MoveAddr operand at offset %d", ErrDisassemble, offset)
			}
			dst, err := formatReg(dstB)
			if err != nil {
				return err
			}
			srcAddr, err := readU64(cr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  MoveAddr %s, [%#x]\n", offset, dst, srcAddr)
		}

	case isa.Clear:
		if err := noAlt(); err != nil {
			return err
		}
		dstB, err := cr.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: truncated stream reading Clear operand at offset %d", ErrDisassemble, offset)
		}
		dst, err := formatReg(dstB)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  Clear %s\n", offset, dst)

	case isa.Set:
		if err := noAlt(); err != nil {
			return err
		}
		dstB, err := cr.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: truncated stream reading Set operand at offset %d", ErrDisassemble, offset)
		}
		dst, err := formatReg(dstB)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  Set %s\n", offset, dst)

	case isa.Push:
		if altMode {
			addr, err := readU64(cr)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  Push [%#x]\n", offset, addr)
		} else {
			regB, err := cr.ReadByte()
			if err != nil {
				return fmt.Errorf("%w: truncated stream reading Push operand at offset %d", ErrDisassemble, offset)
			}
			reg, err := formatReg(regB)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d  Push %s\n", offset, reg)
		}

	case isa.PushImm:
		if err := noAlt(); err != nil {
			return err
		}
		val, err := readU64(cr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  PushImm $%d\n", offset, val)

	case isa.Pop:
		if err := noAlt(); err != nil {
			return err
		}
		regB, err := cr.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: truncated stream reading Pop operand at offset %d", ErrDisassemble, offset)
		}
		reg, err := formatReg(regB)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  Pop %s\n", offset, reg)

	case isa.StackLoad:
		if err := noAlt(); err != nil {
			return err
		}
		regB, err := cr.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: truncated stream reading StackLoad operand at offset %d", ErrDisassemble, offset)
		}
		reg, err := formatReg(regB)
		if err != nil {
			return err
		}
		off, err := readU64(cr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  StackLoad %s, [stk+%d]\n", offset, reg, off)

	case isa.Map:
		if err := noAlt(); err != nil {
			return err
		}
		regB, err := cr.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: truncated stream reading Map operand at offset %d", ErrDisassemble, offset)
		}
		reg, err := formatReg(regB)
		if err != nil {
			return err
		}
		idx, err := readU64(cr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d  Map %s, $%d\n", offset, reg, idx)

	case isa.Syscall0, isa.Syscall1, isa.Syscall2, isa.Syscall3, isa.Syscall4, isa.Syscall5, isa.Syscall6:
		fmt.Fprintf(w, "%d  %s\n", offset, inst)

	case isa.Ret:
		fmt.Fprintf(w, "%d  Ret\n", offset)

	default:
		return fmt.Errorf("%w: unhandled opcode %s at offset %d", ErrDisassemble, inst, offset)
	}

	return nil
}
