// Package builder implements Morpheus, the emitter library that turns
// high-level operation requests (move, push, pop, map, syscall, return) into
// the bit-exact Dream Machine instruction bytes, and assembles them into a
// complete object file alongside a deduplicated string table.
package builder

import (
	"encoding/binary"

	"github.com/dreamkit/dream/isa"
	"github.com/dreamkit/dream/objfile"
)

// textPreambleSize is the fixed pre-offset reserved so that offset 0 stays a
// null sentinel; the first real string therefore starts at offset 8.
const textPreambleSize = 8

// Builder accumulates an object file's version, output type, entry point,
// string table, and code buffer. It is not safe for concurrent use.
type Builder struct {
	version    objfile.Version
	outputType objfile.OutputType
	entry      uint64

	strings       [][]byte
	stringOffsets map[string]uint64
	nextOffset    uint64

	code []byte
}

// New creates an empty Builder for the given version and output type.
func New(version objfile.Version, outputType objfile.OutputType) *Builder {
	return &Builder{
		version:       version,
		outputType:    outputType,
		stringOffsets: make(map[string]uint64),
		nextOffset:    textPreambleSize,
	}
}

// AddString interns bytes into the string table, returning its stable
// offset. Calling AddString again with byte-equal content returns the same
// offset; distinct content always receives a distinct, larger offset.
func (b *Builder) AddString(bs []byte) uint64 {
	key := string(bs)
	if off, ok := b.stringOffsets[key]; ok {
		return off
	}

	off := b.nextOffset
	b.stringOffsets[key] = off
	b.strings = append(b.strings, bs)
	b.nextOffset += objfile.EntrySize(len(bs))
	return off
}

// SetEntry records the program's entry point as an offset into the code
// buffer. The builder does not validate that offset lands on an instruction
// boundary.
func (b *Builder) SetEntry(offset uint64) {
	b.entry = offset
}

// Procedure records the current code length as the procedure's start
// offset, invokes f with a ProcedureBuilder bound to the shared code
// buffer, then guarantees the procedure ends in Ret — appending one if f
// didn't already leave a trailing Ret byte. It returns the start offset.
func (b *Builder) Procedure(f func(*ProcedureBuilder)) uint64 {
	start := uint64(len(b.code))
	pb := &ProcedureBuilder{emitter: emitter{b: b}}
	f(pb)
	b.ensureTrailingRet()
	return start
}

func (b *Builder) ensureTrailingRet() {
	if len(b.code) == 0 || isa.Instruction(b.code[len(b.code)-1]) != isa.Ret {
		b.code = append(b.code, byte(isa.Ret))
	}
}

// Write serializes the builder's accumulated state as a complete object
// file: header, TEXT section, then CODE section.
func (b *Builder) Write(out objfile.Writer) error {
	return objfile.WriteObjectFile(out, b.version, b.outputType, b.strings, b.code, b.entry)
}

// emitter is the shared operand-dispatch core embedded by both
// ProcedureBuilder and BlockBuilder; the two only differ in their
// Ret-guarantee scoping.
type emitter struct {
	b *Builder
}

func (e emitter) emit(bs ...byte) {
	e.b.code = append(e.b.code, bs...)
}

func (e emitter) emitU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.b.code = append(e.b.code, buf[:]...)
}

// Move dispatches on the (dst, src) operand-kind pair: a literal 0/1 source
// into a register specializes into Clear/Set, an address destination sets
// the alt-mode bit, and an address destination with a literal 0 or 1 source
// is rejected with ErrBadOperandType.
func (e emitter) Move(dst, src Operand) error {
	switch dst.Kind {
	case KindRegister:
		switch src.Kind {
		case KindRegister:
			e.emit(byte(isa.Move), byte(dst.Value), byte(src.Value))
		case KindAddress:
			e.emit(byte(isa.MoveAddr), byte(dst.Value))
			e.emitU64(src.Value)
		case KindLit64:
			switch src.Value {
			case 0:
				e.emit(byte(isa.Clear), byte(dst.Value))
			case 1:
				e.emit(byte(isa.Set), byte(dst.Value))
			default:
				e.emit(byte(isa.MoveImm), byte(dst.Value))
				e.emitU64(src.Value)
			}
		default:
			return ErrBadOperandType
		}
	case KindAddress:
		switch src.Kind {
		case KindRegister:
			e.emit(byte(isa.Move) | isa.AltMode)
			e.emitU64(dst.Value)
			e.emit(byte(src.Value))
		case KindAddress:
			e.emit(byte(isa.MoveAddr) | isa.AltMode)
			e.emitU64(dst.Value)
			e.emitU64(src.Value)
			e.emitU64(8)
		case KindLit64:
			if src.Value == 0 || src.Value == 1 {
				return ErrBadOperandType
			}
			e.emit(byte(isa.MoveImm) | isa.AltMode)
			e.emitU64(dst.Value)
			e.emitU64(src.Value)
		default:
			return ErrBadOperandType
		}
	default:
		return ErrBadOperandType
	}
	return nil
}

// MoveSized is the address-to-address Move with an explicit byte count,
// overriding the default size of 8.
func (e emitter) MoveSized(dst, src Operand, size uint64) error {
	if dst.Kind != KindAddress || src.Kind != KindAddress {
		return ErrBadOperandType
	}
	e.emit(byte(isa.MoveAddr) | isa.AltMode)
	e.emitU64(dst.Value)
	e.emitU64(src.Value)
	e.emitU64(size)
	return nil
}

// Push emits a push of a register, an addressed value, or a literal.
func (e emitter) Push(value Operand) error {
	switch value.Kind {
	case KindRegister:
		e.emit(byte(isa.Push), byte(value.Value))
	case KindAddress:
		e.emit(byte(isa.Push) | isa.AltMode)
		e.emitU64(value.Value)
	case KindLit64:
		e.emit(byte(isa.PushImm))
		e.emitU64(value.Value)
	default:
		return ErrBadOperandType
	}
	return nil
}

// Pop emits a pop into a register.
func (e emitter) Pop(dst isa.Register) {
	e.emit(byte(isa.Pop), dst.Byte())
}

// StackLoad emits a load of stack[SP-offset] into dst.
func (e emitter) StackLoad(dst isa.Register, offset uint64) {
	e.emit(byte(isa.StackLoad), dst.Byte())
	e.emitU64(offset)
}

// Map emits a load of the TEXT-entry address at stringIndex into dst.
func (e emitter) Map(dst isa.Register, stringIndex uint64) {
	e.emit(byte(isa.Map), dst.Byte())
	e.emitU64(stringIndex)
}

// Clear emits a direct Clear (reg <- 0).
func (e emitter) Clear(dst isa.Register) {
	e.emit(byte(isa.Clear), dst.Byte())
}

// Set emits a direct Set (reg <- 1).
func (e emitter) Set(dst isa.Register) {
	e.emit(byte(isa.Set), dst.Byte())
}

// Syscall emits the Syscall0..Syscall6 opcode matching nargs.
func (e emitter) Syscall(nargs int) error {
	inst, ok := isa.SyscallInstruction(nargs)
	if !ok {
		return ErrTooManyArgsForSyscall
	}
	e.emit(byte(inst))
	return nil
}

// Ret emits a bare return opcode. Callers rarely need this directly since
// Procedure and Body both guarantee a trailing Ret automatically.
func (e emitter) Ret() {
	e.emit(byte(isa.Ret))
}

// ProcedureBuilder is handed to the closure passed to Builder.Procedure. It
// exposes the full block emitter vocabulary plus Body, for defining nested
// sub-blocks that carry their own Ret guarantee.
type ProcedureBuilder struct {
	emitter
}

// Body invokes f with a BlockBuilder bound to the same code buffer, then
// guarantees the block ends in Ret exactly as Procedure does.
func (p *ProcedureBuilder) Body(f func(*BlockBuilder)) {
	bb := &BlockBuilder{emitter: p.emitter}
	f(bb)
	p.b.ensureTrailingRet()
}

// BlockBuilder is handed to the closure passed to ProcedureBuilder.Body. It
// carries the same emitter vocabulary as ProcedureBuilder.
type BlockBuilder struct {
	emitter
}
