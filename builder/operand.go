package builder

import "github.com/dreamkit/dream/isa"

// OperandKind tags the shape of an Operand passed to a block emitter.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindAddress
	KindLit64
)

// Operand is a tagged (kind, value) pair. Its kind mirrors isa.OperandType
// but is carried at the builder's emit-time boundary rather than baked into
// the instruction byte stream.
type Operand struct {
	Kind  OperandKind
	Value uint64
}

// Reg wraps a register as a Register-kind operand.
func Reg(r isa.Register) Operand {
	return Operand{Kind: KindRegister, Value: r.Uint64()}
}

// Addr wraps an absolute address as an Address-kind operand.
func Addr(addr uint64) Operand {
	return Operand{Kind: KindAddress, Value: addr}
}

// Lit64 wraps a 64-bit immediate as a Lit64-kind operand.
func Lit64(v uint64) Operand {
	return Operand{Kind: KindLit64, Value: v}
}

// Register reinterprets the operand's value as a register byte. The caller
// must only call this on a KindRegister operand.
func (o Operand) Register() (isa.Register, error) {
	return isa.RegisterFromByte(byte(o.Value))
}
