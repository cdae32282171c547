package vm

import (
	"fmt"

	"github.com/dreamkit/dream/isa"
)

// Registers is the VM's register file: the fixed Z/RSI/RSR/RS0..RS5
// registers, plus 32 general-purpose cells viewable at B/8-bit, W/16-bit,
// D/32-bit, or Q/64-bit width. The general-purpose cells are a single
// [32]uint64 array; B/W/D views are explicit masked reads and writes over
// it rather than unsafe pointer aliasing.
type Registers struct {
	rsi uint16
	rsr uint64
	rsx [6]uint64
	gp  [isa.MaxGPRIndex]uint64
}

func classWidthMask(class isa.RegisterClass) uint64 {
	switch class {
	case isa.ClassB:
		return 0xFF
	case isa.ClassW:
		return 0xFFFF
	case isa.ClassD:
		return 0xFFFFFFFF
	default: // isa.ClassQ
		return 0xFFFFFFFFFFFFFFFF
	}
}

// Read returns the current value of reg, zero-extended to 64 bits.
func (r *Registers) Read(reg isa.Register) (uint64, error) {
	switch {
	case reg.IsX():
		return 0, nil
	case reg == isa.RSI:
		return uint64(r.rsi), nil
	case reg == isa.RSR:
		return r.rsr, nil
	case reg.IsRSX():
		return r.rsx[reg.Index()], nil
	case reg.IsB(), reg.IsW(), reg.IsD(), reg.IsQ():
		return r.gp[reg.Index()] & classWidthMask(reg.Class()), nil
	default:
		return 0, fmt.Errorf("%w: unreadable register %s", ErrOutOfRange, reg)
	}
}

// Write stores value into reg. Writes to RXZ are silently discarded, as
// the zero register is tied to zero. Writes to a B/W/D view only update
// the corresponding low bits of the backing 64-bit cell.
func (r *Registers) Write(reg isa.Register, value uint64) error {
	switch {
	case reg.IsX():
		return nil
	case reg == isa.RSI:
		r.rsi = uint16(value)
		return nil
	case reg == isa.RSR:
		r.rsr = value
		return nil
	case reg.IsRSX():
		r.rsx[reg.Index()] = value
		return nil
	case reg.IsB(), reg.IsW(), reg.IsD(), reg.IsQ():
		mask := classWidthMask(reg.Class())
		idx := reg.Index()
		r.gp[idx] = (r.gp[idx] &^ mask) | (value & mask)
		return nil
	default:
		return fmt.Errorf("%w: unwritable register %s", ErrOutOfRange, reg)
	}
}
