package isa

import "errors"

// ErrInvalidRegister is returned when a register byte, or a (class, index)
// pair, does not decode to a register reachable through NewRegister.
var ErrInvalidRegister = errors.New("isa: invalid register")

// ErrInvalidInstruction is returned when an opcode byte does not map to any
// entry in the instruction table.
var ErrInvalidInstruction = errors.New("isa: invalid instruction")
