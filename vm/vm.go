// Package vm implements the Dream Machine's interpreter core: the register
// file, the byte stack, the guest address space, and the decode-execute
// loop that drives them.
package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/dreamkit/dream/isa"
)

// Syscaller dispatches a host-mediated syscall. index is the value of RSI;
// args mirrors RS0..RS5 in order; mem is the VM's guest address space, for
// syscalls that read or write guest buffers. The returned value becomes
// RSR.
type Syscaller interface {
	Syscall(index uint16, args [6]uint64, mem *AddressSpace) (uint64, error)
}

// VM is a single Dream Machine instance: one register file, one stack, one
// address space, one loaded code buffer. It is not safe for concurrent use.
type VM struct {
	Registers Registers
	Stack     Stack
	Mem       *AddressSpace

	code      []byte
	pc        uint64
	callStack []uint64
	textAddrs map[uint64]uint64

	syscaller Syscaller
	halted    bool
}

// New creates a VM. syscaller may be nil if the loaded program never
// executes a Syscall opcode.
func New(syscaller Syscaller) *VM {
	return &VM{syscaller: syscaller}
}

// Load installs a program: its code bytes, its entry offset (the program
// counter's starting value), and the TEXT section's strings, which are
// mapped into the address space using the same offset scheme the builder
// assigned them.
func (m *VM) Load(code []byte, entry uint64, strings [][]byte) {
	m.code = code
	m.pc = entry
	m.callStack = nil
	m.halted = false
	m.Mem = NewAddressSpace()
	m.textAddrs = m.Mem.LoadTextSection(strings)
}

// Halted reports whether the VM has returned from its outermost procedure.
func (m *VM) Halted() bool { return m.halted }

func widthBytes(class isa.RegisterClass) int {
	switch class {
	case isa.ClassB:
		return 1
	case isa.ClassW:
		return 2
	case isa.ClassD:
		return 4
	default: // isa.ClassQ and anything else defaults to a full quad-word
		return 8
	}
}

func (m *VM) fetchByte() (byte, error) {
	if m.pc >= uint64(len(m.code)) {
		return 0, fmt.Errorf("%w: pc %d past end of code (%d bytes)", ErrOutOfRange, m.pc, len(m.code))
	}
	b := m.code[m.pc]
	m.pc++
	return b, nil
}

func (m *VM) fetchU64() (uint64, error) {
	if m.pc+8 > uint64(len(m.code)) {
		return 0, fmt.Errorf("%w: pc %d needs 8 more bytes, only %d available", ErrOutOfRange, m.pc, uint64(len(m.code))-m.pc)
	}
	v := binary.LittleEndian.Uint64(m.code[m.pc : m.pc+8])
	m.pc += 8
	return v, nil
}

func (m *VM) fetchRegister() (isa.Register, error) {
	b, err := m.fetchByte()
	if err != nil {
		return isa.Register{}, err
	}
	return isa.RegisterFromByte(b)
}

// Run steps the VM until it halts or hits an execution error.
func (m *VM) Run() error {
	for !m.halted {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step decodes and executes exactly one instruction.
func (m *VM) Step() error {
	if m.halted {
		return ErrHalted
	}

	opByte, err := m.fetchByte()
	if err != nil {
		return err
	}
	altMode := opByte&isa.AltMode != 0
	inst, err := isa.InstructionFromByte(opByte)
	if err != nil {
		return err
	}

	switch inst {
	case isa.NoOp:
		return nil

	case isa.Move:
		return m.execMove(altMode)

	case isa.MoveImm:
		return m.execMoveImm(altMode)

	case isa.MoveAddr:
		return m.execMoveAddr(altMode)

	case isa.Clear:
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, 0)

	case isa.Set:
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, 1)

	case isa.Push:
		return m.execPush(altMode)

	case isa.PushImm:
		val, err := m.fetchU64()
		if err != nil {
			return err
		}
		return m.Stack.PushUint64(val)

	case isa.Pop:
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		val, err := m.Stack.PopUint64()
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, val)

	case isa.StackLoad:
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		offset, err := m.fetchU64()
		if err != nil {
			return err
		}
		val, err := m.Stack.LoadAt(offset)
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, val)

	case isa.Map:
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		idx, err := m.fetchU64()
		if err != nil {
			return err
		}
		addr, ok := m.textAddrs[idx]
		if !ok {
			return fmt.Errorf("%w: Map references unknown TEXT offset %d", ErrOutOfRange, idx)
		}
		return m.Registers.Write(dst, addr)

	case isa.Syscall0, isa.Syscall1, isa.Syscall2, isa.Syscall3, isa.Syscall4, isa.Syscall5, isa.Syscall6:
		return m.execSyscall(inst)

	case isa.Ret:
		if len(m.callStack) == 0 {
			m.halted = true
			return nil
		}
		ret := m.callStack[len(m.callStack)-1]
		m.callStack = m.callStack[:len(m.callStack)-1]
		m.pc = ret
		return nil

	default:
		return fmt.Errorf("%w: unhandled opcode %s", isa.ErrInvalidInstruction, inst)
	}
}

func (m *VM) execMove(altMode bool) error {
	if !altMode {
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		src, err := m.fetchRegister()
		if err != nil {
			return err
		}
		val, err := m.Registers.Read(src)
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, val)
	}

	addr, err := m.fetchU64()
	if err != nil {
		return err
	}
	src, err := m.fetchRegister()
	if err != nil {
		return err
	}
	val, err := m.Registers.Read(src)
	if err != nil {
		return err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, val)
	return m.Mem.WriteAt(addr, buf[:widthBytes(src.Class())])
}

func (m *VM) execMoveImm(altMode bool) error {
	if !altMode {
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		val, err := m.fetchU64()
		if err != nil {
			return err
		}
		return m.Registers.Write(dst, val)
	}

	addr, err := m.fetchU64()
	if err != nil {
		return err
	}
	val, err := m.fetchU64()
	if err != nil {
		return err
	}
	return m.Mem.PutUint64At(addr, val)
}

func (m *VM) execMoveAddr(altMode bool) error {
	if !altMode {
		dst, err := m.fetchRegister()
		if err != nil {
			return err
		}
		addr, err := m.fetchU64()
		if err != nil {
			return err
		}
		b, err := m.Mem.ReadAt(addr, widthBytes(dst.Class()))
		if err != nil {
			return err
		}
		padded := make([]byte, 8)
		copy(padded, b)
		return m.Registers.Write(dst, binary.LittleEndian.Uint64(padded))
	}

	dstAddr, err := m.fetchU64()
	if err != nil {
		return err
	}
	srcAddr, err := m.fetchU64()
	if err != nil {
		return err
	}
	size, err := m.fetchU64()
	if err != nil {
		return err
	}
	b, err := m.Mem.ReadAt(srcAddr, int(size))
	if err != nil {
		return err
	}
	return m.Mem.WriteAt(dstAddr, b)
}

func (m *VM) execPush(altMode bool) error {
	if !altMode {
		reg, err := m.fetchRegister()
		if err != nil {
			return err
		}
		val, err := m.Registers.Read(reg)
		if err != nil {
			return err
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, val)
		return m.Stack.Push(buf[:widthBytes(reg.Class())])
	}

	addr, err := m.fetchU64()
	if err != nil {
		return err
	}
	val, err := m.Mem.Uint64At(addr)
	if err != nil {
		return err
	}
	return m.Stack.PushUint64(val)
}

func (m *VM) execSyscall(inst isa.Instruction) error {
	if m.syscaller == nil {
		return ErrNoSyscallHandler
	}

	rsi, err := m.Registers.Read(isa.RSI)
	if err != nil {
		return err
	}

	argRegs := [6]isa.Register{isa.RS0, isa.RS1, isa.RS2, isa.RS3, isa.RS4, isa.RS5}
	var args [6]uint64
	for i, r := range argRegs {
		v, err := m.Registers.Read(r)
		if err != nil {
			return err
		}
		args[i] = v
	}

	result, err := m.syscaller.Syscall(uint16(rsi), args, m.Mem)
	if err != nil {
		return err
	}
	return m.Registers.Write(isa.RSR, result)
}
