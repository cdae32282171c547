package builder

import (
	"testing"

	"github.com/dreamkit/dream/isa"
	"github.com/dreamkit/dream/objfile"
)

func mustRegister(t *testing.T, class isa.RegisterClass, index byte) isa.Register {
	t.Helper()
	r, err := isa.NewRegister(class, index)
	if err != nil {
		t.Fatalf("NewRegister(%v, %d): %v", class, index, err)
	}
	return r
}

func TestAddStringDedup(t *testing.T) {
	b := New(objfile.MustNewVersion(0), objfile.OutputBinary)

	off1 := b.AddString([]byte("Hello world!\n"))
	if off1 != 8 {
		t.Fatalf("first string offset = %d, want 8", off1)
	}

	off2 := b.AddString([]byte("Hello world!\n"))
	if off2 != off1 {
		t.Fatalf("repeated AddString returned %d, want %d", off2, off1)
	}

	off3 := b.AddString([]byte("second"))
	if off3 == off1 {
		t.Fatalf("distinct string reused offset %d", off3)
	}
	wantOff3 := off1 + objfile.EntrySize(len("Hello world!\n"))
	if off3 != wantOff3 {
		t.Fatalf("third string offset = %d, want %d", off3, wantOff3)
	}
}

func TestProcedureAlwaysEndsInRet(t *testing.T) {
	rq0 := mustRegister(t, isa.ClassQ, 0)

	cases := []struct {
		name string
		body func(*ProcedureBuilder)
	}{
		{"empty", func(pb *ProcedureBuilder) {}},
		{"already-ret", func(pb *ProcedureBuilder) { pb.Ret() }},
		{"trailing-clear", func(pb *ProcedureBuilder) { pb.Clear(rq0) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New(objfile.MustNewVersion(0), objfile.OutputBinary)
			b.Procedure(tc.body)

			if len(b.code) == 0 || isa.Instruction(b.code[len(b.code)-1]) != isa.Ret {
				t.Fatalf("code does not end in Ret: %x", b.code)
			}
		})
	}
}

func TestMoveSpecialization(t *testing.T) {
	rq0 := mustRegister(t, isa.ClassQ, 0)

	tests := []struct {
		name    string
		lit     uint64
		wantOp  isa.Instruction
		wantLen int
	}{
		{"zero-clears", 0, isa.Clear, 2},
		{"one-sets", 1, isa.Set, 2},
		{"other-moves-imm", 42, isa.MoveImm, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := New(objfile.MustNewVersion(0), objfile.OutputBinary)
			var emitErr error
			b.Procedure(func(pb *ProcedureBuilder) {
				emitErr = pb.Move(Reg(rq0), Lit64(tc.lit))
			})
			if emitErr != nil {
				t.Fatalf("Move: %v", emitErr)
			}
			if isa.Instruction(b.code[0]) != tc.wantOp {
				t.Fatalf("opcode = %v, want %v", isa.Instruction(b.code[0]), tc.wantOp)
			}
			if len(b.code) < tc.wantLen {
				t.Fatalf("code too short: %d bytes, want at least %d", len(b.code), tc.wantLen)
			}
		})
	}
}

func TestSyscallArityTooLarge(t *testing.T) {
	b := New(objfile.MustNewVersion(0), objfile.OutputBinary)
	var gotErr error
	b.Procedure(func(pb *ProcedureBuilder) {
		gotErr = pb.Syscall(7)
	})
	if gotErr == nil {
		t.Fatal("Syscall(7) succeeded, want ErrTooManyArgsForSyscall")
	}
}

func TestMoveRejectsAddrLiteral(t *testing.T) {
	b := New(objfile.MustNewVersion(0), objfile.OutputBinary)
	var gotErr error
	b.Procedure(func(pb *ProcedureBuilder) {
		gotErr = pb.Move(Addr(0x1000), Lit64(0))
	})
	if gotErr == nil {
		t.Fatal("Move(addr, lit64) succeeded, want ErrBadOperandType")
	}
}

func TestHelloWorldProcedureLayout(t *testing.T) {
	b := New(objfile.MustNewVersion(0), objfile.OutputBinary)
	strOff := b.AddString([]byte("Hello world!\n"))

	rsi := isa.RSI
	rs0 := isa.RS0
	rs1 := isa.RS1
	rs2 := isa.RS2

	start := b.Procedure(func(pb *ProcedureBuilder) {
		if err := pb.Move(Reg(rsi), Lit64(1)); err != nil {
			t.Fatalf("Move RSI: %v", err)
		}
		if err := pb.Move(Reg(rs0), Lit64(2)); err != nil {
			t.Fatalf("Move RS0: %v", err)
		}
		pb.Map(rs1, strOff)
		if err := pb.Move(Reg(rs2), Lit64(13)); err != nil {
			t.Fatalf("Move RS2: %v", err)
		}
		if err := pb.Syscall(3); err != nil {
			t.Fatalf("Syscall: %v", err)
		}
	})
	b.SetEntry(start)

	if start != 0 {
		t.Fatalf("start offset = %d, want 0 for the first procedure", start)
	}
	if len(b.code) == 0 || isa.Instruction(b.code[len(b.code)-1]) != isa.Ret {
		t.Fatalf("procedure does not end in Ret: %x", b.code)
	}
}
