package vm

import (
	"testing"

	"github.com/dreamkit/dream/isa"
)

func TestRegistersWidthTruncation(t *testing.T) {
	var regs Registers

	rb0, _ := isa.NewRegister(isa.ClassB, 0)
	rq0, _ := isa.NewRegister(isa.ClassQ, 0)

	if err := regs.Write(rq0, 0x1122334455667788); err != nil {
		t.Fatalf("Write rq0: %v", err)
	}
	if err := regs.Write(rb0, 0xFF); err != nil {
		t.Fatalf("Write rb0: %v", err)
	}

	gotB, err := regs.Read(rb0)
	if err != nil || gotB != 0xFF {
		t.Fatalf("Read rb0 = %d, %v; want 0xFF, nil", gotB, err)
	}
	gotQ, err := regs.Read(rq0)
	if err != nil || gotQ != 0x11223344556677FF {
		t.Fatalf("Read rq0 = %#x, %v; want 0x11223344556677ff, nil", gotQ, err)
	}
}

func TestRegistersZeroRegisterIgnoresWrites(t *testing.T) {
	var regs Registers
	if err := regs.Write(isa.RXZ, 42); err != nil {
		t.Fatalf("Write RXZ: %v", err)
	}
	got, err := regs.Read(isa.RXZ)
	if err != nil || got != 0 {
		t.Fatalf("Read RXZ = %d, %v; want 0, nil", got, err)
	}
}

func TestStackOverflowAt513thPush(t *testing.T) {
	var s Stack
	for i := 0; i < 512; i++ {
		if err := s.PushUint64(uint64(i)); err != nil {
			t.Fatalf("push %d: unexpected error %v", i, err)
		}
	}
	if err := s.PushUint64(512); err == nil {
		t.Fatal("513th push succeeded, want ErrStackOverflow")
	}
}

func TestStackPushPopRoundTrip(t *testing.T) {
	var s Stack
	if err := s.PushUint64(0xDEADBEEF); err != nil {
		t.Fatalf("push: %v", err)
	}
	got, err := s.PopUint64()
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if got != 0xDEADBEEF {
		t.Fatalf("pop = %#x, want 0xdeadbeef", got)
	}
	if _, err := s.PopUint64(); err == nil {
		t.Fatal("pop on empty stack succeeded, want ErrStackUnderflow")
	}
}

func TestStepExecutesClearSetMoveImm(t *testing.T) {
	rq0, _ := isa.NewRegister(isa.ClassQ, 0)

	code := []byte{
		byte(isa.Clear), rq0.Byte(),
		byte(isa.Set), rq0.Byte(),
	}
	code = append(code, byte(isa.MoveImm), rq0.Byte())
	code = append(code, 42, 0, 0, 0, 0, 0, 0, 0) // imm64 little-endian
	code = append(code, byte(isa.Ret))

	m := New(nil)
	m.Load(code, 0, nil)

	if err := m.Step(); err != nil { // Clear
		t.Fatalf("Clear: %v", err)
	}
	if v, _ := m.Registers.Read(rq0); v != 0 {
		t.Fatalf("after Clear, rq0 = %d, want 0", v)
	}

	if err := m.Step(); err != nil { // Set
		t.Fatalf("Set: %v", err)
	}
	if v, _ := m.Registers.Read(rq0); v != 1 {
		t.Fatalf("after Set, rq0 = %d, want 1", v)
	}

	if err := m.Step(); err != nil { // MoveImm
		t.Fatalf("MoveImm: %v", err)
	}
	if v, _ := m.Registers.Read(rq0); v != 42 {
		t.Fatalf("after MoveImm, rq0 = %d, want 42", v)
	}

	if err := m.Step(); err != nil { // Ret
		t.Fatalf("Ret: %v", err)
	}
	if !m.Halted() {
		t.Fatal("VM did not halt after Ret with empty call stack")
	}
}

func TestRunHaltsOnRet(t *testing.T) {
	m := New(nil)
	m.Load([]byte{byte(isa.Ret)}, 0, nil)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !m.Halted() {
		t.Fatal("VM should have halted")
	}
}
