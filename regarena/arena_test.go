package regarena

import (
	"testing"

	"github.com/dreamkit/dream/isa"
)

func TestNextAllocatesSequentially(t *testing.T) {
	alloc := NewAllocator()
	ar := alloc.Arena()
	defer ar.Release()

	r0 := ar.Next(isa.ClassQ)
	r1 := ar.Next(isa.ClassQ)

	if r0.Index() != 0 || r1.Index() != 1 {
		t.Fatalf("got indices %d, %d; want 0, 1", r0.Index(), r1.Index())
	}
}

func TestSubArenaRestoresParentCountersOnRelease(t *testing.T) {
	alloc := NewAllocator()
	parent := alloc.Arena()
	defer parent.Release()

	parent.Next(isa.ClassD)
	parent.Next(isa.ClassD)

	child := parent.Sub()
	child.Next(isa.ClassD)
	child.Next(isa.ClassD)
	child.Next(isa.ClassD)
	child.Release()

	// The next allocation from parent must reuse index 2, exactly as if
	// the child's three allocations never happened.
	got := parent.Next(isa.ClassD)
	if got.Index() != 2 {
		t.Fatalf("parent allocation after child release = index %d, want 2", got.Index())
	}
}

func TestNextPanicsOnNonAllocatableClass(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Next(ClassX) did not panic")
		}
	}()
	alloc := NewAllocator()
	ar := alloc.Arena()
	ar.Next(isa.ClassX)
}

func TestNextPanicsPastThirtyTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("33rd allocation did not panic")
		}
	}()
	alloc := NewAllocator()
	ar := alloc.Arena()
	for i := 0; i < 33; i++ {
		ar.Next(isa.ClassB)
	}
}
