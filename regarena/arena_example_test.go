package regarena

import (
	"testing"

	"github.com/dreamkit/dream/isa"
)

// compileBinaryExpr mimics how an expression code generator would call
// into a register arena: allocate one register per operand recursively,
// opening a sub-arena per recursive call so sibling subexpressions don't
// collide and the whole subtree's registers are freed together once the
// result has been combined into a single output register.
func compileBinaryExpr(parent *Arena, depth int) isa.Register {
	if depth == 0 {
		return parent.Next(isa.ClassQ)
	}

	lhsArena := parent.Sub()
	lhs := compileBinaryExpr(lhsArena, depth-1)
	lhsArena.Release()

	rhsArena := parent.Sub()
	rhs := compileBinaryExpr(rhsArena, depth-1)
	rhsArena.Release()

	_ = lhs
	_ = rhs
	return parent.Next(isa.ClassQ)
}

func TestCodegenStyleNestedArenaUsage(t *testing.T) {
	alloc := NewAllocator()
	top := alloc.Arena()
	defer top.Release()

	result := compileBinaryExpr(top, 3)

	// Every leaf and combining allocation happened through sub-arenas that
	// released themselves, so the top-level arena should only have
	// advanced by the allocations it made directly: one per
	// compileBinaryExpr call at the top level (its own combining
	// register), not one per allocation anywhere in the recursion.
	if result.Class() != isa.ClassQ {
		t.Fatalf("result class = %v, want ClassQ", result.Class())
	}
	if result.Index() != 0 {
		t.Fatalf("result index = %d, want 0 (the top-level arena's only direct allocation)", result.Index())
	}
}
