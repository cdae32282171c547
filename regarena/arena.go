// Package regarena implements a scoped, LIFO register allocator for
// front-end code generators: a top-level Arena hands out B/W/D/Q register
// identifiers, and nested sub-arenas can be derived and released to return
// their slice of the register space to the parent scope.
package regarena

import "github.com/dreamkit/dream/isa"

const numClasses = 4

const (
	idxB = iota
	idxW
	idxD
	idxQ
)

func classIndex(class isa.RegisterClass) (int, bool) {
	switch class {
	case isa.ClassB:
		return idxB, true
	case isa.ClassW:
		return idxW, true
	case isa.ClassD:
		return idxD, true
	case isa.ClassQ:
		return idxQ, true
	default:
		return 0, false
	}
}

// Allocator owns the four class counters shared by every Arena derived
// from it.
type Allocator struct {
	counters [numClasses]byte
}

// NewAllocator returns an Allocator with all four counters at zero.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Arena returns a new top-level arena over a, snapshotting its current
// counters.
func (a *Allocator) Arena() *Arena {
	return &Arena{alloc: a, saved: a.counters}
}

// Arena is a scope over an Allocator's counters. Next allocates the next
// register of a class; Release restores the counters this arena had when
// it was created, undoing every allocation made through it or any of its
// sub-arenas since.
//
// Go has no destructors, so Release must be called explicitly — typically
// via defer immediately after the arena is created.
type Arena struct {
	alloc    *Allocator
	saved    [numClasses]byte
	released bool
}

// Sub derives a nested sub-arena from the same allocator, snapshotting the
// counters as they stand right now. Releasing the sub-arena restores this
// snapshot; it does not affect ar's own saved snapshot.
func (ar *Arena) Sub() *Arena {
	return ar.alloc.Arena()
}

// Next allocates the next available register of class, panicking if class
// is not allocatable (X or S) or if the class's 32-register budget is
// exhausted — both are contract violations by the caller, not recoverable
// errors.
func (ar *Arena) Next(class isa.RegisterClass) isa.Register {
	idx, ok := classIndex(class)
	if !ok {
		panic("regarena: X and S register classes are not allocatable")
	}

	cur := ar.alloc.counters[idx]
	if cur >= isa.MaxGPRIndex {
		panic("regarena: exceeded 32 allocations of a single register class")
	}

	reg, err := isa.NewRegister(class, cur)
	if err != nil {
		panic(err)
	}
	ar.alloc.counters[idx] = cur + 1
	return reg
}

// Release restores the allocator's counters to what they were when ar was
// created. Calling Release more than once is a no-op.
func (ar *Arena) Release() {
	if ar.released {
		return
	}
	ar.alloc.counters = ar.saved
	ar.released = true
}
