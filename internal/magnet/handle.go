package magnet

import "fmt"

// BodyID addresses a body slot in a World. The generation guards against a
// freed slot being reused by a different body.
type BodyID struct {
	index uint32
	gen   uint32
}

// PoleID addresses a pole slot in a World.
type PoleID struct {
	index uint32
	gen   uint32
}

// JointID is an opaque handle issued by a Host. Zero is never a valid joint.
type JointID uint64

// Valid reports whether the handle was ever issued.
func (id BodyID) Valid() bool { return id.gen != 0 }

func (id BodyID) String() string { return fmt.Sprintf("body#%d.%d", id.index, id.gen) }

// Valid reports whether the handle was ever issued.
func (id PoleID) Valid() bool { return id.gen != 0 }

func (id PoleID) String() string { return fmt.Sprintf("pole#%d.%d", id.index, id.gen) }

// pairKey identifies an unordered body pair.
type pairKey struct {
	lo, hi BodyID
}

func makePairKey(a, b BodyID) pairKey {
	if b.index < a.index || (b.index == a.index && b.gen < a.gen) {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}
