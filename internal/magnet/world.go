package magnet

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type bodySlot struct {
	gen   uint32
	alive bool
	body  Body
}

type poleSlot struct {
	gen   uint32
	alive bool
	pole  Pole
}

// World owns the bodies and poles of one simulation. Handles stay valid until
// the record is removed; freed slots are recycled with a new generation.
type World struct {
	bodies    []bodySlot
	poles     []poleSlot
	freeBody  []uint32
	freePole  []uint32
	numBodies int
	numPoles  int
}

func NewWorld() *World {
	return &World{
		bodies: make([]bodySlot, 0, 16),
		poles:  make([]poleSlot, 0, 32),
	}
}

// AddBody registers a body and returns its handle. Any poles listed on the
// value are ignored; attach poles with AddPole.
func (w *World) AddBody(b Body) BodyID {
	b.poles = nil
	if b.Orientation == (mgl64.Quat{}) {
		b.Orientation = mgl64.QuatIdent()
	}

	var idx uint32
	if n := len(w.freeBody); n > 0 {
		idx = w.freeBody[n-1]
		w.freeBody = w.freeBody[:n-1]
	} else {
		idx = uint32(len(w.bodies))
		w.bodies = append(w.bodies, bodySlot{})
	}

	slot := &w.bodies[idx]
	slot.gen++
	slot.alive = true
	slot.body = b
	w.numBodies++
	return BodyID{index: idx, gen: slot.gen}
}

// AddValidBody is AddBody with mass and inertia checks.
func (w *World) AddValidBody(b Body) (BodyID, error) {
	if err := b.validate(); err != nil {
		return BodyID{}, err
	}
	return w.AddBody(b), nil
}

// RemoveBody unregisters a body together with all of its poles.
func (w *World) RemoveBody(id BodyID) bool {
	slot := w.bodySlot(id)
	if slot == nil {
		return false
	}
	for _, pid := range slot.body.poles {
		w.removePoleSlot(pid)
	}
	slot.alive = false
	slot.body = Body{}
	w.freeBody = append(w.freeBody, id.index)
	w.numBodies--
	return true
}

// Body resolves a handle. The pointer is valid until the next AddBody.
func (w *World) Body(id BodyID) (*Body, bool) {
	slot := w.bodySlot(id)
	if slot == nil {
		return nil, false
	}
	return &slot.body, true
}

// Alive reports whether the handle still refers to a registered body.
func (w *World) Alive(id BodyID) bool { return w.bodySlot(id) != nil }

// AddPole attaches a pole to its body.
func (w *World) AddPole(p Pole) (PoleID, error) {
	owner := w.bodySlot(p.Body)
	if owner == nil {
		return PoleID{}, fmt.Errorf("add pole to %s: %w", p.Body, ErrStaleHandle)
	}
	if err := p.validate(); err != nil {
		return PoleID{}, err
	}

	var idx uint32
	if n := len(w.freePole); n > 0 {
		idx = w.freePole[n-1]
		w.freePole = w.freePole[:n-1]
	} else {
		idx = uint32(len(w.poles))
		w.poles = append(w.poles, poleSlot{})
	}

	slot := &w.poles[idx]
	slot.gen++
	slot.alive = true
	slot.pole = p
	w.numPoles++

	id := PoleID{index: idx, gen: slot.gen}
	owner.body.poles = append(owner.body.poles, id)
	return id, nil
}

// RemovePole detaches a pole from its body and unregisters it.
func (w *World) RemovePole(id PoleID) bool {
	slot := w.poleSlot(id)
	if slot == nil {
		return false
	}
	if owner := w.bodySlot(slot.pole.Body); owner != nil {
		owner.body.poles = removePoleID(owner.body.poles, id)
	}
	w.removePoleSlot(id)
	return true
}

// Pole resolves a handle. The pointer is valid until the next AddPole.
func (w *World) Pole(id PoleID) (*Pole, bool) {
	slot := w.poleSlot(id)
	if slot == nil {
		return nil, false
	}
	return &slot.pole, true
}

// PolePosition returns the world-space position of a pole.
func (w *World) PolePosition(id PoleID) (mgl64.Vec3, bool) {
	p, ok := w.Pole(id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	b, ok := w.Body(p.Body)
	if !ok {
		return mgl64.Vec3{}, false
	}
	return b.WorldPoint(p.Offset), true
}

// FindBody returns the first live body with the given name.
func (w *World) FindBody(name string) (BodyID, bool) {
	for i := range w.bodies {
		slot := &w.bodies[i]
		if slot.alive && slot.body.Name == name {
			return BodyID{index: uint32(i), gen: slot.gen}, true
		}
	}
	return BodyID{}, false
}

// NumBodies returns the number of live bodies.
func (w *World) NumBodies() int { return w.numBodies }

// NumPoles returns the number of live poles.
func (w *World) NumPoles() int { return w.numPoles }

// BodyIDs returns live body handles in slot order.
func (w *World) BodyIDs() []BodyID {
	ids := make([]BodyID, 0, w.numBodies)
	for i := range w.bodies {
		if w.bodies[i].alive {
			ids = append(ids, BodyID{index: uint32(i), gen: w.bodies[i].gen})
		}
	}
	return ids
}

// PoleIDs returns live pole handles in slot order.
func (w *World) PoleIDs() []PoleID {
	ids := make([]PoleID, 0, w.numPoles)
	for i := range w.poles {
		if w.poles[i].alive {
			ids = append(ids, PoleID{index: uint32(i), gen: w.poles[i].gen})
		}
	}
	return ids
}

// EachBody visits live bodies in slot order.
func (w *World) EachBody(fn func(id BodyID, b *Body)) {
	for i := range w.bodies {
		slot := &w.bodies[i]
		if slot.alive {
			fn(BodyID{index: uint32(i), gen: slot.gen}, &slot.body)
		}
	}
}

func (w *World) bodySlot(id BodyID) *bodySlot {
	if !id.Valid() || int(id.index) >= len(w.bodies) {
		return nil
	}
	slot := &w.bodies[id.index]
	if !slot.alive || slot.gen != id.gen {
		return nil
	}
	return slot
}

func (w *World) poleSlot(id PoleID) *poleSlot {
	if !id.Valid() || int(id.index) >= len(w.poles) {
		return nil
	}
	slot := &w.poles[id.index]
	if !slot.alive || slot.gen != id.gen {
		return nil
	}
	return slot
}

func (w *World) removePoleSlot(id PoleID) {
	slot := w.poleSlot(id)
	if slot == nil {
		return
	}
	slot.alive = false
	slot.pole = Pole{}
	w.freePole = append(w.freePole, id.index)
	w.numPoles--
}

func removePoleID(ids []PoleID, id PoleID) []PoleID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
