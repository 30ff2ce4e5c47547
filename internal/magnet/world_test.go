package magnet

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
)

func TestWorld_AddRemoveBody(t *testing.T) {
	g := NewWithT(t)
	w := NewWorld()

	a := w.AddBody(NewBody("a", 1))
	b := w.AddBody(NewBody("b", 2))
	g.Expect(w.NumBodies()).To(Equal(2))
	g.Expect(w.BodyIDs()).To(Equal([]BodyID{a, b}))

	g.Expect(w.RemoveBody(a)).To(BeTrue())
	g.Expect(w.RemoveBody(a)).To(BeFalse())
	g.Expect(w.Alive(a)).To(BeFalse())

	c := w.AddBody(NewBody("c", 3))
	g.Expect(c.index).To(Equal(a.index), "freed slot is reused")
	g.Expect(c).NotTo(Equal(a))

	_, ok := w.Body(a)
	g.Expect(ok).To(BeFalse(), "stale handle must not resolve to the new body")
	body, ok := w.Body(c)
	g.Expect(ok).To(BeTrue())
	g.Expect(body.Name).To(Equal("c"))
}

func TestWorld_RemoveBodyDropsPoles(t *testing.T) {
	g := NewWithT(t)
	w := NewWorld()
	a := w.AddBody(NewBody("a", 1))
	p1, err := w.AddPole(NewPole(a, 1, 1))
	g.Expect(err).NotTo(HaveOccurred())
	p2, err := w.AddPole(NewPole(a, 1, -1))
	g.Expect(err).NotTo(HaveOccurred())

	body, _ := w.Body(a)
	g.Expect(body.Poles()).To(Equal([]PoleID{p1, p2}))

	w.RemoveBody(a)
	g.Expect(w.NumPoles()).To(BeZero())
	_, ok := w.Pole(p1)
	g.Expect(ok).To(BeFalse())
}

func TestWorld_RemovePoleDetaches(t *testing.T) {
	g := NewWithT(t)
	w := NewWorld()
	a := w.AddBody(NewBody("a", 1))
	p1, _ := w.AddPole(NewPole(a, 1, 1))
	p2, _ := w.AddPole(NewPole(a, 1, 1))

	g.Expect(w.RemovePole(p1)).To(BeTrue())
	body, _ := w.Body(a)
	g.Expect(body.Poles()).To(Equal([]PoleID{p2}))
	g.Expect(w.PoleIDs()).To(Equal([]PoleID{p2}))
}

func TestWorld_AddPoleErrors(t *testing.T) {
	w := NewWorld()
	a := w.AddBody(NewBody("a", 1))

	tests := []struct {
		name string
		pole Pole
		want error
	}{
		{"stale body", NewPole(BodyID{index: 7, gen: 1}, 1, 1), ErrStaleHandle},
		{"zero handle", NewPole(BodyID{}, 1, 1), ErrStaleHandle},
		{"negative strength", NewPole(a, -1, 1), ErrInvalidPole},
		{"negative range", Pole{Body: a, Range: -1, Mask: AllLayers}, ErrInvalidPole},
		{"layer too high", Pole{Body: a, Layer: 40, Mask: AllLayers}, ErrInvalidPole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.AddPole(tt.pole); !errors.Is(err, tt.want) {
				t.Errorf("AddPole() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWorld_AddValidBody(t *testing.T) {
	w := NewWorld()
	if _, err := w.AddValidBody(NewBody("zero", 0)); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("expected ErrInvalidBody, got %v", err)
	}

	wall := NewBody("wall", 0)
	wall.Kinematic = true
	if _, err := w.AddValidBody(wall); err != nil {
		t.Errorf("kinematic body should not need mass: %v", err)
	}
}

func TestWorld_PolePosition(t *testing.T) {
	g := NewWithT(t)
	w := NewWorld()
	b := NewBody("a", 1)
	b.Position = mgl64.Vec3{1, 0, 0}
	b.Orientation = mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1})
	id := w.AddBody(b)
	p := NewPole(id, 1, 1)
	p.Offset = mgl64.Vec3{1, 0, 0}
	pid, _ := w.AddPole(p)

	pos, ok := w.PolePosition(pid)
	g.Expect(ok).To(BeTrue())
	g.Expect(pos.ApproxEqualThreshold(mgl64.Vec3{1, 1, 0}, 1e-9)).To(BeTrue(), "got %v", pos)
}

func TestWorld_FindBody(t *testing.T) {
	w := NewWorld()
	w.AddBody(NewBody("a", 1))
	b := w.AddBody(NewBody("b", 1))

	got, ok := w.FindBody("b")
	if !ok || got != b {
		t.Errorf("FindBody(b) = %v, %v", got, ok)
	}
	if _, ok := w.FindBody("missing"); ok {
		t.Error("expected missing body to be absent")
	}
}

func TestBody_PointVelocity(t *testing.T) {
	b := NewBody("spin", 1)
	b.Velocity = mgl64.Vec3{1, 0, 0}
	b.AngularVelocity = mgl64.Vec3{0, 0, 2}

	got := b.PointVelocity(mgl64.Vec3{0, 1, 0})
	want := mgl64.Vec3{-1, 0, 0}
	if !got.ApproxEqualThreshold(want, 1e-12) {
		t.Errorf("PointVelocity = %v, want %v", got, want)
	}
}

func TestPairKey_Unordered(t *testing.T) {
	a := BodyID{index: 1, gen: 1}
	b := BodyID{index: 4, gen: 2}
	if makePairKey(a, b) != makePairKey(b, a) {
		t.Error("pair key must not depend on argument order")
	}
}
