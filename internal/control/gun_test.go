package control

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
	"github.com/san-kum/magsim/internal/magnet"
)

func addTarget(t *testing.T, w *magnet.World, name string, pos mgl64.Vec3, typ int, strength float64) magnet.BodyID {
	t.Helper()
	b := magnet.NewBody(name, 1)
	b.Position = pos
	id := w.AddBody(b)
	p := magnet.NewPole(id, strength, 0)
	p.Type = typ
	if _, err := w.AddPole(p); err != nil {
		t.Fatal(err)
	}
	return id
}

func newGun() *Gun {
	g := NewGun(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1})
	g.Firing = true
	return g
}

func TestGun_PullsOppositeType(t *testing.T) {
	g := NewWithT(t)
	w := magnet.NewWorld()
	red := addTarget(t, w, "red", mgl64.Vec3{0, 0, 5}, 1, 0.5)
	host := magnet.NewRecorder()

	gun := newGun()
	gun.Apply(w, host, 0)

	id, locked := gun.Target()
	g.Expect(locked).To(BeTrue())
	g.Expect(id).To(Equal(red))
	g.Expect(host.Forces).To(HaveLen(1))
	g.Expect(host.Forces[0].Mode).To(Equal(magnet.ModeAcceleration))
	g.Expect(host.Forces[0].Force.ApproxEqualThreshold(mgl64.Vec3{0, 0, -40}, 1e-9)).To(BeTrue(), "got %v", host.Forces[0].Force)
}

func TestGun_PushesSameType(t *testing.T) {
	g := NewWithT(t)
	w := magnet.NewWorld()
	blue := addTarget(t, w, "blue", mgl64.Vec3{0, 0, 5}, -1, 2)
	host := magnet.NewRecorder()

	gun := newGun()
	gun.Apply(w, host, 0)

	_, locked := gun.Target()
	g.Expect(locked).To(BeFalse(), "same type must never be locked")
	g.Expect(host.Net(blue).ApproxEqualThreshold(mgl64.Vec3{0, 0, 120}, 1e-9)).To(BeTrue())

	host.Reset()
	gun.SameTypePush = false
	gun.Apply(w, host, 0)
	g.Expect(host.Forces).To(BeEmpty())
}

func TestGun_BlueOnlyLock(t *testing.T) {
	g := NewWithT(t)
	gun := newGun()
	g.Expect(gun.Mode()).To(Equal(GunBlue))
	g.Expect(gun.SetMode(GunRed)).To(BeFalse())
	g.Expect(gun.Mode()).To(Equal(GunBlue))

	gun.Unlock()
	g.Expect(gun.Unlocked()).To(BeTrue())
	g.Expect(gun.SetMode(GunRed)).To(BeTrue())
	g.Expect(gun.Mode()).To(Equal(GunRed))
}

func TestGun_ModeChangeReleasesIncompatible(t *testing.T) {
	g := NewWithT(t)
	w := magnet.NewWorld()
	addTarget(t, w, "red", mgl64.Vec3{0, 0, 5}, 1, 1)
	host := magnet.NewRecorder()

	gun := newGun()
	gun.Unlock()
	gun.Apply(w, host, 0)
	_, locked := gun.Target()
	g.Expect(locked).To(BeTrue())

	gun.SetMode(GunRed)
	_, locked = gun.Target()
	g.Expect(locked).To(BeFalse())

	host.Reset()
	gun.SameTypePush = false
	gun.Apply(w, host, 0.1)
	g.Expect(host.Forces).To(BeEmpty(), "red mode must not pull a red target")
}

func TestGun_ReleaseOnTriggerUp(t *testing.T) {
	g := NewWithT(t)
	w := magnet.NewWorld()
	addTarget(t, w, "red", mgl64.Vec3{0, 0, 5}, 1, 1)
	host := magnet.NewRecorder()

	gun := newGun()
	gun.Windows = []Window{{Start: 0, End: 1}}
	gun.Apply(w, host, 0.5)
	_, locked := gun.Target()
	g.Expect(locked).To(BeTrue())

	host.Reset()
	gun.Apply(w, host, 1.5)
	_, locked = gun.Target()
	g.Expect(locked).To(BeFalse())
	g.Expect(host.Forces).To(BeEmpty())
}

func TestGun_TargetRemoved(t *testing.T) {
	w := magnet.NewWorld()
	red := addTarget(t, w, "red", mgl64.Vec3{0, 0, 5}, 1, 1)
	gun := newGun()
	gun.TryLock(w)
	w.RemoveBody(red)

	host := magnet.NewRecorder()
	gun.Apply(w, host, 0)
	if _, locked := gun.Target(); locked {
		t.Error("gun should release a removed target")
	}
	if len(host.Forces) != 0 {
		t.Errorf("unexpected forces %v", host.Forces)
	}
}

func TestGun_Raycast(t *testing.T) {
	tests := []struct {
		name   string
		pos    mgl64.Vec3
		layer  uint8
		mask   uint32
		wantOK bool
	}{
		{"on axis", mgl64.Vec3{0, 0, 5}, 0, magnet.AllLayers, true},
		{"grazing", mgl64.Vec3{0.4, 0, 5}, 0, magnet.AllLayers, true},
		{"off axis", mgl64.Vec3{1, 0, 5}, 0, magnet.AllLayers, false},
		{"behind", mgl64.Vec3{0, 0, -5}, 0, magnet.AllLayers, false},
		{"too far", mgl64.Vec3{0, 0, 30}, 0, magnet.AllLayers, false},
		{"masked layer", mgl64.Vec3{0, 0, 5}, 3, 1 << 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := magnet.NewWorld()
			b := magnet.NewBody("red", 1)
			b.Position = tt.pos
			id := w.AddBody(b)
			p := magnet.NewPole(id, 1, 0)
			p.Type = 1
			p.Layer = tt.layer
			if _, err := w.AddPole(p); err != nil {
				t.Fatal(err)
			}

			gun := newGun()
			gun.Mask = tt.mask
			if got := gun.TryLock(w); got != tt.wantOK {
				t.Errorf("TryLock() = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestGun_NearestHitBlocks(t *testing.T) {
	w := magnet.NewWorld()
	addTarget(t, w, "far-red", mgl64.Vec3{0, 0, 8}, 1, 1)
	addTarget(t, w, "near-blue", mgl64.Vec3{0, 0, 3}, -1, 1)

	gun := newGun()
	if gun.TryLock(w) {
		t.Error("an incompatible body in front must block the lock")
	}
}

func TestParseGunMode(t *testing.T) {
	g := NewWithT(t)
	m, err := ParseGunMode("red")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m).To(Equal(GunRed))
	g.Expect(m.String()).To(Equal("red"))

	_, err = ParseGunMode("green")
	g.Expect(err).To(MatchError(ContainSubstring("unknown gun mode")))
}

func TestManualAndNone(t *testing.T) {
	g := NewWithT(t)
	w := magnet.NewWorld()
	id := w.AddBody(magnet.NewBody("a", 1))
	host := magnet.NewRecorder()

	NewNone().Apply(w, host, 0)
	g.Expect(host.Forces).To(BeEmpty())

	m := NewManual()
	m.Apply(w, host, 0)
	g.Expect(host.Forces).To(BeEmpty())

	m.Push(id, mgl64.Vec3{1, 0, 0})
	m.Apply(w, host, 0)
	g.Expect(host.Net(id)).To(Equal(mgl64.Vec3{1, 0, 0}))
}
