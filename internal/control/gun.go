package control

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// GunMode selects which target type the gun pulls.
type GunMode int

const (
	GunRed  GunMode = 1
	GunBlue GunMode = -1
)

func (m GunMode) String() string {
	switch m {
	case GunRed:
		return "red"
	case GunBlue:
		return "blue"
	}
	return fmt.Sprintf("GunMode(%d)", int(m))
}

// ParseGunMode accepts "red" or "blue".
func ParseGunMode(s string) (GunMode, error) {
	switch s {
	case "red":
		return GunRed, nil
	case "blue", "":
		return GunBlue, nil
	}
	return 0, fmt.Errorf("unknown gun mode: %s", s)
}

// Window is a half-open time interval during which the trigger is held.
type Window struct {
	Start, End float64
}

// Gun casts a ray from Origin along Aim. While firing it locks the first body
// hit whose type is the opposite of the mode and pulls it toward Origin. A
// body of the mode's own type under the crosshair is pushed away instead.
// Target type and strength come from the body's first enabled pole.
type Gun struct {
	Origin      mgl64.Vec3
	Aim         mgl64.Vec3
	MaxDistance float64
	HitRadius   float64
	Mask        uint32

	PullForce    float64
	PushForce    float64
	SameTypePush bool

	// BlueOnly holds the gun in blue mode until Unlock is called.
	BlueOnly bool

	// Firing is the trigger state when Windows is empty.
	Firing  bool
	Windows []Window

	mode       GunMode
	target     magnet.BodyID
	targetType int
	locked     bool
	logger     *log.Logger
}

func NewGun(origin, aim mgl64.Vec3) *Gun {
	return &Gun{
		Origin:       origin,
		Aim:          aim,
		MaxDistance:  25,
		HitRadius:    0.5,
		Mask:         magnet.AllLayers,
		PullForce:    80,
		PushForce:    60,
		SameTypePush: true,
		BlueOnly:     true,
		mode:         GunBlue,
	}
}

func (g *Gun) SetLogger(l *log.Logger) { g.logger = l }

func (g *Gun) Mode() GunMode { return g.mode }

// SetMode switches modes and drops a target the new mode cannot hold. It
// reports false when the gun is held in blue mode.
func (g *Gun) SetMode(m GunMode) bool {
	if g.BlueOnly && m != GunBlue {
		return false
	}
	if m == g.mode {
		return true
	}
	g.mode = m
	g.logf("switched to %s mode", m)
	if g.locked && !g.compatible(g.targetType) {
		g.Release()
	}
	return true
}

// Unlock allows switching to red mode.
func (g *Gun) Unlock() { g.BlueOnly = false }

func (g *Gun) Unlocked() bool { return !g.BlueOnly }

// Target returns the locked body.
func (g *Gun) Target() (magnet.BodyID, bool) { return g.target, g.locked }

func (g *Gun) Release() {
	if g.locked {
		g.logf("released %s", g.target)
	}
	g.target = magnet.BodyID{}
	g.locked = false
}

// FiringAt reports whether the trigger is held at time t.
func (g *Gun) FiringAt(t float64) bool {
	if len(g.Windows) == 0 {
		return g.Firing
	}
	for _, w := range g.Windows {
		if t >= w.Start && t < w.End {
			return true
		}
	}
	return false
}

// TryLock locks the body under the crosshair if its type is compatible.
func (g *Gun) TryLock(w *magnet.World) bool {
	id, typ, _, ok := g.raycast(w)
	if !ok {
		return false
	}
	if !g.compatible(typ) {
		g.logf("hit %s but type %d is not compatible with %s mode", id, typ, g.mode)
		return false
	}
	g.target = id
	g.targetType = typ
	g.locked = true
	g.logf("locked %s (type %d) in %s mode", id, typ, g.mode)
	return true
}

func (g *Gun) Apply(w *magnet.World, host magnet.Host, t float64) {
	if g.BlueOnly && g.mode != GunBlue {
		g.mode = GunBlue
	}

	firing := g.FiringAt(t)
	if !firing {
		g.Release()
		return
	}
	if !g.locked {
		g.TryLock(w)
	}

	if g.SameTypePush {
		if id, typ, strength, ok := g.raycast(w); ok && typ == int(g.mode) && g.Aim.LenSqr() > 0 {
			push := g.PushForce * math.Max(0, strength)
			host.AddForce(id, g.Aim.Normalize().Mul(push), magnet.ModeAcceleration)
		}
	}

	if !g.locked {
		return
	}
	b, ok := w.Body(g.target)
	if !ok {
		g.Release()
		return
	}
	typ, strength, ok := targetOf(w, b)
	if !ok || !g.compatible(typ) {
		g.Release()
		return
	}

	dir := g.Origin.Sub(b.Position)
	if dir.LenSqr() < 1e-6 {
		return
	}
	host.AddForce(g.target, dir.Normalize().Mul(g.PullForce*strength), magnet.ModeAcceleration)
}

func (g *Gun) compatible(typ int) bool { return typ == -int(g.mode) }

// raycast returns the nearest magnetic body whose hit sphere the aim ray
// enters within MaxDistance.
func (g *Gun) raycast(w *magnet.World) (id magnet.BodyID, typ int, strength float64, ok bool) {
	if g.Aim.LenSqr() == 0 {
		return id, 0, 0, false
	}
	dir := g.Aim.Normalize()
	r2 := g.HitRadius * g.HitRadius
	best := math.Inf(1)

	w.EachBody(func(bid magnet.BodyID, b *magnet.Body) {
		if !b.Enabled {
			return
		}
		ty, st, magnetic := targetOf(w, b)
		if !magnetic || !g.layerHit(w, b) {
			return
		}
		oc := b.Position.Sub(g.Origin)
		tca := oc.Dot(dir)
		d2 := oc.LenSqr() - tca*tca
		if tca < 0 || d2 > r2 {
			return
		}
		hit := math.Max(0, tca-math.Sqrt(r2-d2))
		if hit > g.MaxDistance || hit >= best {
			return
		}
		best = hit
		id, typ, strength, ok = bid, ty, st, true
	})
	return id, typ, strength, ok
}

func (g *Gun) layerHit(w *magnet.World, b *magnet.Body) bool {
	for _, pid := range b.Poles() {
		if p, ok := w.Pole(pid); ok && p.Enabled && g.Mask&(1<<p.Layer) != 0 {
			return true
		}
	}
	return false
}

func (g *Gun) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf("gun: "+format, args...)
	}
}

// targetOf reads the type and strength of the first enabled pole.
func targetOf(w *magnet.World, b *magnet.Body) (typ int, strength float64, ok bool) {
	for _, pid := range b.Poles() {
		if p, found := w.Pole(pid); found && p.Enabled {
			return p.Type, p.Strength, true
		}
	}
	return 0, 0, false
}
