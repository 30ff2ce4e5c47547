package magnet

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// coincident is the separation below which a pair has no usable direction.
const coincident = 1e-9

// Sample is the kinematic view of one pole that the force law consumes.
type Sample struct {
	Pole     *Pole
	Position mgl64.Vec3
	Velocity mgl64.Vec3 // velocity of the pole point
}

// PairForce evaluates the force on pole A exerted by pole B; B receives the
// opposite. sign is the rule's verdict (Attract or Repel). The returned
// distance is the unsoftened separation.
func (p *Params) PairForce(a, b Sample, sign float64) (force mgl64.Vec3, r float64) {
	ab := b.Position.Sub(a.Position)
	r = ab.Len()
	if r < coincident || sign == Neutral {
		return mgl64.Vec3{}, r
	}

	dir := ab.Mul(sign / r)
	force = dir.Mul(p.Magnitude(a.Pole, b.Pole, r))

	if p.Damping > 0 {
		vRel := b.Velocity.Sub(a.Velocity).Dot(dir)
		force = force.Add(dir.Mul(p.Damping * vRel))
	}

	if p.HorizontalOnly {
		force = projectOnPlane(force, p.Up)
	}

	if p.MaxForcePerPair > 0 {
		force = clampLength(force, p.MaxForcePerPair)
	}
	return force, r
}

// Magnitude is the undamped force magnitude at separation r, including the
// softening floor and the near-field ramp.
func (p *Params) Magnitude(a, b *Pole, r float64) float64 {
	eps := math.Max(math.Max(a.Softening, b.Softening), p.MinEpsilon)
	rSoft := math.Max(r, eps)

	denom := math.Pow(rSoft, p.Power)
	if denom <= 0 {
		return 0
	}
	mag := p.K * a.Strength * b.Strength / denom

	t := clamp01(r / p.NearRadius)
	return mag * smoothStep(p.NearMinFactor, 1, t)
}

// SnapPull is the constant force used in SnapPull mode.
func (p *Params) SnapPull(a, b mgl64.Vec3) mgl64.Vec3 {
	ab := b.Sub(a)
	r := ab.Len()
	if r < coincident {
		return mgl64.Vec3{}
	}
	f := ab.Mul(p.SnapPullForce / r)
	if p.HorizontalOnly {
		f = projectOnPlane(f, p.Up)
	}
	return f
}

// smoothStep interpolates from..to with a cubic Hermite ease of t in [0, 1].
func smoothStep(from, to, t float64) float64 {
	t = clamp01(t)
	t = t * t * (3 - 2*t)
	return from + (to-from)*t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func projectOnPlane(v, normal mgl64.Vec3) mgl64.Vec3 {
	n2 := normal.LenSqr()
	if n2 == 0 {
		return v
	}
	return v.Sub(normal.Mul(v.Dot(normal) / n2))
}

func clampLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Mul(max / l)
}
