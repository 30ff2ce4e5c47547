package analysis

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/magnet"
)

// LyapunovExponent estimates the largest Lyapunov exponent of a scene by
// running it twice, the second time with one body nudged along x.
// A positive value means nearby layouts diverge, as swarms typically do.
//
// Algorithm:
// 1. Build two identical simulators and perturb the named body in one
// 2. Step both and measure their separation in position/velocity space
// 3. λ ≈ mean of ln(d/d0) per unit time, renormalising d back to d0
func LyapunovExponent(
	build func() (*dynamo.Simulator, error),
	body string,
	dt, duration float64,
	perturbation float64,
) (float64, error) {
	if dt <= 0 || duration <= 0 || perturbation <= 0 {
		return 0, fmt.Errorf("%w: dt, duration and perturbation must be positive", dynamo.ErrParameterBounds)
	}
	ref, err := build()
	if err != nil {
		return 0, err
	}
	pert, err := build()
	if err != nil {
		return 0, err
	}

	id, ok := pert.World().FindBody(body)
	if !ok {
		return 0, fmt.Errorf("unknown body: %s", body)
	}
	b, _ := pert.World().Body(id)
	b.Position = b.Position.Add(mgl64.Vec3{perturbation, 0, 0})

	d0 := perturbation
	sumLog := 0.0
	count := 0

	for t := 0.0; t < duration; t += dt {
		ref.Step(dt)
		pert.Step(dt)

		sep := distance(ref.World(), pert.World())
		if math.IsNaN(sep) {
			return 0, dynamo.ErrInvalidState
		}
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
			rescale(ref.World(), pert.World(), d0/sep)
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

type phase struct {
	pos, vel []mgl64.Vec3
	bodies   []*magnet.Body
}

func phaseOf(w *magnet.World) phase {
	var p phase
	w.EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		p.pos = append(p.pos, b.Position)
		p.vel = append(p.vel, b.Velocity)
		p.bodies = append(p.bodies, b)
	})
	return p
}

func distance(a, b *magnet.World) float64 {
	pa, pb := phaseOf(a), phaseOf(b)
	sum := 0.0
	for i := range min(len(pa.pos), len(pb.pos)) {
		sum += pb.pos[i].Sub(pa.pos[i]).LenSqr()
		sum += pb.vel[i].Sub(pa.vel[i]).LenSqr()
	}
	return math.Sqrt(sum)
}

// rescale pulls the perturbed world back toward the reference.
func rescale(ref, pert *magnet.World, scale float64) {
	pr, pp := phaseOf(ref), phaseOf(pert)
	for i := range min(len(pr.pos), len(pp.pos)) {
		b := pp.bodies[i]
		b.Position = pr.pos[i].Add(pp.pos[i].Sub(pr.pos[i]).Mul(scale))
		b.Velocity = pr.vel[i].Add(pp.vel[i].Sub(pr.vel[i]).Mul(scale))
	}
}
