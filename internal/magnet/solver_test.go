package magnet_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magsim/internal/magnet"
)

// plainParams disables every stability feature so the bare force law shows.
func plainParams() magnet.Params {
	p := magnet.DefaultParams()
	p.K = 10
	p.Power = 2
	p.Damping = 0
	p.UseSnap = false
	p.MaxForcePerPair = 0
	return p
}

type pair struct {
	world  *magnet.World
	a, b   magnet.BodyID
	pa, pb magnet.PoleID
}

func newPair(posA, posB mgl64.Vec3, polA, polB float64) pair {
	w := magnet.NewWorld()
	ba := magnet.NewBody("a", 1)
	ba.Position = posA
	bb := magnet.NewBody("b", 1)
	bb.Position = posB
	a := w.AddBody(ba)
	b := w.AddBody(bb)
	pa, err := w.AddPole(magnet.NewPole(a, 1, polA))
	Expect(err).NotTo(HaveOccurred())
	pb, err := w.AddPole(magnet.NewPole(b, 1, polB))
	Expect(err).NotTo(HaveOccurred())
	return pair{world: w, a: a, b: b, pa: pa, pb: pb}
}

func mustSolver(p magnet.Params) *magnet.Solver {
	s, err := magnet.NewSolver(p)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func approxVec(want mgl64.Vec3) OmegaMatcher {
	return WithTransform(func(v mgl64.Vec3) bool { return v.ApproxEqualThreshold(want, 1e-9) }, BeTrue())
}

// refusingHost never creates joints.
type refusingHost struct {
	*magnet.Recorder
}

func (refusingHost) Connect(_, _ magnet.BodyID, _, _ float64) magnet.JointID { return 0 }

var _ = Describe("Solver", func() {
	var host *magnet.Recorder

	BeforeEach(func() {
		host = magnet.NewRecorder()
	})

	Describe("force law", func() {
		It("attracts unlike poles with K*s1*s2/r^2", func() {
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, +1, -1)
			s := mustSolver(plainParams())

			rep := s.Step(pr.world, host)

			Expect(rep.Pairs).To(HaveLen(1))
			Expect(rep.Pairs[0].Sign).To(Equal(magnet.Attract))
			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{2.5, 0, 0}))
			Expect(host.Net(pr.b)).To(approxVec(mgl64.Vec3{-2.5, 0, 0}))
		})

		It("repels like poles with the same magnitude", func() {
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, +1, +1)
			s := mustSolver(plainParams())

			s.Step(pr.world, host)

			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{-2.5, 0, 0}))
			Expect(host.Net(pr.b)).To(approxVec(mgl64.Vec3{2.5, 0, 0}))
		})

		It("weakens strictly with distance", func() {
			p := plainParams()
			prev := math.Inf(1)
			for r := 0.3; r < 6; r += 0.25 {
				pr := newPair(mgl64.Vec3{}, mgl64.Vec3{r, 0, 0}, 1, -1)
				s := mustSolver(p)
				rep := s.Compute(pr.world)
				m := rep.Pairs[0].Force.Len()
				Expect(m).To(BeNumerically("<", prev), "r=%g", r)
				prev = m
			}
		})

		It("stays bounded as the poles coincide", func() {
			p := plainParams()
			a := magnet.NewPole(magnet.BodyID{}, 1, 1)
			b := magnet.NewPole(magnet.BodyID{}, 1, -1)
			a.Softening, b.Softening = 0, 0
			limit := p.K / (p.MinEpsilon * p.MinEpsilon)
			for _, r := range []float64{1e-3, 1e-6, 1e-9, 0} {
				m := p.Magnitude(&a, &b, r)
				Expect(math.IsInf(m, 0) || math.IsNaN(m)).To(BeFalse())
				Expect(m).To(BeNumerically("<=", limit))
			}
		})

		It("damps separating bodies toward each other", func() {
			p := plainParams()
			p.K = 0
			p.Damping = 4
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, 1, -1)
			ba, _ := pr.world.Body(pr.a)
			bb, _ := pr.world.Body(pr.b)
			ba.Velocity = mgl64.Vec3{-1, 0, 0}
			bb.Velocity = mgl64.Vec3{1, 0, 0}

			mustSolver(p).Step(pr.world, host)

			Expect(host.Net(pr.a).X()).To(BeNumerically(">", 0))
			Expect(host.Net(pr.b).X()).To(BeNumerically("<", 0))
			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{8, 0, 0}))
		})

		It("damps closing bodies apart regardless of polarity", func() {
			p := plainParams()
			p.K = 0
			p.Damping = 1
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, 1, 1)
			ba, _ := pr.world.Body(pr.a)
			ba.Velocity = mgl64.Vec3{3, 0, 0}

			mustSolver(p).Step(pr.world, host)

			Expect(host.Net(pr.a).X()).To(BeNumerically("<", 0))
		})

		It("removes the vertical component when horizontal only", func() {
			p := plainParams()
			p.HorizontalOnly = true
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 0}, 1, -1)

			mustSolver(p).Step(pr.world, host)

			f := host.Net(pr.a)
			Expect(f.Y()).To(BeNumerically("~", 0, 1e-12))
			Expect(f.X()).To(BeNumerically(">", 0))
		})

		It("clamps each pair to the configured maximum", func() {
			p := plainParams()
			p.MaxForcePerPair = 1
			pr := newPair(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.5, 0, 0}, 1, -1)

			rep := mustSolver(p).Step(pr.world, host)

			Expect(rep.Pairs[0].Force.Len()).To(BeNumerically("~", 1, 1e-12))
			Expect(rep.PeakForce).To(BeNumerically("~", 1, 1e-12))
		})

		It("ramps the force down inside the near radius", func() {
			p := plainParams()
			p.NearRadius = 1
			a := magnet.NewPole(magnet.BodyID{}, 1, 1)
			b := magnet.NewPole(magnet.BodyID{}, 1, -1)
			full := p.K / (0.5 * 0.5)
			Expect(p.Magnitude(&a, &b, 0.5)).To(BeNumerically("~", full*0.6, 1e-9))
			Expect(p.Magnitude(&a, &b, 2)).To(BeNumerically("~", p.K/4, 1e-9))
		})
	})

	Describe("eligibility", func() {
		It("never lets poles on one body interact", func() {
			w := magnet.NewWorld()
			id := w.AddBody(magnet.NewBody("solo", 1))
			p1 := magnet.NewPole(id, 1, 1)
			p1.Offset = mgl64.Vec3{-1, 0, 0}
			p2 := magnet.NewPole(id, 1, -1)
			p2.Offset = mgl64.Vec3{1, 0, 0}
			_, _ = w.AddPole(p1)
			_, _ = w.AddPole(p2)

			rep := mustSolver(plainParams()).Step(w, host)

			Expect(rep.Pairs).To(BeEmpty())
			Expect(host.Forces).To(BeEmpty())
		})

		It("skips disabled poles and disabled bodies", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 1, -1)
			pole, _ := pr.world.Pole(pr.pa)
			pole.Enabled = false
			s := mustSolver(plainParams())
			Expect(s.Step(pr.world, host).Pairs).To(BeEmpty())

			pole.Enabled = true
			body, _ := pr.world.Body(pr.b)
			body.Enabled = false
			Expect(s.Step(pr.world, host).Pairs).To(BeEmpty())
		})

		It("honours layer masks in both directions", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 1, -1)
			pa, _ := pr.world.Pole(pr.pa)
			pb, _ := pr.world.Pole(pr.pb)
			pa.Layer = 3
			pb.Mask = 1 << 4

			rep := mustSolver(plainParams()).Step(pr.world, host)

			Expect(rep.Pairs).To(BeEmpty())
			Expect(rep.Skipped).To(Equal(1))
		})

		It("skips pairs beyond either range", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{3, 0, 0}, 1, -1)
			pb, _ := pr.world.Pole(pr.pb)
			pb.Range = 2

			Expect(mustSolver(plainParams()).Step(pr.world, host).Pairs).To(BeEmpty())

			pb.Range = 4
			Expect(mustSolver(plainParams()).Step(pr.world, host).Pairs).To(HaveLen(1))
		})

		It("treats zero polarity as neutral", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 0, -1)
			Expect(mustSolver(plainParams()).Step(pr.world, host).Pairs).To(BeEmpty())
		})

		It("tolerates bodies removed between steps", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 1, -1)
			s := mustSolver(plainParams())
			s.Step(pr.world, host)

			Expect(pr.world.RemoveBody(pr.b)).To(BeTrue())
			host.Reset()
			rep := s.Step(pr.world, host)

			Expect(rep.Pairs).To(BeEmpty())
			Expect(host.Forces).To(BeEmpty())
		})
	})

	Describe("type rule", func() {
		It("repels equal types and attracts different ones", func() {
			p := plainParams()
			p.Rule = magnet.TypeRule{}
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}, 1, 1)
			pb, _ := pr.world.Pole(pr.pb)

			s := mustSolver(p)
			s.Step(pr.world, host)
			Expect(host.Net(pr.a).X()).To(BeNumerically("<", 0))

			pb.Type = 1
			host.Reset()
			s.Step(pr.world, host)
			Expect(host.Net(pr.a).X()).To(BeNumerically(">", 0))
		})
	})

	Describe("snap", func() {
		var p magnet.Params

		BeforeEach(func() {
			p = plainParams()
			p.UseSnap = true
			p.SnapDistance = 0.2
		})

		It("joins attracting poles inside snap distance and stops applying force", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			s := mustSolver(p)

			rep := s.Step(pr.world, host)
			Expect(rep.Joined).To(HaveLen(1))
			Expect(rep.Pairs[0].Snapped).To(BeTrue())
			Expect(host.Joints).To(HaveLen(1))
			Expect(host.Forces).To(BeEmpty())
			Expect(s.Joined(pr.a, pr.b)).To(BeTrue())

			for i := 0; i < 3; i++ {
				rep = s.Step(pr.world, host)
				Expect(rep.Joined).To(BeEmpty())
				Expect(rep.Pairs).To(BeEmpty())
			}
			Expect(host.Forces).To(BeEmpty())
			Expect(host.Joints).To(HaveLen(1))
		})

		It("never snaps repelling poles", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, 1)
			rep := mustSolver(p).Step(pr.world, host)

			Expect(rep.Joined).To(BeEmpty())
			Expect(host.Net(pr.a).X()).To(BeNumerically("<", 0))
		})

		It("returns a broken pair to free interaction", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			s := mustSolver(p)
			rep := s.Step(pr.world, host)
			joint := rep.Joined[0].Joint

			host.Break(joint)
			bb, _ := pr.world.Body(pr.b)
			bb.Position = mgl64.Vec3{2, 0, 0}

			rep = s.Step(pr.world, host)
			Expect(rep.Released).To(HaveLen(1))
			Expect(rep.Released[0].Joint).To(Equal(joint))
			Expect(s.Joined(pr.a, pr.b)).To(BeFalse())
			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{2.5, 0, 0}))
		})

		It("drops a joint whose body was destroyed", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			s := mustSolver(p)
			s.Step(pr.world, host)

			pr.world.RemoveBody(pr.a)
			rep := s.Step(pr.world, host)

			Expect(rep.Released).To(HaveLen(1))
			Expect(s.NumJoints()).To(BeZero())
		})

		It("hosts the joint on the lighter body with the tighter thresholds", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			ba, _ := pr.world.Body(pr.a)
			ba.Mass = 5
			pb, _ := pr.world.Pole(pr.pb)
			pb.BreakForce = 100

			rep := mustSolver(p).Step(pr.world, host)

			Expect(rep.Joined[0].Host).To(Equal(pr.b))
			Expect(rep.Joined[0].Other).To(Equal(pr.a))
			Expect(rep.Joined[0].BreakForce).To(Equal(100.0))
			Expect(rep.Joined[0].BreakTorque).To(Equal(p.BreakTorque))
		})

		It("requests one joint per body pair even with several close poles", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			extra := magnet.NewPole(pr.a, 1, 1)
			extra.Offset = mgl64.Vec3{0.01, 0, 0}
			_, err := pr.world.AddPole(extra)
			Expect(err).NotTo(HaveOccurred())

			rep := mustSolver(p).Step(pr.world, host)

			Expect(rep.Joined).To(HaveLen(1))
			Expect(host.Joints).To(HaveLen(1))
		})

		It("leaves the pair free when the host refuses the joint", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)
			s := mustSolver(p)
			refusing := refusingHost{host}

			rep := s.Step(pr.world, refusing)
			Expect(rep.Joined).To(BeEmpty())
			Expect(s.Joined(pr.a, pr.b)).To(BeFalse())
			Expect(s.NumJoints()).To(BeZero())

			rep = s.Step(pr.world, refusing)
			Expect(rep.Released).To(BeEmpty())
			Expect(rep.Pairs).To(HaveLen(1))
			Expect(rep.Pairs[0].Snapped).To(BeTrue())
		})

		It("pulls with a constant force in pull mode", func() {
			p.SnapMode = magnet.SnapPull
			p.SnapPullForce = 7
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 1, -1)

			rep := mustSolver(p).Step(pr.world, host)

			Expect(rep.Joined).To(BeEmpty())
			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{7, 0, 0}))
		})
	})

	Describe("application modes", func() {
		It("applies pair forces at pole positions", func() {
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}, 1, -1)
			pa, _ := pr.world.Pole(pr.pa)
			pa.Offset = mgl64.Vec3{0, 0.5, 0}

			mustSolver(plainParams()).Step(pr.world, host)

			Expect(host.Forces).To(HaveLen(2))
			Expect(host.Forces[0].AtPoint).To(BeTrue())
			Expect(host.Forces[0].Point).To(approxVec(mgl64.Vec3{0, 0.5, 0}))
			Expect(host.Forces[1].Point).To(approxVec(mgl64.Vec3{2, 0, 0}))
		})

		It("sums pair forces per body at the center of mass", func() {
			p := plainParams()
			p.Apply = magnet.ApplyAtCenter
			w := magnet.NewWorld()
			ids := make([]magnet.BodyID, 3)
			for i, pos := range []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}, {0, 3, 0}} {
				b := magnet.NewBody("b", 1)
				b.Position = pos
				ids[i] = w.AddBody(b)
				pol := 1.0
				if i == 1 {
					pol = -1
				}
				_, err := w.AddPole(magnet.NewPole(ids[i], 1, pol))
				Expect(err).NotTo(HaveOccurred())
			}

			rep := mustSolver(p).Step(w, host)

			Expect(rep.Pairs).To(HaveLen(3))
			Expect(host.Forces).To(HaveLen(3))
			for _, f := range host.Forces {
				Expect(f.AtPoint).To(BeFalse())
			}

			want := make(map[magnet.BodyID]mgl64.Vec3)
			for _, pr := range rep.Pairs {
				pa, _ := w.Pole(pr.A)
				pb, _ := w.Pole(pr.B)
				want[pa.Body] = want[pa.Body].Add(pr.Force)
				want[pb.Body] = want[pb.Body].Sub(pr.Force)
			}
			for _, id := range ids {
				Expect(host.Net(id)).To(approxVec(want[id]))
			}
		})

		It("does not carry center sums across steps", func() {
			p := plainParams()
			p.Apply = magnet.ApplyAtCenter
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}, 1, -1)
			s := mustSolver(p)

			s.Step(pr.world, host)
			host.Reset()
			s.Step(pr.world, host)

			Expect(host.Net(pr.a)).To(approxVec(mgl64.Vec3{2.5, 0, 0}))
		})

		It("forwards the force mode to the host", func() {
			p := plainParams()
			p.ForceMode = magnet.ModeAcceleration
			pr := newPair(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}, 1, -1)

			mustSolver(p).Step(pr.world, host)

			for _, f := range host.Forces {
				Expect(f.Mode).To(Equal(magnet.ModeAcceleration))
			}
		})
	})
})
