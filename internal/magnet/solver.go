package magnet

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type joinState struct {
	joint       JointID
	host, other BodyID
}

type poleView struct {
	id   PoleID
	pole *Pole
	body BodyID
	mass float64 // +Inf for kinematic bodies
	ok   bool
	Sample
}

// Solver evaluates pairwise pole forces once per fixed step. The only state
// it carries between steps is the set of joined body pairs.
type Solver struct {
	params Params
	logger *log.Logger

	joints map[pairKey]*joinState
	order  []pairKey

	pending map[pairKey]struct{}
	views   []poleView
	sumIdx  map[BodyID]int
	sumIDs  []BodyID
	sumF    []mgl64.Vec3
	report  Report
}

func NewSolver(p Params) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Solver{
		params:  p,
		joints:  make(map[pairKey]*joinState),
		pending: make(map[pairKey]struct{}),
		sumIdx:  make(map[BodyID]int),
	}, nil
}

// Params returns a copy of the active parameters.
func (s *Solver) Params() Params { return s.params }

// SetParams swaps the parameters between steps.
func (s *Solver) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

// SetParam adjusts one continuous parameter; see Params.SetParam.
func (s *Solver) SetParam(name string, value float64) error {
	return s.params.SetParam(name, value)
}

// GetParams exposes the continuous parameters for live tuning.
func (s *Solver) GetParams() map[string]float64 { return s.params.GetParams() }

// SetLogger enables debug tracing of joint transitions. Nil disables it.
func (s *Solver) SetLogger(l *log.Logger) { s.logger = l }

// Joined reports whether the two bodies are currently held by a snap joint.
func (s *Solver) Joined(a, b BodyID) bool {
	_, ok := s.joints[makePairKey(a, b)]
	return ok
}

// Joint returns the host joint linking two bodies, if any.
func (s *Solver) Joint(a, b BodyID) (JointID, bool) {
	st, ok := s.joints[makePairKey(a, b)]
	if !ok {
		return 0, false
	}
	return st.joint, true
}

// NumJoints returns the number of joined body pairs.
func (s *Solver) NumJoints() int { return len(s.joints) }

// Forget drops the bookkeeping for a pair, returning it to free interaction.
// The caller is responsible for removing the host joint.
func (s *Solver) Forget(a, b BodyID) bool {
	key := makePairKey(a, b)
	if _, ok := s.joints[key]; !ok {
		return false
	}
	s.dropJoint(key)
	return true
}

// Reset forgets every joined pair.
func (s *Solver) Reset() {
	clear(s.joints)
	s.order = s.order[:0]
}

// Step runs one fixed step: drop joints the host no longer holds, sweep all
// pole pairs, then hand forces and joint requests to the host. The returned
// report is reused by the next call.
func (s *Solver) Step(w *World, host Host) *Report {
	rep := &s.report
	rep.reset()

	s.prune(w, host, rep)
	s.compute(w, rep)

	// a zero joint id means the host refused; the pair stays free
	joined := rep.Joined[:0]
	for _, ev := range rep.Joined {
		ev.Joint = host.Connect(ev.Host, ev.Other, ev.BreakForce, ev.BreakTorque)
		if ev.Joint == 0 {
			if s.logger != nil {
				s.logger.Printf("magnet: host refused joint between %s and %s", ev.Host, ev.Other)
			}
			continue
		}
		key := makePairKey(ev.Host, ev.Other)
		s.joints[key] = &joinState{joint: ev.Joint, host: ev.Host, other: ev.Other}
		s.order = append(s.order, key)
		joined = append(joined, ev)
		if s.logger != nil {
			s.logger.Printf("magnet: joined %s and %s (joint %d)", ev.Host, ev.Other, ev.Joint)
		}
	}
	rep.Joined = joined

	for _, a := range rep.Applied {
		if a.AtPoint {
			host.AddForceAtPosition(a.Body, a.Force, a.Point, a.Mode)
		} else {
			host.AddForce(a.Body, a.Force, a.Mode)
		}
	}
	return rep
}

// Compute sweeps the world without touching any host. Joined pairs are
// honoured but no joint state changes; requested joints are listed in the
// report.
func (s *Solver) Compute(w *World) *Report {
	rep := &Report{}
	s.compute(w, rep)
	return rep
}

func (s *Solver) prune(w *World, host Host, rep *Report) {
	kept := s.order[:0]
	for _, key := range s.order {
		st, ok := s.joints[key]
		if !ok {
			continue
		}
		if w.Alive(key.lo) && w.Alive(key.hi) && host.Connected(st.joint) {
			kept = append(kept, key)
			continue
		}
		delete(s.joints, key)
		rep.Released = append(rep.Released, JointEvent{Host: st.host, Other: st.other, Joint: st.joint})
		if s.logger != nil {
			s.logger.Printf("magnet: released %s and %s (joint %d)", st.host, st.other, st.joint)
		}
	}
	s.order = kept
}

func (s *Solver) dropJoint(key pairKey) {
	delete(s.joints, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Solver) gather(w *World) {
	s.views = s.views[:0]
	for i := range w.poles {
		slot := &w.poles[i]
		if !slot.alive {
			continue
		}
		v := poleView{id: PoleID{index: uint32(i), gen: slot.gen}, pole: &slot.pole, body: slot.pole.Body}
		b, ok := w.Body(v.body)
		if ok && b.Enabled && slot.pole.Enabled {
			v.ok = true
			v.mass = b.Mass
			if b.Kinematic {
				v.mass = math.Inf(1)
			}
			pos := b.WorldPoint(slot.pole.Offset)
			v.Sample = Sample{Pole: &slot.pole, Position: pos, Velocity: b.PointVelocity(pos)}
		}
		s.views = append(s.views, v)
	}
}

func (s *Solver) compute(w *World, rep *Report) {
	p := &s.params
	s.gather(w)
	clear(s.pending)
	clear(s.sumIdx)
	s.sumIDs = s.sumIDs[:0]
	s.sumF = s.sumF[:0]

	n := len(s.views)
	for i := 0; i < n-1; i++ {
		a := &s.views[i]
		if !a.ok {
			continue
		}
		for j := i + 1; j < n; j++ {
			b := &s.views[j]
			if !b.ok || a.body == b.body {
				continue
			}
			if !a.pole.CanInteract(b.pole) {
				rep.Skipped++
				continue
			}

			key := makePairKey(a.body, b.body)
			if _, joined := s.joints[key]; joined {
				rep.Skipped++
				continue
			}
			if _, joining := s.pending[key]; joining {
				rep.Skipped++
				continue
			}

			r := b.Position.Sub(a.Position).Len()
			if !a.pole.InRange(b.pole, r) {
				rep.Skipped++
				continue
			}
			sign := p.Rule.Sign(a.pole, b.pole)
			if sign == Neutral {
				rep.Skipped++
				continue
			}

			force, r := p.PairForce(a.Sample, b.Sample, sign)
			snapped := false
			if p.UseSnap && sign == Attract && r < snapDistance(p, a.pole, b.pole) {
				snapped = true
				if p.SnapMode == SnapJoint {
					s.pending[key] = struct{}{}
					host, other := a, b
					if b.mass < a.mass {
						host, other = b, a
					}
					rep.Joined = append(rep.Joined, JointEvent{
						Host:        host.body,
						Other:       other.body,
						BreakForce:  minNonZero(a.pole.BreakForce, b.pole.BreakForce, p.BreakForce),
						BreakTorque: minNonZero(a.pole.BreakTorque, b.pole.BreakTorque, p.BreakTorque),
					})
					rep.Pairs = append(rep.Pairs, PairResult{A: a.id, B: b.id, Distance: r, Sign: sign, Snapped: true})
					continue
				}
				force = p.SnapPull(a.Position, b.Position)
			}

			rep.Pairs = append(rep.Pairs, PairResult{A: a.id, B: b.id, Distance: r, Sign: sign, Force: force, Snapped: snapped})
			if m := force.Len(); m > rep.PeakForce {
				rep.PeakForce = m
			}

			if p.Apply == ApplyAtCenter {
				s.accumulate(a.body, force)
				s.accumulate(b.body, force.Mul(-1))
				continue
			}
			rep.Applied = append(rep.Applied,
				Application{Body: a.body, Force: force, Point: a.Position, AtPoint: true, Mode: p.ForceMode},
				Application{Body: b.body, Force: force.Mul(-1), Point: b.Position, AtPoint: true, Mode: p.ForceMode},
			)
		}
	}

	for i, id := range s.sumIDs {
		rep.Applied = append(rep.Applied, Application{Body: id, Force: s.sumF[i], Mode: p.ForceMode})
	}
}

func (s *Solver) accumulate(id BodyID, f mgl64.Vec3) {
	if i, ok := s.sumIdx[id]; ok {
		s.sumF[i] = s.sumF[i].Add(f)
		return
	}
	s.sumIdx[id] = len(s.sumIDs)
	s.sumIDs = append(s.sumIDs, id)
	s.sumF = append(s.sumF, f)
}

func snapDistance(p *Params, a, b *Pole) float64 {
	return minNonZero(a.SnapDistance, b.SnapDistance, p.SnapDistance)
}

// minNonZero returns the smaller of the non-zero overrides, or fallback when
// neither is set.
func minNonZero(a, b, fallback float64) float64 {
	switch {
	case a > 0 && b > 0:
		return math.Min(a, b)
	case a > 0:
		return a
	case b > 0:
		return b
	}
	return fallback
}
