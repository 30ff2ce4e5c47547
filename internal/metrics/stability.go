package metrics

import (
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/magnet"
)

// Stability is the fraction of ticks on which every dynamic body moved
// slower than the threshold speed.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(tick *dynamo.Tick) {
	s.samples++
	limit := s.threshold * s.threshold
	violated := false
	tick.World.EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		if !violated && !b.Kinematic && b.Velocity.LenSqr() > limit {
			violated = true
		}
	})
	if violated {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
