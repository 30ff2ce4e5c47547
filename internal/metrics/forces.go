package metrics

import (
	"math"

	"github.com/san-kum/magsim/internal/dynamo"
)

// PeakForce is the largest pair force magnitude seen in a run.
type PeakForce struct {
	name string
	peak float64
}

func NewPeakForce() *PeakForce {
	return &PeakForce{
		name: "peak_force",
	}
}

func (p *PeakForce) Name() string {
	return p.name
}

func (p *PeakForce) Observe(tick *dynamo.Tick) {
	if tick.Report != nil {
		p.peak = math.Max(p.peak, tick.Report.PeakForce)
	}
}

func (p *PeakForce) Value() float64 { return p.peak }

func (p *PeakForce) Reset() { p.peak = 0 }

// Joints is the largest number of body pairs held together at once.
type Joints struct {
	name string
	max  int
}

func NewJoints() *Joints {
	return &Joints{
		name: "joints",
	}
}

func (j *Joints) Name() string {
	return j.name
}

func (j *Joints) Observe(tick *dynamo.Tick) {
	j.max = max(j.max, tick.Engine.NumJoints())
}

func (j *Joints) Value() float64 { return float64(j.max) }

func (j *Joints) Reset() { j.max = 0 }

// ByName builds a metric from its registered name.
func ByName(name string) (dynamo.Metric, bool) {
	switch name {
	case "kinetic_energy":
		return NewKineticEnergy(), true
	case "stability":
		return NewStability(0.05), true
	case "peak_force":
		return NewPeakForce(), true
	case "joints":
		return NewJoints(), true
	}
	return nil, false
}

// Names lists the metrics ByName understands.
func Names() []string {
	return []string{"kinetic_energy", "stability", "peak_force", "joints"}
}
