package metrics

import (
	"github.com/san-kum/magsim/internal/dynamo"
)

// KineticEnergy averages the world's kinetic energy over all ticks.
type KineticEnergy struct {
	name        string
	samples     int
	totalEnergy float64
	last        float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{
		name: "kinetic_energy",
	}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(tick *dynamo.Tick) {
	e.last = tick.Engine.KineticEnergy()
	e.totalEnergy += e.last
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

// Last returns the energy seen on the most recent tick.
func (e *KineticEnergy) Last() float64 { return e.last }

func (e *KineticEnergy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
	e.last = 0
}
