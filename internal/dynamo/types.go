package dynamo

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
	"github.com/san-kum/magsim/internal/physics"
)

// Controller acts on the world before the solver runs each tick.
type Controller interface {
	Apply(w *magnet.World, host magnet.Host, t float64)
}

// Tick is what metrics and observers see after each step.
type Tick struct {
	Step   int
	T      float64
	World  *magnet.World
	Engine *physics.Engine
	Report *magnet.Report
}

type Metric interface {
	Name() string
	Observe(tick *Tick)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(tick *Tick)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	RecordEvery   int // record a frame every n steps; <= 1 records all
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.02,
		Duration:      10.0,
		RecordEvery:   1,
		ValidateState: true,
	}
}

// BodyState is one body in a recorded frame.
type BodyState struct {
	Name            string
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

type Frame struct {
	T             float64
	Bodies        []BodyState
	Joints        int
	PeakForce     float64
	KineticEnergy float64
}

// Body returns the state of the named body in the frame.
func (f *Frame) Body(name string) (BodyState, bool) {
	for _, b := range f.Bodies {
		if b.Name == name {
			return b, true
		}
	}
	return BodyState{}, false
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	Joined     int
	Released   int
	Errors     []error
}

// Track returns the recorded positions of one body.
func (r *Result) Track(name string) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, len(r.Frames))
	for i := range r.Frames {
		if b, ok := r.Frames[i].Body(name); ok {
			out = append(out, b.Position)
		}
	}
	return out
}

// Times returns the recorded frame times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.T
	}
	return out
}
