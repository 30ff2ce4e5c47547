package dynamo

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/magsim/internal/magnet"
	"github.com/san-kum/magsim/internal/physics"
)

type Simulator struct {
	world       *magnet.World
	solver      *magnet.Solver
	engine      *physics.Engine
	controllers []Controller
	metrics     []Metric
	observers   []Observer

	step int
	t    float64
	tick Tick
}

func New(w *magnet.World, solver *magnet.Solver, engine *physics.Engine) *Simulator {
	return &Simulator{
		world:  w,
		solver: solver,
		engine: engine,
	}
}

func (s *Simulator) AddController(c Controller) { s.controllers = append(s.controllers, c) }
func (s *Simulator) AddMetric(m Metric)         { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

func (s *Simulator) World() *magnet.World      { return s.world }
func (s *Simulator) Solver() *magnet.Solver    { return s.solver }
func (s *Simulator) Engine() *physics.Engine   { return s.engine }
func (s *Simulator) Controllers() []Controller { return s.controllers }

// Time returns the simulated time reached so far.
func (s *Simulator) Time() float64 { return s.t }

// Step advances the world by one tick and returns what metrics observed.
// The returned tick is reused by the next call.
func (s *Simulator) Step(dt float64) *Tick {
	for _, c := range s.controllers {
		c.Apply(s.world, s.engine, s.t)
	}
	rep := s.solver.Step(s.world, s.engine)
	s.engine.Step(dt)

	s.step++
	s.t += dt
	s.tick = Tick{Step: s.step, T: s.t, World: s.world, Engine: s.engine, Report: rep}

	for _, m := range s.metrics {
		m.Observe(&s.tick)
	}
	for _, obs := range s.observers {
		obs.OnStep(&s.tick)
	}
	return &s.tick
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	every := max(cfg.RecordEvery, 1)
	result := &Result{
		Frames:  make([]Frame, 0, steps/every+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.step, s.t = 0, 0
	result.Frames = append(result.Frames, s.Frame())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		tick := s.Step(cfg.Dt)
		result.StepsTaken++
		result.Joined += len(tick.Report.Joined)
		result.Released += len(tick.Report.Released)

		if cfg.ValidateState {
			if err := s.checkState(); err != nil {
				result.Errors = append(result.Errors, err)
				break
			}
		}

		if result.StepsTaken%every == 0 {
			result.Frames = append(result.Frames, s.Frame())
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback streams a frame after every tick until the callback
// returns false or the duration is reached.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	s.step, s.t = 0, 0
	if !callback(s.Frame()) {
		return nil
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		s.Step(cfg.Dt)
		if cfg.ValidateState {
			if err := s.checkState(); err != nil {
				return err
			}
		}
		if !callback(s.Frame()) {
			return nil
		}
	}

	return nil
}

// Frame captures the current world state.
func (s *Simulator) Frame() Frame {
	f := Frame{
		T:             s.t,
		Bodies:        make([]BodyState, 0, s.world.NumBodies()),
		Joints:        s.solver.NumJoints(),
		KineticEnergy: s.engine.KineticEnergy(),
	}
	if s.tick.Report != nil && s.step > 0 {
		f.PeakForce = s.tick.Report.PeakForce
	}
	s.world.EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		f.Bodies = append(f.Bodies, BodyState{
			Name:            b.Name,
			Position:        b.Position,
			Velocity:        b.Velocity,
			AngularVelocity: b.AngularVelocity,
		})
	})
	return f
}

func (s *Simulator) checkState() error {
	var bad string
	s.world.EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		if bad == "" && !b.Valid() {
			bad = b.Name
		}
	})
	if bad == "" {
		return nil
	}
	return &SimulationError{Step: s.step, Time: s.t, Body: bad, Wrapped: ErrInvalidState}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.world == nil || s.solver == nil || s.engine == nil {
		return ErrIncomplete
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrParameterBounds, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrParameterBounds, cfg.Duration)
	}
	if cfg.RecordEvery < 0 {
		return fmt.Errorf("%w: record interval must not be negative, got %d", ErrParameterBounds, cfg.RecordEvery)
	}
	return nil
}
