package experiment

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/magnet"
	"github.com/san-kum/magsim/internal/physics"
)

type Experiment struct {
	cfg        *config.Config
	simulator  *dynamo.Simulator
	randSource *rand.Rand
	logger     *log.Logger
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:        cfg,
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// SetLogger routes solver, engine and gun tracing to l.
func (e *Experiment) SetLogger(l *log.Logger) { e.logger = l }

// Setup validates the configuration and assembles the world, solver,
// engine, controller and metrics.
func (e *Experiment) Setup(reg *Registry) error {
	sim, err := Build(e.cfg, reg, e.randSource, e.logger)
	if err != nil {
		return err
	}
	e.simulator = sim
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, SimConfig(e.cfg))
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// SimConfig extracts the loop settings.
func SimConfig(cfg *config.Config) dynamo.Config {
	return dynamo.Config{
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		Seed:          cfg.Seed,
		RecordEvery:   cfg.RecordEvery,
		ValidateState: true,
	}
}

// Build assembles a simulator from a configuration. A nil rng is seeded from
// cfg.Seed; a nil logger keeps everything quiet.
func Build(cfg *config.Config, reg *Registry, rng *rand.Rand, logger *log.Logger) (*dynamo.Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	scene := cfg.Scene
	if len(cfg.Bodies) > 0 {
		scene = "custom"
	}
	layout, err := reg.GetScene(scene)
	if err != nil {
		return nil, err
	}
	bodies := layout(cfg, rng)
	if len(bodies) == 0 {
		return nil, fmt.Errorf("%w: scene %s has no bodies", config.ErrInvalid, scene)
	}
	world, err := config.BuildWorld(bodies)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", scene, err)
	}

	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	solver, err := magnet.NewSolver(params)
	if err != nil {
		return nil, err
	}

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	engine := physics.NewEngine(world, integ)
	engine.SetGravity(cfg.Physics.Gravity.Vec3(), cfg.Physics.GravityMag)
	engine.LinearDrag = cfg.Physics.LinearDrag
	engine.AngularDrag = cfg.Physics.AngularDrag

	sim := dynamo.New(world, solver, engine)

	ctrlName := cfg.Controller
	if ctrlName == "" {
		ctrlName = "none"
	}
	ctrl, err := reg.GetController(ctrlName, cfg)
	if err != nil {
		return nil, err
	}
	sim.AddController(ctrl)

	ms, err := reg.Metrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		sim.AddMetric(m)
	}

	if logger != nil {
		solver.SetLogger(logger)
		engine.SetLogger(logger)
		if l, ok := ctrl.(interface{ SetLogger(*log.Logger) }); ok {
			l.SetLogger(logger)
		}
	}
	return sim, nil
}

// Factory adapts a configuration into an ensemble factory. Each member gets
// its own world laid out with its own seed.
func Factory(cfg *config.Config, reg *Registry) dynamo.Factory {
	return func(seed int64) (*dynamo.Simulator, error) {
		c := cfg.Clone()
		c.Seed = seed
		return Build(c, reg, nil, nil)
	}
}
