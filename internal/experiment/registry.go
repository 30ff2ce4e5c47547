package experiment

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/control"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/integrators"
	"github.com/san-kum/magsim/internal/metrics"
)

// SceneFunc lays out the bodies of a named scene.
type SceneFunc func(cfg *config.Config, rng *rand.Rand) []config.BodyConfig

type Registry struct {
	scenes      map[string]SceneFunc
	integrators map[string]func() integrators.Integrator
	controllers map[string]func(*config.Config) (dynamo.Controller, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		scenes:      make(map[string]SceneFunc),
		integrators: make(map[string]func() integrators.Integrator),
		controllers: make(map[string]func(*config.Config) (dynamo.Controller, error)),
	}

	r.scenes["custom"] = customScene
	r.scenes["pair"] = pairScene
	r.scenes["repel"] = repelScene
	r.scenes["chain"] = chainScene
	r.scenes["typed"] = typedScene
	r.scenes["gun"] = gunScene
	r.scenes["swarm"] = swarmScene
	r.scenes["wall"] = wallScene

	r.integrators["euler"] = func() integrators.Integrator { return integrators.NewEuler() }
	r.integrators["semi_implicit"] = func() integrators.Integrator { return integrators.NewSemiImplicit() }

	r.controllers["none"] = func(*config.Config) (dynamo.Controller, error) { return control.NewNone(), nil }
	r.controllers["gun"] = newGun
	r.controllers["wall"] = newWall

	return r
}

// RegisterScene adds or replaces a scene layout.
func (r *Registry) RegisterScene(name string, fn SceneFunc) {
	r.scenes[name] = fn
}

func (r *Registry) GetScene(name string) (SceneFunc, error) {
	fn, ok := r.scenes[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene: %s", name)
	}
	return fn, nil
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, cfg *config.Config) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(cfg)
}

func (r *Registry) ListScenes() []string      { return sortedKeys(r.scenes) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

// Metrics builds the named metrics; an empty list selects all of them.
func (r *Registry) Metrics(names []string) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		names = metrics.Names()
	}
	out := make([]dynamo.Metric, 0, len(names))
	for _, name := range names {
		m, ok := metrics.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		out = append(out, m)
	}
	return out, nil
}

func newGun(cfg *config.Config) (dynamo.Controller, error) {
	gc := cfg.Gun
	gun := control.NewGun(gc.Origin.Vec3(), gc.Aim.Vec3())
	mode, err := control.ParseGunMode(gc.Mode)
	if err != nil {
		return nil, err
	}
	if mode != control.GunBlue && gc.BlueOnly {
		return nil, fmt.Errorf("gun mode %s requires blue_only: false", mode)
	}
	gun.BlueOnly = false
	gun.SetMode(mode)
	gun.BlueOnly = gc.BlueOnly

	if gc.PullForce > 0 {
		gun.PullForce = gc.PullForce
	}
	if gc.PushForce > 0 {
		gun.PushForce = gc.PushForce
	}
	if gc.MaxDistance > 0 {
		gun.MaxDistance = gc.MaxDistance
	}
	gun.SameTypePush = gc.SameTypePush
	if len(gc.Fire) == 0 {
		gun.Firing = true
	}
	for _, w := range gc.Fire {
		gun.Windows = append(gun.Windows, control.Window{Start: w[0], End: w[1]})
	}
	if gun.Aim == (mgl64.Vec3{}) {
		return nil, fmt.Errorf("gun aim must be non-zero")
	}
	return gun, nil
}

func newWall(cfg *config.Config) (dynamo.Controller, error) {
	wc := cfg.Wall
	for i, h := range wc.HalfExtents {
		if h < 0 {
			return nil, fmt.Errorf("wall half extent %d must not be negative, got %g", i, h)
		}
	}
	switch {
	case wc.MaxRange <= 0:
		return nil, fmt.Errorf("wall max_range must be positive, got %g", wc.MaxRange)
	case wc.PullStrength <= 0:
		return nil, fmt.Errorf("wall pull_strength must be positive, got %g", wc.PullStrength)
	case wc.MaxPullSpeed <= 0:
		return nil, fmt.Errorf("wall max_pull_speed must be positive, got %g", wc.MaxPullSpeed)
	case wc.Damping < 0 || wc.SnapDistance < 0 || wc.SurfaceOffset < 0:
		return nil, fmt.Errorf("wall damping, snap_distance and surface_offset must not be negative")
	case wc.BreakForce < 0 || wc.BreakTorque < 0:
		return nil, fmt.Errorf("wall break thresholds must not be negative")
	}

	anchor := wc.Anchor
	if anchor == "" {
		anchor = config.DefaultWallAnchor
	}
	wall := control.NewWall(wc.Center.Vec3(), wc.HalfExtents.Vec3(), anchor)
	if wc.Mask != nil {
		wall.Mask = *wc.Mask
	}
	wall.MaxRange = wc.MaxRange
	wall.PullStrength = wc.PullStrength
	wall.Damping = wc.Damping
	wall.MaxPullSpeed = wc.MaxPullSpeed
	wall.UseSnap = wc.UseSnap
	wall.SnapDistance = wc.SnapDistance
	wall.SurfaceOffset = wc.SurfaceOffset
	wall.SnapJoint = wc.SnapJoint
	wall.BreakForce = wc.BreakForce
	wall.BreakTorque = wc.BreakTorque
	wall.Align = wc.Align
	return wall, nil
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
