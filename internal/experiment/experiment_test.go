package experiment

import (
	"context"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/control"
	"github.com/san-kum/magsim/internal/dynamo"
)

func separation(r *dynamo.Result, a, b string, frame int) float64 {
	fa, _ := r.Frames[frame].Body(a)
	fb, _ := r.Frames[frame].Body(b)
	return fa.Position.Sub(fb.Position).Len()
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name string
		get  func() error
		want string
	}{
		{"scene", func() error { _, err := reg.GetScene("moon"); return err }, "unknown scene: moon"},
		{"integrator", func() error { _, err := reg.GetIntegrator("rk9"); return err }, "unknown integrator: rk9"},
		{"controller", func() error { _, err := reg.GetController("pid", config.DefaultConfig()); return err }, "unknown controller: pid"},
		{"metric", func() error { _, err := reg.Metrics([]string{"energy_drift"}); return err }, "unknown metric: energy_drift"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.get()
			if err == nil || err.Error() != tt.want {
				t.Errorf("got %v, want %q", err, tt.want)
			}
		})
	}

	if got := strings.Join(reg.ListIntegrators(), ","); got != "euler,semi_implicit" {
		t.Errorf("ListIntegrators() = %s", got)
	}
	if len(reg.ListScenes()) != 8 {
		t.Errorf("ListScenes() = %v", reg.ListScenes())
	}
}

func TestPresetsRun(t *testing.T) {
	reg := NewRegistry()
	for scene, presets := range config.Presets {
		for name := range presets {
			t.Run(scene+"/"+name, func(t *testing.T) {
				cfg := config.GetPreset(scene, name)
				cfg.Duration = 0.5
				exp := New(cfg)
				if err := exp.Setup(reg); err != nil {
					t.Fatalf("setup: %v", err)
				}
				result, err := exp.Run(context.Background())
				if err != nil {
					t.Fatalf("run: %v", err)
				}
				if len(result.Errors) > 0 {
					t.Errorf("run errors: %v", result.Errors)
				}
				if result.StepsTaken != 25 {
					t.Errorf("steps = %d", result.StepsTaken)
				}
			})
		}
	}
}

func TestPairAttractsRepelSeparates(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry()

	pair := config.GetPreset("pair", "close")
	pair.Duration = 3
	exp := New(pair)
	g.Expect(exp.Setup(reg)).To(Succeed())
	res, err := exp.Run(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(separation(res, "north", "south", len(res.Frames)-1)).To(BeNumerically("<", 0.3))

	repel := config.GetPreset("repel", "push")
	repel.Duration = 1
	exp = New(repel)
	g.Expect(exp.Setup(reg)).To(Succeed())
	res, err = exp.Run(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(separation(res, "left", "right", len(res.Frames)-1)).To(BeNumerically(">", 0.4))
}

func TestRunWithoutSetup(t *testing.T) {
	if _, err := New(config.DefaultConfig()).Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
}

func TestBuildErrors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"invalid dt", func(c *config.Config) { c.Dt = 0 }},
		{"unknown scene", func(c *config.Config) { c.Scene = "moon" }},
		{"unknown integrator", func(c *config.Config) { c.Integrator = "rk4" }},
		{"unknown controller", func(c *config.Config) { c.Controller = "lqr" }},
		{"red gun while locked to blue", func(c *config.Config) {
			c.Controller = "gun"
			c.Gun.Mode = "red"
			c.Gun.BlueOnly = true
		}},
		{"gun without aim", func(c *config.Config) {
			c.Controller = "gun"
			c.Gun.Aim = config.Vec{}
		}},
		{"empty custom scene", func(c *config.Config) { c.Scene = "custom" }},
		{"wall without range", func(c *config.Config) {
			c.Controller = "wall"
			c.Wall.MaxRange = 0
		}},
		{"wall with negative extent", func(c *config.Config) {
			c.Controller = "wall"
			c.Wall.HalfExtents = config.Vec{1, -1, 0.1}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			if _, err := Build(cfg, reg, nil, nil); err == nil {
				t.Error("expected build error")
			}
		})
	}
}

func TestBuildGunController(t *testing.T) {
	g := NewWithT(t)
	cfg := config.GetPreset("gun", "red")
	sim, err := Build(cfg, NewRegistry(), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sim.Controllers()).To(HaveLen(1))

	gun, ok := sim.Controllers()[0].(*control.Gun)
	g.Expect(ok).To(BeTrue())
	g.Expect(gun.Mode()).To(Equal(control.GunRed))
	g.Expect(gun.Windows).To(Equal([]control.Window{{Start: 0.5, End: 4}}))
	g.Expect(gun.FiringAt(0)).To(BeFalse())
}

func TestGunPullsLockedTarget(t *testing.T) {
	g := NewWithT(t)
	cfg := config.GetPreset("gun", "blue")
	cfg.Layout.Count = 1
	cfg.Gun.Fire = nil
	cfg.Duration = 0.5
	sim, err := Build(cfg, NewRegistry(), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())

	res, err := sim.Run(context.Background(), SimConfig(cfg))
	g.Expect(err).NotTo(HaveOccurred())
	track := res.Track("red0")
	g.Expect(track[len(track)-1][2]).To(BeNumerically("<", track[0][2]))
}

func TestSwarmSeeded(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry()
	cfg := config.GetPreset("swarm", "small")

	a, err := Build(cfg, reg, nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	b, err := Build(cfg, reg, nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(a.Frame().Bodies).To(Equal(b.Frame().Bodies))

	cfg.Seed++
	c, err := Build(cfg, reg, nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(c.Frame().Bodies).NotTo(Equal(a.Frame().Bodies))
	g.Expect(c.World().NumBodies()).To(Equal(12))
}

func TestEnsembleFactory(t *testing.T) {
	cfg := config.GetPreset("swarm", "small")
	cfg.Duration = 0.2
	results, err := dynamo.NewEnsemble(Factory(cfg, NewRegistry()), 4, 10).
		Run(context.Background(), SimConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	first := results[0].Frames[0].Bodies[0].Position
	if results[1].Frames[0].Bodies[0].Position == first {
		t.Error("ensemble members should be laid out with different seeds")
	}
}

func TestWallSceneCatchesBlocks(t *testing.T) {
	g := NewWithT(t)
	cfg := config.GetPreset("wall", "catch")
	sim, err := Build(cfg, NewRegistry(), nil, nil)
	g.Expect(err).NotTo(HaveOccurred())

	wall, ok := sim.Controllers()[0].(*control.Wall)
	g.Expect(ok).To(BeTrue())

	res, err := sim.Run(context.Background(), SimConfig(cfg))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Errors).To(BeEmpty())

	last := res.Frames[len(res.Frames)-1]
	g.Expect(last.Bodies).To(HaveLen(4))
	for _, name := range []string{"m0", "m1", "m2"} {
		b, ok := last.Body(name)
		g.Expect(ok).To(BeTrue())
		g.Expect(b.Position.Z()).To(BeNumerically("~", 0.11, 0.05), name)
		id, _ := sim.World().FindBody(name)
		g.Expect(wall.Stuck(id)).To(BeTrue(), name)
	}
	anchor, _ := last.Body("wall")
	g.Expect(anchor.Position.Len()).To(BeZero(), "the anchor is kinematic")
}
