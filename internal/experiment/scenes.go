package experiment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/magsim/internal/config"
)

func customScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	return cfg.Bodies
}

func spacing(cfg *config.Config) float64 {
	if cfg.Layout.Spacing > 0 {
		return cfg.Layout.Spacing
	}
	return config.DefaultSpacing
}

func count(cfg *config.Config, least int) int {
	return max(cfg.Layout.Count, least)
}

func block(name string, pos config.Vec, poles ...config.PoleConfig) config.BodyConfig {
	return config.BodyConfig{Name: name, Mass: 1, Position: pos, Poles: poles}
}

// pairScene places two unlike poles on the x axis.
func pairScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	d := spacing(cfg) / 2
	return []config.BodyConfig{
		block("north", config.Vec{-d, 0, 0}, config.PoleConfig{Strength: 1, Polarity: 1}),
		block("south", config.Vec{d, 0, 0}, config.PoleConfig{Strength: 1, Polarity: -1}),
	}
}

func repelScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	d := spacing(cfg) / 2
	return []config.BodyConfig{
		block("left", config.Vec{-d, 0, 0}, config.PoleConfig{Strength: 1, Polarity: 1}),
		block("right", config.Vec{d, 0, 0}, config.PoleConfig{Strength: 1, Polarity: 1}),
	}
}

// chainScene lines up bar magnets with a pole at each end.
func chainScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	n := count(cfg, 2)
	step := spacing(cfg)
	half := 0.1
	out := make([]config.BodyConfig, n)
	for i := range out {
		x := (float64(i) - float64(n-1)/2) * step
		out[i] = block(fmt.Sprintf("bar%d", i), config.Vec{x, 0, 0},
			config.PoleConfig{Offset: config.Vec{-half, 0, 0}, Strength: 1, Polarity: -1},
			config.PoleConfig{Offset: config.Vec{half, 0, 0}, Strength: 1, Polarity: 1},
		)
	}
	return out
}

// typedScene rings bodies of alternating type ids.
func typedScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	n := count(cfg, 2)
	radius := spacing(cfg)
	out := make([]config.BodyConfig, n)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(n)
		typ := 1 + i%2
		out[i] = block(fmt.Sprintf("t%d_%d", typ, i), config.Vec{radius * math.Cos(a), 0, radius * math.Sin(a)},
			config.PoleConfig{Strength: 1, Type: typ},
		)
	}
	return out
}

// gunScene puts red (type 1) and blue (type -1) blocks in front of a gun at
// the origin aiming along +z. The first block sits on the aim axis.
func gunScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	n := count(cfg, 1)
	step := spacing(cfg) * 1.5
	out := make([]config.BodyConfig, n)
	for i := range out {
		typ, name := 1, "red"
		if i%2 == 1 {
			typ, name = -1, "blue"
		}
		side := float64((i+1)/2) * step
		if i%2 == 1 {
			side = -side
		}
		out[i] = block(fmt.Sprintf("%s%d", name, i), config.Vec{side, 0, 4},
			config.PoleConfig{Strength: 1, Type: typ},
		)
	}
	return out
}

// wallScene puts the kinematic wall anchor at the wall centre and a row of
// like-polarised blocks 1.5 in front of its +z face.
func wallScene(cfg *config.Config, _ *rand.Rand) []config.BodyConfig {
	wc := cfg.Wall
	anchor := wc.Anchor
	if anchor == "" {
		anchor = config.DefaultWallAnchor
	}
	n := count(cfg, 1)
	step := spacing(cfg)
	out := make([]config.BodyConfig, 0, n+1)
	out = append(out, config.BodyConfig{Name: anchor, Position: wc.Center, Kinematic: true})
	front := wc.Center[2] + wc.HalfExtents[2] + 1.5
	for i := range n {
		x := wc.Center[0] + (float64(i)-float64(n-1)/2)*step
		out = append(out, block(fmt.Sprintf("m%d", i), config.Vec{x, wc.Center[1], front},
			config.PoleConfig{Strength: 1, Polarity: 1},
		))
	}
	return out
}

// swarmScene scatters randomly polarised bodies on the ground plane.
func swarmScene(cfg *config.Config, rng *rand.Rand) []config.BodyConfig {
	n := count(cfg, 2)
	spread := cfg.Layout.Spread
	if spread <= 0 {
		spread = float64(n) * spacing(cfg) / 4
	}
	out := make([]config.BodyConfig, n)
	for i := range out {
		pol := 1.0
		if rng.Intn(2) == 0 {
			pol = -1
		}
		b := block(fmt.Sprintf("m%d", i),
			config.Vec{(rng.Float64()*2 - 1) * spread, 0, (rng.Float64()*2 - 1) * spread},
			config.PoleConfig{Strength: 0.5 + rng.Float64(), Polarity: pol},
		)
		if cfg.Layout.Speed > 0 {
			a := rng.Float64() * 2 * math.Pi
			s := rng.Float64() * cfg.Layout.Speed
			b.Velocity = config.Vec{s * math.Cos(a), 0, s * math.Sin(a)}
		}
		out[i] = b
	}
	return out
}
