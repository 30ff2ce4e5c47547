package config

import "sort"

func preset(scene string, tweak func(c *Config)) *Config {
	c := DefaultConfig()
	c.Scene = scene
	if tweak != nil {
		tweak(c)
	}
	return c
}

var Presets = map[string]map[string]*Config{
	"pair": {
		"close": preset("pair", func(c *Config) { c.Layout.Spacing = 0.5; c.Duration = 5 }),
		"far":   preset("pair", func(c *Config) { c.Layout.Spacing = 2.0; c.Duration = 15 }),
		"pull": preset("pair", func(c *Config) {
			c.Layout.Spacing = 0.5
			c.Solver.SnapMode = "pull"
			c.Duration = 5
		}),
	},
	"repel": {
		"push": preset("repel", func(c *Config) { c.Layout.Spacing = 0.4; c.Duration = 5 }),
	},
	"chain": {
		"short": preset("chain", func(c *Config) { c.Layout.Count = 4; c.Layout.Spacing = 0.4 }),
		"long": preset("chain", func(c *Config) {
			c.Layout.Count = 8
			c.Layout.Spacing = 0.4
			c.Duration = 20
		}),
	},
	"typed": {
		"mixed": preset("typed", func(c *Config) {
			c.Rule = "type"
			c.Layout.Count = 4
			c.Layout.Spacing = 0.6
		}),
	},
	"gun": {
		"blue": preset("gun", func(c *Config) {
			c.Controller = "gun"
			c.Rule = "type"
			c.Layout.Count = 3
			c.Gun.Fire = [][2]float64{{0.5, 4}}
		}),
		"red": preset("gun", func(c *Config) {
			c.Controller = "gun"
			c.Rule = "type"
			c.Layout.Count = 3
			c.Gun.Mode = "red"
			c.Gun.BlueOnly = false
			c.Gun.Fire = [][2]float64{{0.5, 4}}
		}),
	},
	"wall": {
		"catch": preset("wall", func(c *Config) {
			c.Controller = "wall"
			c.Layout.Count = 3
			c.Layout.Spacing = 0.8
			c.Wall.MaxPullSpeed = 6
			c.Duration = 5
		}),
		"hang": preset("wall", func(c *Config) {
			c.Controller = "wall"
			c.Layout.Count = 2
			c.Layout.Spacing = 1.2
			c.Wall.MaxPullSpeed = 6
			c.Physics.Gravity = Vec{0, -1, 0}
			c.Physics.GravityMag = 9.81
			c.Duration = 8
		}),
	},
	"swarm": {
		"small": preset("swarm", func(c *Config) {
			c.Layout.Count = 12
			c.Layout.Spread = 3
			c.Layout.Speed = 0.2
			c.Solver.HorizontalOnly = true
			c.Seed = 1
		}),
		"dense": preset("swarm", func(c *Config) {
			c.Layout.Count = 40
			c.Layout.Spread = 4
			c.Layout.Speed = 0.5
			c.Solver.HorizontalOnly = true
			c.Solver.Apply = "center"
			c.Seed = 7
			c.RecordEvery = 5
		}),
	},
}

// GetPreset returns a copy of a named preset, or nil.
func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
