// Package automation runs scripted batches of experiments from YAML.
package automation

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
	"github.com/san-kum/magsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset ("scene.name") or a config file and
// applies the overrides that are set.
type ScenarioStep struct {
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Controller string             `yaml:"controller"`
	Rule       string             `yaml:"rule"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Seed       *int64             `yaml:"seed"`
	Params     map[string]float64 `yaml:"params"`
	Save       bool               `yaml:"save"`
	SaveAs     string             `yaml:"save_as"`
}

// StepResult is what one scenario step produced.
type StepResult struct {
	Label  string
	Config *config.Config
	Result *dynamo.Result
	RunID  string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Runner executes scenarios. Store may be nil when no step saves.
type Runner struct {
	Registry *experiment.Registry
	Store    *storage.Store
	Logger   *log.Logger
}

func NewRunner(reg *experiment.Registry, store *storage.Store) *Runner {
	return &Runner{Registry: reg, Store: store, Logger: log.New(io.Discard, "", 0)}
}

// Resolve builds the configuration for one step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Preset != "" && s.Config != "":
		return nil, fmt.Errorf("preset and config are mutually exclusive")
	case s.Preset != "":
		scene, name, ok := strings.Cut(s.Preset, ".")
		if !ok {
			return nil, fmt.Errorf("preset %q is not scene.name", s.Preset)
		}
		if cfg = config.GetPreset(scene, name); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	case s.Config != "":
		var err error
		if cfg, err = config.Load(s.Config); err != nil {
			return nil, err
		}
	default:
		cfg = config.DefaultConfig()
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Controller != "" {
		cfg.Controller = s.Controller
	}
	if s.Rule != "" {
		cfg.Rule = s.Rule
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Seed != nil {
		cfg.Seed = *s.Seed
	}
	return cfg, cfg.Validate()
}

func (s ScenarioStep) label() string {
	switch {
	case s.Preset != "":
		return s.Preset
	case s.Config != "":
		return s.Config
	}
	return "default"
}

// RunScenario executes all steps in order and stops at the first failure,
// returning what finished before it.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		r.Logger.Printf("step %d/%d: %s", i+1, len(scenario.Steps), step.label())

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(r.Registry); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		for k, v := range step.Params {
			if err := exp.GetSimulator().Solver().SetParam(k, v); err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		sr := StepResult{Label: step.label(), Config: cfg, Result: result}

		if step.Save {
			if r.Store == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			if sr.RunID, err = r.Store.Save(cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		if step.SaveAs != "" {
			if err := storage.ExportJSON(step.SaveAs, cfg, result); err != nil {
				return results, fmt.Errorf("step %d export: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig runs one configuration over consecutive seeds. Seeds
// change layouts only for scenes that scatter bodies randomly.
type MonteCarloConfig struct {
	Config     *config.Config
	NumTrials  int
	SeedStart  int64
	SpeedLimit float64 // a body faster than this marks the trial unstable
}

// MonteCarloResult holds the outcome of one trial.
type MonteCarloResult struct {
	TrialID  int
	Seed     int64
	Joined   int
	Released int
	MaxSpeed float64
	Stable   bool
}

// RunMonteCarlo executes the trials in parallel.
func (r *Runner) RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	limit := mc.SpeedLimit
	if limit <= 0 {
		limit = 1e3
	}

	ens := dynamo.NewEnsemble(experiment.Factory(mc.Config, r.Registry), mc.NumTrials, mc.SeedStart)
	runs, err := ens.Run(ctx, experiment.SimConfig(mc.Config))
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, 0, len(runs))
	for i, res := range runs {
		out := MonteCarloResult{TrialID: i, Seed: mc.SeedStart + int64(i)}
		if res == nil {
			results = append(results, out)
			continue
		}
		out.Joined, out.Released = res.Joined, res.Released
		out.Stable = len(res.Errors) == 0
		if n := len(res.Frames); n > 0 {
			for _, b := range res.Frames[n-1].Bodies {
				out.MaxSpeed = math.Max(out.MaxSpeed, b.Velocity.Len())
			}
		}
		if out.MaxSpeed > limit || math.IsNaN(out.MaxSpeed) {
			out.Stable = false
		}
		results = append(results, out)
		if (i+1)%10 == 0 {
			r.Logger.Printf("monte carlo: %d/%d trials", i+1, len(runs))
		}
	}
	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
