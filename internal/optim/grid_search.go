// Package optim searches solver parameters for the best run metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/experiment"
)

// BuildFunc prepares an experiment for one grid point.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// Maximize flips the objective; by default the lowest metric wins.
	Maximize bool
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// Search runs every combination and returns the best parameters, the best
// metric value and every trial in visiting order. Failed trials are kept with
// their error; Search only fails when none succeed or ctx is cancelled.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, []Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	if g.Maximize {
		best = math.Inf(-1)
	}
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(params map[string]float64) {
		val, err := evaluate(ctx, build, params, metricName)
		trials = append(trials, Trial{Params: params, Value: val, Err: err})
		if err != nil {
			return
		}
		if (g.Maximize && val > best) || (!g.Maximize && val < best) {
			best = val
			bestParams = params
		}
	})
	if err != nil {
		return bestParams, best, trials, err
	}
	if bestParams == nil {
		errs := make([]error, 0, len(trials))
		for _, t := range trials {
			errs = append(errs, t.Err)
		}
		return nil, best, trials, fmt.Errorf("optim: no successful trials: %w", errors.Join(errs...))
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, build BuildFunc, params map[string]float64, metricName string) (float64, error) {
	exp, err := build(params)
	if err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	if len(result.Errors) > 0 {
		return 0, result.Errors[0]
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("optim: run did not record metric %s", metricName)
	}
	return val, nil
}

// SolverBuilder sets up cfg and then overrides solver parameters by the
// names Params.SetParam accepts.
func SolverBuilder(cfg *config.Config, reg *experiment.Registry) BuildFunc {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		exp := experiment.New(cfg.Clone())
		if err := exp.Setup(reg); err != nil {
			return nil, err
		}
		solver := exp.GetSimulator().Solver()
		for k, v := range params {
			if err := solver.SetParam(k, v); err != nil {
				return nil, err
			}
		}
		return exp, nil
	}
}
