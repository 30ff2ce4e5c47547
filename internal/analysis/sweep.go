package analysis

import (
	"context"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/dynamo"
)

// SweepPoint is one parameter value and the outcome measured for it.
type SweepPoint struct {
	Param float64
	Value float64
}

// Sweep builds a fresh simulator for each of steps values of a solver
// parameter between lo and hi, runs it and records measure(result).
func Sweep(
	ctx context.Context,
	build func() (*dynamo.Simulator, error),
	param string,
	lo, hi float64,
	steps int,
	cfg dynamo.Config,
	measure func(*dynamo.Result) float64,
) ([]SweepPoint, error) {
	if steps < 2 {
		steps = 2
	}
	stride := (hi - lo) / float64(steps-1)
	out := make([]SweepPoint, 0, steps)

	for i := 0; i < steps; i++ {
		value := lo + float64(i)*stride
		sim, err := build()
		if err != nil {
			return nil, err
		}
		if err := sim.Solver().SetParam(param, value); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, value, err)
		}
		res, err := sim.Run(ctx, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, SweepPoint{Param: value, Value: measure(res)})
	}
	return out, nil
}

// SweepToASCII plots the measured values in parameter order.
func SweepToASCII(points []SweepPoint, width, height int, caption string) string {
	if len(points) == 0 {
		return ""
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return asciigraph.Plot(values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Caption(caption),
	)
}
