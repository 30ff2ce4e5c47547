package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/analysis"
	"github.com/san-kum/magsim/internal/automation"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
	"github.com/san-kum/magsim/internal/optim"
	"github.com/spf13/cobra"
)

var (
	bodyA, bodyB string
	sweepParam   string
	sweepLo      float64
	sweepHi      float64
	sweepSteps   int
	sweepMetric  string
	tuneGrid     []string
	maximize     bool
	perturbation float64
	trials       int
)

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of the separation between two bodies",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	pairFlags(analyzeCmd)

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "separation against closing speed for two bodies",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	pairFlags(phaseCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "sweep one solver parameter and plot a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "k", "solver parameter")
	sweepCmd.Flags().Float64Var(&sweepLo, "from", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepHi, "to", 10, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "peak_force", "metric to plot")

	tuneCmd := &cobra.Command{
		Use:   "tune [scene]",
		Short: "grid search solver parameters",
		Long:  "grid search solver parameters, e.g. --grid k=1:10:5 --grid damping=0:1:3",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	sceneFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", nil, "name=from:to:steps")
	tuneCmd.Flags().StringVar(&sweepMetric, "metric", "peak_force", "metric to optimise")
	tuneCmd.Flags().BoolVar(&maximize, "max", false, "maximise instead of minimise")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [scene]",
		Short: "estimate the largest Lyapunov exponent for one body",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	sceneFlags(lyapunovCmd)
	lyapunovCmd.Flags().StringVar(&bodyA, "body", "", "body to perturb (default first)")
	lyapunovCmd.Flags().Float64Var(&perturbation, "eps", 1e-6, "initial perturbation")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scene]",
		Short: "run a scene over consecutive seeds in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	sceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")

	return []*cobra.Command{analyzeCmd, phaseCmd, sweepCmd, tuneCmd, lyapunovCmd, monteCarloCmd}
}

func pairFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&bodyA, "a", "", "first body (default first recorded)")
	cmd.Flags().StringVar(&bodyB, "b", "", "second body (default second recorded)")
}

func pickPair(names []string) (string, string, error) {
	a, b := bodyA, bodyB
	if a == "" && len(names) > 0 {
		a = names[0]
	}
	if b == "" && len(names) > 1 {
		b = names[1]
	}
	if a == "" || b == "" || a == b {
		return "", "", fmt.Errorf("need two distinct bodies, run has %v", names)
	}
	return a, b, nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	a, b, err := pickPair(meta.Bodies)
	if err != nil {
		return err
	}
	sep := analysis.Separation(result, a, b)
	if len(sep) < 4 {
		return fmt.Errorf("not enough samples")
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("separation %s-%s, mean %.4f\n\n", a, b, analysis.Mean(sep))

	ps := analysis.PowerSpectrum(sep)
	fmt.Println(asciigraph.Plot(ps[:max(len(ps)/4, 2)],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (separation)"),
	))
	fmt.Println()

	sample := meta.Dt
	if len(result.Frames) > 1 {
		sample = result.Frames[1].T - result.Frames[0].T
	}
	freq := analysis.DominantFrequency(sep, sample)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	a, b, err := pickPair(meta.Bodies)
	if err != nil {
		return err
	}
	portrait := analysis.PhasePortrait(result, a, b)
	fmt.Printf("phase portrait: %s (%s vs %s)\n", meta.ID, a, b)
	fmt.Printf("x: %s, y: %s\n\n", portrait.XLabel, portrait.YLabel)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	build := func() (*dynamo.Simulator, error) { return experiment.Build(cfg, reg, nil, nil) }

	points, err := analysis.Sweep(context.Background(), build, sweepParam, sweepLo, sweepHi, sweepSteps,
		experiment.SimConfig(cfg), func(r *dynamo.Result) float64 { return r.Metrics[sweepMetric] })
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(sweepParam), strings.ToUpper(sweepMetric))
	for _, p := range points {
		fmt.Fprintf(w, "%.4g\t%.6g\n", p.Param, p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(analysis.SweepToASCII(points, 60, 10, fmt.Sprintf("%s over %s", sweepMetric, sweepParam)))
	return nil
}

// parseGrid reads name=from:to:steps.
func parseGrid(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("grid %q: want name=from:to:steps", arg)
	}
	var lo, hi float64
	var n int
	if _, err := fmt.Sscanf(strings.ReplaceAll(rng, ":", " "), "%g %g %d", &lo, &hi, &n); err != nil {
		return "", nil, fmt.Errorf("grid %q: %w", arg, err)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(tuneGrid) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}

	names := make([]string, 0, len(tuneGrid))
	ranges := make([][]float64, 0, len(tuneGrid))
	for _, g := range tuneGrid {
		name, values, err := parseGrid(g)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	gs := optim.NewGridSearch(names, ranges)
	gs.Maximize = maximize
	ctx, cancel := interruptible()
	defer cancel()

	best, value, tried, err := gs.Search(ctx, optim.SolverBuilder(cfg, experiment.NewRegistry()), sweepMetric)
	failed := 0
	for _, t := range tried {
		if t.Err != nil {
			failed++
		}
	}
	fmt.Printf("evaluated %d combinations (%d failed)\n", len(tried), failed)
	if err != nil {
		return err
	}
	fmt.Printf("best %s: %.6g\n", sweepMetric, value)
	for _, n := range names {
		fmt.Printf("  %s = %.4g\n", n, best[n])
	}
	return nil
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	build := func() (*dynamo.Simulator, error) { return experiment.Build(cfg, reg, nil, nil) }

	body := bodyA
	if body == "" {
		sim, err := build()
		if err != nil {
			return err
		}
		ids := sim.World().BodyIDs()
		if len(ids) == 0 {
			return fmt.Errorf("scene has no bodies")
		}
		b, _ := sim.World().Body(ids[0])
		body = b.Name
	}

	lambda, err := analysis.LyapunovExponent(build, body, cfg.Dt, cfg.Duration, perturbation)
	if err != nil {
		return err
	}
	fmt.Printf("largest lyapunov exponent (%s): %.4f /s\n", body, lambda)
	if lambda > 0 {
		fmt.Println("nearby trajectories diverge")
	} else {
		fmt.Println("nearby trajectories converge or stay close")
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()
	runner := automation.NewRunner(experiment.NewRegistry(), nil)
	results, err := runner.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Config:    cfg,
		NumTrials: trials,
		SeedStart: cfg.Seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tJOINED\tRELEASED\tMAX SPEED\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.4g\t%v\n", r.TrialID, r.Seed, r.Joined, r.Released, r.MaxSpeed, r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d  unstable: %d\n", stable, unstable)
	return nil
}
