package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/magsim/internal/automation"
	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
	"github.com/san-kum/magsim/internal/export"
	"github.com/san-kum/magsim/internal/magnet"
	"github.com/san-kum/magsim/internal/storage"
	"github.com/san-kum/magsim/internal/stream"
	"github.com/san-kum/magsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	controller string
	rule       string
	count      int
	spacing    float64
	noSave     bool
	plane      string
	outFile    string
	addr       string
	interval   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "magsim",
		Short:        "pairwise magnet force playground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".magsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log joint and gun events to stderr")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	sceneFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "print metrics without storing the run")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene in the terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	sceneFlags(liveCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [scene]",
		Short: "check a configuration and print the world it builds",
		Args:  cobra.MaximumNArgs(1),
		RunE:  validateConfig,
	}
	sceneFlags(validateCmd)

	forcesCmd := &cobra.Command{
		Use:   "forces [scene]",
		Short: "print the pole pair forces of the initial layout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printForces,
	}
	sceneFlags(forcesCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot energy, joints and body speeds of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write run frames as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write run data as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw body tracks as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&plane, "plane", "xz", "projection plane (xz or xy)")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list scenes, integrators and controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			fmt.Printf("scenes:      %s\n", strings.Join(reg.ListScenes(), ", "))
			fmt.Printf("integrators: %s\n", strings.Join(reg.ListIntegrators(), ", "))
			fmt.Printf("controllers: %s\n", strings.Join(reg.ListControllers(), ", "))
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "measure step throughput over a few timesteps",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	sceneFlags(benchCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [scene] [integrator...]",
		Short: "compare integrators on the same scene",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	sceneFlags(compareCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	serveCmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "stream a scene to websocket clients",
		Args:  cobra.MaximumNArgs(1),
		RunE:  serveScene,
	}
	sceneFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&interval, "interval", stream.DefaultOptions().Interval, "wall time between broadcasts")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "preset picker with live view",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, validateCmd, forcesCmd, listCmd, plotCmd, exportCmd,
		exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, scenesCmd, benchCmd, compareCmd,
		scenarioCmd, serveCmd, tuiCmd)
	rootCmd.AddCommand(analysisCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sceneFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (yaml)")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "preset name for the scene")
	cmd.Flags().Float64Var(&dt, "dt", d.Dt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", d.Duration, "duration in seconds")
	cmd.Flags().Int64Var(&seed, "seed", d.Seed, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", d.Integrator, "integrator")
	cmd.Flags().StringVar(&controller, "controller", d.Controller, "controller")
	cmd.Flags().StringVar(&rule, "rule", d.Rule, "interaction rule (polarity or type)")
	cmd.Flags().IntVar(&count, "count", 0, "number of bodies for scenes that lay out several")
	cmd.Flags().Float64Var(&spacing, "spacing", 0, "distance between bodies")
}

// resolveConfig picks a config file, a preset or the defaults, then applies
// the flags that were set explicitly.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	scene := ""
	if len(args) > 0 {
		scene = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if scene != "" {
			cfg.Scene = scene
		}
	case preset != "":
		if scene == "" {
			if s, p, ok := strings.Cut(preset, "."); ok {
				scene, preset = s, p
			}
		}
		cfg = config.GetPreset(scene, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scene))
		}
	default:
		cfg = config.DefaultConfig()
		if scene != "" {
			cfg.Scene = scene
		}
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("controller") {
		cfg.Controller = controller
	}
	if f.Changed("rule") {
		cfg.Rule = rule
	}
	if f.Changed("count") {
		cfg.Layout.Count = count
	}
	if f.Changed("spacing") {
		cfg.Layout.Spacing = spacing
	}
	return cfg, cfg.Validate()
}

func newLogger() *log.Logger {
	if !verbose {
		return nil
	}
	return log.New(os.Stderr, "magsim: ", log.Ltime|log.Lmicroseconds)
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	exp.SetLogger(newLogger())
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("running %s simulation...\n", cfg.Scene)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("steps: %d  joined: %d  released: %d\n", result.StepsTaken, result.Joined, result.Released)
	printMetrics(result.Metrics)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	build := func() (*dynamo.Simulator, error) {
		return experiment.Build(cfg, reg, nil, nil)
	}
	name := cfg.Scene
	if preset != "" {
		name += "." + preset
	}
	return viz.Run(name, build, cfg.Dt)
}

func serveScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger()
	sim, err := experiment.Build(cfg, experiment.NewRegistry(), nil, logger)
	if err != nil {
		return err
	}

	opts := stream.DefaultOptions()
	opts.Interval = interval
	opts.Logger = logger
	name := cfg.Scene
	if preset != "" {
		name += "." + preset
	}
	srv := stream.New(name, sim, cfg.Dt, opts)

	ctx, stop := interruptible()
	defer stop()
	fmt.Printf("streaming %s on ws://%s/ws\n", name, addr)
	return srv.ListenAndServe(ctx, addr)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sim, err := experiment.Build(cfg, experiment.NewRegistry(), nil, nil)
	if err != nil {
		return err
	}

	params := sim.Solver().Params()
	fmt.Printf("scene %s ok: %d bodies, %d poles\n", cfg.Scene, sim.World().NumBodies(), sim.World().NumPoles())
	fmt.Printf("rule %s, snap %v (%s), apply %s, %s mode\n",
		cfg.Rule, params.UseSnap, params.SnapMode, params.Apply, params.ForceMode)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODY\tMASS\tPOSITION\tPOLES")
	sim.World().EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		fmt.Fprintf(w, "%s\t%.3g\t%s\t%d\n", b.Name, b.Mass, vec(b.Position), len(b.Poles()))
	})
	return w.Flush()
}

func printForces(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	sim, err := experiment.Build(cfg, experiment.NewRegistry(), nil, nil)
	if err != nil {
		return err
	}
	w := sim.World()
	rep := sim.Solver().Compute(w)

	bodyName := func(id magnet.PoleID) string {
		p, ok := w.Pole(id)
		if !ok {
			return id.String()
		}
		if b, ok := w.Body(p.Body); ok {
			return b.Name
		}
		return id.String()
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "A\tB\tDIST\tSIGN\tFORCE ON A\t|F|\tSNAP")
	for _, p := range rep.Pairs {
		sign := "attract"
		if p.Sign == magnet.Repel {
			sign = "repel"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%s\t%s\t%.4g\t%v\n",
			bodyName(p.A), bodyName(p.B), p.Distance, sign, vec(p.Force), p.Force.Len(), p.Snapped)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\npairs: %d  skipped: %d  peak: %.4g  joints requested: %d\n",
		len(rep.Pairs), rep.Skipped, rep.PeakForce, len(rep.Joined))
	return nil
}

func vec(v [3]float64) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tINTEG\tRULE\tBODIES\tJOINED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Rule,
			len(run.Bodies),
			run.Joined,
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(frames) == 0 {
		return nil, nil, fmt.Errorf("run %s has no frames", runID)
	}
	return meta, meta.Result(frames), nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(result.Frames))

	energy := make([]float64, len(result.Frames))
	joints := make([]float64, len(result.Frames))
	for i, f := range result.Frames {
		energy[i] = f.KineticEnergy
		joints[i] = float64(f.Joints)
	}
	plot(energy, "kinetic energy")
	plot(joints, "joints")

	const maxPlots = 4
	for i, name := range meta.Bodies {
		if i == maxPlots {
			fmt.Printf("(%d more bodies not shown)\n", len(meta.Bodies)-maxPlots)
			break
		}
		speed := make([]float64, 0, len(result.Frames))
		for _, f := range result.Frames {
			if b, ok := f.Body(name); ok {
				speed = append(speed, b.Velocity.Len())
			}
		}
		plot(speed, name+" speed")
	}
	return nil
}

func plot(data []float64, caption string) {
	if len(data) == 0 {
		return
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	return storage.WriteMetadata(os.Stdout, meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	frames, err := storage.New(dataDir).LoadFrames(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.WriteFrames(os.Stdout, frames)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONStdout(meta.Config(), result)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	p, err := export.ParsePlane(plane)
	if err != nil {
		return err
	}
	svg := export.TracksToSVG(result, p, 800, 800)
	if svg == "" {
		return fmt.Errorf("run %s needs at least two frames", args[0])
	}

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = io.WriteString(out, svg)
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := make([]string, 0, len(config.Presets))
	if len(args) > 0 {
		scenes = append(scenes, args[0])
	} else {
		for s := range config.Presets {
			scenes = append(scenes, s)
		}
		sort.Strings(scenes)
	}
	for _, s := range scenes {
		presets := config.ListPresets(s)
		if len(presets) == 0 {
			fmt.Printf("no presets for scene: %s\n", s)
			continue
		}
		fmt.Printf("%s: %s\n", s, strings.Join(presets, ", "))
	}
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	fmt.Printf("benchmarking %s\n\n", base.Scene)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC\tPEAK F")

	for _, step := range []float64{0.005, 0.01, 0.02} {
		cfg := base.Clone()
		cfg.Dt = step

		sim, err := experiment.Build(cfg, reg, nil, nil)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := sim.Run(context.Background(), experiment.SimConfig(cfg))
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.4fs\t%d\t%v\t%.0f\t%.4g\n",
			step, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds(), result.Metrics["peak_force"])
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	fmt.Printf("comparing integrators for %s (dt=%.4f, duration=%.1fs)\n\n", base.Scene, base.Dt, base.Duration)
	fmt.Printf("%-14s  %-12s  %-12s  %-8s  %-10s\n", "integrator", "final_ke", "peak_force", "joined", "time_ms")
	fmt.Println(strings.Repeat("-", 64))

	for _, name := range args[1:] {
		cfg := base.Clone()
		cfg.Integrator = name
		sim, err := experiment.Build(cfg, reg, nil, nil)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := sim.Run(context.Background(), experiment.SimConfig(cfg))
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}

		fmt.Printf("%-14s  %12.6f  %12.4g  %8d  %10.2f\n",
			name, sim.Engine().KineticEnergy(), result.Metrics["peak_force"], result.Joined,
			float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	runner := automation.NewRunner(experiment.NewRegistry(), st)
	runner.Logger = log.New(os.Stdout, "", 0)

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("scenario %s: %s\n", sc.Name, sc.Description)
	results, err := runner.RunScenario(ctx, sc)
	for _, r := range results {
		line := fmt.Sprintf("  %-14s steps=%d joined=%d peak=%.4g", r.Label, r.Result.StepsTaken, r.Result.Joined, r.Result.Metrics["peak_force"])
		if r.RunID != "" {
			line += " run=" + r.RunID
		}
		fmt.Println(line)
	}
	return err
}
