package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/padbot/internal/automation"
	"github.com/san-kum/padbot/internal/config"
	"github.com/san-kum/padbot/internal/experiment"
	"github.com/san-kum/padbot/internal/export"
	"github.com/san-kum/padbot/internal/log"
	"github.com/san-kum/padbot/internal/motion"
	"github.com/san-kum/padbot/internal/optim"
	"github.com/san-kum/padbot/internal/sim"
	"github.com/san-kum/padbot/internal/storage"
	"github.com/san-kum/padbot/internal/tui"
)

var (
	dataDir  string
	logLevel string
	envCfg   config.Env

	configFile string
	preset     string
	script     string
	integrator string
	dt         float64
	duration   float64
	sets       []string

	live      bool
	frameRate int
	noSave    bool

	outPath    string
	svgSize    int
	trials     int
	spread     float64
	jitter     float64
	seed       int64
	writePath  string
	tuneParams []string
	tuneMetric string
	maximize   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "padbot",
		Short:         "closed-loop motion control for a two-wheeled Romi",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := config.LoadEnv()
			if err != nil {
				return err
			}
			envCfg = e
			if !cmd.Flags().Changed("data") {
				dataDir = e.DataDir
			}
			if !cmd.Flags().Changed("log-level") {
				logLevel = e.LogLevel
			}
			log.Init(logLevel, e.LogFormat)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scripted scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "draw the robot while the run executes")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "drive the robot from the keyboard",
		Args:  cobra.NoArgs,
		RunE:  driveTeleop,
	}
	addConfigFlags(driveCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search motion parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneScenario,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=lo:hi:n or name=a,b,c (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "settle_ticks", "metric to optimize")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "prefer larger metric values")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and trace as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trace to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).CopyTrace(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the floor path of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 600, "image width and height in pixels")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run the steps of a YAML batch file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	addConfigFlags(batchCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scenario]",
		Short: "check a scenario against perturbed drivetrains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&spread, "spread", 0.1, "relative +/- spread on robot parameters")
	monteCarloCmd.Flags().Float64Var(&jitter, "heading-jitter", 0, "+/- start heading jitter, deg")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		RunE:  listScenarios,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list tunable parameters and their values",
		RunE:  listParams,
	}
	addConfigFlags(paramsCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
	addConfigFlags(configCmd)
	configCmd.Flags().StringVarP(&writePath, "write", "w", "", "write to file instead of stdout")

	rootCmd.AddCommand(runCmd, driveCmd, tuneCmd, batchCmd, monteCarloCmd, listCmd, plotCmd,
		exportCmd, exportCSVCmd, exportSVGCmd, scenariosCmd, presetsCmd, paramsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func addConfigFlags(c *cobra.Command) {
	c.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	c.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	c.Flags().StringVar(&script, "script", "", "request script, e.g. F,L,F@100,X@130")
	c.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	c.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	c.Flags().Float64Var(&duration, "time", 0, "duration (0 uses the scenario's)")
	c.Flags().StringArrayVar(&sets, "set", nil, "name=value parameter override (repeatable)")
}

// loadConfig resolves defaults, preset, config file, environment and flags
// in that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv(envCfg)

	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}
	if flags.Changed("script") {
		cfg.Script = script
		if len(args) == 0 {
			cfg.Scenario = ""
		}
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	return cfg, nil
}

func parseSets(raw []string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for _, s := range raw {
		name, val, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("bad --set %q: want name=value", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("bad --set %q: %w", s, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

// newExperiment builds an experiment and applies the --set overrides.
func newExperiment(cfg *config.Config, opts ...motion.Option) (*experiment.Experiment, error) {
	exp, err := experiment.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	overrides, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	for name, v := range overrides {
		if err := exp.SetParam(name, v); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return exp, nil
}

// pacer holds each sample back until wall time catches up with sim time.
type pacer struct{ start time.Time }

func (p *pacer) OnStep(s sim.Sample) {
	due := p.start.Add(time.Duration(s.Time * float64(time.Second)))
	if d := time.Until(due); d > 0 {
		time.Sleep(d)
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	events := motion.NewLogObserver(log.With("scenario", cfg.Scenario))
	exp, err := newExperiment(cfg, motion.WithObserver(events))
	if err != nil {
		return err
	}
	sc := exp.Scenario()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var observers []sim.Observer
	if live {
		r := tui.NewLiveRenderer(os.Stdout, sc.Name, frameRate)
		r.Start()
		defer r.Stop()
		observers = append(observers, &pacer{start: time.Now()}, r)
	} else {
		fmt.Printf("running %s (%s)...\n", sc.Name, sc.Script)
	}

	start := time.Now()
	result, err := exp.Run(ctx, observers...)
	if err != nil {
		if result == nil {
			return err
		}
		log.Warn("run stopped early", "err", err, "ticks", result.Ticks)
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("ticks: %d\n", result.Ticks)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunInfo{
			Scenario:   sc.Name,
			Script:     sc.Script,
			Integrator: cfg.Integrator,
			Dt:         exp.Dt(),
			Duration:   exp.Duration(),
			Params:     exp.Params(),
		}, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func driveTeleop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// the teleop view owns the terminal; events show in its own log
	exp, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	return tui.RunTeleop(exp)
}

func tuneScenario(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, p := range tuneParams {
		name, rng, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("bad --param %q: want name=range", p)
		}
		r, err := optim.ParseRange(rng)
		if err != nil {
			return fmt.Errorf("bad --param %q: %w", p, err)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, r)
	}

	gs := optim.NewGridSearch(names, ranges)
	if maximize {
		gs.Maximize()
	}

	build := func(params map[string]float64) (*experiment.Experiment, error) {
		exp, err := newExperiment(cfg.Clone())
		if err != nil {
			return nil, err
		}
		for name, v := range params {
			if err := exp.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		return exp, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("searching %d points for %s...\n\n", gs.Size(), tuneMetric)
	best, val, trials, err := gs.Search(ctx, build, tuneMetric)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(tuneMetric))
	for _, tr := range trials {
		for _, n := range names {
			fmt.Fprintf(w, "%.4g\t", tr.Params[n])
		}
		if tr.Err != nil {
			fmt.Fprintf(w, "error: %v\n", tr.Err)
			continue
		}
		fmt.Fprintf(w, "%.6f\n", tr.Value)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nbest %s: %.6f\n", tuneMetric, val)
	for _, n := range names {
		fmt.Printf("  %s = %.4g\n", n, best[n])
	}
	return nil
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tINTEG\tSCRIPT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Script,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	trace, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(trace.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s (%s)\n", meta.Scenario, meta.Script)
	fmt.Printf("samples: %d\n\n", len(trace.States))

	fmt.Println(asciigraph.PlotMany([][]float64{trace.Column(0), trace.Column(1)},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption("wheel distance, in (left, right)"),
	))
	fmt.Println()

	fmt.Println(asciigraph.Plot(trace.Column(2),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("heading, deg"),
	))
	fmt.Println()

	if len(trace.Wheels) > 1 {
		left := make([]float64, len(trace.Wheels))
		right := make([]float64, len(trace.Wheels))
		for i, w := range trace.Wheels {
			left[i], right[i] = w.Left, w.Right
		}
		fmt.Println(asciigraph.PlotMany([][]float64{left, right},
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.LowerBound(-1),
			asciigraph.UpperBound(1),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("wheel power (left, right)"),
		))
		fmt.Println()
	}

	if len(meta.Events) > 0 {
		fmt.Println("events:")
		for _, e := range meta.Events {
			fmt.Printf("  %5d %-13s %s %s %s\n", e.Tick, e.Type, e.Command, e.Request, e.Reason)
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	data, err := storage.New(dataDir).Export(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSONFile(outPath, data)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return export.RunSVG(out, storage.New(dataDir), args[0], svgSize, svgSize)
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("batch %s: %d steps\n\n", b.Name, len(b.Steps))
	results, err := automation.RunBatch(ctx, b, base, st)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tTICKS\tCOMPLETED\tDROPPED\tSETTLE\tRUN")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.0f\t%.0f\t%.0f\t%s\n",
			r.Step, r.Scenario, r.Ticks,
			r.Metrics["completed"], r.Metrics["dropped"], r.Metrics["settle_ticks"], r.RunID)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d trials of %s...\n", trials, base.Scenario)
	results, err := automation.RunMonteCarlo(ctx, base, automation.MonteCarloConfig{
		Trials:        trials,
		Seed:          seed,
		Spread:        spread,
		HeadingJitter: jitter,
	})
	if err != nil {
		return err
	}

	finished, unfinished := automation.MonteCarloStats(results)
	fmt.Printf("finished: %d  unfinished: %d\n", finished, unfinished)
	for _, r := range results {
		if r.Finished && r.Err == nil {
			continue
		}
		reason := "not every move reached its target"
		if r.Err != nil {
			reason = r.Err.Error()
		}
		fmt.Printf("  trial %d: %s (top_speed=%.2f tau=%.3f track_width=%.2f)\n", r.Trial, reason,
			r.Params["robot.top_speed"], r.Params["robot.tau"], r.Params["robot.track_width"])
	}
	return nil
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCRIPT\tDURATION\tDESCRIPTION")
	for _, s := range experiment.ListScenarios() {
		fmt.Fprintf(w, "%s\t%s\t%.0fs\t%s\n", s.Name, s.Script, s.Duration, s.Description)
	}
	return w.Flush()
}

func listParams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	params := exp.Params()
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tVALUE")
	for _, n := range names {
		fmt.Fprintf(w, "%s\t%g\n", n, params[n])
	}
	return w.Flush()
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if writePath != "" {
		if err := config.Save(writePath, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", writePath)
		return nil
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
