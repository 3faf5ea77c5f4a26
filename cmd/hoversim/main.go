package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hoversim/internal/analysis"
	"github.com/san-kum/hoversim/internal/automation"
	"github.com/san-kum/hoversim/internal/config"
	"github.com/san-kum/hoversim/internal/control"
	"github.com/san-kum/hoversim/internal/dynamo"
	"github.com/san-kum/hoversim/internal/export"
	"github.com/san-kum/hoversim/internal/inference"
	"github.com/san-kum/hoversim/internal/logging"
	"github.com/san-kum/hoversim/internal/sim"
	"github.com/san-kum/hoversim/internal/storage"
	"github.com/san-kum/hoversim/internal/telemetry"
	"github.com/san-kum/hoversim/internal/tui"
	"github.com/san-kum/hoversim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

var (
	dataDir    string
	configFile string
	logLevel   string

	controllerName string
	duration       float64
	seed           int64
	preset         string
	modelPath      string
	noWind         bool
	tracePath      string

	numRuns      int
	scenarioPath string
	realtime     bool
	watch        bool
	serveAddr    string
	serveEvery   int

	theme   string
	logFile string

	plotColumns  []string
	outPath      string
	svgPath      string
	artifactPath string
	skipSeconds  float64

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "hoversim",
		Short:        "two-thruster hover drone control simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".hoversim", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store it",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	addSimFlags(runCmd)
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration in simulated seconds")
	runCmd.Flags().IntVar(&numRuns, "runs", 1, "number of runs with consecutive wind seeds")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file with timed commands (yaml)")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace ticks to wall clock")
	runCmd.Flags().BoolVar(&watch, "watch", false, "print a live status line")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly the drone interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, fmt.Sprintf("color theme %v", viz.ThemeNames()))
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write warnings and errors to this file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotColumns, "column", []string{"x", "y", "angle"}, fmt.Sprintf("columns to plot %v", storage.StateColumns))

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and states as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "also draw the flight path to this SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "oscillation and phase analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&skipSeconds, "skip", 2, "ignore this many seconds of initial transient")

	presetsCmd := &cobra.Command{
		Use:   "presets [controller]",
		Short: "list available presets for a controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for controller: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	linearizeCmd := &cobra.Command{
		Use:   "linearize",
		Short: "write the PID law as a model artifact for the learned controller",
		Args:  cobra.NoArgs,
		RunE:  linearize,
	}
	linearizeCmd.Flags().StringVarP(&artifactPath, "out", "o", "pid-linear.yaml", "artifact path (.yaml or .json)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the PID controller across a range of one gain",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp_y", "gain to sweep, e.g. kd_angle")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first gain value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.5, "last gain value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of points")
	sweepCmd.Flags().Float64Var(&duration, "time", 10, "duration of each point in simulated seconds")
	sweepCmd.Flags().Int64Var(&seed, "seed", 1, "wind seed")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, linearizeCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&controllerName, "controller", config.ControllerPID, "controller (pid, learned)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "wind seed")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&modelPath, "model", "", "model artifact for the learned controller")
	cmd.Flags().BoolVar(&noWind, "no-wind", false, "start with wind disabled")
	cmd.Flags().StringVar(&tracePath, "trace", "", "append per-tick inputs and outputs to this CSV file")
	cmd.Flags().StringVar(&serveAddr, "serve", "", "stream frames over websocket on this address, e.g. :8080")
	cmd.Flags().IntVar(&serveEvery, "serve-every", 2, "publish every Nth frame")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	if numRuns > 1 {
		return runEnsemble(ctx, cfg, st, logger)
	}

	ctrl, err := buildController(cfg)
	if err != nil {
		return err
	}
	loop, err := buildLoop(cfg, ctrl, cfg.Seed, logger)
	if err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Preset: preset,
		Seed:   cfg.Seed,
		Dt:     loop.Dt(),
		Params: ctrl.Params(),
	}

	if scenarioPath != "" {
		sc, err := automation.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		driver, err := automation.NewDriver(sc, loop, logger)
		if err != nil {
			return err
		}
		loop.AddObserver(driver)
		meta.Scenario = sc.Name
		if sc.Duration > 0 && !cmd.Flags().Changed("time") {
			cfg.Duration = sc.Duration.Seconds()
		}
	}
	meta.Duration = cfg.Duration

	closeTrace, err := attachTrace(cfg, loop, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	pace := realtime
	if serveAddr != "" {
		shutdown, err := serveTelemetry(ctx, loop, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		pace = true
	}

	// frames go straight to disk; an open-ended session would otherwise
	// hold its whole history in memory
	rec, err := st.Begin(ctrl.Name(), logger)
	if err != nil {
		return err
	}
	loop.AddObserver(rec)

	fmt.Printf("running %s simulation...\n", ctrl.Name())
	var status *tui.StatusLine
	if watch {
		status = tui.NewStatusLine(os.Stdout, 15)
		loop.AddObserver(status)
		status.Start()
	}
	start := time.Now()

	result, runErr := loop.Run(ctx, sim.RunOptions{Duration: cfg.Duration, Realtime: pace})
	if status != nil {
		status.Stop()
	}
	if result == nil {
		rec.Abort()
		return runErr
	}
	elapsed := time.Since(start)

	runID, err := rec.Finish(meta, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("ticks: %d (%.2fs simulated)\n", result.Ticks, result.Time)
	if result.Stopped {
		fmt.Println("stopped by command")
	}
	if result.Fallbacks > 0 {
		fmt.Printf("controller fallbacks: %d\n", result.Fallbacks)
	}
	printMetrics(os.Stdout, result.Metrics)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func runEnsemble(ctx context.Context, cfg *config.Config, st *storage.Store, logger *zap.Logger) error {
	// each run loads its own controller so no state is shared between goroutines
	build := func(s int64) (*sim.Loop, error) {
		ctrl, err := buildController(cfg)
		if err != nil {
			return nil, err
		}
		return buildLoop(cfg, ctrl, s, logger)
	}

	fmt.Printf("running %d %s simulations...\n", numRuns, cfg.Controller)
	start := time.Now()
	results, err := sim.NewEnsemble(build, numRuns, cfg.Seed).Run(ctx, sim.RunOptions{Duration: cfg.Duration, Record: true})
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	names := metricNames(results[0].Metrics)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED\tRUN ID")
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w)

	columns := make([][]float64, len(names))
	for _, r := range results {
		id, err := st.Save(storage.RunMetadata{
			Preset:   preset,
			Seed:     r.Seed,
			Dt:       1 / cfg.Sim.TickRate,
			Duration: cfg.Duration,
		}, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s", r.Seed, id)
		for i, n := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[n])
			columns[i] = append(columns[i], r.Metrics[n])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprint(w, "mean ± std\t")
	for i := range names {
		mean, std := stat.MeanStdDev(columns[i], nil)
		fmt.Fprintf(w, "\t%.4f ± %.4f", mean, std)
	}
	fmt.Fprintln(w)
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	// log lines would corrupt the alt screen
	logger, err := logging.Quiet(logFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl, err := buildController(cfg)
	if err != nil {
		return err
	}
	loop, err := buildLoop(cfg, ctrl, cfg.Seed, logger)
	if err != nil {
		return err
	}
	closeTrace, err := attachTrace(cfg, loop, logger)
	if err != nil {
		return err
	}
	defer closeTrace()

	if serveAddr != "" {
		shutdown, err := serveTelemetry(ctx, loop, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	opts := viz.DefaultOptions()
	opts.WorldWidth = cfg.World.Width
	opts.WorldHeight = cfg.World.Height
	opts.DroneWidth = cfg.Drone.Width
	opts.DroneHeight = cfg.Drone.Height
	opts.MaxWind = cfg.Wind.MaxForce
	opts.ThrustLimit = math.Max(math.Abs(cfg.PID.Min), math.Abs(cfg.PID.Max))
	opts.Theme = theme
	return viz.Run(ctx, loop, opts)
}

func attachTrace(cfg *config.Config, loop *sim.Loop, logger *zap.Logger) (func(), error) {
	if cfg.Log.Trace == "" {
		return func() {}, nil
	}
	trace, err := storage.OpenTraceLog(cfg.Log.Trace, logger)
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	loop.AddObserver(trace)
	return func() {
		if err := trace.Close(); err != nil {
			logger.Warn("close trace log", zap.Error(err))
		}
		logger.Info("trace log closed", zap.Int("rows", trace.Rows()), zap.Int("failures", trace.Failures()))
	}, nil
}

// serveTelemetry starts the websocket hub on serveAddr and registers it as
// an observer of loop. The returned func shuts both down.
func serveTelemetry(ctx context.Context, loop *sim.Loop, logger *zap.Logger) (func(), error) {
	ln, err := net.Listen("tcp", serveAddr)
	if err != nil {
		return nil, fmt.Errorf("telemetry listen: %w", err)
	}

	hub := telemetry.NewHub(loop, serveEvery, logger)
	hubCtx, cancel := context.WithCancel(ctx)
	go hub.Run(hubCtx)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("telemetry server failed", zap.Error(err))
		}
	}()

	loop.AddObserver(hub)
	logger.Info("telemetry listening", zap.String("addr", ln.Addr().String()))

	return func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}, nil
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
	fmt.Fprintln(w, "ID\tCTRL\tPRESET\tTIME\tDURATION\tTICKS\tSEED\tPOS RMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\t%d\t%.2f\n",
			run.ID,
			run.Controller,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ticks,
			run.Seed,
			run.Metrics["position_rms"],
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

	series, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(series.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s\n", meta.Controller)
	fmt.Printf("duration: %.2fs (%d ticks)\n\n", meta.Duration, meta.Ticks)

	for _, name := range plotColumns {
		data, err := series.Column(name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	printMetrics(os.Stdout, meta.Metrics)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := st.Export(w, args[0]); err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "exported %s to %s\n", args[0], outPath)
	}
	if svgPath != "" {
		if err := exportSVG(cmd, st, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "drew flight path to %s\n", svgPath)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, st *storage.Store, runID string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	series, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	flight, err := seriesPoints(series, "x", "y")
	if err != nil {
		return err
	}
	target, err := seriesPoints(series, "target_x", "target_y")
	if err != nil {
		return err
	}

	f, err := os.Create(svgPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.TrajectorySVG(f, flight, target, cfg.World.Width, cfg.World.Height, export.DefaultPathStyle())
}

func seriesPoints(series *storage.Series, xCol, yCol string) ([]dynamo.Vec2, error) {
	xs, err := series.Column(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := series.Column(yCol)
	if err != nil {
		return nil, err
	}
	return export.Points(xs, ys)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(series.Times) < 2 || meta.Dt <= 0 {
		return fmt.Errorf("run %s has too few samples to analyze", runID)
	}
	skip := int(skipSeconds / meta.Dt)

	fmt.Printf("run: %s (%s, %d ticks, first %.1fs skipped)\n\n", meta.ID, meta.Controller, meta.Ticks, skipSeconds)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNAL\tMEAN\tSTD\tMIN\tMAX\tPEAK HZ\tAMPLITUDE")
	for _, name := range []string{"x", "y", "angle", "left", "right"} {
		data, err := series.Column(name)
		if err != nil {
			return err
		}
		s := analysis.Summarize(name, data, meta.Dt, skip)
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			s.Name, s.Mean, s.StdDev, s.Min, s.Max, s.DominantHz, s.Amplitude)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	angle, err := series.Column("angle")
	if err != nil {
		return err
	}
	omega, err := series.Column("omega")
	if err != nil {
		return err
	}
	portrait, err := analysis.NewPortrait("angle", "omega", angle, omega)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(portrait.ASCII(70, 20))
	return nil
}

func linearize(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := inference.Save(artifactPath, control.LinearizePID(cfg.PID)); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", artifactPath)
	fmt.Printf("fly it with: hoversim live --controller learned --model %s\n", artifactPath)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := &automation.GainSweep{
		Base:     cfg.PID,
		Param:    sweepParam,
		Min:      sweepMin,
		Max:      sweepMax,
		NumSteps: sweepSteps,
		Duration: cfg.Duration,
	}
	build := func(pid *control.PID) (*sim.Loop, error) {
		return buildLoop(cfg, pid, cfg.Seed, logger)
	}

	fmt.Printf("sweeping %s over [%g, %g] in %d steps...\n", sweepParam, sweepMin, sweepMax, sweepSteps)
	results, err := automation.RunSweep(ctx, sweep, build, logger)
	if err != nil {
		return err
	}

	names := metricNames(nil)
	for _, r := range results {
		if len(r.Metrics) > 0 {
			names = metricNames(r.Metrics)
			break
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTICKS", sweepParam)
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w, "\tERROR")
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%d", r.ParamValue, r.Ticks)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[n])
		}
		errText := "-"
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(w, "\t%s\n", errText)
	}
	return w.Flush()
}

func metricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func printMetrics(w io.Writer, m map[string]float64) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range metricNames(m) {
		fmt.Fprintf(w, "  %s: %.6f\n", name, m[name])
	}
}
