// Package main provides the CLI entry point for navbench, a benchmark
// sweep runner for flying navigation engines.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weiihann/navbench/config"
	"github.com/weiihann/navbench/engine"
	"github.com/weiihann/navbench/history"
	"github.com/weiihann/navbench/report"
	"github.com/weiihann/navbench/sweep"
	"github.com/weiihann/navbench/workload"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("navbench failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "navbench",
		Short: "Benchmark sweeps for flying navigation engines",
		Long: `Navbench drives an external navigation engine through every
combination of query settings, octree resolution and pathfinding algorithm,
and writes the timings and path quality as spreadsheet-ready CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger, level, stdout))
	root.AddCommand(newSettingsCmd(logger, stdout))
	root.AddCommand(newHistoryCmd(stdout))

	return root
}

type runFlags struct {
	configPath string
	skipBuild  bool
	outputJSON bool
	split      bool
}

func newRunCmd(logger *slog.Logger, level *slog.LevelVar, stdout io.Writer) *cobra.Command {
	var (
		rf            runFlags
		resolutions   []float64
		algorithms    []string
		pathTrials    int
		raycastTrials int
		raycasts      bool
		settingsPath  string
		outputDir     string
		outputName    string
		engineBin     string
		engineSrc     string
		historyPath   string
		logLevel      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark sweep against an engine",
		Long: `Launch the engine, sweep every settings row over every resolution,
and write the combined CSV report. Flags override the config file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rf.configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("resolutions") {
				cfg.Resolutions = resolutions
			}
			if flags.Changed("algorithms") {
				cfg.Algorithms = algorithms
			}
			if flags.Changed("path-trials") {
				cfg.PathTrials = pathTrials
			}
			if flags.Changed("raycast-trials") {
				cfg.RaycastTrials = raycastTrials
			}
			if flags.Changed("raycasts") {
				cfg.BenchmarkRaycasts = raycasts
			}
			if flags.Changed("settings") {
				cfg.SettingsPath = settingsPath
			}
			if flags.Changed("output-dir") {
				cfg.OutputDir = outputDir
			}
			if flags.Changed("output") {
				cfg.OutputFilename = outputName
			}
			if flags.Changed("engine") {
				cfg.Engine.Binary = engineBin
			}
			if flags.Changed("engine-source") {
				cfg.Engine.SourceDir = engineSrc
			}
			if flags.Changed("history") {
				cfg.History = historyPath
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			lvl, err := parseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			level.Set(lvl)

			return runBenchmark(cmd.Context(), logger, cfg, rf, stdout)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&rf.configPath, "config", "c", "",
		"Path to a YAML config file")
	flags.Float64SliceVar(&resolutions, "resolutions", nil,
		"Octree resolutions to sweep, coarsest first")
	flags.StringSliceVar(&algorithms, "algorithms", nil,
		"Algorithms to benchmark (AStar,LazyThetaStar,ThetaStar)")
	flags.IntVar(&pathTrials, "path-trials", sweep.DefaultPathTrials,
		"Timed runs per path query")
	flags.IntVar(&raycastTrials, "raycast-trials", sweep.DefaultRaycastTrials,
		"Timed runs per raycaster")
	flags.BoolVar(&raycasts, "raycasts", false,
		"Benchmark octree raycasts and physics line traces")
	flags.StringVar(&settingsPath, "settings", "",
		"Settings CSV that replaces the configured settings rows")
	flags.StringVar(&outputDir, "output-dir", "",
		"Directory for the report")
	flags.StringVarP(&outputName, "output", "o", "",
		"Report filename (default: "+config.DefaultFilename+")")
	flags.StringVar(&engineBin, "engine", "",
		"Path to the engine binary or .jar")
	flags.StringVar(&engineSrc, "engine-source", "",
		"Engine source directory to build before the run")
	flags.StringVar(&historyPath, "history", "",
		"SQLite database to archive results in")
	flags.StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	flags.BoolVar(&rf.skipBuild, "skip-build", false,
		"Skip building the engine from source")
	flags.BoolVar(&rf.outputJSON, "json", false,
		"Also print results as JSON to stdout")
	flags.BoolVar(&rf.split, "split", false,
		"Also write each settings block to its own file")

	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return lvl, nil
	}

	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	return lvl, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	rf runFlags,
	stdout io.Writer,
) error {
	if cfg.Engine.Binary == "" {
		return fmt.Errorf("an engine binary must be set via --engine or engine.binary")
	}

	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	// Step 1: Build the engine from source (unless --skip-build).
	binPath := cfg.Engine.Binary
	if cfg.Engine.SourceDir != "" && !rf.skipBuild {
		built, err := engine.Build(ctx, logger, cfg.Engine.SourceDir, binPath)
		if err != nil {
			return fmt.Errorf("build engine: %w", err)
		}

		binPath = built
	}

	// Step 2: Launch the engine.
	cmdCfg := engine.ResolveCommand(binPath, cfg.Engine.Args, cfg.Engine.Env)
	proc := engine.NewProcess(
		filepath.Base(binPath), cmdCfg.Binary, cmdCfg.ExtraArgs, cmdCfg.Env, logger,
	)

	if err := proc.Start(ctx); err != nil {
		return fmt.Errorf("launch engine: %w", err)
	}
	defer func() {
		if err := proc.Close(); err != nil {
			logger.WarnContext(ctx, "engine shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// Step 3: Sweep.
	return runSweep(ctx, logger, runID, cfg, rf, sweep.Collaborators{
		Builder:  proc,
		Paths:    proc,
		Octree:   proc.Octree(),
		Physics:  proc.Physics(),
		Settings: cfg.SettingsTable(),
		Results:  sweep.NewResultTable(),
	}, stdout)
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	runID string,
	cfg *config.Config,
	rf runFlags,
	deps sweep.Collaborators,
	stdout io.Writer,
) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	started := time.Now()

	rep, err := sweep.NewDriver(deps, opts, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	if rf.split {
		if err := writeSplit(cfg.OutputDir, rep); err != nil {
			return err
		}
	}

	if cfg.History != "" {
		if err := archive(ctx, logger, cfg.History, runID, started, rep); err != nil {
			return fmt.Errorf("archive results: %w", err)
		}
	}

	if rf.outputJSON {
		sections := make([]report.Section[sweep.Result], 0, len(rep.Blocks))
		for _, b := range rep.Blocks {
			sections = append(sections, report.Section[sweep.Result]{
				Label: b.Label,
				Table: b.Results,
			})
		}

		if err := report.GenerateJSON(stdout, sections); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("output", rep.OutputPath),
		slog.Duration("elapsed", time.Since(started)),
	)

	return nil
}

// writeSplit writes each settings block to its own file. It refuses to
// let two blocks share a file.
func writeSplit(dir string, rep *sweep.Report) error {
	owners := make(map[string]string, len(rep.Blocks))
	for _, b := range rep.Blocks {
		name := b.Settings.Filename(b.Key)
		if other, ok := owners[name]; ok {
			return fmt.Errorf("settings rows %q and %q both split to %s", other, b.Key, name)
		}
		owners[name] = b.Key
	}

	for _, b := range rep.Blocks {
		path := filepath.Join(dir, b.Settings.Filename(b.Key))
		if err := os.WriteFile(path, []byte(b.Text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	return nil
}

func archive(
	ctx context.Context,
	logger *slog.Logger,
	path, runID string,
	started time.Time,
	rep *sweep.Report,
) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.BeginRun(ctx, runID, started, rep.OutputPath); err != nil {
		return err
	}

	var cells int
	for i, b := range rep.Blocks {
		n, err := history.Record(ctx, store, runID, i, b.Label, b.Results)
		if err != nil {
			return fmt.Errorf("block %s: %w", b.Key, err)
		}
		cells += n
	}

	logger.InfoContext(ctx, "results archived",
		slog.String("path", path),
		slog.Int("cells", cells),
	)

	return nil
}

func newSettingsCmd(logger *slog.Logger, stdout io.Writer) *cobra.Command {
	var (
		scales     []float64
		minScale   float64
		maxScale   float64
		steps      int
		spacing    string
		unitCost   []string
		nodeComp   []string
		limit      int
		seed       int64
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Generate a settings CSV grid",
		Long: `Write the cross product of heuristic scales, unit cost and node
compensation flags as a settings CSV that "navbench run --settings" loads.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc, err := parseBools(unitCost)
			if err != nil {
				return fmt.Errorf("--unit-cost: %w", err)
			}

			nc, err := parseBools(nodeComp)
			if err != nil {
				return fmt.Errorf("--node-compensation: %w", err)
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			return generateSettings(cmd.Context(), logger, workload.Config{
				HeuristicScales:  scales,
				MinScale:         minScale,
				MaxScale:         maxScale,
				Steps:            steps,
				Spacing:          spacing,
				UnitCost:         uc,
				NodeCompensation: nc,
				Limit:            limit,
				Seed:             seed,
			}, outputPath, stdout)
		},
	}

	flags := cmd.Flags()
	flags.Float64SliceVar(&scales, "scales", nil,
		"Explicit heuristic scales (overrides --min/--max/--steps)")
	flags.Float64Var(&minScale, "min", 1,
		"Smallest heuristic scale")
	flags.Float64Var(&maxScale, "max", 4,
		"Largest heuristic scale")
	flags.IntVar(&steps, "steps", 4,
		"Number of heuristic scales between --min and --max")
	flags.StringVar(&spacing, "spacing", workload.SpacingLinear,
		"Scale spacing: linear, geometric")
	flags.StringSliceVar(&unitCost, "unit-cost", []string{"false"},
		"Unit cost values to include (true,false)")
	flags.StringSliceVar(&nodeComp, "node-compensation", []string{"false"},
		"Node compensation values to include (true,false)")
	flags.IntVar(&limit, "limit", 0,
		"Keep a random subset of this many rows (0 = all)")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed for --limit (0 = use current time)")
	flags.StringVarP(&outputPath, "output", "o", "",
		"Output file (default: stdout)")

	return cmd
}

func parseBools(values []string) ([]bool, error) {
	out := make([]bool, 0, len(values))
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			out = append(out, true)
		case "false", "0", "no":
			out = append(out, false)
		default:
			return nil, fmt.Errorf("invalid bool %q", v)
		}
	}

	return out, nil
}

func generateSettings(
	ctx context.Context,
	logger *slog.Logger,
	cfg workload.Config,
	outputPath string,
	stdout io.Writer,
) error {
	gen := workload.NewGenerator(cfg)

	if outputPath == "" {
		if _, err := gen.Generate(stdout); err != nil {
			return fmt.Errorf("generate settings: %w", err)
		}

		return nil
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create settings file: %w", err)
	}

	summary, err := gen.Generate(f)
	if err != nil {
		f.Close()
		os.Remove(outputPath)

		return fmt.Errorf("generate settings: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close settings file: %w", err)
	}

	logger.InfoContext(ctx, "settings generated",
		slog.String("path", outputPath),
		slog.Int("rows", summary.Rows),
		slog.Int("grid_size", summary.GridSize),
		slog.Any("scales", summary.Scales),
	)

	return nil
}
