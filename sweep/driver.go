// Package sweep runs navigation benchmarks across settings rows, structure
// resolutions and pathfinding algorithms, and tabulates the results.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/weiihann/navbench/engine"
	"github.com/weiihann/navbench/harness"
	"github.com/weiihann/navbench/report"
	"github.com/weiihann/navbench/table"
)

const (
	// DefaultPathTrials is the number of timed runs per path query when
	// Options leaves it unset.
	DefaultPathTrials = 5
	// DefaultRaycastTrials is the number of timed runs per raycaster when
	// Options leaves it unset.
	DefaultRaycastTrials = 200
)

// AlgorithmSet is the set of algorithms to benchmark. Columns are always
// laid out in engine.Algorithms order whatever the set holds.
type AlgorithmSet map[engine.Algorithm]struct{}

// NewAlgorithmSet returns a set holding algs.
func NewAlgorithmSet(algs ...engine.Algorithm) AlgorithmSet {
	s := make(AlgorithmSet, len(algs))
	for _, a := range algs {
		s[a] = struct{}{}
	}

	return s
}

// Has reports whether a is in the set.
func (s AlgorithmSet) Has(a engine.Algorithm) bool {
	_, ok := s[a]

	return ok
}

// List returns the members in column order.
func (s AlgorithmSet) List() []engine.Algorithm {
	var out []engine.Algorithm
	for _, a := range engine.Algorithms() {
		if s.Has(a) {
			out = append(out, a)
		}
	}

	return out
}

// Options configures a benchmark run.
type Options struct {
	// Resolutions are swept in order, usually coarsest first.
	Resolutions []float64
	Algorithms  AlgorithmSet
	// PathTrials is the number of timed runs per path query.
	PathTrials int
	// RaycastTrials is the number of timed runs per raycaster.
	RaycastTrials     int
	BenchmarkRaycasts bool
	// SettingsPath, if set and present on disk, replaces the settings
	// table before the run.
	SettingsPath string
	OutputPath   string

	PathStart engine.Vector
	PathEnd   engine.Vector
	RayStart  engine.Vector
	RayEnd    engine.Vector
}

// Collaborators are the engine endpoints and tables a Driver works on.
type Collaborators struct {
	Builder  engine.Builder
	Paths    engine.PathFinder
	Octree   engine.Raycaster
	Physics  engine.Raycaster
	Settings *table.Table[Settings]
	Results  *table.Table[Result]
}

// Block is the output of one settings row.
type Block struct {
	Key      string
	Settings Settings
	Label    string
	// Results is a snapshot of the results table for this settings row.
	Results *table.Table[Result]
	Text    string
}

// Report is the outcome of a run.
type Report struct {
	OutputPath string
	Text       string
	Blocks     []Block
}

// Driver runs a benchmark sweep. It mutates the builder's resolution while
// measuring and always restores it.
type Driver struct {
	deps   Collaborators
	opts   Options
	logger *slog.Logger
}

// NewDriver creates a Driver. Trial counts below one fall back to the
// defaults.
func NewDriver(deps Collaborators, opts Options, logger *slog.Logger) *Driver {
	if opts.PathTrials < 1 {
		opts.PathTrials = DefaultPathTrials
	}
	if opts.RaycastTrials < 1 {
		opts.RaycastTrials = DefaultRaycastTrials
	}

	return &Driver{deps: deps, opts: opts, logger: logger}
}

// Run sweeps every settings row over every resolution and writes the
// combined report to the output path in a single write.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	if err := d.checkSetup(); err != nil {
		return nil, err
	}

	if err := d.refreshSettings(ctx); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "starting benchmark",
		slog.Int("settings_rows", d.deps.Settings.Len()),
		slog.Any("resolutions", d.opts.Resolutions),
		slog.Any("algorithms", d.opts.Algorithms.List()),
		slog.Bool("raycasts", d.opts.BenchmarkRaycasts),
	)

	rep := &Report{OutputPath: d.opts.OutputPath}

	var combined strings.Builder

	for key, settings := range d.deps.Settings.Rows() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		block, err := d.runSettings(ctx, key, settings)
		if err != nil {
			return nil, fmt.Errorf("settings %s: %w", key, err)
		}

		combined.WriteString(block.Text)
		rep.Blocks = append(rep.Blocks, block)
	}

	rep.Text = combined.String()

	if err := persist(d.opts.OutputPath, rep.Text); err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "benchmark written",
		slog.String("path", d.opts.OutputPath),
		slog.Int("blocks", len(rep.Blocks)),
	)

	return rep, nil
}

func (d *Driver) checkSetup() error {
	var missing []string

	if d.deps.Builder == nil {
		missing = append(missing, "structure builder")
	}
	if d.deps.Paths == nil {
		missing = append(missing, "path finder")
	}
	if d.deps.Settings == nil {
		missing = append(missing, "settings table")
	}
	if d.deps.Results == nil {
		missing = append(missing, "results table")
	}
	if d.opts.BenchmarkRaycasts {
		if d.deps.Octree == nil {
			missing = append(missing, "octree raycaster")
		}
		if d.deps.Physics == nil {
			missing = append(missing, "physics raycaster")
		}
	}
	if d.opts.OutputPath == "" {
		missing = append(missing, "output path")
	}

	if len(missing) > 0 {
		return &SetupError{Missing: missing}
	}

	return nil
}

func (d *Driver) refreshSettings(ctx context.Context) error {
	path := d.opts.SettingsPath
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.WarnContext(ctx, "settings file not found, using configured settings",
			slog.String("path", path),
		)

		return nil
	}
	if err != nil {
		return &SettingsParseError{Path: path, Err: err}
	}
	defer f.Close()

	if err := d.deps.Settings.LoadCSV(f, DefaultSettings); err != nil {
		return &SettingsParseError{Path: path, Err: err}
	}

	d.logger.InfoContext(ctx, "settings loaded",
		slog.String("path", path),
		slog.Int("rows", d.deps.Settings.Len()),
	)

	return nil
}

func (d *Driver) runSettings(
	ctx context.Context,
	key string,
	settings Settings,
) (_ Block, err error) {
	results := d.deps.Results
	results.Clear()

	label := settings.String()
	logger := d.logger.With(slog.String("settings", key))
	logger.InfoContext(ctx, "benchmarking settings", slog.String("query", label))

	original, err := d.deps.Builder.Resolution(ctx)
	if err != nil {
		return Block{}, fmt.Errorf("read resolution: %w", err)
	}

	defer func() {
		// Restore even when ctx is already cancelled.
		rctx := context.WithoutCancel(ctx)
		if rerr := d.deps.Builder.SetResolution(rctx, original); rerr != nil {
			logger.ErrorContext(rctx, "failed to restore resolution",
				slog.Float64("resolution", original),
				slog.String("error", rerr.Error()),
			)

			if err == nil {
				err = fmt.Errorf("restore resolution %g: %w", original, rerr)
			}
		}
	}()

	for _, resolution := range d.opts.Resolutions {
		if err := ctx.Err(); err != nil {
			return Block{}, err
		}

		row := d.measureResolution(ctx, logger, settings, resolution)
		results.AddRow(strconv.Itoa(int(row.NumLayers)), row)

		logger.InfoContext(ctx, "added row to benchmark table",
			slog.Float64("resolution", resolution),
			slog.Int("layers", int(row.NumLayers)),
			slog.String("generation_ms", report.FormatFloat(row.GenerationTimeMs)),
		)
	}

	csvText, err := report.ExportCSV(results, results.Schema(), "")
	if err != nil {
		logger.WarnContext(ctx, "export failed", slog.String("error", err.Error()))
		csvText = report.MissingSchemaLine
	}

	// One comma per exported column, key included.
	pad := strings.Repeat(",", ResultSchema.Len()+1)

	return Block{
		Key:      key,
		Settings: settings,
		Label:    label,
		Results:  results.Clone(),
		Text:     `"` + label + `"` + "\n" + csvText + pad + "\n" + pad + "\n",
	}, nil
}

func (d *Driver) measureResolution(
	ctx context.Context,
	logger *slog.Logger,
	settings Settings,
	resolution float64,
) Result {
	logger = logger.With(slog.Float64("resolution", resolution))

	extent, err := d.deps.Builder.Extent(ctx)
	if err != nil {
		logger.WarnContext(ctx, "extent query failed", slog.String("error", err.Error()))
	}

	row := newResult(NumLayers(extent, resolution))

	if err := d.deps.Builder.SetResolution(ctx, resolution); err != nil {
		logger.WarnContext(ctx, "set resolution failed", slog.String("error", err.Error()))

		return row
	}

	var rebuildErr error
	generation := harness.Time(1, func() {
		rebuildErr = d.deps.Builder.Rebuild(ctx)
	})

	if rebuildErr != nil {
		logger.WarnContext(ctx, "rebuild failed", slog.String("error", rebuildErr.Error()))

		return row
	}

	row.GenerationTimeMs = generation * 1e3

	for _, alg := range engine.Algorithms() {
		row.Variants[alg] = d.measureAlgorithm(ctx, logger, settings, alg)
	}

	if d.opts.BenchmarkRaycasts {
		row.OctreeRaycastTimeMicroS = d.timeRaycast(ctx, logger, "octree", d.deps.Octree) * 1e6
		row.PhysicsLineTraceTimeMicroS = d.timeRaycast(ctx, logger, "physics", d.deps.Physics) * 1e6
	}

	return row
}

func (d *Driver) measureAlgorithm(
	ctx context.Context,
	logger *slog.Logger,
	settings Settings,
	alg engine.Algorithm,
) VariantResult {
	if !d.opts.Algorithms.Has(alg) {
		return zeroVariant()
	}

	logger = logger.With(slog.String("algorithm", alg.String()))
	start, end := d.opts.PathStart, d.opts.PathEnd

	ideal, err := d.deps.Paths.FindPath(ctx, start, end, IdealQuery())
	if err != nil {
		logger.WarnContext(ctx, "ideal path query failed", slog.String("error", err.Error()))

		return zeroVariant()
	}

	idealDistance := engine.PathDistance(ideal.Points)

	mean, path, iterations, err := d.timePath(ctx, start, end, settings.Query(alg))
	if err != nil {
		logger.WarnContext(ctx, "path query failed", slog.String("error", err.Error()))

		return zeroVariant()
	}

	return VariantResult{
		TimeMs:     mean * 1e3,
		Iterations: iterations / int64(d.opts.PathTrials),
		Distance:   DistanceRatio(path.Length, idealDistance),
	}
}

// timePath returns the mean seconds per query, the last path and the
// iteration count summed over every trial. Engines that time their own
// batches are asked to; anything else is timed here.
func (d *Driver) timePath(
	ctx context.Context,
	start, end engine.Vector,
	cfg engine.QueryConfig,
) (float64, engine.Path, int64, error) {
	trials := d.opts.PathTrials

	if b, ok := d.deps.Paths.(engine.PathBencher); ok {
		res, err := b.BenchPath(ctx, start, end, cfg, trials)
		if err != nil {
			return 0, engine.Path{}, 0, err
		}

		return harness.Mean(res.Elapsed, trials).Seconds(), res.Path, res.Iterations, nil
	}

	var (
		path       engine.Path
		iterations int64
		queryErr   error
	)

	mean := harness.Time(trials, func() {
		p, err := d.deps.Paths.FindPath(ctx, start, end, cfg)
		if err != nil {
			queryErr = err

			return
		}

		path = p
		iterations += p.Iterations
	})

	return mean, path, iterations, queryErr
}

func (d *Driver) timeRaycast(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	rc engine.Raycaster,
) float64 {
	var (
		mean   float64
		rayErr error
	)

	if b, ok := rc.(engine.RaycastBencher); ok {
		elapsed, err := b.BenchRaycast(ctx, d.opts.RayStart, d.opts.RayEnd, d.opts.RaycastTrials)
		mean, rayErr = harness.Mean(elapsed, d.opts.RaycastTrials).Seconds(), err
	} else {
		mean = harness.Time(d.opts.RaycastTrials, func() {
			if _, err := rc.Raycast(ctx, d.opts.RayStart, d.opts.RayEnd); err != nil {
				rayErr = err
			}
		})
	}

	if rayErr != nil {
		logger.WarnContext(ctx, "raycast failed",
			slog.String("raycaster", name),
			slog.String("error", rayErr.Error()),
		)

		return 0
	}

	return mean
}

// NumLayers returns the octree depth needed for leaves no larger than
// resolution inside a cube of side extent.
func NumLayers(extent, resolution float64) int32 {
	if extent <= 0 || resolution <= 0 {
		return 0
	}

	n := math.Ceil(math.Log2(extent / resolution))
	if n < 0 {
		return 0
	}

	return int32(n)
}

// NumVoxels returns 8^layers, saturating at math.MaxInt32.
func NumVoxels(layers int32) int32 {
	if layers < 0 {
		return 0
	}
	if layers > 10 {
		return math.MaxInt32
	}

	return 1 << (3 * layers)
}

// DistanceRatio renders length relative to the ideal path as a
// percentage. Without a positive ideal distance there is no ratio.
func DistanceRatio(length, ideal float64) string {
	if ideal <= 0 {
		return report.NotAvailable
	}

	return report.FormatPercent(length / ideal)
}

func persist(path, text string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
