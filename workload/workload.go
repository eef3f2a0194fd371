// Package workload generates settings files for benchmark sweeps. A
// settings file is the cross product of heuristic scales, unit cost flags
// and node compensation flags, written in the same CSV shape the sweep
// driver loads.
package workload

import (
	"errors"
	"fmt"
	"io"
	"math"
	mrand "math/rand"
	"slices"
	"strconv"

	"github.com/weiihann/navbench/report"
	"github.com/weiihann/navbench/sweep"
	"github.com/weiihann/navbench/table"
)

// Spacing values for generated heuristic scales.
const (
	SpacingLinear    = "linear"
	SpacingGeometric = "geometric"
)

// KeyPrefix prefixes the 1-based grid index of each generated row.
const KeyPrefix = "Settings"

// ErrEmptyGrid is returned when a Config yields no settings rows.
var ErrEmptyGrid = errors.New("settings grid is empty")

// Summary contains statistics about the generated settings file.
type Summary struct {
	GridSize int
	Rows     int
	// Scales are the heuristic scales as written, at the file's precision.
	Scales []float64
}

// Config controls settings grid generation.
type Config struct {
	// HeuristicScales lists the scales explicitly. When empty, Steps
	// scales are spread from MinScale to MaxScale.
	HeuristicScales []float64
	MinScale        float64
	MaxScale        float64
	Steps           int
	Spacing         string

	// UnitCost and NodeCompensation default to {false}.
	UnitCost         []bool
	NodeCompensation []bool

	// Limit, when positive and below the grid size, keeps a random subset
	// of that many rows in grid order.
	Limit int
	Seed  int64
}

// Generator produces deterministic settings grids from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Table builds the settings table without writing it.
func (g *Generator) Table() (*table.Table[sweep.Settings], Summary, error) {
	var summary Summary

	scales, err := g.scales()
	if err != nil {
		return nil, summary, err
	}

	for i, hs := range scales {
		scales[i] = asWritten(hs)
	}

	unit := orFalse(g.cfg.UnitCost)
	comp := orFalse(g.cfg.NodeCompensation)

	var grid []sweep.Settings
	for _, hs := range scales {
		for _, u := range unit {
			for _, c := range comp {
				grid = append(grid, sweep.Settings{
					HeuristicScale:      hs,
					UseUnitCost:         u,
					UseNodeCompensation: c,
				})
			}
		}
	}

	if len(grid) == 0 {
		return nil, summary, ErrEmptyGrid
	}

	summary.GridSize = len(grid)
	summary.Scales = scales

	t := sweep.NewSettingsTable()
	for _, i := range g.pick(len(grid)) {
		t.AddRow(KeyPrefix+strconv.Itoa(i+1), grid[i])
	}

	summary.Rows = t.Len()

	return t, summary, nil
}

// Generate writes the settings CSV to w and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	t, summary, err := g.Table()
	if err != nil {
		return summary, err
	}

	text, err := report.ExportCSV(t, sweep.SettingsSchema, "")
	if err != nil {
		return summary, fmt.Errorf("export settings: %w", err)
	}

	if _, err := io.WriteString(w, text); err != nil {
		return summary, fmt.Errorf("write settings: %w", err)
	}

	return summary, nil
}

func (g *Generator) scales() ([]float64, error) {
	if len(g.cfg.HeuristicScales) > 0 {
		return slices.Clone(g.cfg.HeuristicScales), nil
	}

	lo, hi, steps := g.cfg.MinScale, g.cfg.MaxScale, g.cfg.Steps
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if hi < lo {
		return nil, fmt.Errorf("max scale %g below min scale %g", hi, lo)
	}
	if steps == 1 {
		return []float64{lo}, nil
	}

	out := make([]float64, steps)

	switch g.cfg.Spacing {
	case SpacingGeometric:
		if lo <= 0 {
			return nil, fmt.Errorf("geometric spacing needs a positive min scale, got %g", lo)
		}
		ratio := hi / lo
		for i := range out {
			out[i] = lo * math.Pow(ratio, float64(i)/float64(steps-1))
		}

	case SpacingLinear, "":
		for i := range out {
			out[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
		}

	default:
		return nil, fmt.Errorf("unknown spacing %q", g.cfg.Spacing)
	}

	// Land exactly on the requested bound.
	out[steps-1] = hi

	return out, nil
}

// asWritten rounds v to the precision the settings file stores, so rows
// in memory match rows loaded back from disk.
func asWritten(v float64) float64 {
	r, err := strconv.ParseFloat(report.FormatFloat(v), 64)
	if err != nil {
		return v
	}

	return r
}

// pick returns the grid indexes to keep, in ascending order.
func (g *Generator) pick(n int) []int {
	if g.cfg.Limit <= 0 || g.cfg.Limit >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}

		return idx
	}

	idx := g.rng.Perm(n)[:g.cfg.Limit]
	slices.Sort(idx)

	return idx
}

func orFalse(v []bool) []bool {
	if len(v) == 0 {
		return []bool{false}
	}

	return v
}
