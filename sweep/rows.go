package sweep

import (
	"fmt"
	"strings"

	"github.com/weiihann/navbench/engine"
	"github.com/weiihann/navbench/table"
)

// Settings is one query parameter combination. Each settings row gets a
// full resolution sweep and its own labelled block in the output.
type Settings struct {
	// HeuristicScale multiplies the search heuristic. Values above 1
	// trade path quality for speed.
	HeuristicScale float64
	// UseUnitCost gives every node the same traversal cost regardless of
	// its size.
	UseUnitCost bool
	// UseNodeCompensation further scales node cost by node depth.
	UseNodeCompensation bool
}

// DefaultSettings returns the settings used for columns a settings file
// leaves out.
func DefaultSettings() Settings {
	return Settings{HeuristicScale: 1}
}

// String is the label written above the settings row's block.
func (s Settings) String() string {
	return fmt.Sprintf(
		"(Query: HeuristicScale = %.1f, UseUnitCost = %t, UseNodeCompensation = %t)",
		s.HeuristicScale, s.UseUnitCost, s.UseNodeCompensation,
	)
}

// Filename names the output file of the settings row stored under key.
// The key keeps rows with near-identical settings apart; path separators
// in it become underscores.
func (s Settings) Filename(key string) string {
	return fmt.Sprintf("%s (HS %.1f UC %t NC %t).csv",
		strings.NewReplacer("/", "_", `\`, "_").Replace(key),
		s.HeuristicScale, s.UseUnitCost, s.UseNodeCompensation,
	)
}

// Query returns the path query configuration for alg under s.
func (s Settings) Query(alg engine.Algorithm) engine.QueryConfig {
	return engine.QueryConfig{
		Algorithm:           alg,
		HeuristicScale:      s.HeuristicScale,
		UseUnitCost:         s.UseUnitCost,
		UseNodeCompensation: s.UseNodeCompensation,
	}
}

// SettingsSchema describes Settings rows.
var SettingsSchema = table.NewSchema(
	table.Float("HeuristicScale", func(s *Settings) *float64 { return &s.HeuristicScale }),
	table.Bool("UseUnitCost", func(s *Settings) *bool { return &s.UseUnitCost }),
	table.Bool("UseNodeCompensation", func(s *Settings) *bool { return &s.UseNodeCompensation }),
)

// NewSettingsTable returns an empty settings table.
func NewSettingsTable() *table.Table[Settings] {
	return table.New(SettingsSchema)
}

// IdealQuery is the exact-cost reference query whose path length is the
// baseline for distance ratios.
func IdealQuery() engine.QueryConfig {
	return engine.QueryConfig{
		Algorithm:      engine.ThetaStar,
		HeuristicScale: 1,
	}
}

// VariantResult holds one algorithm's measurements at one resolution.
type VariantResult struct {
	TimeMs     float64
	Iterations int64
	// Distance is the path length as a percentage of the ideal path.
	Distance string
}

func zeroVariant() VariantResult {
	return VariantResult{Distance: "0%"}
}

// Result is one row of the results table: the measurements for one
// resolution under one settings row.
type Result struct {
	NumLayers        int32
	NumVoxels        int32
	GenerationTimeMs float64
	// Variants is indexed by engine.Algorithm.
	Variants                   [3]VariantResult
	OctreeRaycastTimeMicroS    float64
	PhysicsLineTraceTimeMicroS float64
}

func newResult(layers int32) Result {
	r := Result{
		NumLayers: layers,
		NumVoxels: NumVoxels(layers),
	}
	for i := range r.Variants {
		r.Variants[i] = zeroVariant()
	}

	return r
}

// ResultSchema describes Result rows. Each algorithm contributes a
// TimeMs, Iterations and Distance column in engine.Algorithms order.
var ResultSchema = newResultSchema()

func newResultSchema() *table.Schema[Result] {
	fields := []table.Field[Result]{
		table.Int32("NumLayers", func(r *Result) *int32 { return &r.NumLayers }),
		table.Int32("NumVoxels", func(r *Result) *int32 { return &r.NumVoxels }),
		table.Float("GenerationTimeMs", func(r *Result) *float64 { return &r.GenerationTimeMs }),
	}

	for _, alg := range engine.Algorithms() {
		name := alg.String()
		fields = append(fields,
			table.Float(name+"TimeMs", func(r *Result) *float64 { return &r.Variants[alg].TimeMs }),
			table.Int64(name+"Iterations", func(r *Result) *int64 { return &r.Variants[alg].Iterations }),
			table.String(name+"Distance", func(r *Result) *string { return &r.Variants[alg].Distance }),
		)
	}

	fields = append(fields,
		table.Float("OctreeRaycastTimeMicroS", func(r *Result) *float64 { return &r.OctreeRaycastTimeMicroS }),
		table.Float("PhysicsLineTraceTimeMicroS", func(r *Result) *float64 { return &r.PhysicsLineTraceTimeMicroS }),
	)

	return table.NewSchema(fields...)
}

// NewResultTable returns an empty results table.
func NewResultTable() *table.Table[Result] {
	return table.New(ResultSchema)
}
