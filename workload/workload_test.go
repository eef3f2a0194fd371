package workload

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/weiihann/navbench/sweep"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{
		MinScale:         1,
		MaxScale:         8,
		Steps:            6,
		Spacing:          SpacingGeometric,
		UnitCost:         []bool{false, true},
		NodeCompensation: []bool{false, true},
		Limit:            7,
		Seed:             42,
	}

	var buf1, buf2 bytes.Buffer

	sum1, err := NewGenerator(cfg).Generate(&buf1)
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	sum2, err := NewGenerator(cfg).Generate(&buf2)
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if buf1.String() != buf2.String() {
		t.Error("settings are not deterministic for same seed")
	}

	if sum1.Rows != sum2.Rows || sum1.GridSize != sum2.GridSize {
		t.Errorf("summaries differ: %+v vs %+v", sum1, sum2)
	}
}

func TestGenerateCounts(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantGrid int
		wantRows int
	}{
		{
			name:     "explicit scales",
			cfg:      Config{HeuristicScales: []float64{1, 2, 4}},
			wantGrid: 3,
			wantRows: 3,
		},
		{
			name: "full cross product",
			cfg: Config{
				HeuristicScales:  []float64{1, 2},
				UnitCost:         []bool{false, true},
				NodeCompensation: []bool{false, true},
			},
			wantGrid: 8,
			wantRows: 8,
		},
		{
			name: "linear range",
			cfg: Config{
				MinScale: 1,
				MaxScale: 3,
				Steps:    5,
				UnitCost: []bool{true},
			},
			wantGrid: 5,
			wantRows: 5,
		},
		{
			name: "limited",
			cfg: Config{
				HeuristicScales: []float64{1, 2, 3, 4},
				UnitCost:        []bool{false, true},
				Limit:           3,
				Seed:            7,
			},
			wantGrid: 8,
			wantRows: 3,
		},
		{
			name: "limit above grid",
			cfg: Config{
				HeuristicScales: []float64{1},
				Limit:           10,
			},
			wantGrid: 1,
			wantRows: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			sum, err := NewGenerator(tt.cfg).Generate(&buf)
			if err != nil {
				t.Fatalf("generation failed: %v", err)
			}

			if sum.GridSize != tt.wantGrid {
				t.Errorf("grid: got %d, want %d", sum.GridSize, tt.wantGrid)
			}
			if sum.Rows != tt.wantRows {
				t.Errorf("rows: got %d, want %d", sum.Rows, tt.wantRows)
			}

			lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if len(lines) != tt.wantRows+1 {
				t.Errorf("lines: got %d, want %d", len(lines), tt.wantRows+1)
			}
		})
	}
}

func TestGenerateFormat(t *testing.T) {
	var buf bytes.Buffer

	_, err := NewGenerator(Config{
		HeuristicScales: []float64{1, 2.5},
		UnitCost:        []bool{false, true},
	}).Generate(&buf)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	want := "---,HeuristicScale,UseUnitCost,UseNodeCompensation\n" +
		`Settings1,"1.00","false","false"` + "\n" +
		`Settings2,"1.00","true","false"` + "\n" +
		`Settings3,"2.50","false","false"` + "\n" +
		`Settings4,"2.50","true","false"` + "\n"

	if buf.String() != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestGenerateLoadsBack(t *testing.T) {
	var buf bytes.Buffer

	gen := NewGenerator(Config{
		MinScale:         1,
		MaxScale:         4,
		Steps:            3,
		Spacing:          SpacingGeometric,
		NodeCompensation: []bool{false, true},
	})

	want, _, err := gen.Table()
	if err != nil {
		t.Fatalf("table failed: %v", err)
	}

	if _, err := gen.Generate(&buf); err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	got := sweep.NewSettingsTable()
	if err := got.LoadCSV(&buf, sweep.DefaultSettings); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got.Len() != want.Len() {
		t.Fatalf("rows: got %d, want %d", got.Len(), want.Len())
	}

	for key, w := range want.Rows() {
		g, ok := got.Get(key)
		if !ok {
			t.Fatalf("row %s missing after load", key)
		}
		if g != w {
			t.Errorf("row %s: got %+v, want %+v", key, g, w)
		}
	}
}

func TestSummaryScalesMatchFile(t *testing.T) {
	var buf bytes.Buffer

	gen := NewGenerator(Config{
		MinScale: 1,
		MaxScale: 4,
		Steps:    4,
		Spacing:  SpacingGeometric,
	})

	summary, err := gen.Generate(&buf)
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	want := []float64{1, 1.59, 2.52, 4}
	if !slices.Equal(summary.Scales, want) {
		t.Fatalf("scales: got %v, want %v", summary.Scales, want)
	}

	loaded := sweep.NewSettingsTable()
	if err := loaded.LoadCSV(&buf, sweep.DefaultSettings); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	var got []float64
	for _, row := range loaded.Rows() {
		got = append(got, row.HeuristicScale)
	}

	if !slices.Equal(got, summary.Scales) {
		t.Errorf("loaded scales %v differ from summary %v", got, summary.Scales)
	}
}

func TestScales(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []float64
	}{
		{"single step", Config{MinScale: 2, MaxScale: 9, Steps: 1}, []float64{2}},
		{"linear", Config{MinScale: 1, MaxScale: 2, Steps: 3}, []float64{1, 1.5, 2}},
		{
			"geometric",
			Config{MinScale: 1, MaxScale: 4, Steps: 3, Spacing: SpacingGeometric},
			[]float64{1, 2, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewGenerator(tt.cfg).scales()
			if err != nil {
				t.Fatalf("scales failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if diff := got[i] - tt.want[i]; diff > 1e-9 || diff < -1e-9 {
					t.Errorf("scale %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no steps", Config{MinScale: 1, MaxScale: 2}},
		{"inverted range", Config{MinScale: 3, MaxScale: 1, Steps: 2}},
		{"geometric from zero", Config{MinScale: 0, MaxScale: 4, Steps: 3, Spacing: SpacingGeometric}},
		{"unknown spacing", Config{MinScale: 1, MaxScale: 4, Steps: 3, Spacing: "cubic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := NewGenerator(tt.cfg).Generate(&buf); err == nil {
				t.Error("expected error")
			}
			if buf.Len() != 0 {
				t.Errorf("wrote %d bytes on error", buf.Len())
			}
		})
	}
}
