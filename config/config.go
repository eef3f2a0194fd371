// Package config loads and validates benchmark configuration.
//
// Values are layered: Default, then an optional YAML file, then command
// line overrides applied by the caller, then Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/navbench/engine"
	"github.com/weiihann/navbench/sweep"
	"github.com/weiihann/navbench/table"
)

// DefaultFilename is the output filename used when none is configured.
const DefaultFilename = "Benchmark.csv"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the full benchmark configuration.
type Config struct {
	Resolutions       []float64 `yaml:"resolutions" validate:"required,min=1,dive,gt=0"`
	Algorithms        []string  `yaml:"algorithms" validate:"required,min=1,dive,required"`
	PathTrials        int       `yaml:"path_trials" validate:"gte=1"`
	RaycastTrials     int       `yaml:"raycast_trials" validate:"gte=1"`
	BenchmarkRaycasts bool      `yaml:"benchmark_raycasts"`

	// SettingsPath is an optional settings CSV that replaces Settings.
	SettingsPath   string `yaml:"settings_path"`
	OutputDir      string `yaml:"output_dir" validate:"required"`
	OutputFilename string `yaml:"output_filename" validate:"required"`

	PathStart engine.Vector `yaml:"path_start"`
	PathEnd   engine.Vector `yaml:"path_end"`
	RayStart  engine.Vector `yaml:"ray_start"`
	RayEnd    engine.Vector `yaml:"ray_end"`

	Settings []SettingsRow `yaml:"settings" validate:"dive"`

	Engine EngineConfig `yaml:"engine"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// History is an optional SQLite archive path.
	History string `yaml:"history"`
}

// SettingsRow is one in-memory settings row.
type SettingsRow struct {
	Name                string  `yaml:"name" validate:"required"`
	HeuristicScale      float64 `yaml:"heuristic_scale" validate:"gte=0"`
	UseUnitCost         bool    `yaml:"use_unit_cost"`
	UseNodeCompensation bool    `yaml:"use_node_compensation"`
}

// UnmarshalYAML defaults HeuristicScale to 1 for rows that omit it.
func (r *SettingsRow) UnmarshalYAML(node *yaml.Node) error {
	type plain SettingsRow

	p := plain{HeuristicScale: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}

	*r = SettingsRow(p)

	return nil
}

// EngineConfig describes how to launch the external engine.
type EngineConfig struct {
	Binary string   `yaml:"binary" validate:"required_with=SourceDir"`
	Args   []string `yaml:"args"`
	// Env entries are KEY=VALUE pairs added to the engine's environment.
	Env []string `yaml:"env"`
	// SourceDir, when set, is built into Binary before the run.
	SourceDir string `yaml:"source_dir"`
}

// Default returns a Config with the stock resolution sweep and a single
// default settings row.
func Default() *Config {
	algs := make([]string, 0, 3)
	for _, a := range engine.Algorithms() {
		algs = append(algs, a.String())
	}

	return &Config{
		Resolutions:    []float64{256, 128, 64, 32, 16, 8},
		Algorithms:     algs,
		PathTrials:     sweep.DefaultPathTrials,
		RaycastTrials:  sweep.DefaultRaycastTrials,
		OutputDir:      ".",
		OutputFilename: DefaultFilename,
		Settings: []SettingsRow{
			{Name: "Default", HeuristicScale: 1},
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Default.
// Keys the file leaves out keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Engine.Binary = os.ExpandEnv(cfg.Engine.Binary)
	cfg.Engine.SourceDir = os.ExpandEnv(cfg.Engine.SourceDir)

	return cfg, nil
}

// Validate checks struct constraints and that every algorithm name and
// settings row name is recognised and unique.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}

			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}

		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.AlgorithmSet(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Settings))
	for _, row := range c.Settings {
		if seen[row.Name] {
			return fmt.Errorf("duplicate settings row %q", row.Name)
		}
		seen[row.Name] = true
	}

	return nil
}

// AlgorithmSet parses the configured algorithm names.
func (c *Config) AlgorithmSet() (sweep.AlgorithmSet, error) {
	algs := make([]engine.Algorithm, 0, len(c.Algorithms))
	for _, name := range c.Algorithms {
		a, err := engine.ParseAlgorithm(name)
		if err != nil {
			return nil, err
		}
		algs = append(algs, a)
	}

	return sweep.NewAlgorithmSet(algs...), nil
}

// OutputPath joins the output directory and filename.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputFilename)
}

// Options converts the configuration into driver options.
func (c *Config) Options() (sweep.Options, error) {
	algs, err := c.AlgorithmSet()
	if err != nil {
		return sweep.Options{}, err
	}

	return sweep.Options{
		Resolutions:       c.Resolutions,
		Algorithms:        algs,
		PathTrials:        c.PathTrials,
		RaycastTrials:     c.RaycastTrials,
		BenchmarkRaycasts: c.BenchmarkRaycasts,
		SettingsPath:      c.SettingsPath,
		OutputPath:        c.OutputPath(),
		PathStart:         c.PathStart,
		PathEnd:           c.PathEnd,
		RayStart:          c.RayStart,
		RayEnd:            c.RayEnd,
	}, nil
}

// SettingsTable builds the in-memory settings table in configured order.
func (c *Config) SettingsTable() *table.Table[sweep.Settings] {
	t := sweep.NewSettingsTable()
	for _, row := range c.Settings {
		t.AddRow(row.Name, sweep.Settings{
			HeuristicScale:      row.HeuristicScale,
			UseUnitCost:         row.UseUnitCost,
			UseNodeCompensation: row.UseNodeCompensation,
		})
	}

	return t
}
