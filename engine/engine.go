// Package engine defines the navigation engine collaborators a benchmark
// drives (structure builder, path finder, raycasters) and a client for
// engines that run as a separate process.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Vector is a point in world space.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Dist returns the Euclidean distance between v and o.
func (v Vector) Dist(o Vector) float64 {
	dx, dy, dz := o.X-v.X, o.Y-v.Y, o.Z-v.Z

	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PathDistance sums the segment lengths along points. Fewer than two
// points have no length.
func PathDistance(points []Vector) float64 {
	var d float64
	for i := 1; i < len(points); i++ {
		d += points[i-1].Dist(points[i])
	}

	return d
}

// Algorithm is a pathfinding strategy offered by the engine.
type Algorithm uint8

const (
	AStar Algorithm = iota
	LazyThetaStar
	ThetaStar
)

// Algorithms returns every algorithm in column order.
func Algorithms() []Algorithm {
	return []Algorithm{AStar, LazyThetaStar, ThetaStar}
}

func (a Algorithm) String() string {
	switch a {
	case AStar:
		return "AStar"
	case LazyThetaStar:
		return "LazyThetaStar"
	case ThetaStar:
		return "ThetaStar"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm accepts an algorithm name case-insensitively, with or
// without dashes, e.g. "theta-star" or "ThetaStar".
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))

	switch norm {
	case "astar", "a*":
		return AStar, nil
	case "lazythetastar", "lazytheta*":
		return LazyThetaStar, nil
	case "thetastar", "theta*":
		return ThetaStar, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", s)
	}
}

// MarshalText encodes the algorithm by name.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a > ThetaStar {
		return nil, fmt.Errorf("invalid algorithm %d", uint8(a))
	}

	return []byte(a.String()), nil
}

// UnmarshalText decodes an algorithm name.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// QueryConfig parameterises a single path query.
type QueryConfig struct {
	Algorithm           Algorithm `json:"algorithm"`
	UseGreedy           bool      `json:"use_greedy"`
	HeuristicScale      float64   `json:"heuristic_scale"`
	UseUnitCost         bool      `json:"use_unit_cost"`
	UseNodeCompensation bool      `json:"use_node_compensation"`
	// MaxIterations bounds the search; 0 means unlimited.
	MaxIterations int64 `json:"max_iterations"`
}

// Path is the outcome of one path query.
type Path struct {
	Points     []Vector
	Length     float64
	Iterations int64
}

// Hit is the outcome of one raycast.
type Hit struct {
	Hit   bool
	Point Vector
}

// Builder owns the spatial structure and its active resolution. The
// resolution is shared state: callers that change it must restore it.
type Builder interface {
	Resolution(ctx context.Context) (float64, error)
	SetResolution(ctx context.Context, resolution float64) error
	// Rebuild regenerates the structure at the active resolution and
	// blocks until it is done.
	Rebuild(ctx context.Context) error
	// Extent is the side length of the structure's bounding cube.
	Extent(ctx context.Context) (float64, error)
}

// PathFinder answers path queries against the current structure.
type PathFinder interface {
	FindPath(ctx context.Context, start, end Vector, cfg QueryConfig) (Path, error)
}

// Raycaster traces a segment and reports the first hit.
type Raycaster interface {
	Raycast(ctx context.Context, start, end Vector) (Hit, error)
}

// PathBench is the outcome of a batch of identical path queries timed
// inside the engine.
type PathBench struct {
	// Path is the result of the last trial.
	Path Path
	// Iterations is summed over every trial.
	Iterations int64
	// Elapsed covers the whole batch.
	Elapsed time.Duration
}

// PathBencher is implemented by path finders that can run a batch of
// queries back to back and report their own elapsed time, keeping any
// transport cost outside the measurement.
type PathBencher interface {
	BenchPath(ctx context.Context, start, end Vector, cfg QueryConfig, trials int) (PathBench, error)
}

// RaycastBencher is the raycast counterpart of PathBencher. It returns the
// elapsed time of the whole batch.
type RaycastBencher interface {
	BenchRaycast(ctx context.Context, start, end Vector, trials int) (time.Duration, error)
}
