package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/weiihann/navbench/engine"
)

var errFake = errors.New("fake engine failure")

// fakeEngine is an in-memory engine with a fixed 1024 unit extent. The
// ideal path is a dog-leg of length 100; each algorithm reports a longer
// path and a fixed iteration count.
type fakeEngine struct {
	resolution float64
	setCalls   []float64
	rebuilds   int
	pathCalls  map[engine.Algorithm]int

	rebuildDelay time.Duration
	queryDelay   time.Duration

	failRebuild bool
	failAlgo    map[engine.Algorithm]bool
	degenerate  bool
	onRebuild   func()
	failRestore bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		resolution:   50,
		pathCalls:    make(map[engine.Algorithm]int),
		failAlgo:     make(map[engine.Algorithm]bool),
		rebuildDelay: time.Millisecond,
		queryDelay:   50 * time.Microsecond,
	}
}

var fakeLengths = map[engine.Algorithm]float64{
	engine.AStar:         125,
	engine.LazyThetaStar: 110,
	engine.ThetaStar:     100,
}

var fakeIterations = map[engine.Algorithm]int64{
	engine.AStar:         30,
	engine.LazyThetaStar: 20,
	engine.ThetaStar:     10,
}

func (f *fakeEngine) Resolution(context.Context) (float64, error) {
	return f.resolution, nil
}

func (f *fakeEngine) SetResolution(_ context.Context, r float64) error {
	f.setCalls = append(f.setCalls, r)
	if f.failRestore && r == 50 {
		return errFake
	}

	f.resolution = r

	return nil
}

func (f *fakeEngine) Rebuild(context.Context) error {
	f.rebuilds++
	if f.onRebuild != nil {
		f.onRebuild()
	}
	if f.failRebuild {
		return errFake
	}

	time.Sleep(f.rebuildDelay)

	return nil
}

func (f *fakeEngine) Extent(context.Context) (float64, error) {
	return 1024, nil
}

func (f *fakeEngine) FindPath(
	_ context.Context,
	start, end engine.Vector,
	cfg engine.QueryConfig,
) (engine.Path, error) {
	f.pathCalls[cfg.Algorithm]++

	if cfg == IdealQuery() {
		if f.degenerate {
			return engine.Path{Points: []engine.Vector{start}}, nil
		}

		mid := engine.Vector{X: start.X + 30, Y: start.Y + 40}

		return engine.Path{Points: []engine.Vector{start, mid, end}, Length: 100}, nil
	}

	if f.failAlgo[cfg.Algorithm] {
		return engine.Path{}, errFake
	}

	time.Sleep(f.queryDelay)

	return engine.Path{
		Points:     []engine.Vector{start, end},
		Length:     fakeLengths[cfg.Algorithm],
		Iterations: fakeIterations[cfg.Algorithm],
	}, nil
}

type fakeRaycaster struct {
	calls *int
	fail  bool
}

func (r fakeRaycaster) Raycast(_ context.Context, _, end engine.Vector) (engine.Hit, error) {
	*r.calls++
	if r.fail {
		return engine.Hit{}, errFake
	}

	return engine.Hit{Hit: true, Point: end}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// benchEngine times its own batches and reports a fixed 2ms per query
// without sleeping.
type benchEngine struct {
	*fakeEngine
	batches []int
}

func (b *benchEngine) BenchPath(
	_ context.Context,
	start, end engine.Vector,
	cfg engine.QueryConfig,
	trials int,
) (engine.PathBench, error) {
	b.batches = append(b.batches, trials)
	if b.failAlgo[cfg.Algorithm] {
		return engine.PathBench{}, errFake
	}

	return engine.PathBench{
		Path:       engine.Path{Points: []engine.Vector{start, end}, Length: fakeLengths[cfg.Algorithm]},
		Iterations: int64(trials) * fakeIterations[cfg.Algorithm],
		Elapsed:    time.Duration(trials) * 2 * time.Millisecond,
	}, nil
}

// benchRaycaster reports a fixed 3µs per raycast.
type benchRaycaster struct {
	fakeRaycaster
}

func (r benchRaycaster) BenchRaycast(_ context.Context, _, _ engine.Vector, trials int) (time.Duration, error) {
	*r.calls += trials
	if r.fail {
		return 0, errFake
	}

	return time.Duration(trials) * 3 * time.Microsecond, nil
}
