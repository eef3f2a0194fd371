package engine

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "NAVBENCH_HELPER_ENGINE"

// TestHelperEngine is not a real test: it is the child process that the
// Process tests launch, acting as a minimal engine.
func TestHelperEngine(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	serveFakeEngine(os.Stdin, os.Stdout)
	os.Exit(0)
}

func serveFakeEngine(r io.Reader, w io.Writer) {
	resolution := 100.0
	dec := json.NewDecoder(bufio.NewReader(r))
	enc := json.NewEncoder(w)

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}

		resp := Response{OK: true}

		switch req.Op {
		case OpResolution:
			resp.Resolution = resolution
		case OpSetResolution:
			resolution = req.Resolution
		case OpRebuild:
		case OpExtent:
			resp.Extent = 1024
		case OpFindPath:
			if req.Query.HeuristicScale < 0 {
				resp = Response{Error: "negative heuristic scale"}

				break
			}

			resp.Points = []Vector{*req.Start, *req.End}
			resp.Length = req.Start.Dist(*req.End)
			resp.Iterations = int64(req.Query.Algorithm) + 10
		case OpRaycast:
			resp.Hit = req.Mode == ModeOctree
			resp.Point = req.End
		case OpBenchPath:
			// The queries themselves are free, so the batch costs only
			// the loop.
			start := time.Now()
			for range req.Trials {
				resp.Iterations += int64(req.Query.Algorithm) + 10
			}
			resp.ElapsedNS = time.Since(start).Nanoseconds()
			resp.Points = []Vector{*req.Start, *req.End}
			resp.Length = req.Start.Dist(*req.End)
		case OpBenchRaycast:
			if req.Trials < 1 {
				resp = Response{Error: "no trials"}

				break
			}

			start := time.Now()
			for range req.Trials {
				resp.Hit = req.Mode == ModeOctree
			}
			resp.ElapsedNS = time.Since(start).Nanoseconds()
		case OpShutdown:
			return
		default:
			resp = Response{Error: "unknown op " + req.Op}
		}

		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHelper(t *testing.T) *Process {
	t.Helper()

	p := NewProcess(
		"helper",
		os.Args[0],
		[]string{"-test.run=^TestHelperEngine$"},
		[]string{helperEnv + "=1"},
		discardLogger(),
	)
	require.NoError(t, p.Start(t.Context()))

	t.Cleanup(func() { _ = p.Close() })

	return p
}

func TestProcessBuilder(t *testing.T) {
	p := startHelper(t)
	ctx := t.Context()

	res, err := p.Resolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res)

	require.NoError(t, p.SetResolution(ctx, 32))
	res, err = p.Resolution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 32.0, res)

	require.NoError(t, p.Rebuild(ctx))

	extent, err := p.Extent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1024.0, extent)
}

func TestProcessFindPath(t *testing.T) {
	p := startHelper(t)

	path, err := p.FindPath(t.Context(),
		Vector{0, 0, 0}, Vector{0, 3, 4},
		QueryConfig{Algorithm: ThetaStar, HeuristicScale: 1},
	)
	require.NoError(t, err)

	assert.Equal(t, []Vector{{0, 0, 0}, {0, 3, 4}}, path.Points)
	assert.Equal(t, 5.0, path.Length)
	assert.Equal(t, int64(12), path.Iterations)
}

func TestProcessEngineError(t *testing.T) {
	p := startHelper(t)

	_, err := p.FindPath(t.Context(),
		Vector{}, Vector{1, 0, 0},
		QueryConfig{HeuristicScale: -1},
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEngine))
	assert.Contains(t, err.Error(), "negative heuristic scale")

	// The process stays usable after an engine-reported failure.
	_, err = p.Extent(t.Context())
	assert.NoError(t, err)
}

func TestProcessRaycasters(t *testing.T) {
	p := startHelper(t)
	end := Vector{5, 5, 5}

	hit, err := p.Octree().Raycast(t.Context(), Vector{}, end)
	require.NoError(t, err)
	assert.True(t, hit.Hit)
	assert.Equal(t, end, hit.Point)

	hit, err = p.Physics().Raycast(t.Context(), Vector{}, end)
	require.NoError(t, err)
	assert.False(t, hit.Hit)
}

func TestProcessBenchPath(t *testing.T) {
	p := startHelper(t)

	bench, err := p.BenchPath(t.Context(),
		Vector{0, 0, 0}, Vector{0, 3, 4},
		QueryConfig{Algorithm: AStar, HeuristicScale: 1},
		50,
	)
	require.NoError(t, err)

	assert.Equal(t, 5.0, bench.Path.Length)
	assert.Equal(t, int64(50*10), bench.Iterations)
	assert.Less(t, bench.Elapsed/50, time.Microsecond)
}

// A zero-work engine reports close to zero time per raycast: the pipe
// round trip falls outside the engine's clock.
func TestProcessBenchRaycastExcludesTransport(t *testing.T) {
	p := startHelper(t)
	const trials = 200

	for _, rc := range []Raycaster{p.Octree(), p.Physics()} {
		b, ok := rc.(RaycastBencher)
		require.True(t, ok)

		elapsed, err := b.BenchRaycast(t.Context(), Vector{}, Vector{5, 5, 5}, trials)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		assert.Less(t, elapsed/trials, time.Microsecond)
	}
}

func TestProcessBenchRaycastClampsTrials(t *testing.T) {
	p := startHelper(t)

	b, ok := p.Octree().(RaycastBencher)
	require.True(t, ok)

	_, err := b.BenchRaycast(t.Context(), Vector{}, Vector{1, 0, 0}, 0)
	assert.NoError(t, err)
}

func TestProcessClose(t *testing.T) {
	p := startHelper(t)

	require.NoError(t, p.Close())

	_, err := p.Extent(t.Context())
	assert.ErrorIs(t, err, ErrNotStarted)

	// Closing twice is harmless.
	assert.NoError(t, p.Close())
}

func TestProcessNotStarted(t *testing.T) {
	p := NewProcess("idle", "/nonexistent", nil, nil, discardLogger())

	_, err := p.Resolution(t.Context())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestProcessStartMissingBinary(t *testing.T) {
	p := NewProcess("missing", "/nonexistent/engine", nil, nil, discardLogger())

	assert.Error(t, p.Start(t.Context()))
}
