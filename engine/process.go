package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ErrEngine wraps failures reported by the engine itself.
var ErrEngine = errors.New("engine error")

// ErrNotStarted is returned by calls made before Start or after Close.
var ErrNotStarted = errors.New("engine process not started")

// Process drives a navigation engine running as a child process. It
// implements Builder, PathFinder and PathBencher; Octree and Physics return
// its two Raycasters, which are also RaycastBenchers. Calls are serialised
// over the process's stdin and stdout.
type Process struct {
	Name       string
	BinaryPath string
	ExtraArgs  []string
	Env        []string
	Logger     *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	enc     *json.Encoder
	dec     *json.Decoder
	stderr  *lockedBuffer
	started time.Time
}

// NewProcess creates a Process for the named engine. Env is appended to
// the inherited environment.
func NewProcess(
	name, binaryPath string,
	extraArgs, env []string,
	logger *slog.Logger,
) *Process {
	return &Process{
		Name:       name,
		BinaryPath: binaryPath,
		ExtraArgs:  extraArgs,
		Env:        env,
		Logger:     logger.With(slog.String("engine", name)),
	}
}

// Start launches the engine binary. The process is killed if ctx is
// cancelled before Close.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("engine %s already started", p.Name)
	}

	cmd := exec.CommandContext(ctx, p.BinaryPath, p.ExtraArgs...)

	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("engine %s stdin: %w", p.Name, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("engine %s stdout: %w", p.Name, err)
	}

	p.stderr = &lockedBuffer{}
	cmd.Stderr = p.stderr

	p.Logger.InfoContext(ctx, "starting engine",
		slog.String("binary", p.BinaryPath),
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start engine %s: %w", p.Name, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.enc = json.NewEncoder(stdin)
	p.dec = json.NewDecoder(stdout)
	p.started = time.Now()

	return nil
}

// Close asks the engine to shut down and waits for it to exit.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}

	// The engine may already be gone; Wait reports the real outcome.
	_ = p.enc.Encode(Request{Op: OpShutdown})
	_ = p.stdin.Close()

	err := p.cmd.Wait()

	p.Logger.Info("engine stopped",
		slog.Duration("uptime", time.Since(p.started)),
	)

	p.cmd = nil

	if err != nil {
		return fmt.Errorf("engine %s exited: %w\nstderr: %s",
			p.Name, err, p.stderr.String())
	}

	return nil
}

func (p *Process) call(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return Response{}, ErrNotStarted
	}

	if err := p.enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("send %s to %s: %w", req.Op, p.Name, err)
	}

	var resp Response
	if err := p.dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf(
			"read %s reply from %s: %w\nstderr: %s",
			req.Op, p.Name, err, p.stderr.String(),
		)
	}

	if !resp.OK {
		return Response{}, fmt.Errorf("%w: %s: %s", ErrEngine, req.Op, resp.Error)
	}

	return resp, nil
}

// Resolution implements Builder.
func (p *Process) Resolution(ctx context.Context) (float64, error) {
	resp, err := p.call(ctx, Request{Op: OpResolution})
	if err != nil {
		return 0, err
	}

	return resp.Resolution, nil
}

// SetResolution implements Builder.
func (p *Process) SetResolution(ctx context.Context, resolution float64) error {
	_, err := p.call(ctx, Request{Op: OpSetResolution, Resolution: resolution})

	return err
}

// Rebuild implements Builder.
func (p *Process) Rebuild(ctx context.Context) error {
	_, err := p.call(ctx, Request{Op: OpRebuild})

	return err
}

// Extent implements Builder.
func (p *Process) Extent(ctx context.Context) (float64, error) {
	resp, err := p.call(ctx, Request{Op: OpExtent})
	if err != nil {
		return 0, err
	}

	return resp.Extent, nil
}

// FindPath implements PathFinder.
func (p *Process) FindPath(
	ctx context.Context,
	start, end Vector,
	cfg QueryConfig,
) (Path, error) {
	resp, err := p.call(ctx, Request{
		Op:    OpFindPath,
		Start: &start,
		End:   &end,
		Query: &cfg,
	})
	if err != nil {
		return Path{}, err
	}

	return Path{
		Points:     resp.Points,
		Length:     resp.Length,
		Iterations: resp.Iterations,
	}, nil
}

// BenchPath implements PathBencher. Fewer than one trial counts as one.
func (p *Process) BenchPath(
	ctx context.Context,
	start, end Vector,
	cfg QueryConfig,
	trials int,
) (PathBench, error) {
	resp, err := p.call(ctx, Request{
		Op:     OpBenchPath,
		Start:  &start,
		End:    &end,
		Query:  &cfg,
		Trials: max(trials, 1),
	})
	if err != nil {
		return PathBench{}, err
	}

	return PathBench{
		Path: Path{
			Points: resp.Points,
			Length: resp.Length,
		},
		Iterations: resp.Iterations,
		Elapsed:    time.Duration(resp.ElapsedNS),
	}, nil
}

// Octree returns the engine's native structure raycaster.
func (p *Process) Octree() Raycaster { return processRaycaster{p, ModeOctree} }

// Physics returns the engine's physics line trace, used as a baseline.
func (p *Process) Physics() Raycaster { return processRaycaster{p, ModePhysics} }

var (
	_ PathBencher    = (*Process)(nil)
	_ RaycastBencher = processRaycaster{}
)

type processRaycaster struct {
	p    *Process
	mode string
}

func (r processRaycaster) Raycast(ctx context.Context, start, end Vector) (Hit, error) {
	resp, err := r.p.call(ctx, Request{
		Op:    OpRaycast,
		Mode:  r.mode,
		Start: &start,
		End:   &end,
	})
	if err != nil {
		return Hit{}, err
	}

	hit := Hit{Hit: resp.Hit}
	if resp.Point != nil {
		hit.Point = *resp.Point
	}

	return hit, nil
}

func (r processRaycaster) BenchRaycast(
	ctx context.Context,
	start, end Vector,
	trials int,
) (time.Duration, error) {
	resp, err := r.p.call(ctx, Request{
		Op:     OpBenchRaycast,
		Mode:   r.mode,
		Start:  &start,
		End:    &end,
		Trials: max(trials, 1),
	})
	if err != nil {
		return 0, err
	}

	return time.Duration(resp.ElapsedNS), nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}
