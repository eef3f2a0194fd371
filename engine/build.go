package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandConfig holds the resolved command, extra arguments, and
// environment variables needed to run an engine binary.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
	Env       []string
}

// ResolveCommand returns the exec configuration for an engine binary.
// Jar files run under java -jar; anything else runs directly. args are
// appended after any wrapper arguments.
func ResolveCommand(binPath string, args, env []string) CommandConfig {
	if strings.EqualFold(filepath.Ext(binPath), ".jar") {
		return CommandConfig{
			Binary:    "java",
			ExtraArgs: append([]string{"-jar", binPath}, args...),
			Env:       env,
		}
	}

	return CommandConfig{Binary: binPath, ExtraArgs: args, Env: env}
}

// Build compiles the engine found in srcDir and returns the binary path.
// Go sources (go.mod) are built to binPath with go build. Rust sources
// (Cargo.toml) are built with cargo build --release, and binPath must
// name the artifact cargo produces.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	srcDir string,
	binPath string,
) (string, error) {
	logger.InfoContext(ctx, "building engine",
		slog.String("source_dir", srcDir),
	)

	var cmd *exec.Cmd

	switch {
	case fileExists(filepath.Join(srcDir, "go.mod")):
		absBin, err := filepath.Abs(binPath)
		if err != nil {
			return "", fmt.Errorf("resolve engine binary path: %w", err)
		}

		binPath = absBin
		cmd = exec.CommandContext(ctx, "go", "build", "-o", binPath, ".")

	case fileExists(filepath.Join(srcDir, "Cargo.toml")):
		cmd = exec.CommandContext(ctx, "cargo", "build", "--release")

	default:
		return "", fmt.Errorf("no go.mod or Cargo.toml in %s", srcDir)
	}

	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build engine in %s: %w", srcDir, err)
	}

	if !fileExists(binPath) {
		return "", fmt.Errorf(
			"build engine in %s: binary not found at %s", srcDir, binPath,
		)
	}

	logger.InfoContext(ctx, "engine built",
		slog.String("binary", binPath),
	)

	return binPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
