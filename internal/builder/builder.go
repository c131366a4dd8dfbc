// SPDX-License-Identifier: MPL-2.0

// Package builder runs seed build recipes. A recipe is the seed file
// itself: its _setup/_build/_test/_install functions are executed with the
// embedded mvdan/sh interpreter in a per-package build directory, with the
// staging tree exposed as $FAKEROOT. The transaction engine treats all of
// this as an opaque callback.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"birb-cli/internal/seed"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "builder",
})

// ShellBuilder executes seed phases with the embedded shell interpreter.
type ShellBuilder struct {
	// BuildDir is the parent of per-package build work directories.
	BuildDir string
	// DistfilesDir holds verified source archives, exposed as $DISTFILES.
	DistfilesDir string
	// Stdout and Stderr receive recipe output; nil means os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Build runs the seed's _setup, _build and _install phases in order,
// skipping phases the seed does not define. _install populates stagingDir.
func (b *ShellBuilder) Build(ctx context.Context, sd *seed.File, stagingDir string) error {
	return b.runPhases(ctx, sd, stagingDir, []string{seed.PhaseSetup, seed.PhaseBuild, seed.PhaseInstall})
}

// Test runs the seed's _test phase. The caller decides whether tests run at
// all; a seed without a _test phase is a no-op here.
func (b *ShellBuilder) Test(ctx context.Context, sd *seed.File, stagingDir string) error {
	return b.runPhases(ctx, sd, stagingDir, []string{seed.PhaseTest})
}

func (b *ShellBuilder) runPhases(ctx context.Context, sd *seed.File, stagingDir string, phases []string) error {
	src, err := os.ReadFile(sd.Path)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", sd.Path, err)
	}
	prog, err := syntax.NewParser().Parse(strings.NewReader(string(src)), sd.Path)
	if err != nil {
		return fmt.Errorf("parse seed %s: %w", sd.Path, err)
	}

	workDir := filepath.Join(b.BuildDir, sd.Spec.Name)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create build directory: %w", err)
	}

	stdout, stderr := b.Stdout, b.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expandEnv(sd, stagingDir, b.DistfilesDir)),
		interp.StdIO(nil, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("create shell interpreter: %w", err)
	}

	// Running the whole file first defines the phase functions (and any
	// helper variables the recipe declares) inside the runner.
	if err := runner.Run(ctx, prog); err != nil {
		return fmt.Errorf("evaluate seed %s: %w", sd.Path, err)
	}

	parser := syntax.NewParser()
	for _, phase := range phases {
		if !sd.HasPhase(phase) {
			logger.Debug("phase not defined, skipping", "package", sd.Spec.Name, "phase", phase)
			continue
		}
		call, err := parser.Parse(strings.NewReader(phase+"\n"), phase)
		if err != nil {
			return fmt.Errorf("prepare phase %s: %w", phase, err)
		}
		logger.Info("running phase", "package", sd.Spec.Name, "phase", phase)
		if err := runner.Run(ctx, call); err != nil {
			return fmt.Errorf("phase %s of %s: %w", phase, sd.Spec.Name, err)
		}
	}
	return nil
}

// expandEnv builds the recipe environment: the process environment plus the
// seed's identity and the transaction's directories.
func expandEnv(sd *seed.File, stagingDir, distfilesDir string) expand.Environ {
	pairs := append(os.Environ(),
		"NAME="+sd.Spec.Name,
		"VERSION="+sd.Spec.Version,
		"SOURCE="+sd.Spec.Source,
		"CHECKSUM="+sd.Spec.Checksum,
		"FAKEROOT="+stagingDir,
		"DISTFILES="+distfilesDir,
		"DISTFILE="+filepath.Join(distfilesDir, path.Base(sd.Spec.Source)),
	)
	return expand.ListEnviron(pairs...)
}
