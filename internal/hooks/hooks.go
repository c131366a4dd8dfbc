// SPDX-License-Identifier: MPL-2.0

// Package hooks runs the external side effects that some packages declare:
// font cache refresh after (un)installing a font, and the python ecosystem
// removal tool on uninstall. Hooks are side effects, not transaction steps;
// failures are logged, never fatal.
package hooks

import (
	"context"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "hooks",
})

// Runner executes the external hook commands. The engine talks to this
// interface so tests can observe hook invocations without a system to
// mutate.
type Runner interface {
	// RefreshFontCache rebuilds the system font cache.
	RefreshFontCache(ctx context.Context) error
	// RemovePythonPackage uninstalls name from the python ecosystem's own
	// package state.
	RemovePythonPackage(ctx context.Context, name string) error
}

// ExecRunner runs the real system tools.
type ExecRunner struct{}

// RefreshFontCache runs fc-cache to rebuild font caches.
func (ExecRunner) RefreshFontCache(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "fc-cache", "-f")
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Warn("font cache refresh failed", "error", err, "output", string(out))
		return err
	}
	return nil
}

// RemovePythonPackage asks pip to forget the package. Best-effort: pip may
// legitimately not know the name when the seed installed via other means.
func (ExecRunner) RemovePythonPackage(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "pip3", "uninstall", "--yes", name)
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Warn("python package removal failed", "package", name, "error", err, "output", string(out))
		return err
	}
	return nil
}
