// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"birb-cli/internal/builder"
	"birb-cli/internal/config"
	"birb-cli/internal/engine"
	"birb-cli/internal/fakeroot"
	"birb-cli/internal/hooks"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/nest"
	"birb-cli/internal/repo"
	"birb-cli/internal/tui"

	"github.com/charmbracelet/log"
)

// App is the composition root for the CLI layer: it loads configuration and
// assembles the collaborators a transaction needs. Cobra handlers build one
// App per invocation and delegate through it.
type App struct {
	Config *config.Config
	stdout io.Writer
	stderr io.Writer
}

// newApp loads configuration and wires the output streams.
func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.UI.Verbose = true
	}
	return &App{Config: cfg, stdout: os.Stdout, stderr: os.Stderr}, nil
}

// sources loads the configured repository set.
func (a *App) sources() (repo.Set, error) {
	return repo.LoadSet(a.Config.SourcesPath)
}

// transaction assembles a fully wired transaction over the production
// collaborators: real repositories, the on-disk nest, a shell-interpreting
// builder, and an interactive prompter.
func (a *App) transaction(opts engine.Options, assumeYes bool) (*engine.Transaction, error) {
	sources, err := a.sources()
	if err != nil {
		return nil, err
	}
	reg, err := nest.Open(a.Config.NestPath)
	if err != nil {
		return nil, err
	}

	store := fakeroot.Store{Root: a.Config.FakerootDir}
	farm := linkfarm.Farm{Store: store, LiveRoot: a.Config.LinkRoot}
	shellBuilder := &builder.ShellBuilder{
		BuildDir:     a.Config.BuildDir,
		DistfilesDir: a.Config.DistfilesDir,
		Stdout:       a.stdout,
		Stderr:       a.stderr,
	}
	verifier := builder.DistfileVerifier{Dir: a.Config.DistfilesDir}
	prompter := &tui.Prompter{
		In:        os.Stdin,
		Out:       a.stdout,
		AssumeYes: assumeYes || a.Config.AssumeYes,
	}

	tx := engine.New(sources, reg, store, farm, shellBuilder, verifier, hooks.ExecRunner{}, prompter, opts)
	if a.Config.UI.Verbose {
		tx.Logger.SetLevel(log.DebugLevel)
	}
	return tx, nil
}

// lockPath places the transaction lock file next to the nest so it lives on
// the same filesystem as the state it guards.
func (a *App) lockPath() string {
	return filepath.Join(filepath.Dir(a.Config.NestPath), "birb.lock")
}

// acquireLock takes the transaction lock, turning a held lock into operator
// guidance plus a non-zero exit.
func (a *App) acquireLock() (*engine.TransactionLock, error) {
	lock, err := engine.AcquireLock(a.lockPath())
	if err != nil {
		renderGuidance(a.stderr, err)
		return nil, &ExitError{Code: 1, Err: err}
	}
	return lock, nil
}

// registry opens the nest for read-only commands.
func (a *App) registry() (*nest.Registry, error) {
	reg, err := nest.Open(a.Config.NestPath)
	if err != nil {
		return nil, fmt.Errorf("open nest: %w", err)
	}
	return reg, nil
}
