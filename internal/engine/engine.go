// SPDX-License-Identifier: MPL-2.0

// Package engine implements the install and uninstall transactions. A
// Transaction is an immutable bundle of collaborators and options threaded
// through every step; there is no ambient state. One transaction runs at a
// time, guarded by the advisory lock in lock.go.
package engine

import (
	"context"
	"os"

	"birb-cli/internal/deps"
	"birb-cli/internal/fakeroot"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/nest"
	"birb-cli/internal/repo"
	"birb-cli/internal/seed"

	"github.com/charmbracelet/log"
)

type (
	// Builder is the external build callback: it turns a seed into a
	// populated staging tree, or fails. The engine never looks inside.
	Builder interface {
		Build(ctx context.Context, sd *seed.File, stagingDir string) error
		Test(ctx context.Context, sd *seed.File, stagingDir string) error
	}

	// SourceVerifier answers whether a seed's source archive is present
	// and verified. Fetching is out of the engine's hands entirely.
	SourceVerifier interface {
		Ensure(sd *seed.Spec) error
	}

	// Hooks are the external side effects some capability flags trigger.
	Hooks interface {
		RefreshFontCache(ctx context.Context) error
		RemovePythonPackage(ctx context.Context, name string) error
	}

	// Confirmer asks the operator to approve a step. A declined
	// confirmation is a normal exit path, never a fault.
	Confirmer interface {
		Confirm(question string) (bool, error)
		ConfirmTyped(question, token string) (bool, error)
	}

	// Options are the per-invocation switches from the CLI layer.
	Options struct {
		// Force reinstalls an already-installed package without prompting.
		Force bool
		// Overwrite deletes conflicting live paths instead of aborting.
		Overwrite bool
		// SkipInstalled turns "already installed" into a successful no-op.
		SkipInstalled bool
		// RunTests enables the optional test phase for packages that
		// declare one.
		RunTests bool
	}

	// Transaction carries everything a transaction may touch. Construct
	// one per CLI invocation and treat it as immutable.
	Transaction struct {
		Sources  repo.Set
		Nest     *nest.Registry
		Store    fakeroot.Store
		Farm     linkfarm.Farm
		Resolver *deps.Resolver
		Builder  Builder
		Source   SourceVerifier
		Hooks    Hooks
		Confirm  Confirmer
		Opts     Options
		Logger   *log.Logger
	}
)

// New assembles a Transaction over the given collaborators, wiring the
// resolver to the repository set.
func New(sources repo.Set, reg *nest.Registry, store fakeroot.Store, farm linkfarm.Farm,
	builder Builder, source SourceVerifier, hooks Hooks, confirm Confirmer, opts Options) *Transaction {
	return &Transaction{
		Sources:  sources,
		Nest:     reg,
		Store:    store,
		Farm:     farm,
		Resolver: deps.NewResolver(sources.Load),
		Builder:  builder,
		Source:   source,
		Hooks:    hooks,
		Confirm:  confirm,
		Opts:     opts,
		Logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "birb"}),
	}
}

// aborted builds an abort result. Every abort path leaves the registry
// untouched; callers rely on that.
func (t *Transaction) aborted(pkg string, err error) Result {
	return Result{Package: pkg, Outcome: OutcomeAborted, Err: err}
}

// cancelled builds an operator-cancellation result. State is exactly as it
// was before the transaction started.
func (t *Transaction) cancelled(pkg string, reason error) Result {
	return Result{Package: pkg, Outcome: OutcomeCancelled, Err: reason}
}
