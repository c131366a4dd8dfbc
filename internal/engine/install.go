// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"birb-cli/internal/deps"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/seed"
)

// Install runs the full install transaction for pkg: resolve the dependency
// closure, install missing dependencies bottom-up, build into a staging tree
// and commit it to the link farm. It returns a Result for pkg itself; when a
// dependency fails, the Result is an abort carrying a DependencyFailedError.
//
// Invariants the implementation keeps: no registry mutation happens before
// the link farm commit succeeds (or the tree is absorbed), a declined
// confirmation leaves all state untouched, and a failed build or conflicting
// commit keeps the staging tree in place for inspection.
func (t *Transaction) Install(ctx context.Context, pkg string) Result {
	reinstall := false
	if t.Nest.IsInstalled(pkg) {
		switch {
		case t.Opts.SkipInstalled:
			t.Logger.Info("already installed, skipping", "package", pkg)
			return Result{Package: pkg, Outcome: OutcomeInstalled}
		case t.Opts.Force:
			reinstall = true
		default:
			ok, err := t.Confirm.Confirm(fmt.Sprintf("%s is already installed. Reinstall it?", pkg))
			if err != nil {
				return t.aborted(pkg, err)
			}
			if !ok {
				return t.cancelled(pkg, &AlreadyInstalledError{Pkg: pkg})
			}
			reinstall = true
		}
	}

	// A leftover staging tree means a previous transaction died between
	// build and commit. Its contents are unverified; start clean.
	if !reinstall && t.Store.Exists(pkg) {
		t.Logger.Warn("discarding stale staging tree", "package", pkg)
		if err := t.Store.Discard(pkg); err != nil {
			return t.aborted(pkg, err)
		}
	}

	// A forced reinstall rebuilds only the named package; its dependency
	// closure was satisfied at first install and is not re-validated.
	if !reinstall {
		if res, done := t.installDependencies(ctx, pkg); done {
			return res
		}
	}

	return t.installOne(ctx, pkg, reinstall)
}

// installDependencies resolves pkg's closure and installs the not-yet-
// installed members in dependency order. The returned Result is meaningful
// only when done is true, which signals that Install must return it instead
// of proceeding to pkg itself.
func (t *Transaction) installDependencies(ctx context.Context, pkg string) (Result, bool) {
	order, err := t.Resolver.Resolve(pkg)
	if err != nil {
		return t.aborted(pkg, err), true
	}

	missing := t.missingDependencies(order, pkg)
	if len(missing) == 0 {
		return Result{}, false
	}

	t.Logger.Info("dependencies to install", "package", pkg, "missing", missing)
	ok, err := t.Confirm.Confirm(fmt.Sprintf(
		"%s needs %d package(s): %s. Install them?",
		pkg, len(missing), strings.Join(missing, ", ")))
	if err != nil {
		return t.aborted(pkg, err), true
	}
	if !ok {
		return t.cancelled(pkg, nil), true
	}

	for _, dep := range missing {
		res := t.installOne(ctx, dep, false)
		if res.Failed() || res.Outcome == OutcomeCancelled {
			return Result{
				Package:   pkg,
				Outcome:   OutcomeAborted,
				Err:       &DependencyFailedError{Pkg: pkg, Dep: dep, Err: res.Err},
				Conflicts: res.Conflicts,
			}, true
		}
	}
	return Result{}, false
}

// missingDependencies filters pkg's resolved closure down to the members
// that still need installing, excluding pkg itself.
func (t *Transaction) missingDependencies(order []string, pkg string) []string {
	closure := make([]string, 0, len(order))
	for _, name := range order {
		if name != pkg {
			closure = append(closure, name)
		}
	}
	return deps.Missing(closure, t.Nest.IsInstalled)
}

// installOne builds and commits a single package whose dependencies are
// already satisfied.
func (t *Transaction) installOne(ctx context.Context, pkg string, reinstall bool) Result {
	sd, err := t.Sources.Load(pkg)
	if err != nil {
		return t.aborted(pkg, err)
	}

	if err := t.Source.Ensure(&sd.Spec); err != nil {
		return t.aborted(pkg, &SourceUnavailableError{Pkg: pkg, Err: err})
	}

	if err := t.Store.Discard(pkg); err != nil {
		return t.aborted(pkg, err)
	}
	staging, err := t.Store.Prepare(pkg)
	if err != nil {
		return t.aborted(pkg, err)
	}

	t.Logger.Info("building", "package", pkg, "version", sd.Spec.Version)
	if err := t.Builder.Build(ctx, sd, staging); err != nil {
		// Keep the tree: a partial build is the best post-mortem there is.
		return t.aborted(pkg, &BuildFailedError{Pkg: pkg, Err: err})
	}

	if t.Opts.RunTests && sd.Spec.Flags.Has(seed.FlagTest) {
		t.Logger.Info("running tests", "package", pkg)
		if err := t.Builder.Test(ctx, sd, staging); err != nil {
			return t.aborted(pkg, &TestFailedError{Pkg: pkg, Err: err})
		}
	}

	absorbed, err := t.Store.Finalize(pkg)
	if err != nil {
		return t.aborted(pkg, err)
	}
	if absorbed {
		// Nothing to link: the package installed entirely into other
		// packages' trees (headers, patches). Record it and stop.
		t.Logger.Info("staging tree fully absorbed", "package", pkg)
		if err := t.Nest.Register(pkg); err != nil {
			return t.aborted(pkg, err)
		}
		return Result{Package: pkg, Outcome: OutcomeAbsorbed}
	}

	if err := t.commit(pkg, reinstall); err != nil {
		res := t.aborted(pkg, err)
		if conflict, ok := err.(*ConflictAbort); ok {
			res.Err = conflict.Err
			res.Conflicts = conflict.Paths
		}
		return res
	}

	if sd.Spec.Flags.Has(seed.FlagFont) {
		if err := t.Hooks.RefreshFontCache(ctx); err != nil {
			t.Logger.Warn("font cache refresh failed", "err", err)
		}
	}

	if err := t.Nest.Register(pkg); err != nil {
		return t.aborted(pkg, err)
	}
	t.Logger.Info("installed", "package", pkg, "version", sd.Spec.Version)
	return Result{Package: pkg, Outcome: OutcomeInstalled}
}

// ConflictAbort wraps a link farm conflict with the live paths involved so
// the CLI layer can list them. The staging tree survives the abort.
type ConflictAbort struct {
	Pkg   string
	Paths []string
	Err   error
}

func (e *ConflictAbort) Error() string {
	return fmt.Sprintf("install %s: %d conflicting path(s) in the live tree", e.Pkg, len(e.Paths))
}

func (e *ConflictAbort) Unwrap() error { return e.Err }

// commit publishes pkg's staging tree into the live tree. A reinstall of a
// package whose links are already in place relinks unconditionally; a fresh
// install detects conflicts first and mutates nothing when any exist (unless
// overwrite is on, which clears them).
func (t *Transaction) commit(pkg string, reinstall bool) error {
	if reinstall {
		return t.Farm.Recommit(pkg)
	}
	if err := t.Farm.Commit(pkg, t.Opts.Overwrite); err != nil {
		var conflict *linkfarm.ConflictError
		if errors.As(err, &conflict) {
			return &ConflictAbort{Pkg: pkg, Paths: conflict.Paths, Err: err}
		}
		return err
	}
	return nil
}
