// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"strings"

	"birb-cli/internal/nest"
	"birb-cli/internal/seed"
)

// Uninstall removes pkg from the live tree, the staging store and the
// registry. Protected packages require a typed confirmation, and packages
// other installed packages depend on require an explicit acknowledgement.
// Both confirmations are hard gates: a decline cancels with nothing changed.
func (t *Transaction) Uninstall(ctx context.Context, pkg string) Result {
	if !t.Nest.IsInstalled(pkg) {
		return Result{Package: pkg, Outcome: OutcomeNotInstalled, Err: &nest.NotInstalledError{Name: pkg}}
	}

	// The seed drives the capability hooks below. Refusing to proceed
	// without it beats silently skipping a protection gate.
	sd, err := t.Sources.Load(pkg)
	if err != nil {
		return t.aborted(pkg, err)
	}

	if sd.Spec.Flags.Has(seed.FlagImportant) {
		ok, err := t.Confirm.ConfirmTyped(fmt.Sprintf(
			"%s is marked important; removing it may break the system.", pkg), pkg)
		if err != nil {
			return t.aborted(pkg, err)
		}
		if !ok {
			return t.cancelled(pkg, &ProtectedDeclinedError{Pkg: pkg})
		}
	}

	if dependents := t.Nest.ReverseDependents(pkg, t.Resolver); len(dependents) > 0 {
		t.Logger.Warn("installed packages depend on this one", "package", pkg, "dependents", dependents)
		ok, err := t.Confirm.Confirm(fmt.Sprintf(
			"%d installed package(s) depend on %s: %s. Remove it anyway?",
			len(dependents), pkg, strings.Join(dependents, ", ")))
		if err != nil {
			return t.aborted(pkg, err)
		}
		if !ok {
			return t.cancelled(pkg, &DependentsDeclinedError{Pkg: pkg, Dependents: dependents})
		}
	}

	if sd.Spec.Flags.Has(seed.FlagPython) {
		if err := t.Hooks.RemovePythonPackage(ctx, pkg); err != nil {
			t.Logger.Warn("pip removal failed", "package", pkg, "err", err)
		}
	}

	if err := t.Farm.Remove(pkg); err != nil {
		return t.aborted(pkg, err)
	}
	if err := t.Store.Discard(pkg); err != nil {
		return t.aborted(pkg, err)
	}

	if sd.Spec.Flags.Has(seed.FlagFont) {
		if err := t.Hooks.RefreshFontCache(ctx); err != nil {
			t.Logger.Warn("font cache refresh failed", "err", err)
		}
	}

	if err := t.Nest.Unregister(pkg); err != nil {
		return t.aborted(pkg, err)
	}
	t.Logger.Info("uninstalled", "package", pkg)
	return Result{Package: pkg, Outcome: OutcomeUninstalled}
}
