// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"birb-cli/internal/deps"
	"birb-cli/internal/engine"
	"birb-cli/internal/issue"
	"birb-cli/internal/linkfarm"
	"birb-cli/internal/nest"
	"birb-cli/internal/repo"
	"birb-cli/internal/seed"
)

// issueFor maps a transaction error to its operator guidance document. The
// match walks the wrap chain, so an install abort caused by a dependency's
// build failure still lands on the build guidance.
func issueFor(err error) *issue.Issue {
	var (
		missingPkg  *repo.MissingPackageError
		invalidSeed *seed.InvalidSpecError
		cycle       *deps.CycleError
		srcErr      *engine.SourceUnavailableError
		buildErr    *engine.BuildFailedError
		testErr     *engine.TestFailedError
		conflict    *linkfarm.ConflictError
		notInst     *nest.NotInstalledError
		protected   *engine.ProtectedDeclinedError
		lockHeld    *engine.LockHeldError
	)
	switch {
	case errors.As(err, &missingPkg):
		return issue.Get(issue.MissingPackageId)
	case errors.As(err, &invalidSeed):
		return issue.Get(issue.InvalidSeedId)
	case errors.As(err, &cycle):
		return issue.Get(issue.DependencyCycleId)
	case errors.As(err, &srcErr):
		return issue.Get(issue.SourceUnavailableId)
	case errors.As(err, &buildErr):
		return issue.Get(issue.BuildFailedId)
	case errors.As(err, &testErr):
		return issue.Get(issue.TestFailedId)
	case errors.As(err, &conflict):
		return issue.Get(issue.LinkConflictId)
	case errors.As(err, &notInst):
		return issue.Get(issue.NotInstalledId)
	case errors.As(err, &protected):
		return issue.Get(issue.ProtectedPackageId)
	case errors.As(err, &lockHeld):
		return issue.Get(issue.LockHeldId)
	}
	return nil
}

// renderGuidance prints the markdown guidance for err, when any exists.
func renderGuidance(w io.Writer, err error) {
	is := issueFor(err)
	if is == nil {
		return
	}
	rendered, renderErr := is.Render("dark")
	if renderErr != nil {
		return
	}
	fmt.Fprint(w, rendered)
}

// reportResult prints one status line per finished transaction and any
// failure detail that helps the operator act on it.
func reportResult(w io.Writer, res engine.Result) {
	switch res.Outcome {
	case engine.OutcomeInstalled:
		fmt.Fprintf(w, "%s %s installed\n", SuccessStyle.Render("✓"), PkgStyle.Render(res.Package))
	case engine.OutcomeAbsorbed:
		fmt.Fprintf(w, "%s %s installed (no files to link)\n", SuccessStyle.Render("✓"), PkgStyle.Render(res.Package))
	case engine.OutcomeUninstalled:
		fmt.Fprintf(w, "%s %s uninstalled\n", SuccessStyle.Render("✓"), PkgStyle.Render(res.Package))
	case engine.OutcomeCancelled:
		fmt.Fprintf(w, "%s cancelled, nothing changed\n", WarningStyle.Render("!"))
	case engine.OutcomeNotInstalled:
		fmt.Fprintf(w, "%s %s is not installed\n", WarningStyle.Render("!"), PkgStyle.Render(res.Package))
	case engine.OutcomeAborted:
		fmt.Fprintf(w, "%s %s: %v\n", ErrorStyle.Render("✗"), PkgStyle.Render(res.Package), res.Err)
		for _, path := range res.Conflicts {
			fmt.Fprintf(w, "  conflicts with %s\n", path)
		}
	}
}
