// SPDX-License-Identifier: MPL-2.0

package engine

// Outcome is a transaction's terminal state.
type Outcome int

const (
	// OutcomeInstalled: the package was built, linked and registered (or
	// was already installed in skip-installed mode).
	OutcomeInstalled Outcome = iota + 1
	// OutcomeAbsorbed: registered, but the package owns no files — its
	// staging tree was empty after pruning.
	OutcomeAbsorbed
	// OutcomeCancelled: the operator declined a confirmation; all state is
	// exactly as it was before the transaction started.
	OutcomeCancelled
	// OutcomeAborted: a step failed; the registry was not touched.
	OutcomeAborted
	// OutcomeUninstalled: the package was unlinked and unregistered.
	OutcomeUninstalled
	// OutcomeNotInstalled: an uninstall was requested for a package absent
	// from the nest.
	OutcomeNotInstalled
)

// Result is the structured outcome of one transaction.
type Result struct {
	// Package is the transaction's target.
	Package string
	// Outcome is the terminal state.
	Outcome Outcome
	// Err is the abort or cancellation reason; nil on success.
	Err error
	// Conflicts lists the contended live paths when a conflict aborted the
	// install.
	Conflicts []string
}

// Failed reports whether the transaction ended in a fault (as opposed to
// success or an operator cancellation).
func (r Result) Failed() bool {
	return r.Outcome == OutcomeAborted || r.Outcome == OutcomeNotInstalled
}

func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "installed"
	case OutcomeAbsorbed:
		return "absorbed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAborted:
		return "aborted"
	case OutcomeUninstalled:
		return "uninstalled"
	case OutcomeNotInstalled:
		return "not installed"
	default:
		return "unknown"
	}
}
