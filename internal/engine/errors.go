// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"fmt"
	"strings"
)

type (
	// SourceUnavailableError reports that a package's source archive could
	// not be verified as present and intact.
	SourceUnavailableError struct {
		Pkg string
		Err error
	}

	// BuildFailedError reports a failed build callback. The staging tree is
	// deliberately left behind for post-mortem inspection.
	BuildFailedError struct {
		Pkg string
		Err error
	}

	// TestFailedError reports a failed test phase; the install aborted
	// before anything was linked.
	TestFailedError struct {
		Pkg string
		Err error
	}

	// DependencyFailedError propagates a failed dependency install as the
	// parent transaction's own abort reason.
	DependencyFailedError struct {
		Pkg string
		Dep string
		Err error
	}

	// AlreadyInstalledError is the cancellation reason when the operator
	// declines a force-reinstall of an installed package.
	AlreadyInstalledError struct {
		Pkg string
	}

	// ProtectedDeclinedError is the cancellation reason when the operator
	// does not complete the high-friction confirmation for a protected
	// package.
	ProtectedDeclinedError struct {
		Pkg string
	}

	// DependentsDeclinedError is the cancellation reason when the operator
	// declines to break the listed reverse dependents.
	DependentsDeclinedError struct {
		Pkg        string
		Dependents []string
	}
)

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source for %s unavailable: %v", e.Pkg, e.Err)
}
func (e *SourceUnavailableError) Unwrap() error { return e.Err }

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build of %s failed: %v", e.Pkg, e.Err)
}
func (e *BuildFailedError) Unwrap() error { return e.Err }

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("tests of %s failed: %v", e.Pkg, e.Err)
}
func (e *TestFailedError) Unwrap() error { return e.Err }

func (e *DependencyFailedError) Error() string {
	return fmt.Sprintf("installing %s: dependency %s failed: %v", e.Pkg, e.Dep, e.Err)
}
func (e *DependencyFailedError) Unwrap() error { return e.Err }

func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("%s is already installed; reinstall declined", e.Pkg)
}

func (e *ProtectedDeclinedError) Error() string {
	return fmt.Sprintf("%s is protected; uninstall declined", e.Pkg)
}

func (e *DependentsDeclinedError) Error() string {
	return fmt.Sprintf("uninstalling %s would break %s; declined", e.Pkg, strings.Join(e.Dependents, ", "))
}
