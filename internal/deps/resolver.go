// SPDX-License-Identifier: MPL-2.0

// Package deps computes transitive dependency closures over declared
// package dependencies. The resolver walks the declared-dependency relation
// depth-first and emits names in post-order, so every dependency precedes
// the packages that depend on it.
package deps

import (
	"errors"
	"fmt"
	"strings"

	"birb-cli/internal/repo"
	"birb-cli/internal/seed"
)

type (
	// CycleError indicates that the dependency graph contains a cycle,
	// preventing a safe install order.
	CycleError struct {
		// Cycle contains the nodes that form the cycle, in walk order,
		// closed on the repeated node (e.g. [x y x]).
		Cycle []string
	}

	// SolverError wraps a resolver-internal failure, such as an unreadable
	// or malformed declaration encountered mid-walk.
	SolverError struct {
		Pkg string
		Err error
	}

	// LookupFunc resolves a package name to its parsed seed. It must return
	// *repo.MissingPackageError for names no repository can satisfy.
	LookupFunc func(name string) (*seed.File, error)

	// Resolver computes install-ordered dependency closures.
	Resolver struct {
		lookup LookupFunc
		// cache memoizes seed loads within this resolver's lifetime. The
		// uninstall-time reverse-dependents scan resolves every installed
		// package; without memoization that scan re-reads the same seeds
		// once per dependent.
		cache map[string]*seed.File
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("resolving dependencies of %q: %v", e.Pkg, e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// NewResolver creates a Resolver over the given lookup function.
func NewResolver(lookup LookupFunc) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  make(map[string]*seed.File),
	}
}

// Resolve returns the full transitive dependency closure of root, ordered so
// every dependency appears before its dependents; root itself is always the
// final element. Installed state is not consulted; callers subtract it with
// Missing.
func (r *Resolver) Resolve(root string) ([]string, error) {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var order []string
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return &CycleError{Cycle: closeCycle(stack, name)}
		}

		visiting[name] = true
		stack = append(stack, name)

		sd, err := r.load(name)
		if err != nil {
			return err
		}
		for _, dep := range sd.Spec.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, name)
		visited[name] = true
		order = append(order, name)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// Missing filters an install order down to the names the given predicate
// does not consider installed, preserving the resolver's ordering.
func Missing(order []string, installed func(name string) bool) []string {
	var missing []string
	for _, name := range order {
		if !installed(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// load fetches a seed via the lookup function, memoizing results. Missing
// packages pass through untouched so callers can match on the concrete
// error type; anything else is a solver-internal failure.
func (r *Resolver) load(name string) (*seed.File, error) {
	if sd, ok := r.cache[name]; ok {
		return sd, nil
	}
	sd, err := r.lookup(name)
	if err != nil {
		var missing *repo.MissingPackageError
		if errors.As(err, &missing) {
			return nil, err
		}
		return nil, &SolverError{Pkg: name, Err: err}
	}
	r.cache[name] = sd
	return sd, nil
}

// closeCycle trims the walk stack to the segment starting at the repeated
// node and closes it on that node.
func closeCycle(stack []string, repeat string) []string {
	for i, name := range stack {
		if name == repeat {
			cycle := make([]string, 0, len(stack)-i+1)
			cycle = append(cycle, stack[i:]...)
			return append(cycle, repeat)
		}
	}
	return []string{repeat, repeat}
}
