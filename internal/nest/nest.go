// SPDX-License-Identifier: MPL-2.0

// Package nest persists the set of installed packages ("the nest"). The
// storage format is one package name per line, UTF-8, in install order.
// Membership in the nest is the only definition of "installed".
package nest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"birb-cli/internal/deps"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "nest",
})

type (
	// Registry is the in-memory view of the nest file. Mutations persist
	// immediately; the file is rewritten atomically via a temp file rename.
	Registry struct {
		path  string
		order []string
		set   map[string]bool
	}

	// NotInstalledError reports an uninstall attempt for a package the nest
	// does not contain.
	NotInstalledError struct {
		Name string
	}
)

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("package %q is not installed", e.Name)
}

// Open loads the nest file at path. A missing file yields an empty registry;
// duplicate lines are collapsed (first occurrence wins) and rewritten away on
// the next mutation.
func Open(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		set:  make(map[string]bool),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read nest file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" || r.set[name] {
			continue
		}
		r.set[name] = true
		r.order = append(r.order, name)
	}
	return r, nil
}

// IsInstalled reports nest membership for name.
func (r *Registry) IsInstalled(name string) bool {
	return r.set[name]
}

// Names returns the installed package names in install order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Register adds name to the nest. Registering an already-registered name is
// a no-op; the nest never holds duplicates.
func (r *Registry) Register(name string) error {
	if r.set[name] {
		return nil
	}
	r.set[name] = true
	r.order = append(r.order, name)
	return r.persist()
}

// Unregister removes name from the nest. Removing an absent name is a no-op
// so defensive cleanup never fails; uninstall guards membership beforehand.
func (r *Registry) Unregister(name string) error {
	if !r.set[name] {
		return nil
	}
	delete(r.set, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
	return r.persist()
}

// ReverseDependents returns the installed packages whose dependency closure
// contains name, in install order. Installed packages whose seeds can no
// longer be resolved are skipped with a log line rather than failing the
// whole scan, so one broken repository entry cannot block unrelated
// uninstalls.
func (r *Registry) ReverseDependents(name string, resolver *deps.Resolver) []string {
	var dependents []string
	for _, pkg := range r.order {
		if pkg == name {
			continue
		}
		closure, err := resolver.Resolve(pkg)
		if err != nil {
			logger.Warn("skipping unresolvable installed package in dependents scan",
				"package", pkg, "error", err)
			continue
		}
		if slices.Contains(closure, name) {
			dependents = append(dependents, pkg)
		}
	}
	return dependents
}

// persist rewrites the nest file atomically.
func (r *Registry) persist() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create nest directory: %w", err)
	}

	var sb strings.Builder
	for _, name := range r.order {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write nest file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace nest file: %w", err)
	}
	return nil
}
