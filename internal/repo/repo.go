// SPDX-License-Identifier: MPL-2.0

// Package repo models the ordered set of package repositories a birb
// installation searches. A repository is a local directory laid out as
// <path>/<package>/seed.sh; the set's declaration order is its priority.
package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"birb-cli/internal/seed"

	"github.com/pelletier/go-toml/v2"
)

type (
	// Source is one package repository.
	Source struct {
		// Name identifies the repository in diagnostics.
		Name string `toml:"name"`
		// URL is the upstream the local checkout mirrors.
		URL string `toml:"url"`
		// Path is the local directory containing the repository layout.
		Path string `toml:"path"`
	}

	// Set is an ordered list of sources. Lookups return the first match.
	Set []Source

	// MissingPackageError reports a package name absent from every source.
	MissingPackageError struct {
		Name string
	}

	sourcesFile struct {
		Sources []Source `toml:"source"`
	}
)

const seedFileName = "seed.sh"

func (e *MissingPackageError) Error() string {
	return fmt.Sprintf("package %q was not found in any repository", e.Name)
}

// IsValid reports whether the source carries any identifying information.
func (s Source) IsValid() bool {
	return s.Name != "" || s.URL != "" || s.Path != ""
}

// LoadSet reads the repository set from a TOML file of ordered [[source]]
// tables. Declaration order is preserved and defines lookup priority.
func LoadSet(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	for i, s := range f.Sources {
		if s.Path == "" {
			return nil, fmt.Errorf("sources file %s: source[%d] (%q) has no path", path, i, s.Name)
		}
	}
	return Set(f.Sources), nil
}

// SeedPath returns the seed file path for pkg inside source s.
func (s Source) SeedPath(pkg string) string {
	return filepath.Join(s.Path, pkg, seedFileName)
}

// Locate returns the first source, in priority order, whose local path
// contains a seed for pkg.
func (set Set) Locate(pkg string) (Source, bool) {
	for _, s := range set {
		info, err := os.Stat(s.SeedPath(pkg))
		if err == nil && info.Mode().IsRegular() {
			return s, true
		}
	}
	return Source{}, false
}

// Load resolves pkg to its seed file and parses it. A name that no source
// can satisfy is a MissingPackageError.
func (set Set) Load(pkg string) (*seed.File, error) {
	src, ok := set.Locate(pkg)
	if !ok {
		return nil, &MissingPackageError{Name: pkg}
	}
	return seed.Load(src.SeedPath(pkg))
}
