// SPDX-License-Identifier: MPL-2.0

// Package fakeroot manages per-package staging trees. A package's build
// installs into its staging tree first; the link farm later projects that
// tree into the live filesystem. One directory per package, keyed by name.
package fakeroot

import (
	"fmt"
	"os"
	"path/filepath"
)

// skeleton is the conventional directory layout pre-created in every fresh
// staging tree so build recipes can install without defensive mkdirs.
// Anything left empty is pruned again by Finalize.
var skeleton = []string{
	"etc",
	"usr/bin",
	"usr/sbin",
	"usr/lib",
	"usr/lib32",
	"usr/libexec",
	"usr/include",
	"usr/share/doc",
	"usr/share/info",
	"usr/share/man/man1",
	"usr/share/man/man2",
	"usr/share/man/man3",
	"usr/share/man/man4",
	"usr/share/man/man5",
	"usr/share/man/man6",
	"usr/share/man/man7",
	"usr/share/man/man8",
}

// Store is a collection of staging trees rooted at a single directory.
type Store struct {
	// Root is the directory holding one staging tree per package.
	Root string
}

// Path returns the staging tree path for name.
func (s Store) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// Exists reports whether a staging tree for name is present.
func (s Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.IsDir()
}

// Prepare creates a fresh, writable staging tree for name, pre-populated
// with the conventional directory skeleton. Any stale tree must be
// discarded by the caller beforehand.
func (s Store) Prepare(name string) (string, error) {
	root := s.Path(name)
	for _, dir := range skeleton {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return "", fmt.Errorf("prepare staging tree for %s: %w", name, err)
		}
	}
	return root, nil
}

// Finalize prunes every transitively-empty directory from name's staging
// tree. A directory counts as empty when it contains no regular files or
// links at any depth. If pruning removes the entire tree the package is
// "absorbed": it installed nothing of its own, which is a recognized
// terminal state rather than an error.
func (s Store) Finalize(name string) (absorbed bool, err error) {
	root := s.Path(name)
	if _, err := os.Lstat(root); os.IsNotExist(err) {
		return true, nil
	}

	hasContent, err := prune(root)
	if err != nil {
		return false, fmt.Errorf("finalize staging tree for %s: %w", name, err)
	}
	if hasContent {
		return false, nil
	}
	if err := os.Remove(root); err != nil {
		return false, fmt.Errorf("remove empty staging tree for %s: %w", name, err)
	}
	return true, nil
}

// Discard deletes name's staging tree. A missing tree is not an error, so
// cleanup paths can call this unconditionally.
func (s Store) Discard(name string) error {
	if err := os.RemoveAll(s.Path(name)); err != nil {
		return fmt.Errorf("discard staging tree for %s: %w", name, err)
	}
	return nil
}

// prune removes empty directories below dir, depth-first, and reports
// whether dir still holds any file or link afterwards. dir itself is left in
// place for the caller to decide about.
func prune(dir string) (hasContent bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !entry.IsDir() {
			// Regular files and symlinks (dangling included) are content.
			hasContent = true
			continue
		}
		childHasContent, err := prune(path)
		if err != nil {
			return false, err
		}
		if !childHasContent {
			if err := os.Remove(path); err != nil {
				return false, err
			}
			continue
		}
		hasContent = true
	}
	return hasContent, nil
}
