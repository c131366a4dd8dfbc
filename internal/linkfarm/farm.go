// SPDX-License-Identifier: MPL-2.0

// Package linkfarm projects staging trees into the live filesystem as
// symlink farms. Every staged file becomes one symlink at the same relative
// path under the live root; a live path is "owned" by a package when it is a
// symlink resolving into that package's staging tree. Ownership is always
// derived from the filesystem, never stored.
package linkfarm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"birb-cli/internal/fakeroot"
)

// sharedIndexFile is the GNU info directory index. Nearly every package that
// ships info pages rewrites it during _install, so it can never be linked
// exclusively: it is stripped from staging trees before conflict detection
// and never participates in conflict accounting.
const sharedIndexFile = "usr/share/info/dir"

type (
	// Farm merges and unmerges staging trees against a live root.
	Farm struct {
		Store fakeroot.Store
		// LiveRoot is the filesystem namespace links are created in,
		// normally "/".
		LiveRoot string
	}

	// ConflictError carries the set of live paths blocking a commit.
	ConflictError struct {
		Name  string
		Paths []string
	}
)

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%d path(s) conflict with package %s: %s",
		len(e.Paths), e.Name, strings.Join(e.Paths, ", "))
}

// DetectConflicts dry-runs a commit for name and returns every live path
// that is not clear. A path is clear when it is absent or already a link
// owned by name (the reinstall case); anything else — a link into another
// package's tree, an unmanaged plain file or directory, or a special file —
// conflicts. No filesystem state is mutated besides the shared-index
// carve-out.
func (f Farm) DetectConflicts(name string) ([]string, error) {
	if err := f.dropSharedIndex(name); err != nil {
		return nil, err
	}

	staged, err := f.stagedFiles(name)
	if err != nil {
		return nil, err
	}

	var conflicts []string
	for _, rel := range staged {
		live := filepath.Join(f.LiveRoot, rel)
		clear, err := f.isClear(name, live)
		if err != nil {
			return nil, err
		}
		if !clear {
			conflicts = append(conflicts, live)
		}
	}
	return conflicts, nil
}

// Commit links every staged file of name into the live root. If any
// conflict exists and overwrite is false, the commit aborts with a
// ConflictError before touching the live filesystem at all. With overwrite
// set, conflicting live paths are deleted first.
func (f Farm) Commit(name string, overwrite bool) error {
	conflicts, err := f.DetectConflicts(name)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		if !overwrite {
			return &ConflictError{Name: name, Paths: conflicts}
		}
		for _, live := range conflicts {
			if err := os.RemoveAll(live); err != nil {
				return fmt.Errorf("overwrite conflicting path %s: %w", live, err)
			}
		}
	}
	return f.link(name)
}

// Recommit re-creates name's links without conflict detection. Used on
// forced reinstall, where the live paths in question are already owned by
// this package's previous install.
func (f Farm) Recommit(name string) error {
	if err := f.dropSharedIndex(name); err != nil {
		return err
	}
	return f.link(name)
}

// Remove deletes every live path currently owned by name, derived from the
// staging tree's file list, then prunes parent directories the unlinking
// left empty. A missing staging tree means there is nothing to derive
// ownership from, so Remove is a no-op.
func (f Farm) Remove(name string) error {
	if !f.Store.Exists(name) {
		return nil
	}
	staged, err := f.stagedFiles(name)
	if err != nil {
		return err
	}

	for _, rel := range staged {
		live := filepath.Join(f.LiveRoot, rel)
		owned, err := f.owns(name, live)
		if err != nil {
			return err
		}
		if !owned {
			continue
		}
		if err := os.Remove(live); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("unlink %s: %w", live, err)
		}
		f.pruneParents(filepath.Dir(live))
	}
	return nil
}

// pruneParents removes empty directories from dir upward, stopping at the
// live root. Directories still holding other packages' files (or anything
// else) refuse os.Remove, which ends the climb.
func (f Farm) pruneParents(dir string) {
	root := filepath.Clean(f.LiveRoot)
	for dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// link creates one symlink per staged file, replacing any link already at
// the target path. Callers guarantee via DetectConflicts (or prior
// ownership, for Recommit) that replaced paths belong to this package.
func (f Farm) link(name string) error {
	staged, err := f.stagedFiles(name)
	if err != nil {
		return err
	}
	stagingRoot := f.Store.Path(name)

	for _, rel := range staged {
		live := filepath.Join(f.LiveRoot, rel)
		target := filepath.Join(stagingRoot, rel)

		if err := os.MkdirAll(filepath.Dir(live), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", live, err)
		}
		if info, err := os.Lstat(live); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(live); err != nil {
				return fmt.Errorf("replace link %s: %w", live, err)
			}
		}
		if err := os.Symlink(target, live); err != nil {
			return fmt.Errorf("link %s -> %s: %w", live, target, err)
		}
	}
	return nil
}

// stagedFiles returns the relative paths of every file and symlink in
// name's staging tree, in lexical order. An absent tree yields nothing.
func (f Farm) stagedFiles(name string) ([]string, error) {
	root := f.Store.Path(name)
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk staging tree for %s: %w", name, err)
	}
	return files, nil
}

// isClear classifies a live path for conflict purposes: absent and
// owned-by-self are clear, everything else conflicts.
func (f Farm) isClear(name, live string) (bool, error) {
	info, err := os.Lstat(live)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", live, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		// Plain files, directories, and special files (devices, sockets)
		// all get the same policy: not ours, not clear.
		return false, nil
	}
	return f.owns(name, live)
}

// owns reports whether live is a symlink resolving into name's staging tree.
func (f Farm) owns(name, live string) (bool, error) {
	info, err := os.Lstat(live)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", live, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}

	target, err := os.Readlink(live)
	if err != nil {
		return false, fmt.Errorf("readlink %s: %w", live, err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(live), target)
	}

	rel, err := filepath.Rel(f.Store.Path(name), filepath.Clean(target))
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

// dropSharedIndex strips the shared info index from name's staging tree so
// it never reaches conflict accounting or the link loop.
func (f Farm) dropSharedIndex(name string) error {
	path := filepath.Join(f.Store.Path(name), sharedIndexFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("drop shared index from %s staging tree: %w", name, err)
	}
	return nil
}
