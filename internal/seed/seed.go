// SPDX-License-Identifier: MPL-2.0

// Package seed reads package declarations ("seeds"). A seed is a small
// shell fragment that declares the package's identity as top-level
// NAME="..." style assignments plus the optional _setup/_build/_test/_install
// phase functions consumed by the builder.
package seed

import (
	"fmt"
	"strings"
)

type (
	// Flag is a declared capability of a package. Flags gate orchestrator
	// behavior (test phases, font cache refresh, uninstall friction) and
	// nothing else.
	Flag string

	// FlagSet is the set of capability flags declared by a seed.
	FlagSet map[Flag]bool

	// Spec is the parsed, immutable declaration of a single package.
	Spec struct {
		// Name is the package's unique key within the repository search path.
		Name string
		// Version is informational; dependencies are name-based, not versioned.
		Version string
		// Description is a one-line summary.
		Description string
		// Source locates the upstream source archive.
		Source string
		// Checksum is the expected digest of the source archive.
		Checksum string
		// Dependencies are declared package names, possibly empty.
		Dependencies []string
		// Flags are the declared capability flags.
		Flags FlagSet
		// Notes is free-form text shown to the operator.
		Notes string
	}

	// InvalidSpecError reports a seed missing one of its required fields.
	InvalidSpecError struct {
		Name    string // best-effort: may be empty when NAME itself is missing
		Missing []string
	}
)

const (
	// FlagTest marks a package whose seed defines a test phase.
	FlagTest Flag = "test"
	// FlagTest32 marks a 32-bit test phase.
	FlagTest32 Flag = "test32"
	// Flag32Bit marks a package that also builds a 32-bit variant.
	Flag32Bit Flag = "32bit"
	// FlagFont marks a font package; installs/uninstalls refresh the font cache.
	FlagFont Flag = "font"
	// FlagPython marks a python package; uninstalls run the pip removal hook.
	FlagPython Flag = "python"
	// FlagImportant marks a protected package; uninstalling one requires a
	// stronger, typed confirmation.
	FlagImportant Flag = "important"
)

// knownFlags is the set of recognized capability tokens. Unknown tokens in a
// seed's FLAGS variable are ignored rather than rejected, so newer seeds keep
// working with older clients.
var knownFlags = map[Flag]bool{
	FlagTest:      true,
	FlagTest32:    true,
	Flag32Bit:     true,
	FlagFont:      true,
	FlagPython:    true,
	FlagImportant: true,
}

func (e *InvalidSpecError) Error() string {
	name := e.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("invalid seed for %s: missing required field(s) %s", name, strings.Join(e.Missing, ", "))
}

// Has reports whether the flag is set.
func (s FlagSet) Has(f Flag) bool { return s[f] }

// ParseFlags builds a FlagSet from a whitespace-separated token list,
// dropping tokens that are not recognized capabilities. The returned slice
// holds any ignored tokens for diagnostic logging by the caller.
func ParseFlags(raw string) (FlagSet, []string) {
	set := make(FlagSet)
	var unknown []string
	for _, tok := range strings.Fields(raw) {
		f := Flag(tok)
		if knownFlags[f] {
			set[f] = true
			continue
		}
		unknown = append(unknown, tok)
	}
	return set, unknown
}

// Validate enforces the required fields of a declaration: Name, Source and
// Checksum. A spec failing validation must never enter resolution or a
// transaction.
func (s *Spec) Validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "NAME")
	}
	if s.Source == "" {
		missing = append(missing, "SOURCE")
	}
	if s.Checksum == "" {
		missing = append(missing, "CHECKSUM")
	}
	if len(missing) > 0 {
		return &InvalidSpecError{Name: s.Name, Missing: missing}
	}
	return nil
}
