// SPDX-License-Identifier: MPL-2.0

package seed

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "seed",
})

// Seed variable names. A seed declares its metadata as plain top-level shell
// assignments so the same file doubles as the build recipe's environment.
const (
	varName     = "NAME"
	varDesc     = "DESC"
	varVersion  = "VERSION"
	varSource   = "SOURCE"
	varChecksum = "CHECKSUM"
	varDeps     = "DEPS"
	varFlags    = "FLAGS"
	varNotes    = "NOTES"
)

// Phase names a seed may define as shell functions.
const (
	PhaseSetup   = "_setup"
	PhaseBuild   = "_build"
	PhaseTest    = "_test"
	PhaseInstall = "_install"
)

// File is a fully parsed seed: the declaration plus the set of phase
// functions the recipe defines. The builder consumes Phases; everything else
// consumes Spec.
type File struct {
	Spec   Spec
	Phases map[string]bool
	// Path is the seed file this was read from.
	Path string
}

// Load parses the seed file at path and validates its declaration.
func Load(path string) (*File, error) {
	f, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := f.Spec.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse reads a seed file without validating required fields. Callers that
// only need a partial view (diagnostics, listings) use this directly.
func Parse(path string) (*File, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer src.Close()

	prog, err := syntax.NewParser().Parse(src, path)
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	vars := make(map[string]string)
	phases := make(map[string]bool)
	cfg := &expand.Config{Env: expand.ListEnviron()}

	for _, stmt := range prog.Stmts {
		switch cmd := stmt.Cmd.(type) {
		case *syntax.CallExpr:
			// Only bare assignments count as declarations; `FOO=x cmd` is a
			// command invocation, not metadata.
			if len(cmd.Args) != 0 {
				continue
			}
			for _, assign := range cmd.Assigns {
				if assign.Name == nil || assign.Value == nil {
					continue
				}
				val, err := expand.Literal(cfg, assign.Value)
				if err != nil {
					return nil, fmt.Errorf("expand %s in seed %s: %w", assign.Name.Value, path, err)
				}
				vars[assign.Name.Value] = val
			}
		case *syntax.FuncDecl:
			phases[cmd.Name.Value] = true
		}
	}

	flags, unknown := ParseFlags(vars[varFlags])

	f := &File{
		Spec: Spec{
			Name:         vars[varName],
			Version:      vars[varVersion],
			Description:  vars[varDesc],
			Source:       vars[varSource],
			Checksum:     vars[varChecksum],
			Dependencies: strings.Fields(vars[varDeps]),
			Flags:        flags,
			Notes:        vars[varNotes],
		},
		Phases: phases,
		Path:   path,
	}
	if len(unknown) > 0 {
		logger.Debug("ignoring unknown capability flags", "seed", path, "flags", unknown)
	}
	return f, nil
}

// HasPhase reports whether the seed defines the named phase function.
func (f *File) HasPhase(name string) bool { return f.Phases[name] }
