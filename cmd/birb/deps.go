// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"birb-cli/internal/deps"

	"github.com/spf13/cobra"
)

var (
	depsMissing bool

	depsCmd = &cobra.Command{
		Use:   "deps <package>",
		Short: "Show a package's dependency order",
		Long: `Resolve the package's full dependency closure and print it in
install order, dependencies first and the package itself last.`,
		Args: cobra.ExactArgs(1),
		RunE: runDeps,
	}
)

func init() {
	depsCmd.Flags().BoolVarP(&depsMissing, "missing", "m", false, "print only packages that are not yet installed")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	sources, err := app.sources()
	if err != nil {
		return err
	}
	reg, err := app.registry()
	if err != nil {
		return err
	}

	order, err := deps.NewResolver(sources.Load).Resolve(args[0])
	if err != nil {
		renderGuidance(app.stderr, err)
		return &ExitError{Code: 1, Err: err}
	}
	if depsMissing {
		order = deps.Missing(order, reg.IsInstalled)
	}

	for _, name := range order {
		marker := " "
		if reg.IsInstalled(name) {
			marker = SuccessStyle.Render("✓")
		}
		fmt.Fprintf(app.stdout, "%s %s\n", marker, PkgStyle.Render(name))
	}
	return nil
}
