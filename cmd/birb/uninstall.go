// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"birb-cli/internal/engine"

	"github.com/spf13/cobra"
)

var (
	uninstallYes bool

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <package>...",
		Short: "Remove installed packages",
		Long: `Remove each named package: unlink its files from the live
filesystem, delete its staging tree, and drop it from the registry.

Packages marked important require typing the package name to confirm.
That confirmation always prompts; --yes does not bypass it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUninstall,
	}
)

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "answer ordinary confirmations affirmatively")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	// Lock before the transaction reads the nest; see runInstall.
	lock, err := app.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	tx, err := app.transaction(engine.Options{}, uninstallYes)
	if err != nil {
		return err
	}

	for _, pkg := range args {
		res := tx.Uninstall(cmd.Context(), pkg)
		reportResult(app.stdout, res)
		if res.Failed() {
			renderGuidance(app.stderr, res.Err)
			return &ExitError{Code: 1, Err: res.Err}
		}
		if res.Outcome == engine.OutcomeCancelled {
			return nil
		}
	}
	return nil
}
