// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"birb-cli/internal/engine"

	"github.com/spf13/cobra"
)

var (
	installForce         bool
	installOverwrite     bool
	installSkipInstalled bool
	installTests         bool
	installYes           bool

	installCmd = &cobra.Command{
		Use:   "install <package>...",
		Short: "Build and install packages from source",
		Long: `Build each named package and its dependency closure from source
into per-package staging trees, then merge them into the live
filesystem as symlink farms.

A package whose build, tests, or merge fails aborts with the live
system untouched; its staging tree is kept for inspection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInstall,
	}
)

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "reinstall already-installed packages without prompting")
	installCmd.Flags().BoolVarP(&installOverwrite, "overwrite", "o", false, "delete conflicting live paths instead of aborting")
	installCmd.Flags().BoolVarP(&installSkipInstalled, "skip-installed", "s", false, "treat already-installed packages as a successful no-op")
	installCmd.Flags().BoolVarP(&installTests, "tests", "t", false, "run test phases for packages that declare one")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "answer ordinary confirmations affirmatively")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	// The lock comes first: the transaction reads the nest into memory, so
	// opening it while another birb may still be mutating it would have us
	// rewrite the file from a stale view later.
	lock, err := app.acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	tx, err := app.transaction(engine.Options{
		Force:         installForce,
		Overwrite:     installOverwrite,
		SkipInstalled: installSkipInstalled,
		RunTests:      installTests,
	}, installYes)
	if err != nil {
		return err
	}

	for _, pkg := range args {
		res := tx.Install(cmd.Context(), pkg)
		reportResult(app.stdout, res)
		if res.Failed() {
			renderGuidance(app.stderr, res.Err)
			return &ExitError{Code: 1, Err: res.Err}
		}
		if res.Outcome == engine.OutcomeCancelled {
			// The operator said no; remaining packages stay untouched too.
			return nil
		}
	}
	return nil
}
