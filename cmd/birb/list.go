// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long:  "Print the installed packages in install order, one per line.",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	reg, err := app.registry()
	if err != nil {
		return err
	}

	names := reg.Names()
	if len(names) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("no packages installed"))
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(app.stdout, name)
	}
	return nil
}
