// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show configured package repositories",
	Long: `Print the configured package repositories in priority order.
Packages are looked up in the first repository that carries them.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	sources, err := app.sources()
	if err != nil {
		return err
	}

	for i, src := range sources {
		name := src.Name
		if name == "" {
			name = src.Path
		}
		fmt.Fprintf(app.stdout, "%d. %s\n", i+1, PkgStyle.Render(name))
		if src.URL != "" {
			fmt.Fprintf(app.stdout, "   %s\n", SubtitleStyle.Render(src.URL))
		}
		fmt.Fprintf(app.stdout, "   %s\n", SubtitleStyle.Render(src.Path))
	}
	return nil
}
