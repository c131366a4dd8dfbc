// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for birb.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"birb-cli/internal/config"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables diagnostic output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "birb",
		Short: "A source-based package manager",
		Long: TitleStyle.Render("birb") + SubtitleStyle.Render(" - A source-based package manager") + `

birb builds packages from source into per-package staging trees and
merges them into the live filesystem as symlink farms, so every
installed file can be traced back to the package that owns it.

Packages are declared as small shell "seeds" that carry the package's
identity and its _setup/_build/_test/_install phases.

` + SubtitleStyle.Render("Examples:") + `
  birb install vim          Build and install vim and its dependencies
  birb uninstall vim        Remove vim from the system
  birb deps vim             Show vim's dependency order
  birb list                 List installed packages
  birb sources              Show configured package repositories`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/birb/config.toml)")
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig points the config loader at the --config override before
// any command handler loads configuration.
func initRootConfig() {
	if cfgFile != "" {
		config.SetConfigFilePathOverride(cfgFile)
	}
}
