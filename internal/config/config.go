// SPDX-License-Identifier: MPL-2.0

// Package config loads birb's configuration: where the nest file, staging
// trees, repositories, and distfiles live. Values come from a TOML config
// file merged over defaults via Viper; every path can be overridden, which
// is also how the test suite isolates itself from the real system.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "birb"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

type (
	// Config is the resolved birb configuration.
	Config struct {
		// NestPath is the installed-package registry file.
		NestPath string `mapstructure:"nest_path"`
		// FakerootDir holds one staging tree per package.
		FakerootDir string `mapstructure:"fakeroot_dir"`
		// LinkRoot is the live filesystem namespace links are created in.
		LinkRoot string `mapstructure:"link_root"`
		// DistfilesDir holds downloaded source archives.
		DistfilesDir string `mapstructure:"distfiles_dir"`
		// BuildDir is where build phases unpack and compile.
		BuildDir string `mapstructure:"build_dir"`
		// SourcesPath is the repository set file (sources.toml).
		SourcesPath string `mapstructure:"sources_path"`
		// AssumeYes answers ordinary confirmations affirmatively.
		AssumeYes bool `mapstructure:"assume_yes"`
		// UI groups presentation settings.
		UI UIConfig `mapstructure:"ui"`
	}

	// UIConfig holds presentation settings.
	UIConfig struct {
		// Verbose enables diagnostic output.
		Verbose bool `mapstructure:"verbose"`
	}
)

// Override hooks, mirroring the loader's precedence: an explicit config file
// beats the config directory search. The dir override exists for tests.
var (
	configFilePathOverride string
	configDirOverride      string
)

// SetConfigFilePathOverride points Load at an explicit config file
// (the --config flag).
func SetConfigFilePathOverride(path string) { configFilePathOverride = path }

// SetConfigDirOverride redirects the config directory, used by tests.
func SetConfigDirOverride(dir string) { configDirOverride = dir }

// DefaultConfig returns the built-in configuration: system paths under
// /var/lib/birb and /var/cache/birb, linking into /.
func DefaultConfig() *Config {
	return &Config{
		NestPath:     "/var/lib/birb/nest",
		FakerootDir:  "/var/lib/birb/fakeroot",
		LinkRoot:     "/",
		DistfilesDir: "/var/cache/birb/distfiles",
		BuildDir:     "/var/cache/birb/build",
		SourcesPath:  "/etc/birb/sources.toml",
	}
}

// ConfigDir returns the birb configuration directory using platform
// conventions: $XDG_CONFIG_HOME (default ~/.config) on Linux and others,
// ~/Library/Application Support on macOS.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the configuration: defaults, then the config file (explicit
// override path, else <ConfigDir>/config.toml), then BIRB_* environment
// variables. A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("nest_path", defaults.NestPath)
	v.SetDefault("fakeroot_dir", defaults.FakerootDir)
	v.SetDefault("link_root", defaults.LinkRoot)
	v.SetDefault("distfiles_dir", defaults.DistfilesDir)
	v.SetDefault("build_dir", defaults.BuildDir)
	v.SetDefault("sources_path", defaults.SourcesPath)
	v.SetDefault("assume_yes", defaults.AssumeYes)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix("BIRB")
	v.AutomaticEnv()

	if configFilePathOverride != "" {
		v.SetConfigFile(configFilePathOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFilePathOverride, err)
		}
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}
