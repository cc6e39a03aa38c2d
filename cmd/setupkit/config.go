package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fyind/setupkit/pkg/setup/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage setupkit configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/setupkit/config.yaml (if set)
  2. ~/.config/setupkit/config.yaml

Environment variables can override config file settings using the SETUPKIT_ prefix:
  SETUPKIT_BUILD_OUTPUT_DIR=dist
  SETUPKIT_BUILD_COMPRESSION=max
  SETUPKIT_CACHE_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("Config file: %s\n\n", used)
	} else {
		fmt.Printf("Config file: (none, using defaults)\n\n")
	}

	fmt.Println("build:")
	fmt.Printf("  output_dir:  %s\n", cfg.Build.OutputDir)
	fmt.Printf("  stub_path:   %s\n", orNone(cfg.Build.StubPath))
	fmt.Printf("  compression: %s\n", cfg.Build.Compression)
	fmt.Println("cache:")
	fmt.Printf("  enabled: %t\n", cfg.Cache.Enabled)
	fmt.Printf("  path:    %s\n", orDefault(cfg.Cache.Path, config.DefaultCachePath()))
	fmt.Println("watch:")
	fmt.Printf("  debounce: %s\n", cfg.Watch.Debounce)
	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  path:  %s\n", orDefault(cfg.Logging.Path, config.DefaultLogPath()))
	return nil
}

// runConfigInit writes a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Printf("Config file: %s\n", filepath.Join(dir, "config.yaml"))
	return nil
}

// runConfigPath prints the config file location.
func runConfigPath(cmd *cobra.Command, args []string) error {
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Println(used)
		return nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(dir, "config.yaml"))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def + " (default)"
	}
	return s
}
