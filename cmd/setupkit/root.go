package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fyind/setupkit/pkg/setup/config"
	"github.com/fyind/setupkit/pkg/setup/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "setupkit",
		Short: "Build self-contained installers from a setup manifest",
		Long: `Setupkit packages a pre-built application into a single installer
executable. The manifest declares which files ship, which shortcuts the
installer registers, and which optional tasks the user may toggle.

Examples:
  setupkit build setup.iss              # Build the installer
  setupkit build -w setup.iss           # Rebuild whenever inputs change
  setupkit check setup.iss              # Validate the manifest only
  setupkit inspect Output/setup.exe     # List a built installer's contents
  setupkit cache stats                  # Show blob cache statistics`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/setupkit/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "setupkit"))
		}
		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "setupkit"))
		}
	}

	viper.SetEnvPrefix("SETUPKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("build.output_dir", config.DefaultOutputDir)
	viper.SetDefault("build.compression", config.DefaultCompression)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("watch.debounce", config.DefaultWatchDebounce)
	viper.SetDefault("logging.level", "info")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// initLogging configures the shared logger from the resolved config.
func initLogging() {
	level := viper.GetString("logging.level")
	if getVerbose() {
		level = "debug"
	}
	_ = logging.Init(logging.Config{
		Level:      level,
		Path:       viper.GetString("logging.path"),
		Quiet:      getQuiet(),
		Components: viper.GetStringMapString("logging.components"),
	})
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}
