package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Components map[string]string `mapstructure:"components"`
}

// BuildConfig holds defaults for the build command.
type BuildConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	StubPath    string `mapstructure:"stub_path"`
	Compression string `mapstructure:"compression"`
}

// CacheConfig configures the blob cache shared across builds.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // Empty means use DefaultCachePath
}

// WatchConfig configures rebuild-on-change mode.
type WatchConfig struct {
	Debounce string `mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	Build   BuildConfig   `mapstructure:"build"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/setupkit/config.yaml
//   - $HOME/.config/setupkit/config.yaml
//
// Environment variables are prefixed with SETUPKIT_
// (e.g., SETUPKIT_BUILD_OUTPUT_DIR).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "setupkit"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "setupkit"))

	v.SetEnvPrefix("SETUPKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("build.output_dir", DefaultOutputDir)
	v.SetDefault("build.stub_path", "")
	v.SetDefault("build.compression", DefaultCompression)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means use DefaultCachePath

	v.SetDefault("watch.debounce", DefaultWatchDebounce)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use the default XDG state path
	v.SetDefault("logging.components", map[string]string{
		"builder":   "info",
		"installer": "info",
		"watch":     "warn",
	})

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Cache.Path != "" {
		cfg.Cache.Path, err = ExpandPath(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "setupkit"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "setupkit"), nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// CacheDir returns $XDG_CACHE_HOME/setupkit/ for the blob cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "setupkit")
}

// StateDir returns $XDG_STATE_HOME/setupkit/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "setupkit")
}

// DefaultCachePath returns the default blob cache location.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "blobs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "setupkit.log")
}

// EnsureCacheDir creates the cache directory if it doesn't exist.
func EnsureCacheDir() error {
	if err := os.MkdirAll(CacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	return nil
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# Setupkit Configuration

# Build defaults
build:
  # Directory installers are written to, relative to the manifest
  output_dir: %s
  # Stub executable appended with each payload (empty means the bundled stub)
  stub_path: ""
  # Compression when the manifest does not set one: none, normal, max
  compression: %s

# Compressed blob cache shared across builds
cache:
  enabled: true
  # Cache location (empty means use default: $XDG_CACHE_HOME/setupkit/blobs)
  path: ""

# Rebuild-on-change mode
watch:
  # Quiet period after the last change before rebuilding
  debounce: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/setupkit/setupkit.log)
  path: ""
  # Per-component log levels
  components:
    builder: info
    installer: info
    watch: warn
`, DefaultOutputDir, DefaultCompression, DefaultWatchDebounce)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}
