package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Use a temp directory that doesn't have a config file
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Build.OutputDir != DefaultOutputDir {
		t.Errorf("Build.OutputDir = %q, want %q", cfg.Build.OutputDir, DefaultOutputDir)
	}

	if cfg.Build.Compression != DefaultCompression {
		t.Errorf("Build.Compression = %q, want %q", cfg.Build.Compression, DefaultCompression)
	}

	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled = false, want true")
	}

	if cfg.Watch.Debounce != DefaultWatchDebounce {
		t.Errorf("Watch.Debounce = %q, want %q", cfg.Watch.Debounce, DefaultWatchDebounce)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "setupkit")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
build:
  output_dir: dist
  stub_path: /opt/setupkit/setupstub.exe
  compression: max
cache:
  enabled: false
watch:
  debounce: 1s
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Build.OutputDir != "dist" {
		t.Errorf("Build.OutputDir = %q, want %q", cfg.Build.OutputDir, "dist")
	}

	if cfg.Build.StubPath != "/opt/setupkit/setupstub.exe" {
		t.Errorf("Build.StubPath = %q", cfg.Build.StubPath)
	}

	if cfg.Build.Compression != "max" {
		t.Errorf("Build.Compression = %q, want %q", cfg.Build.Compression, "max")
	}

	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false")
	}

	if cfg.Watch.Debounce != "1s" {
		t.Errorf("Watch.Debounce = %q, want %q", cfg.Watch.Debounce, "1s")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("SETUPKIT_BUILD_OUTPUT_DIR", "/tmp/out")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Build.OutputDir != "/tmp/out" {
		t.Errorf("Build.OutputDir = %q, want %q", cfg.Build.OutputDir, "/tmp/out")
	}
}

func TestLoad_ExpandsCachePath(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "setupkit")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := "cache:\n  path: ~/blobcache\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := filepath.Join(tempDir, "blobcache")
	if cfg.Cache.Path != want {
		t.Errorf("Cache.Path = %q, want %q", cfg.Cache.Path, want)
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	configPath := filepath.Join(tempDir, ".config", "setupkit", "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Calling again must not clobber an existing file.
	if err := os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	if err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != "logging:\n  level: debug\n" {
		t.Error("WriteDefault() overwrote an existing config file")
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)

	got, err := ExpandPath("~/cache")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if want := filepath.Join(tempDir, "cache"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}

	got, err = ExpandPath("/abs/path")
	if err != nil {
		t.Fatalf("ExpandPath() error = %v", err)
	}
	if got != "/abs/path" {
		t.Errorf("ExpandPath() = %q, want unchanged", got)
	}
}
