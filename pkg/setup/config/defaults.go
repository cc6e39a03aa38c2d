// Package config provides configuration management for the setupkit build
// tool.
package config

// Default configuration values for setupkit.
const (
	// DefaultOutputDir is the directory artifacts are written to,
	// relative to the manifest unless absolute.
	DefaultOutputDir = "Output"

	// DefaultCompression is the compression mode used when the manifest
	// does not set one.
	DefaultCompression = "normal"

	// DefaultWatchDebounce is the quiet period before a watch-mode
	// rebuild, as a duration string.
	DefaultWatchDebounce = "300ms"
)
