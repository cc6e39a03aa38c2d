//go:build !windows

package main

// osProgramFilesDir returns the closest equivalent of a program-files
// directory: a per-user application root.
func osProgramFilesDir() string {
	return fallbackProgramFiles()
}
