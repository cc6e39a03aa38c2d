//go:build windows

package main

import "os"

// osProgramFilesDir returns the machine's program-files directory.
func osProgramFilesDir() string {
	if dir := os.Getenv("ProgramFiles"); dir != "" {
		return dir
	}
	return `C:\Program Files`
}
