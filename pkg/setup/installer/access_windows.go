//go:build windows

package installer

import (
	"os"
	"path/filepath"
)

// osWriteAccess reports whether the current user can write into dir.
// Windows has no faithful access(2), so it probes with a temp file.
func osWriteAccess(dir string) bool {
	probe := filepath.Join(dir, ".setupkit-probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(probe)
	return true
}
