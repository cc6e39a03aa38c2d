//go:build !windows

package installer

import "golang.org/x/sys/unix"

// osWriteAccess reports whether the current user can write into dir.
func osWriteAccess(dir string) bool {
	return unix.Access(dir, unix.W_OK) == nil
}
