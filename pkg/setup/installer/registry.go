package installer

import (
	"os"
	"path/filepath"
	"sort"
)

// uninstallEntry is the metadata published to the OS programs list.
type uninstallEntry struct {
	AppName         string
	Version         string
	InstallDir      string
	Icon            string
	UninstallString string
}

// pruneEmptyDirs removes directories under root that became empty, deepest
// first, then root itself when empty. Non-empty directories are left alone.
func pruneEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	sort.Slice(dirs, func(a, b int) bool { return len(dirs[a]) > len(dirs[b]) })
	for _, dir := range dirs {
		// Remove fails on non-empty directories, which is the point.
		_ = os.Remove(dir)
	}
}
