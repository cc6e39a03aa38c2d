//go:build !windows

package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const osLinkExt = ".desktop"

// desktopEntryTemplate is the freedesktop.org launcher format used where
// .lnk files do not exist.
const desktopEntryTemplate = `[Desktop Entry]
Version=1.0
Type=Application
Name=%s
Exec="%s"
Path=%s
%sTerminal=false
`

// osCreateShortcut writes a .desktop launcher file.
func osCreateShortcut(spec shortcutSpec) error {
	icon := ""
	if spec.Icon != "" {
		icon = fmt.Sprintf("Icon=%s\n", spec.Icon)
	}
	entry := fmt.Sprintf(desktopEntryTemplate, spec.Name, spec.Target, spec.WorkDir, icon)
	if err := os.WriteFile(spec.Path, []byte(entry), 0o755); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

// osStartMenuDir returns the per-user applications directory, grouped the
// way application menus bundle entries by vendor.
func osStartMenuDir(group string) string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "applications", sanitizeGroup(group))
}

// osDesktopDir returns the per-user desktop directory.
func osDesktopDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Desktop")
}

// sanitizeGroup lowercases a start-menu group name into a directory-safe
// form.
func sanitizeGroup(group string) string {
	return strings.ToLower(strings.ReplaceAll(group, " ", "-"))
}
