//go:build windows

package installer

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyRoot = `Software\Microsoft\Windows\CurrentVersion\Uninstall`

// osWriteUninstallEntry registers the application in the per-user programs
// list so it shows up in Apps & Features. It returns the subkey path used,
// which the uninstaller deletes later.
func osWriteUninstallEntry(entry uninstallEntry) (string, error) {
	keyPath := uninstallKeyRoot + `\` + entry.AppName

	key, _, err := registry.CreateKey(registry.CURRENT_USER, keyPath, registry.SET_VALUE)
	if err != nil {
		return "", fmt.Errorf("create registry key %s: %w", keyPath, err)
	}
	defer key.Close()

	values := map[string]string{
		"DisplayName":     entry.AppName,
		"DisplayVersion":  entry.Version,
		"InstallLocation": entry.InstallDir,
		"DisplayIcon":     entry.Icon,
		"UninstallString": entry.UninstallString,
	}
	for name, value := range values {
		if value == "" {
			continue
		}
		if err := key.SetStringValue(name, value); err != nil {
			return "", fmt.Errorf("set registry value %s: %w", name, err)
		}
	}
	if err := key.SetDWordValue("NoModify", 1); err != nil {
		return "", fmt.Errorf("set registry value NoModify: %w", err)
	}
	return keyPath, nil
}

// osDeleteUninstallEntry removes the programs-list entry written at install
// time. A missing key is not an error.
func osDeleteUninstallEntry(keyPath string) error {
	err := registry.DeleteKey(registry.CURRENT_USER, keyPath)
	if err == registry.ErrNotExist {
		return nil
	}
	return err
}
