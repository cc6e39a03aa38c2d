//go:build !windows

package installer

// osWriteUninstallEntry is a no-op where there is no programs registry. The
// receipt alone drives uninstallation.
func osWriteUninstallEntry(uninstallEntry) (string, error) {
	return "", nil
}

// osDeleteUninstallEntry is a no-op where there is no programs registry.
func osDeleteUninstallEntry(string) error {
	return nil
}
