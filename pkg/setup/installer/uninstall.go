package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/fyind/setupkit/pkg/setup/logging"
)

// UninstallResult summarizes a completed uninstallation.
type UninstallResult struct {
	// Removed counts files and shortcuts deleted.
	Removed int

	// Remaining lists paths that could not be removed, typically the
	// running uninstaller executable itself.
	Remaining []string
}

// UninstallOptions configures an uninstallation.
type UninstallOptions struct {
	// InstallDir is the directory holding the receipt.
	InstallDir string

	// SkipSelf is the path of the running uninstaller, which cannot
	// delete its own executable on every platform. It is reported in
	// Remaining instead of removed.
	SkipSelf string
}

// Uninstall replays the install receipt in reverse: shortcuts first, then
// files, then the programs-list entry, then any directories left empty.
// Already-removed entries are skipped, so running it twice is safe; with no
// receipt present it is a clean no-op.
func Uninstall(opts UninstallOptions) (*UninstallResult, error) {
	logger := logging.Get("installer")

	receipt, err := LoadReceipt(opts.InstallDir)
	if errors.Is(err, ErrNoReceipt) {
		logger.Info("nothing to uninstall", "dir", opts.InstallDir)
		return &UninstallResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	logger.Info("uninstalling",
		"app", receipt.AppName,
		"version", receipt.AppVersion,
		"dir", receipt.InstallDir)

	result := &UninstallResult{}
	skipSelf, _ := filepath.Abs(opts.SkipSelf)

	for n := len(receipt.Shortcuts) - 1; n >= 0; n-- {
		removeTracked(receipt.Shortcuts[n], skipSelf, result, logger)
	}
	for n := len(receipt.Files) - 1; n >= 0; n-- {
		removeTracked(receipt.Files[n], skipSelf, result, logger)
	}

	if receipt.RegistryKey != "" {
		if err := osDeleteUninstallEntry(receipt.RegistryKey); err != nil {
			logger.Warn("removing uninstall metadata failed", "key", receipt.RegistryKey, "err", err)
		}
	}

	// The receipt goes last so an interrupted run can be replayed.
	if err := os.Remove(receiptPath(receipt.InstallDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove receipt: %w", err)
	}
	result.Removed++

	pruneEmptyDirs(receipt.InstallDir)

	logger.Info("uninstall complete", "removed", result.Removed, "remaining", len(result.Remaining))
	return result, nil
}

// removeTracked deletes one recorded path, tolerating paths already gone
// and deferring the running executable.
func removeTracked(path, skipSelf string, result *UninstallResult, logger *log.Logger) {
	abs, _ := filepath.Abs(path)
	if skipSelf != "" && abs == skipSelf {
		result.Remaining = append(result.Remaining, path)
		return
	}
	err := os.Remove(path)
	switch {
	case err == nil:
		result.Removed++
	case errors.Is(err, os.ErrNotExist):
		// Already gone, fine.
	default:
		logger.Warn("removing failed", "path", path, "err", err)
		result.Remaining = append(result.Remaining, path)
	}
}
