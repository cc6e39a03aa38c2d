package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUninstall_RemovesEverything(t *testing.T) {
	inst, opts := setupInstall(t, []string{"desktopicon"})

	_, err := inst.Run(context.Background())
	require.NoError(t, err)

	result, err := Uninstall(UninstallOptions{InstallDir: opts.TargetDir})
	require.NoError(t, err)
	assert.Empty(t, result.Remaining)

	assert.NoDirExists(t, opts.TargetDir)
	assert.NoFileExists(t, filepath.Join(opts.StartMenuDir, "AutoScraper"+osLinkExt))
	assert.NoFileExists(t, filepath.Join(opts.DesktopDir, "AutoScraper"+osLinkExt))
}

func TestUninstall_IsIdempotent(t *testing.T) {
	inst, opts := setupInstall(t, nil)

	_, err := inst.Run(context.Background())
	require.NoError(t, err)

	first, err := Uninstall(UninstallOptions{InstallDir: opts.TargetDir})
	require.NoError(t, err)
	assert.Positive(t, first.Removed)

	second, err := Uninstall(UninstallOptions{InstallDir: opts.TargetDir})
	require.NoError(t, err)
	assert.Zero(t, second.Removed)
	assert.Empty(t, second.Remaining)
}

func TestUninstall_NoReceiptIsNoop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("keep me"), 0o644))

	result, err := Uninstall(UninstallOptions{InstallDir: dir})
	require.NoError(t, err)
	assert.Zero(t, result.Removed)

	assert.FileExists(t, filepath.Join(dir, "unrelated.txt"))
}

func TestUninstall_LeavesForeignFiles(t *testing.T) {
	inst, opts := setupInstall(t, nil)

	_, err := inst.Run(context.Background())
	require.NoError(t, err)

	foreign := filepath.Join(opts.TargetDir, "assets", "user-notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("mine"), 0o644))

	result, err := Uninstall(UninstallOptions{InstallDir: opts.TargetDir})
	require.NoError(t, err)
	assert.Empty(t, result.Remaining)

	// The install root stays because it still holds the user's file.
	assert.FileExists(t, foreign)
	assert.NoFileExists(t, filepath.Join(opts.TargetDir, "AutoScraper.exe"))
}

func TestUninstall_SkipsRunningUninstaller(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "setup.exe")
	require.NoError(t, os.WriteFile(stub, []byte("stub bytes"), 0o755))

	inst, opts := setupInstall(t, nil)
	inst.opts.UninstallerSource = stub

	_, err := inst.Run(context.Background())
	require.NoError(t, err)

	self := filepath.Join(opts.TargetDir, "unins000.exe")
	result, err := Uninstall(UninstallOptions{InstallDir: opts.TargetDir, SkipSelf: self})
	require.NoError(t, err)

	require.Len(t, result.Remaining, 1)
	assert.Equal(t, self, result.Remaining[0])
	assert.FileExists(t, self)
}

func TestReceipt_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &Receipt{
		ID:         "r-1",
		BuildID:    "b-1",
		AppName:    "AutoScraper",
		AppVersion: "1.4.2",
		InstallDir: dir,
		Files:      []string{filepath.Join(dir, "AutoScraper.exe")},
	}
	require.NoError(t, WriteReceipt(in))

	out, err := LoadReceipt(dir)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Files, out.Files)

	_, err = LoadReceipt(t.TempDir())
	assert.ErrorIs(t, err, ErrNoReceipt)
}
