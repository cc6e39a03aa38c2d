package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyind/setupkit/pkg/setup/installer"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

// TestPipeline exercises the whole lifecycle: build an installer from a
// manifest, install it with and without the desktop-icon task, then
// uninstall and verify the machine is clean again.
func TestPipeline(t *testing.T) {
	opts := setupBuild(t)
	b, err := New(opts)
	require.NoError(t, err)

	result, err := b.Build(context.Background())
	require.NoError(t, err)

	install := func(t *testing.T, selected []string) (installer.Options, *installer.Receipt) {
		t.Helper()
		archive, err := payload.Open(result.ArtifactPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = archive.Close() })

		instOpts := installer.Options{
			Archive:           archive,
			TargetDir:         filepath.Join(t.TempDir(), "AutoScraper"),
			SelectedTasks:     selected,
			UninstallerSource: opts.StubPath,
			StartMenuDir:      filepath.Join(t.TempDir(), "startmenu"),
			DesktopDir:        filepath.Join(t.TempDir(), "desktop"),
		}
		inst, err := installer.New(instOpts)
		require.NoError(t, err)
		receipt, err := inst.Run(context.Background())
		require.NoError(t, err)
		return instOpts, receipt
	}

	t.Run("without desktop task", func(t *testing.T) {
		instOpts, _ := install(t, nil)

		assert.FileExists(t, filepath.Join(instOpts.TargetDir, "AutoScraper.exe"))
		assert.FileExists(t, filepath.Join(instOpts.TargetDir, "assets", "icon.ico"))

		entries, err := os.ReadDir(instOpts.StartMenuDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		_, err = os.ReadDir(instOpts.DesktopDir)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("with desktop task", func(t *testing.T) {
		instOpts, receipt := install(t, []string{"desktopicon"})

		entries, err := os.ReadDir(instOpts.DesktopDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		// The unmodified payload count plus the uninstaller copy.
		assert.Len(t, receipt.Files, 5)
		assert.Len(t, receipt.Shortcuts, 2)
	})

	t.Run("uninstall leaves nothing behind", func(t *testing.T) {
		instOpts, _ := install(t, []string{"desktopicon"})

		res, err := installer.Uninstall(installer.UninstallOptions{InstallDir: instOpts.TargetDir})
		require.NoError(t, err)
		assert.Empty(t, res.Remaining)

		assert.NoDirExists(t, instOpts.TargetDir)
		entries, err := os.ReadDir(instOpts.DesktopDir)
		require.NoError(t, err)
		assert.Empty(t, entries)

		// Second run is a clean no-op.
		res, err = installer.Uninstall(installer.UninstallOptions{InstallDir: instOpts.TargetDir})
		require.NoError(t, err)
		assert.Zero(t, res.Removed)
	})
}
