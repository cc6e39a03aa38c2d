package tui

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyind/setupkit/pkg/setup/payload"
)

// testArchive builds a minimal opened artifact for wizard tests.
func testArchive(t *testing.T, tasks []payload.TaskEntry) *payload.Archive {
	t.Helper()

	content := []byte("binary")
	sum := sha256.Sum256(content)
	plan := &payload.Plan{
		BuildID:          "test-build",
		AppName:          "AutoScraper",
		AppVersion:       "1.4.2",
		DefaultDirName:   `{autopf}\AutoScraper`,
		DefaultGroupName: "AutoScraper",
		Compression:      "normal",
		Tasks:            tasks,
		Files: []payload.FileEntry{{
			Target:  "AutoScraper.exe",
			Size:    int64(len(content)),
			Mode:    0o644,
			ModTime: time.Unix(0, 0).UTC(),
			SHA256:  hex.EncodeToString(sum[:]),
		}},
		TotalSize: int64(len(content)),
	}

	path := filepath.Join(t.TempDir(), "setup.exe")
	out, err := os.Create(path)
	require.NoError(t, err)
	_, err = out.WriteString("stub")
	require.NoError(t, err)

	w := payload.NewWriter(out)
	require.NoError(t, w.WritePlan(plan))
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(content)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, w.AddBlob(plan.Files[0], buf.Bytes()))
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())

	archive, err := payload.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestWizard_SkipsLicenseStepWhenAbsent(t *testing.T) {
	m := NewModel(Options{
		Archive:       testArchive(t, nil),
		DefaultTarget: "/tmp/AutoScraper",
	})
	assert.Equal(t, StepWelcome, m.step)

	next, _ := m.Update(keyMsg("enter"))
	assert.Equal(t, StepDirectory, next.(Model).step)
}

func TestWizard_ShowsLicenseStepWhenPresent(t *testing.T) {
	m := NewModel(Options{
		Archive:       testArchive(t, nil),
		License:       "Terms apply.",
		DefaultTarget: "/tmp/AutoScraper",
	})

	next, _ := m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.Equal(t, StepLicense, m.step)

	next, _ = m.Update(keyMsg("enter"))
	assert.Equal(t, StepDirectory, next.(Model).step)
}

func TestWizard_TaskToggle(t *testing.T) {
	m := NewModel(Options{
		Archive: testArchive(t, []payload.TaskEntry{
			{Name: "desktopicon", Description: "Create a desktop icon", GroupDescription: "Additional icons:"},
			{Name: "quicklaunch", Description: "Create a Quick Launch icon"},
		}),
		DefaultTarget: "/tmp/AutoScraper",
	})
	m.step = StepTasks

	assert.Empty(t, m.selectedTasks())

	next, _ := m.Update(keyMsg(" "))
	m = next.(Model)
	assert.Equal(t, []string{"desktopicon"}, m.selectedTasks())

	next, _ = m.Update(keyMsg("j"))
	m = next.(Model)
	next, _ = m.Update(keyMsg(" "))
	m = next.(Model)
	assert.Equal(t, []string{"desktopicon", "quicklaunch"}, m.selectedTasks())

	next, _ = m.Update(keyMsg(" "))
	m = next.(Model)
	assert.Equal(t, []string{"desktopicon"}, m.selectedTasks())
}

func TestWizard_DirectoryMustNotBeEmpty(t *testing.T) {
	m := NewModel(Options{Archive: testArchive(t, nil)})
	m.step = StepDirectory
	m.dirInput.SetValue("   ")

	next, _ := m.Update(keyMsg("enter"))
	assert.Equal(t, StepDirectory, next.(Model).step)
}

func TestWizard_ViewShowsAppName(t *testing.T) {
	m := NewModel(Options{
		Archive:       testArchive(t, nil),
		DefaultTarget: "/tmp/AutoScraper",
	})

	view := m.View()
	assert.Contains(t, view, "AutoScraper 1.4.2 Setup")
	assert.Contains(t, view, "1 files")
}

func TestWizard_ProgressRatio(t *testing.T) {
	m := NewModel(Options{Archive: testArchive(t, nil)})

	assert.Zero(t, m.ratio())
	m.installed = 3
	assert.InDelta(t, 0.5, m.ratio(), 0.001)
	m.installed = 100
	assert.Equal(t, 1.0, m.ratio())
}

func TestWizard_InstallFailureShowsError(t *testing.T) {
	m := NewModel(Options{Archive: testArchive(t, nil)})
	m.step = StepInstalling

	next, _ := m.Update(installDoneMsg{err: os.ErrPermission})
	m = next.(Model)
	assert.Equal(t, StepFailed, m.step)
	assert.Error(t, m.Err())
	assert.Contains(t, m.View(), "rolled back")
}
