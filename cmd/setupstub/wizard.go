package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyind/setupkit/cmd/setupstub/tui"
	"github.com/fyind/setupkit/pkg/setup/manifest"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

// runWizard installs through the interactive terminal wizard.
func runWizard(archive *payload.Archive, exe string) error {
	license, err := licenseText(archive)
	if err != nil {
		return err
	}

	model := tui.NewModel(tui.Options{
		Archive:           archive,
		License:           license,
		DefaultTarget:     defaultInstallDir(archive.Plan),
		UninstallerSource: exe,
	})

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return final.(tui.Model).Err()
}

// licenseText returns the content of the payload's license file, or empty
// when the application ships none.
func licenseText(archive *payload.Archive) (string, error) {
	var name string
	for _, entry := range archive.Plan.Files {
		base := strings.ToLower(filepath.Base(entry.Target))
		if base == "license.txt" || base == "license" || base == "eula.txt" {
			name = entry.Target
			break
		}
	}
	if name == "" {
		return "", nil
	}

	errFound := errors.New("license found")
	var text string
	err := archive.Walk(func(entry payload.FileEntry, r io.Reader) error {
		if entry.Target != name {
			return nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		text = string(data)
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("read license: %w", err)
	}
	return text, nil
}

// defaultInstallDir expands the plan's default directory against this
// machine.
func defaultInstallDir(plan *payload.Plan) string {
	root, rel := manifest.SplitRooted(plan.DefaultDirName)
	if root != manifest.ConstPF {
		return filepath.FromSlash(plan.DefaultDirName)
	}
	return filepath.Join(osProgramFilesDir(), filepath.FromSlash(rel))
}

// fallbackProgramFiles is the per-user application root used when the
// platform defines no program-files directory.
func fallbackProgramFiles() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "opt")
}
