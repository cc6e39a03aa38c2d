//go:build windows

package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

const osLinkExt = ".lnk"

// osCreateShortcut writes a .lnk file through the WScript.Shell COM object.
func osCreateShortcut(spec shortcutSpec) error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED|ole.COINIT_SPEED_OVER_MEMORY); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means COM was already initialized on this thread.
		if !ok || oleErr.Code() != 1 {
			return fmt.Errorf("initialize COM: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("create WScript.Shell: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("query WScript.Shell: %w", err)
	}
	defer shell.Release()

	cs, err := oleutil.CallMethod(shell, "CreateShortcut", spec.Path)
	if err != nil {
		return fmt.Errorf("CreateShortcut: %w", err)
	}
	link := cs.ToIDispatch()
	defer link.Release()

	if _, err := oleutil.PutProperty(link, "TargetPath", spec.Target); err != nil {
		return fmt.Errorf("set TargetPath: %w", err)
	}
	if _, err := oleutil.PutProperty(link, "WorkingDirectory", spec.WorkDir); err != nil {
		return fmt.Errorf("set WorkingDirectory: %w", err)
	}
	if spec.Icon != "" {
		if _, err := oleutil.PutProperty(link, "IconLocation", spec.Icon+",0"); err != nil {
			return fmt.Errorf("set IconLocation: %w", err)
		}
	}
	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return fmt.Errorf("save shortcut: %w", err)
	}
	return nil
}

// osStartMenuDir returns the per-user start-menu programs directory for the
// given group.
func osStartMenuDir(group string) string {
	appData := os.Getenv("APPDATA")
	return filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs", group)
}

// osDesktopDir returns the per-user desktop directory.
func osDesktopDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Desktop")
}
