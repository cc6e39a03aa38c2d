// Package installer performs and undoes installations from a setupkit
// install plan. The engine copies payload files into the chosen directory,
// registers shortcuts, records uninstall metadata, and writes a receipt the
// uninstaller replays in reverse. All state it creates is rolled back when
// an install fails or is aborted partway.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fyind/setupkit/pkg/setup/logging"
	"github.com/fyind/setupkit/pkg/setup/manifest"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

// Engine errors.
var (
	ErrAborted      = errors.New("installation aborted")
	ErrBadTargetDir = errors.New("install directory is not usable")
)

// Status reports engine progress to a UI. Exactly one of File, Done, or
// Aborted is meaningful per update.
type Status struct {
	// File is the target path currently being written.
	File string

	// Installed is the running count of bytes written.
	Installed int64

	// Total is the number of payload bytes to write.
	Total int64

	Done    bool
	Aborted bool
}

// Options configures an installation.
type Options struct {
	// Archive is the opened installer artifact providing plan and data.
	Archive *payload.Archive

	// TargetDir is the chosen install directory.
	TargetDir string

	// GroupName overrides the plan's start-menu group when non-empty.
	GroupName string

	// SelectedTasks are the optional tasks the user enabled.
	SelectedTasks []string

	// UninstallerSource, when non-empty, is an executable copied into the
	// install directory as the uninstaller. The stub passes its own path.
	UninstallerSource string

	// StartMenuDir and DesktopDir override the platform shortcut
	// locations. Tests point them at scratch directories.
	StartMenuDir string
	DesktopDir   string
}

// Installer executes one installation.
type Installer struct {
	opts       Options
	plan       *payload.Plan
	progressFn func(Status)

	// placement log, in creation order. files feeds the receipt; created
	// is the subset rollback may remove, excluding pre-existing files the
	// overwrite policy kept.
	files     []string
	created   []string
	shortcuts []string
	regKey    string

	installed int64
}

// New creates an Installer for the given options.
func New(opts Options) (*Installer, error) {
	if opts.Archive == nil || opts.Archive.Plan == nil {
		return nil, errors.New("installer: opened archive is required")
	}
	if opts.TargetDir == "" {
		return nil, errors.New("installer: target directory is required")
	}
	if opts.GroupName == "" {
		opts.GroupName = opts.Archive.Plan.DefaultGroupName
	}
	return &Installer{
		opts:       opts,
		plan:       opts.Archive.Plan,
		progressFn: func(Status) {},
	}, nil
}

// SetProgressFunc registers a callback invoked on every status change. It
// must be set before Run.
func (i *Installer) SetProgressFunc(fn func(Status)) {
	if fn != nil {
		i.progressFn = fn
	}
}

// Run performs the installation. On any failure, including context
// cancellation, everything placed so far is rolled back and the target
// system is left as it was found.
func (i *Installer) Run(ctx context.Context) (receipt *Receipt, err error) {
	logger := logging.Get("installer")

	defer func() {
		if err != nil {
			i.rollback()
			i.progressFn(Status{Aborted: true})
		}
	}()

	if err = i.checkTargetDir(); err != nil {
		return nil, err
	}

	logger.Info("installing",
		"app", i.plan.AppName,
		"version", i.plan.AppVersion,
		"target", i.opts.TargetDir,
		"files", len(i.plan.Files))

	if err = i.copyFiles(ctx); err != nil {
		return nil, err
	}
	if err = ctxErr(ctx); err != nil {
		return nil, err
	}
	if err = i.createShortcuts(); err != nil {
		return nil, err
	}
	if err = i.copyUninstaller(); err != nil {
		return nil, err
	}
	if err = i.writeRegistry(); err != nil {
		return nil, err
	}
	if err = ctxErr(ctx); err != nil {
		return nil, err
	}

	receipt = &Receipt{
		ID:          uuid.NewString(),
		BuildID:     i.plan.BuildID,
		AppName:     i.plan.AppName,
		AppVersion:  i.plan.AppVersion,
		InstallDir:  i.opts.TargetDir,
		Files:       i.files,
		Shortcuts:   i.shortcuts,
		RegistryKey: i.regKey,
		CreatedAt:   time.Now().UTC(),
	}
	if err = WriteReceipt(receipt); err != nil {
		return nil, err
	}

	i.progressFn(Status{Done: true, Installed: i.installed, Total: i.plan.TotalSize})
	logger.Info("install complete", "receipt", receipt.ID)
	return receipt, nil
}

// checkTargetDir creates the install directory and verifies it is writable.
func (i *Installer) checkTargetDir() error {
	dir, err := filepath.Abs(i.opts.TargetDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadTargetDir, err)
	}
	i.opts.TargetDir = dir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrBadTargetDir, err)
	}
	if !osWriteAccess(dir) {
		return fmt.Errorf("%w: no write access to %s", ErrBadTargetDir, dir)
	}
	return nil
}

// ctxErr maps context cancellation onto ErrAborted.
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return nil
}

// copyFiles streams every payload entry to its target path.
func (i *Installer) copyFiles(ctx context.Context) error {
	return i.opts.Archive.Walk(func(entry payload.FileEntry, r io.Reader) error {
		if err := ctxErr(ctx); err != nil {
			return err
		}

		target := filepath.Join(i.opts.TargetDir, filepath.FromSlash(entry.Target))
		i.progressFn(Status{File: entry.Target, Installed: i.installed, Total: i.plan.TotalSize})

		if skip, err := i.skipExisting(target, entry); err != nil {
			return err
		} else if skip {
			// The file still belongs to this installation.
			i.files = append(i.files, target)
			i.installed += entry.Size
			return nil
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := writeFile(target, entry, r); err != nil {
			return err
		}
		i.files = append(i.files, target)
		i.created = append(i.created, target)
		i.installed += entry.Size
		return nil
	})
}

// skipExisting implements the overwrite policy: without ignoreversion an
// existing target at least as new as the payload copy is left in place.
func (i *Installer) skipExisting(target string, entry payload.FileEntry) (bool, error) {
	if entry.IgnoreVersion {
		return false, nil
	}
	info, err := os.Stat(target)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", target, err)
	}
	return !info.ModTime().Before(entry.ModTime), nil
}

// writeFile writes one payload entry, preserving mode and modification
// time.
func writeFile(target string, entry payload.FileEntry, r io.Reader) error {
	mode := entry.Mode.Perm()
	if mode == 0 {
		mode = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	_ = os.Chtimes(target, entry.ModTime, entry.ModTime)
	return nil
}

// createShortcuts registers the plan's shortcuts, honoring task gates.
func (i *Installer) createShortcuts() error {
	selected := make(map[string]bool, len(i.opts.SelectedTasks))
	for _, name := range i.opts.SelectedTasks {
		selected[name] = true
	}

	for _, sc := range i.plan.Shortcuts {
		if len(sc.Tasks) > 0 && !anySelected(sc.Tasks, selected) {
			continue
		}

		root, rel := manifest.SplitRooted(sc.Name)
		var dir string
		switch root {
		case manifest.ConstGroup:
			dir = i.opts.StartMenuDir
			if dir == "" {
				dir = osStartMenuDir(i.opts.GroupName)
			}
		case manifest.ConstDesktop:
			dir = i.opts.DesktopDir
			if dir == "" {
				dir = osDesktopDir()
			}
		default:
			return fmt.Errorf("shortcut %q: unsupported location {%s}", sc.Name, root)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create shortcut directory %s: %w", dir, err)
		}

		_, targetRel := manifest.SplitRooted(sc.Target)
		link := shortcutSpec{
			Path:    filepath.Join(dir, filepath.Base(filepath.FromSlash(rel))+osLinkExt),
			Target:  filepath.Join(i.opts.TargetDir, filepath.FromSlash(targetRel)),
			WorkDir: i.opts.TargetDir,
			Name:    filepath.Base(filepath.FromSlash(rel)),
			Icon:    i.iconPath(),
		}
		if err := osCreateShortcut(link); err != nil {
			return fmt.Errorf("create shortcut %s: %w", link.Path, err)
		}
		i.shortcuts = append(i.shortcuts, link.Path)
	}
	return nil
}

// anySelected reports whether any of the gating tasks was selected.
func anySelected(gates []string, selected map[string]bool) bool {
	for _, gate := range gates {
		if selected[gate] {
			return true
		}
	}
	return false
}

// iconPath resolves the plan's uninstall icon to an absolute path, empty
// when the plan declares none.
func (i *Installer) iconPath() string {
	if i.plan.UninstallIcon == "" {
		return ""
	}
	_, rel := manifest.SplitRooted(i.plan.UninstallIcon)
	return filepath.Join(i.opts.TargetDir, filepath.FromSlash(rel))
}

// copyUninstaller places a copy of the stub as the uninstaller.
func (i *Installer) copyUninstaller() error {
	if i.opts.UninstallerSource == "" {
		return nil
	}

	dst := filepath.Join(i.opts.TargetDir, UninstallerName(i.opts.UninstallerSource))
	src, err := os.Open(i.opts.UninstallerSource)
	if err != nil {
		return fmt.Errorf("open uninstaller source: %w", err)
	}
	defer src.Close()

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("create uninstaller: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy uninstaller: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close uninstaller: %w", err)
	}
	i.files = append(i.files, dst)
	i.created = append(i.created, dst)
	return nil
}

// UninstallerName returns the uninstaller filename, keeping the extension
// of the source executable.
func UninstallerName(source string) string {
	return "unins000" + filepath.Ext(source)
}

// IsUninstallerInvocation reports whether an executable path looks like an
// uninstaller copy, which is how the stub detects uninstall mode.
func IsUninstallerInvocation(exePath string) bool {
	base := strings.ToLower(filepath.Base(exePath))
	return strings.HasPrefix(base, "unins")
}

// writeRegistry records uninstall metadata in the OS program list.
func (i *Installer) writeRegistry() error {
	uninstallString := ""
	if i.opts.UninstallerSource != "" {
		uninstallString = filepath.Join(i.opts.TargetDir, UninstallerName(i.opts.UninstallerSource))
	}
	key, err := osWriteUninstallEntry(uninstallEntry{
		AppName:         i.plan.AppName,
		Version:         i.plan.AppVersion,
		InstallDir:      i.opts.TargetDir,
		Icon:            i.iconPath(),
		UninstallString: uninstallString,
	})
	if err != nil {
		return fmt.Errorf("write uninstall metadata: %w", err)
	}
	i.regKey = key
	return nil
}

// rollback removes everything placed so far, newest first. It never touches
// files the engine did not create.
func (i *Installer) rollback() {
	logger := logging.Get("installer")

	for n := len(i.shortcuts) - 1; n >= 0; n-- {
		if err := os.Remove(i.shortcuts[n]); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("rollback: removing shortcut failed", "path", i.shortcuts[n], "err", err)
		}
	}
	for n := len(i.created) - 1; n >= 0; n-- {
		if err := os.Remove(i.created[n]); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("rollback: removing file failed", "path", i.created[n], "err", err)
		}
	}
	if i.regKey != "" {
		if err := osDeleteUninstallEntry(i.regKey); err != nil {
			logger.Warn("rollback: removing uninstall metadata failed", "key", i.regKey, "err", err)
		}
	}
	pruneEmptyDirs(i.opts.TargetDir)
	i.files, i.created, i.shortcuts, i.regKey = nil, nil, nil, ""
}

// Progress returns the installed-to-total byte ratio, between 0 and 1.
func (i *Installer) Progress() float64 {
	if i.plan.TotalSize == 0 {
		return 1
	}
	return float64(i.installed) / float64(i.plan.TotalSize)
}
