// Package manifest provides parsing and validation for setupkit installer
// manifests. A manifest is a section/key-value text file describing the
// application being packaged, the files the installer places, the shortcuts
// it registers, and the optional tasks the end user may select at install
// time.
package manifest

import (
	"compress/gzip"
	"errors"
	"fmt"
	"strings"
)

// Section names recognized by the parser.
const (
	SectionSetup = "Setup"
	SectionFiles = "Files"
	SectionIcons = "Icons"
	SectionTasks = "Tasks"
)

// ErrUnknownCompression is returned when a compression mode string is not
// recognized.
var ErrUnknownCompression = errors.New("unknown compression mode")

// Compression selects how payload file data is compressed in the built
// artifact.
type Compression int

const (
	// CompressionNormal is the default gzip compression level.
	CompressionNormal Compression = iota

	// CompressionNone stores payload data uncompressed.
	CompressionNone

	// CompressionMax trades build time for the smallest artifact.
	CompressionMax
)

// String returns the manifest spelling of the compression mode.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionMax:
		return "max"
	default:
		return "normal"
	}
}

// Level returns the gzip level implementing the compression mode.
func (c Compression) Level() int {
	switch c {
	case CompressionNone:
		return gzip.NoCompression
	case CompressionMax:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

// ParseCompression parses a compression mode string. Besides the canonical
// spellings it accepts the legacy "lzma2/max" and "lzma/max" forms, which
// map to the maximum level.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "zip", "gzip":
		return CompressionNormal, nil
	case "none":
		return CompressionNone, nil
	case "max", "lzma/max", "lzma2/max":
		return CompressionMax, nil
	default:
		return CompressionNormal, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// AppSettings holds the [Setup] section: identity, destinations, and build
// output of the installer.
type AppSettings struct {
	// AppName is the product name shown by the installer and recorded in
	// uninstall metadata.
	AppName string

	// AppVersion is the product version string.
	AppVersion string

	// DefaultDirName is the default install directory offered to the user.
	// It may reference path constants, e.g. "{autopf}\\AutoScraper".
	DefaultDirName string

	// DefaultGroupName is the start-menu group shortcuts are created under.
	DefaultGroupName string

	// UninstallDisplayIcon is the icon shown next to the uninstall entry in
	// the OS program list. It must point at a file placed by a file rule.
	UninstallDisplayIcon string

	// OutputDir is the directory the built installer is written to,
	// relative to the manifest unless absolute.
	OutputDir string

	// OutputBaseFilename is the artifact name without extension.
	OutputBaseFilename string

	// Compression selects the payload compression mode.
	Compression Compression
}

// FileRule maps a source glob to a destination directory inside the install
// root.
type FileRule struct {
	// Source is a glob matched against the source tree, relative to the
	// manifest directory. Backslashes and forward slashes are equivalent.
	Source string

	// DestDir is the destination directory, usually rooted at "{app}".
	DestDir string

	// IgnoreVersion makes the installer overwrite an existing target file
	// regardless of its version or timestamp.
	IgnoreVersion bool

	// RecurseSubdirs applies the source glob in every subdirectory of its
	// base directory, preserving the relative structure under DestDir.
	RecurseSubdirs bool

	// Line is the manifest line the rule was parsed from.
	Line int
}

// Shortcut is a single [Icons] entry: a link to an installed file.
type Shortcut struct {
	// Name is the link location and display name, e.g. "{group}\\AutoScraper"
	// or "{autodesktop}\\AutoScraper".
	Name string

	// Target is the file the link points at, e.g. "{app}\\AutoScraper.exe".
	Target string

	// Tasks gates creation on the named optional tasks: the shortcut is only
	// created when at least one of them was selected. Empty means always.
	Tasks []string

	// Line is the manifest line the shortcut was parsed from.
	Line int
}

// Task is a user-selectable checkbox shown during install.
type Task struct {
	// Name identifies the task, e.g. "desktopicon".
	Name string

	// Description is the checkbox label.
	Description string

	// GroupDescription is the heading the checkbox is grouped under.
	GroupDescription string

	// Line is the manifest line the task was parsed from.
	Line int
}

// Manifest is a fully parsed installer manifest. It is pure configuration:
// authored once, read at build time, never mutated afterwards.
type Manifest struct {
	Setup AppSettings
	Files []FileRule
	Icons []Shortcut
	Tasks []Task

	// Path is the location the manifest was loaded from, empty when parsed
	// from a reader.
	Path string
}

// Task returns the declared task with the given name, or nil.
func (m *Manifest) Task(name string) *Task {
	for i := range m.Tasks {
		if m.Tasks[i].Name == name {
			return &m.Tasks[i]
		}
	}
	return nil
}

// TaskNames returns the names of all declared tasks in declaration order.
func (m *Manifest) TaskNames() []string {
	names := make([]string, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		names = append(names, t.Name)
	}
	return names
}

// Gated reports whether the shortcut is conditional on an optional task.
func (s *Shortcut) Gated() bool { return len(s.Tasks) > 0 }

// DisplayName returns the last path element of the shortcut name, which is
// the name shown to the user.
func (s *Shortcut) DisplayName() string {
	name := strings.ReplaceAll(s.Name, `\`, "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return name
}
