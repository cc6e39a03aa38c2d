// Package payload implements the self-extracting artifact format used by
// setupkit installers. A built installer is a stub executable with a tar
// payload appended, followed by a fixed trailer:
//
//	[stub exe][tar payload][8-byte little-endian payload length]["SETUPKIT"]
//
// The first tar entry is the install plan (.setupkit/plan.json); the
// remaining entries carry file data, each individually gzip-compressed so
// blobs can be cached and reused across builds. The stub locates the
// trailer at the end of its own executable and streams the payload out
// without loading it into memory.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Magic identifies a setupkit payload trailer. It is exactly eight bytes.
const Magic = "SETUPKIT"

// trailerSize is the payload length field plus the magic.
const trailerSize = 8 + len(Magic)

// PlanPath is the tar entry name of the install plan.
const PlanPath = ".setupkit/plan.json"

// Payload format errors.
var (
	ErrNoPayload   = errors.New("no setupkit payload trailer found")
	ErrCorrupt     = errors.New("corrupt setupkit payload")
	ErrPlanMissing = errors.New("payload does not start with an install plan")
)

// FileEntry describes one file the installer places.
type FileEntry struct {
	// Target is the slash-separated path under the install root.
	Target string `json:"target"`

	// Size is the uncompressed file size in bytes.
	Size int64 `json:"size"`

	// Mode carries the source file's permission bits.
	Mode fs.FileMode `json:"mode"`

	// ModTime is the source file's modification time, used for the
	// keep-if-newer overwrite policy.
	ModTime time.Time `json:"mod_time"`

	// SHA256 is the hex digest of the uncompressed content.
	SHA256 string `json:"sha256"`

	// IgnoreVersion makes the installer overwrite the target
	// unconditionally.
	IgnoreVersion bool `json:"ignore_version"`
}

// ShortcutEntry describes one shortcut the installer registers.
type ShortcutEntry struct {
	// Name is the shortcut location, e.g. "{group}/AutoScraper".
	Name string `json:"name"`

	// Target is the app-rooted file the shortcut points at.
	Target string `json:"target"`

	// Tasks gates creation on the named optional tasks.
	Tasks []string `json:"tasks,omitempty"`
}

// TaskEntry describes one optional install task offered to the user.
type TaskEntry struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	GroupDescription string `json:"group_description,omitempty"`
}

// Plan is the embedded install plan: everything the stub needs to perform
// and undo an installation.
type Plan struct {
	// BuildID uniquely identifies the build that produced the artifact.
	BuildID string `json:"build_id"`

	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`

	// DefaultDirName is the unexpanded default install directory, e.g.
	// "{autopf}\\AutoScraper".
	DefaultDirName string `json:"default_dir_name"`

	// DefaultGroupName is the start-menu group name.
	DefaultGroupName string `json:"default_group_name"`

	// UninstallIcon is the app-rooted icon path shown in the OS program
	// list, empty when the manifest declares none.
	UninstallIcon string `json:"uninstall_icon,omitempty"`

	// Compression records the manifest compression mode for inspection.
	Compression string `json:"compression"`

	Files     []FileEntry     `json:"files"`
	Shortcuts []ShortcutEntry `json:"shortcuts,omitempty"`
	Tasks     []TaskEntry     `json:"tasks,omitempty"`

	// TotalSize is the sum of uncompressed file sizes.
	TotalSize int64 `json:"total_size"`
}

// Task returns the declared task with the given name, or nil.
func (p *Plan) Task(name string) *TaskEntry {
	for i := range p.Tasks {
		if p.Tasks[i].Name == name {
			return &p.Tasks[i]
		}
	}
	return nil
}

// encodeTrailer renders the 16-byte trailer for a payload of the given
// length.
func encodeTrailer(payloadLen int64) []byte {
	buf := make([]byte, trailerSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(payloadLen))
	copy(buf[8:], Magic)
	return buf
}

// decodeTrailer parses a 16-byte trailer, returning the payload length.
func decodeTrailer(buf []byte) (int64, error) {
	if len(buf) != trailerSize {
		return 0, fmt.Errorf("%w: short trailer", ErrCorrupt)
	}
	if string(buf[8:]) != Magic {
		return 0, ErrNoPayload
	}
	length := int64(binary.LittleEndian.Uint64(buf[:8]))
	if length < 0 {
		return 0, fmt.Errorf("%w: negative payload length", ErrCorrupt)
	}
	return length, nil
}
