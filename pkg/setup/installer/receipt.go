package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReceiptName is the receipt file written into the install directory. The
// uninstaller replays it to remove everything the install placed.
const ReceiptName = "unins000.json"

// ErrNoReceipt is returned when an install directory carries no receipt.
var ErrNoReceipt = errors.New("no install receipt found")

// Receipt records exactly what an installation did: every file placed,
// every shortcut created, and the uninstall registry key, in placement
// order.
type Receipt struct {
	// ID uniquely identifies this installation.
	ID string `json:"id"`

	// BuildID is the build that produced the installer.
	BuildID string `json:"build_id"`

	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`

	// InstallDir is the absolute install root.
	InstallDir string `json:"install_dir"`

	// Files are the absolute paths of every file the installer wrote,
	// including the uninstaller copy.
	Files []string `json:"files"`

	// Shortcuts are the absolute paths of every link created.
	Shortcuts []string `json:"shortcuts"`

	// RegistryKey is the uninstall metadata key, empty on platforms
	// without a registry.
	RegistryKey string `json:"registry_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// receiptPath returns the receipt location for an install directory.
func receiptPath(installDir string) string {
	return filepath.Join(installDir, ReceiptName)
}

// WriteReceipt persists the receipt atomically: temp file then rename, so a
// crash never leaves a truncated receipt behind.
func WriteReceipt(r *Receipt) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	path := receiptPath(r.InstallDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize receipt: %w", err)
	}
	return nil
}

// LoadReceipt reads the receipt from an install directory.
func LoadReceipt(installDir string) (*Receipt, error) {
	data, err := os.ReadFile(receiptPath(installDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoReceipt
	}
	if err != nil {
		return nil, fmt.Errorf("read receipt: %w", err)
	}

	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}
