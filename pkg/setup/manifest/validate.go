package manifest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Validation errors. Validate wraps one or more of these with positions.
var (
	ErrMissingSetting   = errors.New("missing required [Setup] setting")
	ErrUncoveredTarget  = errors.New("shortcut target is not placed by any file rule")
	ErrUndeclaredTask   = errors.New("shortcut references an undeclared task")
	ErrDuplicateTask    = errors.New("duplicate task name")
	ErrDuplicateIcon    = errors.New("duplicate shortcut name")
	ErrBadShortcutRoot  = errors.New("shortcut name must be rooted at {group} or {autodesktop}")
	ErrBadDestDirRoot   = errors.New("file destination must be rooted at {app}")
	ErrUncoveredIcon    = errors.New("uninstall icon is not placed by any file rule")
	ErrEmptyFileSection = errors.New("manifest declares no file rules")
)

// Validate checks the manifest invariants that hold independently of the
// filesystem:
//
//   - required [Setup] settings are present
//   - every shortcut target resolves to a file some rule places
//   - every task a shortcut is gated on is declared under [Tasks]
//   - task and shortcut names are unique
//   - the uninstall icon, when set, is placed by some rule
//
// All violations are reported at once, joined into a single error.
func Validate(m *Manifest) error {
	var issues []error

	for _, req := range []struct{ name, value string }{
		{"AppName", m.Setup.AppName},
		{"DefaultDirName", m.Setup.DefaultDirName},
		{"OutputBaseFilename", m.Setup.OutputBaseFilename},
	} {
		if strings.TrimSpace(req.value) == "" {
			issues = append(issues, fmt.Errorf("%w: %s", ErrMissingSetting, req.name))
		}
	}

	if len(m.Files) == 0 {
		issues = append(issues, ErrEmptyFileSection)
	}

	for _, rule := range m.Files {
		if root, _ := SplitRooted(rule.DestDir); root != ConstApp {
			issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrBadDestDirRoot, rule.Line, rule.DestDir))
		}
	}

	tasks := make(map[string]bool, len(m.Tasks))
	for _, t := range m.Tasks {
		if tasks[t.Name] {
			issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrDuplicateTask, t.Line, t.Name))
		}
		tasks[t.Name] = true
	}

	seen := make(map[string]bool, len(m.Icons))
	for _, sc := range m.Icons {
		if seen[sc.Name] {
			issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrDuplicateIcon, sc.Line, sc.Name))
		}
		seen[sc.Name] = true

		if root, _ := SplitRooted(sc.Name); root != ConstGroup && root != ConstDesktop {
			issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrBadShortcutRoot, sc.Line, sc.Name))
		}
		if !m.covers(sc.Target) {
			issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrUncoveredTarget, sc.Line, sc.Target))
		}
		for _, gate := range sc.Tasks {
			if !tasks[gate] {
				issues = append(issues, fmt.Errorf("%w: line %d: %q", ErrUndeclaredTask, sc.Line, gate))
			}
		}
	}

	if icon := m.Setup.UninstallDisplayIcon; icon != "" && !m.covers(icon) {
		issues = append(issues, fmt.Errorf("%w: %q", ErrUncoveredIcon, icon))
	}

	return errors.Join(issues...)
}

// covers reports whether some file rule places a file at the given
// app-rooted target path.
func (m *Manifest) covers(target string) bool {
	root, rel := SplitRooted(target)
	if root != ConstApp || rel == "" {
		return false
	}
	targetDir := path.Dir(rel)
	if targetDir == "." {
		targetDir = ""
	}
	base := path.Base(rel)

	for _, rule := range m.Files {
		_, destRel := SplitRooted(rule.DestDir)
		pattern := path.Base(NormalizeSlashes(rule.Source))

		ok, err := path.Match(pattern, base)
		if err != nil || !ok {
			continue
		}
		if targetDir == destRel {
			return true
		}
		if rule.RecurseSubdirs && (destRel == "" || strings.HasPrefix(targetDir, destRel+"/")) {
			return true
		}
	}
	return false
}
