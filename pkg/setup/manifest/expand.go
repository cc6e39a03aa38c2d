package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Path constants usable in manifest values. They are resolved at install
// time against the end-user machine; validation and planning treat them as
// opaque roots.
const (
	ConstApp     = "app"         // the chosen install directory
	ConstGroup   = "group"       // the start-menu group directory
	ConstDesktop = "autodesktop" // the user's desktop directory
	ConstPF      = "autopf"      // the OS program-files directory
	ConstSrc     = "src"         // the directory containing the manifest
)

// ErrUnknownConstant is returned when a value references a path constant
// that has no binding.
var ErrUnknownConstant = errors.New("unknown path constant")

// Vars binds path constants to concrete directories.
type Vars map[string]string

// constPattern matches path constant references like {app}.
var constPattern = regexp.MustCompile(`\{([a-z]+)\}`)

// Expand replaces every {constant} reference in s using vars and normalizes
// separators to the native form of the running OS being planned for. It
// fails on references without a binding, so typos surface at build time
// rather than as mis-placed files.
func Expand(s string, vars Vars) (string, error) {
	var expandErr error
	out := constPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[1 : len(ref)-1]
		value, ok := vars[name]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("%w: {%s}", ErrUnknownConstant, name)
			}
			return ref
		}
		return value
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// SplitRooted splits a manifest path like "{app}\AutoScraper.exe" into its
// root constant and the slash-normalized relative remainder. Paths without
// a leading constant return an empty root.
func SplitRooted(s string) (root, rel string) {
	rel = NormalizeSlashes(s)
	match := constPattern.FindStringSubmatch(rel)
	if match == nil || !strings.HasPrefix(rel, match[0]) {
		return "", strings.TrimPrefix(rel, "/")
	}
	root = match[1]
	rel = strings.TrimPrefix(rel[len(match[0]):], "/")
	return root, rel
}

// NormalizeSlashes converts manifest-style backslash separators to forward
// slashes and collapses duplicates.
func NormalizeSlashes(s string) string {
	s = strings.ReplaceAll(s, `\`, "/")
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}
