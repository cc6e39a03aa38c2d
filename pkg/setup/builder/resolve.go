package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fyind/setupkit/pkg/setup/manifest"
)

// ErrNoMatch is returned when a file rule matches no source files. A rule
// that places nothing is a broken manifest, so the build aborts.
var ErrNoMatch = errors.New("file rule matched no source files")

// ResolvedFile is one concrete file a rule places: a source on the build
// machine mapped to a target path under the install root.
type ResolvedFile struct {
	// Source is the absolute path on the build machine.
	Source string

	// Target is the slash-separated path under the install root.
	Target string

	Size    int64
	Mode    fs.FileMode
	ModTime time.Time

	// IgnoreVersion carries the rule's overwrite policy.
	IgnoreVersion bool
}

// ResolveRules expands every file rule against the source tree rooted at
// root. When two rules place the same target, the later rule wins. The
// result is sorted by target path, so identical inputs always yield an
// identical file set.
func ResolveRules(root string, rules []manifest.FileRule) ([]ResolvedFile, error) {
	byTarget := make(map[string]ResolvedFile)

	for _, rule := range rules {
		matches, err := resolveRule(root, rule)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			byTarget[m.Target] = m
		}
	}

	resolved := make([]ResolvedFile, 0, len(byTarget))
	for _, m := range byTarget {
		resolved = append(resolved, m)
	}
	sort.Slice(resolved, func(i, j int) bool { return resolved[i].Target < resolved[j].Target })
	return resolved, nil
}

// resolveRule expands a single rule.
func resolveRule(root string, rule manifest.FileRule) ([]ResolvedFile, error) {
	src := manifest.NormalizeSlashes(rule.Source)
	pattern := path.Base(src)
	baseDir := path.Dir(src)
	if baseDir == "." {
		baseDir = ""
	}
	absBase := filepath.Join(root, filepath.FromSlash(baseDir))

	_, destRel := manifest.SplitRooted(rule.DestDir)

	var matches []ResolvedFile
	var err error
	if rule.RecurseSubdirs {
		matches, err = matchRecursive(absBase, pattern, destRel, rule.IgnoreVersion)
	} else {
		matches, err = matchFlat(absBase, pattern, destRel, rule.IgnoreVersion)
	}
	if err != nil {
		return nil, fmt.Errorf("rule at line %d (%q): %w", rule.Line, rule.Source, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: line %d: %q", ErrNoMatch, rule.Line, rule.Source)
	}
	return matches, nil
}

// matchFlat matches the pattern against regular files directly inside the
// base directory.
func matchFlat(absBase, pattern, destRel string, ignoreVersion bool) ([]ResolvedFile, error) {
	entries, err := os.ReadDir(absBase)
	if err != nil {
		return nil, err
	}

	var matches []ResolvedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := path.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		matches = append(matches, ResolvedFile{
			Source:        filepath.Join(absBase, entry.Name()),
			Target:        joinTarget(destRel, entry.Name()),
			Size:          info.Size(),
			Mode:          info.Mode(),
			ModTime:       info.ModTime(),
			IgnoreVersion: ignoreVersion,
		})
	}
	return matches, nil
}

// matchRecursive applies the pattern in the base directory and every
// subdirectory, preserving the relative structure under destRel. The walk
// uses fastwalk and collects matches under a lock, since callbacks run
// concurrently.
func matchRecursive(absBase, pattern, destRel string, ignoreVersion bool) ([]ResolvedFile, error) {
	var (
		mu      sync.Mutex
		matches []ResolvedFile
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, absBase, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		ok, err := path.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(absBase, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		mu.Lock()
		matches = append(matches, ResolvedFile{
			Source:        p,
			Target:        joinTarget(destRel, filepath.ToSlash(rel)),
			Size:          info.Size(),
			Mode:          info.Mode(),
			ModTime:       info.ModTime(),
			IgnoreVersion: ignoreVersion,
		})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// joinTarget joins a destination directory and a relative path in slash
// form.
func joinTarget(destRel, rel string) string {
	if destRel == "" {
		return rel
	}
	return destRel + "/" + rel
}
