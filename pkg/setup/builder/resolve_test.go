package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyind/setupkit/pkg/setup/manifest"
)

// writeTree creates files under root from relative paths to contents.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func targets(resolved []ResolvedFile) []string {
	out := make([]string, 0, len(resolved))
	for _, f := range resolved {
		out = append(out, f.Target)
	}
	return out
}

func TestResolveRules_Flat(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"dist/AutoScraper.exe": "MZ",
		"dist/readme.txt":      "docs",
	})

	resolved, err := ResolveRules(root, []manifest.FileRule{
		{Source: `dist\AutoScraper.exe`, DestDir: "{app}", IgnoreVersion: true},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "AutoScraper.exe", resolved[0].Target)
	assert.True(t, resolved[0].IgnoreVersion)
	assert.Equal(t, filepath.Join(root, "dist", "AutoScraper.exe"), resolved[0].Source)
}

func TestResolveRules_GlobSkipsDirs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"assets/icon.ico":       "ico",
		"assets/driver.exe":     "MZ",
		"assets/nested/sub.txt": "nested", // directory must not match the flat glob
	})

	resolved, err := ResolveRules(root, []manifest.FileRule{
		{Source: `assets\*`, DestDir: `{app}\assets`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/driver.exe", "assets/icon.ico"}, targets(resolved))
}

func TestResolveRules_RecursivePreservesStructure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"assets/icon.ico":                "ico",
		"assets/drivers/chromedriver":    "bin",
		"assets/drivers/x64/geckodriver": "bin64",
	})

	resolved, err := ResolveRules(root, []manifest.FileRule{
		{Source: `assets\*`, DestDir: `{app}\assets`, RecurseSubdirs: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"assets/drivers/chromedriver",
		"assets/drivers/x64/geckodriver",
		"assets/icon.ico",
	}, targets(resolved))
}

func TestResolveRules_LaterRuleWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"base/app.cfg":     "default",
		"override/app.cfg": "tuned",
	})

	resolved, err := ResolveRules(root, []manifest.FileRule{
		{Source: `base\app.cfg`, DestDir: "{app}"},
		{Source: `override\app.cfg`, DestDir: "{app}", IgnoreVersion: true},
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, filepath.Join(root, "override", "app.cfg"), resolved[0].Source)
	assert.True(t, resolved[0].IgnoreVersion)
}

func TestResolveRules_NoMatchIsFatal(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"dist/app.exe": "MZ"})

	_, err := ResolveRules(root, []manifest.FileRule{
		{Source: `dist\missing.exe`, DestDir: "{app}", Line: 14},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "line 14")
}

func TestResolveRules_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"assets/c.dat": "c",
		"assets/a.dat": "a",
		"assets/b.dat": "b",
	})

	rules := []manifest.FileRule{{Source: `assets\*`, DestDir: `{app}\assets`, RecurseSubdirs: true}}
	first, err := ResolveRules(root, rules)
	require.NoError(t, err)
	second, err := ResolveRules(root, rules)
	require.NoError(t, err)
	assert.Equal(t, targets(first), targets(second))
	assert.Equal(t, []string{"assets/a.dat", "assets/b.dat", "assets/c.dat"}, targets(first))
}
