package builder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyind/setupkit/pkg/setup/blobcache"
	"github.com/fyind/setupkit/pkg/setup/manifest"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

const testManifest = `
[Setup]
AppName=AutoScraper
AppVersion=1.0.0
DefaultDirName={autopf}\AutoScraper
DefaultGroupName=AutoScraper
UninstallDisplayIcon={app}\AutoScraper.exe
OutputDir=Output
OutputBaseFilename=AutoScraperSetup
Compression=normal

[Files]
Source: "dist\AutoScraper.exe"; DestDir: "{app}"; Flags: ignoreversion
Source: "assets\*"; DestDir: "{app}\assets"; Flags: ignoreversion recursesubdirs

[Icons]
Name: "{group}\AutoScraper"; Filename: "{app}\AutoScraper.exe"
Name: "{autodesktop}\AutoScraper"; Filename: "{app}\AutoScraper.exe"; Tasks: desktopicon

[Tasks]
Name: "desktopicon"; Description: "Create a desktop icon"; GroupDescription: "Additional icons:"
`

// setupBuild lays out a source tree, manifest, and fake stub, returning
// ready-to-use options.
func setupBuild(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"dist/AutoScraper.exe":    "MZ fake scraper binary",
		"assets/icon.ico":         "icon bytes",
		"assets/chromedriver.exe": "MZ driver",
		"assets/profiles/default": "profile data",
	})

	stub := filepath.Join(root, "setupstub.exe")
	require.NoError(t, os.WriteFile(stub, []byte("FAKE-STUB-BINARY"), 0o755))

	m, err := manifest.Parse(strings.NewReader(testManifest), "app.iss")
	require.NoError(t, err)
	m.Path = filepath.Join(root, "app.iss")

	return Options{Manifest: m, SourceRoot: root, StubPath: stub}
}

func TestBuild_RoundTrip(t *testing.T) {
	opts := setupBuild(t)
	b, err := New(opts)
	require.NoError(t, err)

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.SourceRoot, "Output", "AutoScraperSetup.exe"), result.ArtifactPath)
	assert.NotEmpty(t, result.BuildID)
	assert.Greater(t, result.ArtifactSize, int64(len("FAKE-STUB-BINARY")))

	a, err := payload.Open(result.ArtifactPath)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "AutoScraper", a.Plan.AppName)
	assert.Equal(t, "1.0.0", a.Plan.AppVersion)
	assert.Equal(t, `{autopf}\AutoScraper`, a.Plan.DefaultDirName)
	assert.Equal(t, "{app}/AutoScraper.exe", a.Plan.UninstallIcon)

	wantTargets := []string{
		"AutoScraper.exe",
		"assets/chromedriver.exe",
		"assets/icon.ico",
		"assets/profiles/default",
	}
	gotTargets := make([]string, 0, len(a.Plan.Files))
	for _, f := range a.Plan.Files {
		gotTargets = append(gotTargets, f.Target)
		assert.NotEmpty(t, f.SHA256, "digest for %s", f.Target)
	}
	assert.Equal(t, wantTargets, gotTargets)

	require.Len(t, a.Plan.Shortcuts, 2)
	assert.Equal(t, "{group}/AutoScraper", a.Plan.Shortcuts[0].Name)
	assert.Empty(t, a.Plan.Shortcuts[0].Tasks)
	assert.Equal(t, []string{"desktopicon"}, a.Plan.Shortcuts[1].Tasks)
	require.Len(t, a.Plan.Tasks, 1)

	// Payload content survives the trip.
	contents := map[string]string{}
	err = a.Walk(func(entry payload.FileEntry, r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		contents[entry.Target] = string(data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "MZ fake scraper binary", contents["AutoScraper.exe"])
	assert.Equal(t, "profile data", contents["assets/profiles/default"])
}

func TestBuild_DuplicateOutputName(t *testing.T) {
	opts := setupBuild(t)
	b, err := New(opts)
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrDuplicateOutput)

	opts.Force = true
	forced, err := New(opts)
	require.NoError(t, err)
	_, err = forced.Build(context.Background())
	assert.NoError(t, err)
}

func TestBuild_MissingSourceLeavesNoArtifact(t *testing.T) {
	opts := setupBuild(t)
	opts.Manifest.Files = append(opts.Manifest.Files, manifest.FileRule{
		Source: `dist\ghost.exe`, DestDir: "{app}", Line: 42,
	})
	b, err := New(opts)
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	require.ErrorIs(t, err, ErrNoMatch)

	outDir := filepath.Join(opts.SourceRoot, "Output")
	entries, readErr := os.ReadDir(outDir)
	if readErr == nil {
		assert.Empty(t, entries, "failed build must not leave artifacts")
	}
}

func TestBuild_DeterministicDeclaredSets(t *testing.T) {
	opts := setupBuild(t)
	opts.Force = true
	b, err := New(opts)
	require.NoError(t, err)

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	second, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)

	// Identical manifest input yields identical declared file and shortcut
	// sets.
	firstPlan, secondPlan := *first.Plan, *second.Plan
	firstPlan.BuildID, secondPlan.BuildID = "", ""
	assert.Equal(t, firstPlan, secondPlan)
}

func TestBuild_BlobCacheReuse(t *testing.T) {
	opts := setupBuild(t)
	opts.Force = true

	cache, err := blobcache.Open(t.TempDir())
	require.NoError(t, err)
	defer cache.Close()
	opts.Cache = cache

	b, err := New(opts)
	require.NoError(t, err)

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)
	assert.Equal(t, len(first.Plan.Files), first.CacheMisses)

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(second.Plan.Files), second.CacheHits)
	assert.Zero(t, second.CacheMisses)
}

func TestBuild_IconMustResolve(t *testing.T) {
	opts := setupBuild(t)
	// Valid per the rule-level check (a glob could cover it) but no actual
	// file resolves to it.
	opts.Manifest.Setup.UninstallDisplayIcon = `{app}\assets\missing.ico`
	opts.Manifest.Files[1].Source = `assets\*` // unchanged, still covers *.ico names

	b, err := New(opts)
	require.NoError(t, err)

	_, err = b.Build(context.Background())
	assert.ErrorIs(t, err, ErrIconNotPlaced)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Manifest: &manifest.Manifest{}})
	assert.Error(t, err)
}
