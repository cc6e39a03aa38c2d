// Package builder compiles an installer manifest and its source tree into a
// self-extracting installer artifact: a copy of the stub executable with the
// payload archive appended.
package builder

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/fyind/setupkit/pkg/setup/blobcache"
	"github.com/fyind/setupkit/pkg/setup/logging"
	"github.com/fyind/setupkit/pkg/setup/manifest"
	"github.com/fyind/setupkit/pkg/setup/payload"
)

// Builder errors.
var (
	ErrDuplicateOutput = errors.New("output artifact already exists")
	ErrIconNotPlaced   = errors.New("uninstall icon does not resolve to a placed file")
)

// Options configures a build.
type Options struct {
	// Manifest is the parsed and validated installer manifest.
	Manifest *manifest.Manifest

	// SourceRoot is the directory source globs are resolved against.
	// Defaults to the directory containing the manifest.
	SourceRoot string

	// StubPath is the installer stub executable the payload is appended to.
	StubPath string

	// OutputDir overrides the manifest's OutputDir when non-empty.
	OutputDir string

	// Force allows overwriting an existing artifact of the same name.
	Force bool

	// Cache, when non-nil, reuses compressed blobs across builds.
	Cache *blobcache.Cache
}

// Result summarizes a completed build.
type Result struct {
	ArtifactPath string
	BuildID      string
	Plan         *payload.Plan
	ArtifactSize int64
	CacheHits    int
	CacheMisses  int
	Elapsed      time.Duration
}

// Builder runs builds for a fixed set of options. A Builder may be reused;
// watch mode rebuilds through the same instance.
type Builder struct {
	opts Options
}

// New validates options and returns a Builder.
func New(opts Options) (*Builder, error) {
	if opts.Manifest == nil {
		return nil, errors.New("builder: manifest is required")
	}
	if opts.StubPath == "" {
		return nil, errors.New("builder: stub path is required")
	}
	if opts.SourceRoot == "" {
		opts.SourceRoot = filepath.Dir(opts.Manifest.Path)
	}
	return &Builder{opts: opts}, nil
}

// Build compiles the manifest into an installer artifact. The artifact is
// written to a temporary file and renamed into place, so a failed build
// never leaves a partial artifact behind.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	logger := logging.Get("builder")
	start := time.Now()
	m := b.opts.Manifest

	if err := manifest.Validate(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	resolved, err := ResolveRules(b.opts.SourceRoot, m.Files)
	if err != nil {
		return nil, err
	}
	if err := checkIconPlaced(m, resolved); err != nil {
		return nil, err
	}

	artifactPath, err := b.artifactPath()
	if err != nil {
		return nil, err
	}

	result := &Result{
		ArtifactPath: artifactPath,
		BuildID:      uuid.NewString(),
	}
	result.Plan = b.buildPlan(result.BuildID, resolved)

	if err := b.writeArtifact(ctx, artifactPath, resolved, result); err != nil {
		return nil, err
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	result.ArtifactSize = info.Size()
	result.Elapsed = time.Since(start)

	logger.Info("build complete",
		"artifact", artifactPath,
		"files", len(resolved),
		"size", humanize.IBytes(uint64(result.ArtifactSize)),
		"cache_hits", result.CacheHits,
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}

// artifactPath resolves the output location and enforces the unique output
// name invariant.
func (b *Builder) artifactPath() (string, error) {
	m := b.opts.Manifest

	outDir := b.opts.OutputDir
	if outDir == "" {
		outDir = m.Setup.OutputDir
	}
	if outDir == "" {
		outDir = "Output"
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(b.opts.SourceRoot, outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := m.Setup.OutputBaseFilename + filepath.Ext(b.opts.StubPath)
	artifact := filepath.Join(outDir, name)

	if !b.opts.Force {
		if _, err := os.Stat(artifact); err == nil {
			return "", fmt.Errorf("%w: %s", ErrDuplicateOutput, artifact)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	return artifact, nil
}

// checkIconPlaced verifies the uninstall icon resolves to a concrete file
// in the resolved set, not just to a rule that could cover it.
func checkIconPlaced(m *manifest.Manifest, resolved []ResolvedFile) error {
	icon := m.Setup.UninstallDisplayIcon
	if icon == "" {
		return nil
	}
	_, rel := manifest.SplitRooted(icon)
	for _, f := range resolved {
		if f.Target == rel {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrIconNotPlaced, icon)
}

// buildPlan assembles the install plan embedded in the artifact.
func (b *Builder) buildPlan(buildID string, resolved []ResolvedFile) *payload.Plan {
	m := b.opts.Manifest
	plan := &payload.Plan{
		BuildID:          buildID,
		AppName:          m.Setup.AppName,
		AppVersion:       m.Setup.AppVersion,
		DefaultDirName:   m.Setup.DefaultDirName,
		DefaultGroupName: m.Setup.DefaultGroupName,
		UninstallIcon:    manifest.NormalizeSlashes(m.Setup.UninstallDisplayIcon),
		Compression:      m.Setup.Compression.String(),
	}

	for _, f := range resolved {
		plan.Files = append(plan.Files, payload.FileEntry{
			Target:        f.Target,
			Size:          f.Size,
			Mode:          f.Mode,
			ModTime:       f.ModTime,
			IgnoreVersion: f.IgnoreVersion,
		})
		plan.TotalSize += f.Size
	}
	for _, sc := range m.Icons {
		plan.Shortcuts = append(plan.Shortcuts, payload.ShortcutEntry{
			Name:   manifest.NormalizeSlashes(sc.Name),
			Target: manifest.NormalizeSlashes(sc.Target),
			Tasks:  sc.Tasks,
		})
	}
	for _, task := range m.Tasks {
		plan.Tasks = append(plan.Tasks, payload.TaskEntry{
			Name:             task.Name,
			Description:      task.Description,
			GroupDescription: task.GroupDescription,
		})
	}
	return plan
}

// writeArtifact writes stub + payload to a temp file and renames it onto
// the final path.
func (b *Builder) writeArtifact(ctx context.Context, artifactPath string, resolved []ResolvedFile, result *Result) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(artifactPath), filepath.Base(artifactPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = copyStub(tmp, b.opts.StubPath); err != nil {
		return err
	}

	level := b.opts.Manifest.Setup.Compression.Level()
	w := payload.NewWriter(tmp)

	// Digests are computed while compressing, so the plan is written after
	// the blobs are prepared but before any blob is added.
	blobs := make([][]byte, len(resolved))
	for i, f := range resolved {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		blob, sum, err2 := b.compress(f.Source, level, result)
		if err2 != nil {
			return fmt.Errorf("compress %s: %w", f.Source, err2)
		}
		blobs[i] = blob
		result.Plan.Files[i].SHA256 = sum
	}

	if err = w.WritePlan(result.Plan); err != nil {
		return err
	}
	for i, f := range resolved {
		if err = w.AddBlob(result.Plan.Files[i], blobs[i]); err != nil {
			return fmt.Errorf("add %s: %w", f.Target, err)
		}
	}
	if err = w.Close(); err != nil {
		return err
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o755); err != nil {
		return fmt.Errorf("chmod artifact: %w", err)
	}
	if err = os.Rename(tmp.Name(), artifactPath); err != nil {
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}

// copyStub streams the stub executable into the artifact.
func copyStub(dst io.Writer, stubPath string) error {
	stub, err := os.Open(stubPath)
	if err != nil {
		return fmt.Errorf("open stub: %w", err)
	}
	defer stub.Close()

	if _, err := io.Copy(dst, stub); err != nil {
		return fmt.Errorf("copy stub: %w", err)
	}
	return nil
}

// compress returns the gzip blob and content digest for a source file,
// consulting the blob cache first.
func (b *Builder) compress(source string, level int, result *Result) ([]byte, string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if b.opts.Cache != nil {
		blob, err := b.opts.Cache.Get(digest, level)
		if err == nil {
			result.CacheHits++
			return blob, digest, nil
		}
		if !errors.Is(err, blobcache.ErrNotFound) {
			return nil, "", err
		}
	}
	result.CacheMisses++

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, "", err
	}
	if _, err := gz.Write(data); err != nil {
		return nil, "", err
	}
	if err := gz.Close(); err != nil {
		return nil, "", err
	}
	blob := buf.Bytes()

	if b.opts.Cache != nil {
		if err := b.opts.Cache.Put(digest, level, blob); err != nil {
			return nil, "", err
		}
	}
	return blob, digest, nil
}
