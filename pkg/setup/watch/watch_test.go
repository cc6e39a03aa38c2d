package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs the event loop and returns a channel that receives one
// value per debounced rebuild.
func startWatcher(t *testing.T, w *Watcher) <-chan struct{} {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fired := make(chan struct{}, 16)
	go w.Run(ctx, func() { fired <- struct{}{} })
	return fired
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatch_FiresOnFileChange(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	fired := startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.exe"), []byte("v2"), 0o644))
	waitFired(t, fired)
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	w, err := New(200 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	fired := startWatcher(t, w)

	for n := 0; n < 5; n++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data.db"), []byte{byte(n)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	waitFired(t, fired)

	// The burst coalesced into one notification.
	select {
	case <-fired:
		t.Fatal("expected a single debounced notification")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatch_PicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	fired := startWatcher(t, w)

	sub := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFired(t, fired)

	// Give the new directory's watch a moment to register.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "icon.png"), []byte("png"), 0o644))
	waitFired(t, fired)
}

func TestWatch_ManifestReplacedOnSave(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "setup.iss")
	require.NoError(t, os.WriteFile(manifestPath, []byte("[Setup]\n"), 0o644))

	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(manifestPath))

	fired := startWatcher(t, w)

	// Editors often write a temp file and rename it over the original.
	tmp := filepath.Join(dir, "setup.iss.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[Setup]\nAppName=X\n"), 0o644))
	require.NoError(t, os.Rename(tmp, manifestPath))
	waitFired(t, fired)
}

func TestWatch_CloseIsIdempotent(t *testing.T) {
	w, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}
