package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestInit_InvalidComponentLevel(t *testing.T) {
	err := Init(Config{Level: "info", Components: map[string]string{"builder": "shiny"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLevel)
	assert.Contains(t, err.Error(), "builder")
}

func TestInit_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "setupkit.log")
	require.NoError(t, Init(Config{Level: "debug", Path: path, Quiet: true}))
	defer func() { require.NoError(t, Close()) }()

	Get("builder").Info("build complete", "artifact", "Setup.exe")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build complete")
	assert.Contains(t, string(data), "builder")
}

func TestGet_ReturnsSameLogger(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info", Quiet: true}))
	defer Close()

	assert.Same(t, Get("stub"), Get("stub"))
	assert.NotSame(t, Get("stub"), Get("builder"))
}

func TestClose_WithoutFile(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info", Quiet: true}))
	assert.NoError(t, Close())
	assert.NoError(t, Close())
}
