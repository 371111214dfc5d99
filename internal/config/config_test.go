package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.FetchAttempts)
	assert.Equal(t, 1.0, cfg.FetchBaseBackoffSeconds)
	assert.Equal(t, 0.25, cfg.MinRequestIntervalSeconds)
	assert.Equal(t, 30, cfg.FetchTimeoutSeconds)
	assert.Equal(t, "ocean-watch-rfmo-ingestion/1.0", cfg.UserAgent)
	assert.True(t, cfg.RespectRobots)
}

func TestLoad_OverridesSomeFieldsKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_root: /data/custom\nfetch_attempts: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/custom", cfg.StorageRoot)
	assert.Equal(t, 5, cfg.FetchAttempts)
	assert.Equal(t, 0.25, cfg.MinRequestIntervalSeconds, "unset fields keep their Default() value")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch_FiresOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_root: /a\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, ch, err := Watch(ctx, path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("storage_root: /b\n"), 0o644))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a change notification")
	}
}
