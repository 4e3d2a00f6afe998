package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	cfg := store.Get()
	assert.Equal(t, Default().Model, cfg.Model)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "opening a store must not create the file")
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	store.Update(func(c *Config) {
		c.Model = "kimi-k2"
		c.EnabledTools["open_url"] = true
		c.AutoApproveURLs = []string{"*.wikipedia.org"}
	})
	require.NoError(t, store.Save())

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)

	cfg := reloaded.Get()
	assert.Equal(t, "kimi-k2", cfg.Model)
	assert.True(t, cfg.EnabledTools["open_url"])
	assert.Equal(t, []string{"*.wikipedia.org"}, cfg.AutoApproveURLs)
}

func TestFileStoreGetReturnsCopy(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	cfg := store.Get()
	cfg.Model = "mutated"

	assert.NotEqual(t, "mutated", store.Get().Model)
}

func TestPresetStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	store, err := NewPresetStore(path)
	require.NoError(t, err)

	cfg := Default()
	cfg.Model = "preset-model"
	require.NoError(t, store.Save("fast", cfg))

	reloaded, err := NewPresetStore(path)
	require.NoError(t, err)

	got, err := reloaded.Get("fast")
	require.NoError(t, err)
	assert.Equal(t, "preset-model", got.Model)
	assert.Equal(t, []string{"fast"}, reloaded.Names())

	require.NoError(t, reloaded.Delete("fast"))
	_, err = reloaded.Get("fast")
	assert.Error(t, err)
}

func TestPresetStoreRejectsEmptyName(t *testing.T) {
	store, err := NewPresetStore(filepath.Join(t.TempDir(), "presets.yaml"))
	require.NoError(t, err)
	assert.Error(t, store.Save("", Default()))
}
