package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/storage"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, storage.DefaultTimeout, cfg.Storage.HTTP.Timeout)
	assert.Equal(t, storage.DefaultRetries, cfg.Storage.Retries)
	assert.Equal(t, storage.DefaultDriveAPI, cfg.Storage.GDrive.BaseURL)
	assert.Equal(t, 8, cfg.Split.CacheSize)
	assert.Equal(t, 4.0, cfg.Sync.DownloadsPerSecond)
}

const sample = `
[log]
level = "debug"

[stamp]
font_file = "fonts/exhibit.ttf"

[storage]
retries = 1

[storage.http]
timeout = "30s"
hosts = ["https://files.example.com"]

[storage.gdrive]
api_key = "from-file"

[sync]
workers = 3
`

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legalkit.toml"), []byte(sample), 0o644))
	t.Setenv("LEGALKIT_STORAGE_GDRIVE_API_KEY", "from-env")
	t.Setenv("LEGALKIT_SPLIT_CACHE_SIZE", "2")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "fonts/exhibit.ttf", cfg.Stamp.FontFile)
	assert.Equal(t, 30*time.Second, cfg.Storage.HTTP.Timeout)
	assert.Equal(t, []string{"https://files.example.com"}, cfg.Storage.HTTP.Hosts)
	assert.Equal(t, "from-env", cfg.Storage.GDrive.APIKey)
	assert.Equal(t, 3, cfg.Sync.Workers)
	assert.Equal(t, 2, cfg.Split.CacheSize)
}

func TestLoadExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRepository(t *testing.T) {
	cfg := &Config{}
	repo := cfg.Repository()
	_, err := repo.Metadata(context.Background(), "https://drive.google.com/file/d/abc/view")
	assert.ErrorContains(t, err, "storage.gdrive")

	_, err = repo.Metadata(context.Background(), "https://unknown.example.com/a.pdf")
	assert.ErrorIs(t, err, storage.ErrUnsupported)

	_, err = repo.Metadata(context.Background(), "file::/tmp/a.pdf")
	assert.ErrorIs(t, err, storage.ErrNoMetadata)
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
