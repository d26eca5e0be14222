package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ocmods/internal/domain"
	"ocmods/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, 10*time.Second, cfg.RetryCooldown)
	assert.Equal(t, "vim", cfg.Keybindings)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server_url: http://localhost:8080/api/
mods_dir: /srv/mods
page_size: 50
retry_cooldown: 1m30s
keybindings: standard
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api/", cfg.ServerURL)
	assert.Equal(t, "/srv/mods", cfg.ModsDir)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 90*time.Second, cfg.RetryCooldown)
	assert.Equal(t, "standard", cfg.Keybindings)
	assert.Equal(t, 4, cfg.ChecksumWorkers, "unset keys keep defaults")
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("page_size: 50\n"), 0644))

	t.Setenv("OCMODS_PAGE_SIZE", "5")
	t.Setenv("OCMODS_SERVER_URL", "http://mirror.example/")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "http://mirror.example/", cfg.ServerURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("page_size: 0\n"), 0644))

	_, err := config.Load(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadConfig_ZeroRetryCooldown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("retry_cooldown: 0s\n"), 0644))

	_, err := config.Load(dir)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("page_size: [\n"), 0644))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := config.Default()
	cfg.ModsDir = "/games/mods"
	cfg.RetryCooldown = 3 * time.Second

	require.NoError(t, cfg.Save(dir))

	loaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	cfg := config.Default()
	cfg.ChecksumWorkers = 0

	assert.ErrorIs(t, cfg.Save(t.TempDir()), domain.ErrInvalidConfig)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("version_tag: openclonk-8\n"), 0644))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openclonk-8", cfg.VersionTag)

	_, err = config.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
