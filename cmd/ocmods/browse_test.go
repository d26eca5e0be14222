package main

import (
	"context"
	"testing"

	"ocmods/internal/storage/config"
	"ocmods/internal/tui/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	mods := setupDirs(t, "http://localhost:8080/api/")
	path := writeInstalled(t, mods, "42_castle-siege", castleXML)

	svc, err := initService()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, svc.Close())
	})

	backend := newBackend(svc)
	require.NotNil(t, backend.Browse)
	require.NotNil(t, backend.Installed)
	require.NotNil(t, backend.Pipeline)
	require.NotNil(t, backend.Updater)
	assert.Equal(t, views.SettingsData{PageSize: 20, Keybindings: "vim", ChecksumWorkers: 4}, backend.Settings)

	require.NoError(t, backend.Uninstall(context.Background(), "42"))
	assert.NoDirExists(t, path)
}

func TestNewBackend_SaveSettings(t *testing.T) {
	setupDirs(t, "http://localhost:8080/api/")

	svc, err := initService()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, svc.Close())
	})

	backend := newBackend(svc)
	require.NoError(t, backend.SaveSettings(views.SettingsData{PageSize: 50, Keybindings: "standard", ChecksumWorkers: 2}))

	stored, err := config.Load(configDir)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.PageSize)
	assert.Equal(t, "standard", stored.Keybindings)
	assert.Equal(t, 2, stored.ChecksumWorkers)
	assert.Equal(t, "https://mods.openclonk.org/api/", stored.ServerURL, "flag override is not persisted")
	assert.Equal(t, "standard", svc.Config().Keybindings)
}
