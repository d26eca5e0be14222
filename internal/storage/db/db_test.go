package db_test

import (
	"path/filepath"
	"testing"

	"ocmods/internal/domain"
	"ocmods/internal/storage/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleRecord() domain.ModRecord {
	return domain.ModRecord{
		ID:        "101",
		Title:     "Castle Siege",
		Slug:      "castle-siege",
		Author:    "Sven",
		UpdatedAt: "2024-02-10T08:00:00Z",
		Files: []domain.FileEntry{
			{Handle: "f2", Name: "Siege.ocs", Size: 2048, SHA1: "abc"},
			{Handle: "f1", Name: "Castle.ocd", Size: 512},
		},
	}
}

func TestNew_RunsMigrations(t *testing.T) {
	database := newDB(t)

	var count int
	assert.NoError(t, database.QueryRow("SELECT COUNT(*) FROM installed_mods").Scan(&count))
	assert.NoError(t, database.QueryRow("SELECT COUNT(*) FROM installed_mod_files").Scan(&count))

	version, err := database.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocmods.db")

	database, err := db.New(path)
	require.NoError(t, err)
	require.NoError(t, database.SaveInstall(sampleRecord(), "/mods/101_castle-siege"))
	require.NoError(t, database.Close())

	database, err = db.New(path)
	require.NoError(t, err)
	defer database.Close()

	rec, err := database.GetInstall("101")
	require.NoError(t, err)
	assert.Equal(t, "Castle Siege", rec.Title)
}

func TestInstalls_SaveAndGet(t *testing.T) {
	database := newDB(t)

	require.NoError(t, database.SaveInstall(sampleRecord(), "/mods/101_castle-siege"))

	rec, err := database.GetInstall("101")
	require.NoError(t, err)
	assert.Equal(t, "castle-siege", rec.Slug)
	assert.Equal(t, "Sven", rec.Author)
	assert.Equal(t, "/mods/101_castle-siege", rec.Path)
	assert.False(t, rec.InstalledAt.IsZero())
	require.Len(t, rec.Files, 2)
	assert.Equal(t, "Castle.ocd", rec.Files[0].Name, "files are ordered by name")
	assert.Equal(t, "abc", rec.Files[1].SHA1)
}

func TestInstalls_UpdateReplacesFiles(t *testing.T) {
	database := newDB(t)
	rec := sampleRecord()
	require.NoError(t, database.SaveInstall(rec, "/mods/101_castle-siege"))

	rec.Title = "Castle Siege II"
	rec.Files = []domain.FileEntry{{Handle: "f9", Name: "Siege2.ocs", Size: 10}}
	require.NoError(t, database.SaveInstall(rec, "/mods/101_castle-siege"))

	records, err := database.GetInstalls()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Castle Siege II", records[0].Title)
	require.Len(t, records[0].Files, 1)
	assert.Equal(t, "Siege2.ocs", records[0].Files[0].Name)
}

func TestInstalls_GetAllOrdered(t *testing.T) {
	database := newDB(t)
	for _, id := range []string{"30", "10", "20"} {
		rec := sampleRecord()
		rec.ID = id
		require.NoError(t, database.SaveInstall(rec, "/mods/"+id))
	}

	records, err := database.GetInstalls()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "10", records[0].ModID)
	assert.Equal(t, "30", records[2].ModID)
	assert.Len(t, records[1].Files, 2)
}

func TestInstalls_Delete(t *testing.T) {
	database := newDB(t)
	require.NoError(t, database.SaveInstall(sampleRecord(), "/mods/101"))

	require.NoError(t, database.DeleteInstall("101"))

	_, err := database.GetInstall("101")
	assert.ErrorIs(t, err, domain.ErrModNotFound)

	files, err := database.GetInstallFiles("101")
	require.NoError(t, err)
	assert.Empty(t, files, "files cascade with the mod")

	assert.ErrorIs(t, database.DeleteInstall("101"), domain.ErrModNotFound)
}
