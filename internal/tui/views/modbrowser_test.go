package views_test

import (
	"testing"

	"ocmods/internal/core"
	"ocmods/internal/domain"
	"ocmods/internal/source/catalog"
	"ocmods/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedResults(entries ...core.Entry) views.SearchResultsMsg {
	return views.SearchResultsMsg{
		State:   core.ListLoaded,
		Entries: entries,
		Page:    1,
		Pages:   1,
	}
}

func entry(id, title string) core.Entry {
	return core.Entry{Record: domain.ModRecord{ID: id, Title: title, Slug: title}}
}

func TestModBrowser_InitialState(t *testing.T) {
	model := views.NewModBrowser()

	assert.Equal(t, "", model.SearchQuery())
	assert.True(t, model.IsSearchFocused())
	assert.True(t, model.Query().Compatible)
	assert.NotEmpty(t, model.View())
}

func TestModBrowser_TypeInSearch(t *testing.T) {
	model := views.NewModBrowser()

	// Type some characters
	newModel, _ := model.Update(runes("c"))
	newModel, _ = newModel.Update(runes("t"))
	newModel, _ = newModel.Update(runes("f"))

	updated := newModel.(views.ModBrowser)
	assert.Equal(t, "ctf", updated.SearchQuery())
}

func TestModBrowser_EnterSearches(t *testing.T) {
	model := views.NewModBrowser()

	newModel, _ := model.Update(runes("castle"))
	newModel, cmd := newModel.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := newModel.(views.ModBrowser)

	assert.False(t, updated.IsSearchFocused())
	require.NotNil(t, cmd)
	msg, ok := cmd().(views.SearchMsg)
	require.True(t, ok)
	assert.Equal(t, "castle", msg.Query.Text)
	assert.True(t, msg.Query.Compatible)
}

func TestModBrowser_EnterInstallsByID(t *testing.T) {
	model := views.NewModBrowser()

	newModel, _ := model.Update(runes("#12-34"))
	newModel, cmd := newModel.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	msg, ok := cmd().(views.InstallIDsMsg)
	require.True(t, ok)
	assert.Equal(t, "12-34", msg.IDs)
	assert.Empty(t, newModel.(views.ModBrowser).SearchQuery())
}

func TestModBrowser_SetResults(t *testing.T) {
	model := views.NewModBrowser()

	newModel, _ := model.Update(loadedResults(entry("1", "Castle Siege"), entry("2", "Tower Defense")))
	updated := newModel.(views.ModBrowser)

	assert.Equal(t, 2, updated.ResultCount())
	view := updated.View()
	assert.Contains(t, view, "Castle Siege")
	assert.Contains(t, view, "Page 1 of 1")
}

func TestModBrowser_States(t *testing.T) {
	model := views.NewModBrowser()

	newModel, _ := model.Update(views.SearchResultsMsg{State: core.ListLoading})
	assert.Contains(t, newModel.View(), "Searching...")

	newModel, _ = model.Update(views.SearchResultsMsg{State: core.ListFailed, Message: "server returned 503"})
	assert.Contains(t, newModel.View(), "server returned 503")

	newModel, _ = model.Update(views.SearchResultsMsg{State: core.ListNoResults, Message: "No mods found."})
	assert.Contains(t, newModel.View(), "No mods found.")
}

func TestModBrowser_NavigateResults(t *testing.T) {
	model := views.NewModBrowser()

	// Set results and exit search mode
	newModel, _ := model.Update(loadedResults(entry("1", "A"), entry("2", "B")))
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyEsc})
	updated := newModel.(views.ModBrowser)

	assert.False(t, updated.IsSearchFocused())

	// Navigate down
	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated = newModel.(views.ModBrowser)
	assert.Equal(t, 1, updated.Selected())

	// Wraps around
	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, newModel.(views.ModBrowser).Selected())

	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, newModel.(views.ModBrowser).Selected())
}

func TestModBrowser_PollKeepsSelection(t *testing.T) {
	model := views.NewModBrowser()
	results := loadedResults(entry("1", "A"), entry("2", "B"))

	newModel, _ := model.Update(results)
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyEsc})
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyDown})

	newModel, _ = newModel.Update(results)
	assert.Equal(t, 1, newModel.(views.ModBrowser).Selected())
}

func TestModBrowser_EnterToInstall(t *testing.T) {
	model := views.NewModBrowser()

	newModel, _ := model.Update(loadedResults(entry("1", "A"), entry("2", "B")))
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyEsc})
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := newModel.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(views.InstallModMsg)
	require.True(t, ok)
	assert.Equal(t, 1, msg.Index)
}

func TestModBrowser_Toggles(t *testing.T) {
	model := views.NewModBrowser()
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	newModel, cmd := newModel.Update(runes("c"))
	require.NotNil(t, cmd)
	assert.False(t, cmd().(views.SearchMsg).Query.Compatible)

	newModel, cmd = newModel.Update(runes("s"))
	require.NotNil(t, cmd)
	assert.True(t, cmd().(views.SearchMsg).Query.Playable)

	_, cmd = newModel.Update(runes("o"))
	require.NotNil(t, cmd)
	q := cmd().(views.SearchMsg).Query
	assert.Equal(t, catalog.SortUpdated, q.Sort)
	assert.True(t, q.Descending)
}

func TestModBrowser_Paging(t *testing.T) {
	model := views.NewModBrowser()
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	_, cmd := newModel.Update(runes("n"))
	require.NotNil(t, cmd)
	assert.Equal(t, views.PageMsg{Next: true}, cmd())

	_, cmd = newModel.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.NotNil(t, cmd)
	assert.Equal(t, views.PageMsg{Next: false}, cmd())
}

func TestModBrowser_MarksInstalled(t *testing.T) {
	installed := entry("1", "Castle Siege")
	installed.Installed = true

	model := views.NewModBrowser()
	newModel, _ := model.Update(loadedResults(installed))

	assert.Contains(t, newModel.View(), "[installed]")
}
