package views_test

import (
	"testing"

	"ocmods/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSettings() views.SettingsData {
	return views.SettingsData{
		PageSize:        20,
		Keybindings:     "vim",
		ChecksumWorkers: 4,
	}
}

func TestSettings_InitialState(t *testing.T) {
	model := views.NewSettings(defaultSettings())

	assert.Equal(t, 0, model.Selected())
	assert.NotEmpty(t, model.View())
}

func TestSettings_Navigate(t *testing.T) {
	model := views.NewSettings(defaultSettings())

	// Navigate down
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated := newModel.(views.Settings)

	assert.Equal(t, 1, updated.Selected())
}

func TestSettings_CyclePageSize(t *testing.T) {
	model := views.NewSettings(defaultSettings())

	// Press enter to cycle page size
	newModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := newModel.(views.Settings)

	assert.Equal(t, 50, updated.CurrentSettings().PageSize)

	// Should emit a change message
	require.NotNil(t, cmd)
	changeMsg, ok := cmd().(views.SettingsChangedMsg)
	require.True(t, ok)
	assert.Equal(t, 50, changeMsg.Settings.PageSize)
	assert.Equal(t, "vim", changeMsg.Settings.Keybindings)
}

func TestSettings_CycleKeybindings(t *testing.T) {
	model := views.NewSettings(defaultSettings())

	// Navigate to keybindings
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyDown})

	// Press enter to cycle
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := newModel.(views.Settings)

	// Should have cycled to standard
	assert.Equal(t, "standard", updated.CurrentSettings().Keybindings)
}

func TestSettings_LeftRightCycle(t *testing.T) {
	model := views.NewSettings(defaultSettings())

	// Navigate to checksum workers
	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyUp})

	// Press right to cycle forward
	newModel, _ = newModel.Update(tea.KeyMsg{Type: tea.KeyRight})
	updated := newModel.(views.Settings)

	assert.Equal(t, 8, updated.CurrentSettings().ChecksumWorkers)

	// Press left to cycle back
	newModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyLeft})
	updated = newModel.(views.Settings)

	assert.Equal(t, 4, updated.CurrentSettings().ChecksumWorkers)
}

func TestSettings_UnofferedValueShowsFirstOption(t *testing.T) {
	settings := defaultSettings()
	settings.PageSize = 33

	model := views.NewSettings(settings)
	assert.Equal(t, 33, model.CurrentSettings().PageSize, "kept until changed")

	newModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 20, newModel.(views.Settings).CurrentSettings().PageSize)
}

func TestSettings_ViewContainsCurrentValues(t *testing.T) {
	settings := defaultSettings()
	settings.Keybindings = "standard"
	settings.PageSize = 100

	model := views.NewSettings(settings)

	view := model.View()
	assert.Contains(t, view, "100")
	assert.Contains(t, view, "standard")
}
