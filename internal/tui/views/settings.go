package views

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SettingsData holds the current settings values
type SettingsData struct {
	PageSize        int
	Keybindings     string
	ChecksumWorkers int
}

// SettingsChangedMsg is sent when settings are modified
type SettingsChangedMsg struct {
	Settings SettingsData
}

// settingItem represents a single setting
type settingItem struct {
	name        string
	description string
	options     []string
	current     int
}

var (
	pageSizeOptions = []string{"10", "20", "50", "100"}
	workerOptions   = []string{"1", "2", "4", "8"}
)

// Settings is the settings view
type Settings struct {
	settings SettingsData
	items    []settingItem
	selected int
	width    int
	height   int
}

// NewSettings creates a new settings view
func NewSettings(settings SettingsData) Settings {
	keybindingsIdx := 0
	if settings.Keybindings == "standard" {
		keybindingsIdx = 1
	}

	items := []settingItem{
		{
			name:        "Page Size",
			description: "Search results per page, applies to the next start",
			options:     pageSizeOptions,
			current:     optionIndex(pageSizeOptions, strconv.Itoa(settings.PageSize)),
		},
		{
			name:        "Keybindings",
			description: "Keyboard navigation style",
			options:     []string{"vim", "standard"},
			current:     keybindingsIdx,
		},
		{
			name:        "Checksum Workers",
			description: "Files hashed in parallel when checking installed mods",
			options:     workerOptions,
			current:     optionIndex(workerOptions, strconv.Itoa(settings.ChecksumWorkers)),
		},
	}

	return Settings{
		settings: settings,
		items:    items,
		selected: 0,
		width:    80,
		height:   24,
	}
}

// optionIndex falls back to the first option for values not offered
func optionIndex(options []string, value string) int {
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return 0
}

// Selected returns the currently selected setting index
func (s Settings) Selected() int {
	return s.selected
}

// CurrentSettings returns the current settings values
func (s Settings) CurrentSettings() SettingsData {
	return s.settings
}

// Init implements tea.Model
func (s Settings) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s Settings) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return s.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, nil
	}

	return s, nil
}

func (s Settings) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up":
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.items) - 1
		}
		return s, nil

	case "down":
		s.selected++
		if s.selected >= len(s.items) {
			s.selected = 0
		}
		return s, nil

	case "enter", " ", "right":
		return s.cycleForward()

	case "left":
		return s.cycleBackward()
	}

	return s, nil
}

func (s Settings) cycleForward() (tea.Model, tea.Cmd) {
	item := &s.items[s.selected]
	item.current = (item.current + 1) % len(item.options)
	s.applySettings()
	return s, s.emitChange()
}

func (s Settings) cycleBackward() (tea.Model, tea.Cmd) {
	item := &s.items[s.selected]
	item.current--
	if item.current < 0 {
		item.current = len(item.options) - 1
	}
	s.applySettings()
	return s, s.emitChange()
}

func (s *Settings) applySettings() {
	s.settings.PageSize, _ = strconv.Atoi(s.items[0].options[s.items[0].current])
	s.settings.Keybindings = s.items[1].options[s.items[1].current]
	s.settings.ChecksumWorkers, _ = strconv.Atoi(s.items[2].options[s.items[2].current])
}

func (s Settings) emitChange() tea.Cmd {
	return func() tea.Msg {
		return SettingsChangedMsg{Settings: s.settings}
	}
}

// View implements tea.Model
func (s Settings) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("82"))

	optionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	selectedOptionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Title
	output := titleStyle.Render("Settings") + "\n\n"

	// Settings list
	for i, item := range s.items {
		cursor := "  "
		style := itemStyle

		if i == s.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		// Setting name and current value
		currentValue := item.options[item.current]
		line := fmt.Sprintf("%s%s: %s", cursor, item.name, valueStyle.Render(currentValue))
		output += style.Render(line) + "\n"

		// Description
		output += descStyle.Render(item.description) + "\n"

		// Options (show for selected item)
		if i == s.selected {
			optionsLine := "    Options: "
			for j, opt := range item.options {
				if j == item.current {
					optionsLine += selectedOptionStyle.Render("[" + opt + "]")
				} else {
					optionsLine += optionStyle.Render(" " + opt + " ")
				}
			}
			output += optionsLine + "\n"
		}

		output += "\n"
	}

	// Help
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("↑/↓: navigate  ←/→ or enter: change value")

	return output
}
