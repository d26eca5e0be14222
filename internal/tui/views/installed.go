package views

import (
	"fmt"
	"strings"

	"ocmods/internal/core"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InstalledEntriesMsg carries the installed mods into the view
type InstalledEntriesMsg struct {
	Entries []core.Entry
}

// UninstallModMsg is sent to uninstall a mod
type UninstallModMsg struct {
	ID   string
	Name string
}

// UpdateModMsg is sent to reinstall one mod from the catalog
type UpdateModMsg struct {
	ID string
}

// UpdateAllMsg is sent to refresh every installed mod
type UpdateAllMsg struct{}

// Installed is the installed mods view
type Installed struct {
	mods          []core.Entry
	visible       []core.Entry
	filter        textinput.Model
	filterFocused bool
	confirmDelete bool
	selected      int
	width         int
	height        int
}

// NewInstalled creates a new installed mods view
func NewInstalled(mods []core.Entry) Installed {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.CharLimit = 100
	ti.Width = 30

	m := Installed{
		filter: ti,
		width:  80,
		height: 24,
	}
	m.setEntries(mods)
	return m
}

func (m *Installed) setEntries(mods []core.Entry) {
	m.mods = mods
	m.applyFilter()
}

func (m *Installed) applyFilter() {
	m.visible = core.FilterEntries(m.mods, m.filter.Value())
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

// Selected returns the currently selected index
func (m Installed) Selected() int {
	return m.selected
}

// ModCount returns the number of mods shown after filtering
func (m Installed) ModCount() int {
	return len(m.visible)
}

// IsFilterFocused returns whether the filter input takes key presses
func (m Installed) IsFilterFocused() bool {
	return m.filterFocused
}

// IsConfirmingDelete returns true while an uninstall waits for confirmation
func (m Installed) IsConfirmingDelete() bool {
	return m.confirmDelete
}

// SelectedEntry returns the currently selected mod
func (m Installed) SelectedEntry() *core.Entry {
	if len(m.visible) == 0 || m.selected >= len(m.visible) {
		return nil
	}
	return &m.visible[m.selected]
}

// Init implements tea.Model
func (m Installed) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Installed) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case InstalledEntriesMsg:
		m.setEntries(msg.Entries)
		return m, nil
	}

	if m.filterFocused {
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Installed) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterFocused {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyEnter:
			m.filterFocused = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
		return m, cmd
	}

	if m.confirmDelete {
		m.confirmDelete = false
		entry := m.SelectedEntry()
		if msg.String() == "y" && entry != nil {
			id, name := entry.Record.ID, entry.Record.DisplayName()
			return m, func() tea.Msg {
				return UninstallModMsg{ID: id, Name: name}
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "/":
		m.filterFocused = true
		m.filter.Focus()
		return m, nil

	case "U":
		if len(m.mods) > 0 {
			return m, func() tea.Msg { return UpdateAllMsg{} }
		}
		return m, nil
	}

	if len(m.visible) == 0 {
		return m, nil
	}

	switch msg.String() {
	case "up":
		m.selected--
		if m.selected < 0 {
			m.selected = len(m.visible) - 1
		}
		return m, nil

	case "down":
		m.selected++
		if m.selected >= len(m.visible) {
			m.selected = 0
		}
		return m, nil

	case "d", "delete": // Uninstall
		m.confirmDelete = true
		return m, nil

	case "u":
		id := m.visible[m.selected].Record.ID
		return m, func() tea.Msg {
			return UpdateModMsg{ID: id}
		}

	case "home":
		m.selected = 0
		return m, nil

	case "end":
		m.selected = len(m.visible) - 1
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m Installed) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	selectedStyle := lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(lipgloss.Color("205")).
		Bold(true)

	detailStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		PaddingLeft(4)

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	// Title
	output := titleStyle.Render("Installed Mods") + "\n"

	// Empty state
	if len(m.mods) == 0 {
		output += itemStyle.Render("No mods installed.") + "\n\n"
		output += infoStyle.Render("Browse mods with [1] or search with 'ocmods search <query>'") + "\n"
		return output
	}

	if m.filterFocused || m.filter.Value() != "" {
		output += "Filter: " + m.filter.View() + "\n\n"
	}

	output += infoStyle.Render(fmt.Sprintf("%d of %d mods:", len(m.visible), len(m.mods))) + "\n\n"

	for i, entry := range m.visible {
		rec := entry.Record
		cursor := "  "
		style := itemStyle

		if i == m.selected {
			cursor = "▸ "
			style = selectedStyle
		}

		line := fmt.Sprintf("%s%s (%s)", cursor, rec.DisplayName(), rec.ID)
		output += style.Render(line) + "\n"

		// Show details for selected mod
		if i == m.selected {
			if rec.MetadataMissing {
				output += detailStyle.Render(warnStyle.Render("resource.xml missing, update to restore it")) + "\n"
			} else {
				output += detailStyle.Render(fmt.Sprintf("by %s, updated %s", rec.DisplayAuthor(), rec.UpdatedDate())) + "\n"
			}
			if len(rec.Dependencies) > 0 {
				output += detailStyle.Render("Requires: "+strings.Join(rec.Dependencies, ", ")) + "\n"
			}
			output += detailStyle.Render(entry.LocalPath) + "\n"
			if m.confirmDelete {
				output += detailStyle.Render(warnStyle.Render(fmt.Sprintf("Uninstall %s? y: yes  any other key: no", rec.DisplayName()))) + "\n"
			}
			output += "\n"
		}
	}

	// Help
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	output += helpStyle.Render("↑/↓: navigate  /: filter  u: update  U: update all  d: uninstall")

	return output
}
