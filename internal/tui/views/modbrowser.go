package views

import (
	"fmt"
	"strings"

	"ocmods/internal/core"
	"ocmods/internal/source/catalog"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// IDPrefix starts a search text that names mods to install directly, e.g. "#12-34"
const IDPrefix = "#"

// SearchResultsMsg carries the list controller state into the view
type SearchResultsMsg struct {
	State   core.ListState
	Message string
	Entries []core.Entry
	Page    int
	Pages   int
}

// SearchMsg is sent when the user wants a new search
type SearchMsg struct {
	Query core.ListQuery
}

// PageMsg is sent to flip the result page
type PageMsg struct {
	Next bool
}

// InstallModMsg is sent when user wants to install a mod
type InstallModMsg struct {
	Index int
}

// InstallIDsMsg is sent for a search text of dash-separated mod ids
type InstallIDsMsg struct {
	IDs string
}

type sortOption struct {
	label      string
	key        catalog.SortKey
	descending bool
}

var sortOptions = []sortOption{
	{"relevance", catalog.SortNone, false},
	{"newest", catalog.SortUpdated, true},
	{"title", catalog.SortTitle, false},
}

// ModBrowser is the mod browsing/search view
type ModBrowser struct {
	searchInput   textinput.Model
	searchFocused bool
	results       []core.Entry
	state         core.ListState
	message       string
	page          int
	pages         int
	selected      int

	compatible bool
	playable   bool
	sort       int

	width  int
	height int
}

// NewModBrowser creates a new mod browser view
func NewModBrowser() ModBrowser {
	ti := textinput.New()
	ti.Placeholder = "Search mods... (#id-id to install by id)"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 40

	return ModBrowser{
		searchInput:   ti,
		searchFocused: true,
		compatible:    true,
		width:         80,
		height:        24,
	}
}

// SearchQuery returns the current search text
func (m ModBrowser) SearchQuery() string {
	return m.searchInput.Value()
}

// Query returns the list query built from the search text and toggles
func (m ModBrowser) Query() core.ListQuery {
	opt := sortOptions[m.sort]
	return core.ListQuery{
		Text:       strings.TrimSpace(m.searchInput.Value()),
		Sort:       opt.key,
		Descending: opt.descending,
		Compatible: m.compatible,
		Playable:   m.playable,
	}
}

// IsSearchFocused returns whether the search input is focused
func (m ModBrowser) IsSearchFocused() bool {
	return m.searchFocused
}

// ResultCount returns the number of search results
func (m ModBrowser) ResultCount() int {
	return len(m.results)
}

// Selected returns the currently selected result index
func (m ModBrowser) Selected() int {
	return m.selected
}

// SelectedEntry returns the currently selected entry
func (m ModBrowser) SelectedEntry() *core.Entry {
	if len(m.results) == 0 || m.selected >= len(m.results) {
		return nil
	}
	return &m.results[m.selected]
}

// Init implements tea.Model
func (m ModBrowser) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m ModBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SearchResultsMsg:
		if msg.State != m.state || msg.Page != m.page || len(msg.Entries) != len(m.results) {
			m.selected = 0
		}
		m.state = msg.State
		m.message = msg.Message
		m.results = msg.Entries
		m.page = msg.Page
		m.pages = msg.Pages
		if m.selected >= len(m.results) {
			m.selected = 0
		}
		return m, nil
	}

	// Update text input if focused
	if m.searchFocused {
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ModBrowser) search() tea.Cmd {
	query := m.Query()
	return func() tea.Msg {
		return SearchMsg{Query: query}
	}
}

func (m ModBrowser) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle search input when focused
	if m.searchFocused {
		switch msg.Type {
		case tea.KeyEsc:
			m.searchFocused = false
			m.searchInput.Blur()
			return m, nil

		case tea.KeyEnter:
			m.searchFocused = false
			m.searchInput.Blur()
			if text := strings.TrimSpace(m.searchInput.Value()); strings.HasPrefix(text, IDPrefix) {
				ids := strings.TrimPrefix(text, IDPrefix)
				m.searchInput.SetValue("")
				return m, func() tea.Msg {
					return InstallIDsMsg{IDs: ids}
				}
			}
			return m, m.search()

		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
	}

	// Handle result navigation when not in search
	switch msg.String() {
	case "/":
		m.searchFocused = true
		m.searchInput.Focus()
		return m, nil

	case "up":
		if len(m.results) > 0 {
			m.selected--
			if m.selected < 0 {
				m.selected = len(m.results) - 1
			}
		}
		return m, nil

	case "down":
		if len(m.results) > 0 {
			m.selected++
			if m.selected >= len(m.results) {
				m.selected = 0
			}
		}
		return m, nil

	case "home":
		m.selected = 0
		return m, nil

	case "end":
		if len(m.results) > 0 {
			m.selected = len(m.results) - 1
		}
		return m, nil

	case "n", "right":
		return m, func() tea.Msg { return PageMsg{Next: true} }

	case "p", "left":
		return m, func() tea.Msg { return PageMsg{Next: false} }

	case "c":
		m.compatible = !m.compatible
		return m, m.search()

	case "s":
		m.playable = !m.playable
		return m, m.search()

	case "o":
		m.sort = (m.sort + 1) % len(sortOptions)
		return m, m.search()

	case "r":
		return m, m.search()

	case "enter":
		if m.SelectedEntry() != nil {
			index := m.selected
			return m, func() tea.Msg {
				return InstallModMsg{Index: index}
			}
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model
func (m ModBrowser) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	filterStyle := lipgloss.NewStyle().
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

	installedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	output := titleStyle.Render("Browse Mods") + "\n"
	output += filterStyle.Render(fmt.Sprintf("Sort: %s  Compatible only: %s  Scenarios only: %s",
		sortOptions[m.sort].label, onOff(m.compatible), onOff(m.playable))) + "\n\n"

	// Search input
	searchLabel := "Search: "
	if m.searchFocused {
		searchLabel = "Search (esc to exit): "
	}
	output += searchLabel + m.searchInput.View() + "\n\n"

	switch m.state {
	case core.ListLoading:
		output += loadingStyle.Render("Searching...") + "\n"
		return output

	case core.ListFailed:
		output += errorStyle.Render(fmt.Sprintf("Error: %s", m.message)) + "\n"
		output += detailStyle.Render("Retrying shortly, r: retry now") + "\n"
		return output

	case core.ListIdle:
		output += itemStyle.Render("Enter a search term and press Enter.") + "\n"
		return output
	}

	if len(m.results) == 0 {
		output += itemStyle.Render("No mods found.") + "\n"
	} else {
		output += filterStyle.Render(fmt.Sprintf("Page %d of %d", m.page, m.pages)) + "\n\n"

		for i, entry := range m.results {
			cursor := "  "
			style := itemStyle

			if i == m.selected {
				cursor = "▸ "
				style = selectedStyle
			}

			line := fmt.Sprintf("%s%s", cursor, entry.Record.DisplayName())
			if entry.Installed {
				line += " " + installedStyle.Render("[installed]")
			}
			output += style.Render(line) + "\n"

			// Show details for selected mod
			if i == m.selected {
				rec := entry.Record
				output += detailStyle.Render(fmt.Sprintf("by %s, updated %s", rec.DisplayAuthor(), rec.UpdatedDate())) + "\n"
				if rec.Description != "" {
					output += detailStyle.Render(rec.Description) + "\n"
				}
				if tags := rec.FreeTags(); len(tags) > 0 {
					output += detailStyle.Render("Tags: "+strings.Join(tags, ", ")) + "\n"
				}
				output += "\n"
			}
		}
	}

	// Help
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	if m.searchFocused {
		output += helpStyle.Render("enter: search  esc: exit search")
	} else {
		output += helpStyle.Render("/: search  ↑/↓: navigate  n/p: page  enter: install  c: compatible  s: scenarios  o: sort  r: reload")
	}

	return output
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
