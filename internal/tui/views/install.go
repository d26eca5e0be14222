package views

import (
	"fmt"

	"ocmods/internal/core"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PipelineStateMsg carries the acquisition pipeline state into the view
type PipelineStateMsg struct {
	Stage        core.Stage
	Status       string
	Confirmation *core.Confirmation
	Items        []core.Item
	Done         int64
	Total        int64
	Result       *core.Result
	Err          error
}

// ConfirmMsg answers the download confirmation
type ConfirmMsg struct {
	Accept bool
}

// CancelInstallMsg aborts a running installation
type CancelInstallMsg struct{}

// DismissMsg closes the view of a finished installation
type DismissMsg struct{}

// Install shows a running installation
type Install struct {
	state    PipelineStateMsg
	progress progress.Model
	spinner  spinner.Model
	width    int
	height   int
}

// NewInstall creates a new installation view
func NewInstall() Install {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Install{
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  s,
		width:    80,
		height:   24,
	}
}

// Stage returns the last seen pipeline stage
func (m Install) Stage() core.Stage {
	return m.state.Stage
}

// Active returns true while there is a run to show
func (m Install) Active() bool {
	return m.state.Stage != core.StageIdle
}

// Init implements tea.Model
func (m Install) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m Install) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case PipelineStateMsg:
		m.state = msg
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Install) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.state.Stage == core.StageConfirmationPending:
		switch msg.String() {
		case "y", "enter":
			return m, func() tea.Msg { return ConfirmMsg{Accept: true} }
		case "n", "esc":
			return m, func() tea.Msg { return ConfirmMsg{Accept: false} }
		}

	case m.state.Stage.Finished():
		switch msg.String() {
		case "enter", "esc":
			return m, func() tea.Msg { return DismissMsg{} }
		}

	default:
		if msg.String() == "esc" {
			return m, func() tea.Msg { return CancelInstallMsg{} }
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Install) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("69")).
		MarginBottom(1)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	itemStyle := lipgloss.NewStyle().
		PaddingLeft(2)

	okStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	output := titleStyle.Render("Install") + "\n"

	switch m.state.Stage {
	case core.StageIdle:
		output += itemStyle.Render("Nothing is being installed.") + "\n"
		return output

	case core.StageConfirmationPending:
		if c := m.state.Confirmation; c != nil {
			output += promptStyle.Render(c.Message()) + "\n"
		}
		output += m.renderItems(itemStyle, okStyle, errorStyle)
		output += helpStyle.Render("y: download  n: cancel")
		return output

	case core.StageError:
		output += errorStyle.Render(fmt.Sprintf("Error: %v", m.state.Err)) + "\n\n"
		output += m.renderItems(itemStyle, okStyle, errorStyle)
		output += helpStyle.Render("enter: close")
		return output

	case core.StageDone:
		output += okStyle.Render("Done.") + "\n\n"
		output += m.renderItems(itemStyle, okStyle, errorStyle)
		if r := m.state.Result; r != nil && r.Message != "" {
			output += "\n" + errorStyle.Render(r.Message) + "\n"
		}
		output += helpStyle.Render("enter: close")
		return output
	}

	output += m.spinner.View() + " " + m.state.Status + "\n\n"

	if m.state.Stage == core.StageDownloading || m.state.Stage == core.StageCommitting {
		percent := 0.0
		if m.state.Total > 0 {
			percent = float64(m.state.Done) / float64(m.state.Total)
		}
		output += m.progress.ViewAs(min(percent, 1)) + "\n"
		output += infoStyle.Render(fmt.Sprintf("%s / %s",
			humanize.Bytes(uint64(m.state.Done)), humanize.Bytes(uint64(m.state.Total)))) + "\n\n"
	}

	output += m.renderItems(itemStyle, okStyle, errorStyle)
	output += helpStyle.Render("esc: cancel")
	return output
}

func (m Install) renderItems(itemStyle, okStyle, errorStyle lipgloss.Style) string {
	output := ""
	for _, it := range m.state.Items {
		mark := " "
		switch {
		case it.Err != nil:
			mark = errorStyle.Render("✗")
		case it.Successful:
			mark = okStyle.Render("✓")
		}
		line := fmt.Sprintf("%s %s (%s)", mark, it.Name(), it.ID())
		if it.Err != nil {
			line += ": " + errorStyle.Render(it.Err.Error())
		}
		output += itemStyle.Render(line) + "\n"
	}
	return output
}
