package tui

import (
	"context"
	"fmt"
	"time"

	"ocmods/internal/core"
	"ocmods/internal/tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents different screens in the TUI
type ViewType int

const (
	ViewModBrowser ViewType = iota
	ViewInstalledMods
	ViewInstall
	ViewSettings
)

// PollInterval is how often the controllers and the pipeline are driven
const PollInterval = 50 * time.Millisecond

// NavigateMsg is sent to change views
type NavigateMsg struct {
	View ViewType
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// TickMsg drives the controllers and the pipeline one step
type TickMsg time.Time

type startMsg struct{}

type uninstalledMsg struct {
	name string
	err  error
}

// Backend holds the state machines the TUI drives. Nil fields disable
// the corresponding features.
type Backend struct {
	Browse       *core.ListController
	Installed    *core.ListController
	Pipeline     *core.Pipeline
	Updater      *core.Updater
	Uninstall    func(ctx context.Context, id string) error
	Settings     views.SettingsData
	SaveSettings func(views.SettingsData) error
}

// App is the main TUI application model
type App struct {
	backend     Backend
	keys        *KeyMap
	ctx         context.Context
	currentView ViewType
	width       int
	height      int
	err         error
	notice      string
	showHelp    bool
	lastStage   core.Stage

	// Sub-models for each view
	modBrowser    views.ModBrowser
	installedMods views.Installed
	install       views.Install
	settings      views.Settings
}

// NewApp creates a new TUI application
func NewApp(ctx context.Context, backend Backend, keys *KeyMap) App {
	if keys == nil {
		keys = NewKeyMap(backend.Settings.Keybindings)
	}
	return App{
		backend:       backend,
		keys:          keys,
		ctx:           ctx,
		currentView:   ViewModBrowser,
		width:         80,
		height:        24,
		modBrowser:    views.NewModBrowser(),
		installedMods: views.NewInstalled(nil),
		install:       views.NewInstall(),
		settings:      views.NewSettings(backend.Settings),
	}
}

// CurrentView returns the current view type
func (a App) CurrentView() ViewType {
	return a.currentView
}

// Err returns the error currently shown
func (a App) Err() error {
	return a.err
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return startMsg{} },
		a.modBrowser.Init(),
		a.install.Init(),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.modBrowser = updateModel(a.modBrowser, msg)
		a.installedMods = updateModel(a.installedMods, msg)
		a.install = updateModel(a.install, msg)
		a.settings = updateModel(a.settings, msg)
		return a, nil

	case NavigateMsg:
		a.currentView = msg.View
		return a, nil

	case ErrorMsg:
		a.err = msg.Err
		return a, nil

	case startMsg:
		if a.backend.Browse != nil {
			a.backend.Browse.Search(a.ctx, a.modBrowser.Query())
		}
		if a.backend.Installed != nil {
			a.backend.Installed.ShowInstalled()
		}
		return a, nil

	case TickMsg:
		a = a.poll()
		return a, tick()

	case views.SearchMsg:
		if a.backend.Browse != nil {
			a.backend.Browse.Search(a.ctx, msg.Query)
		}
		return a, nil

	case views.PageMsg:
		if a.backend.Browse != nil {
			if msg.Next {
				a.backend.Browse.NextPage()
			} else {
				a.backend.Browse.PrevPage()
			}
		}
		return a, nil

	case views.InstallModMsg:
		if a.backend.Browse == nil || a.backend.Pipeline == nil {
			return a, nil
		}
		return a.startInstall(a.backend.Browse.Install(msg.Index, a.backend.Pipeline))

	case views.InstallIDsMsg:
		if a.backend.Browse == nil || a.backend.Pipeline == nil {
			return a, nil
		}
		return a.startInstall(a.backend.Browse.InstallIDs(msg.IDs, a.backend.Pipeline))

	case views.UpdateModMsg:
		return a.updateMod(msg.ID)

	case views.UpdateAllMsg:
		if a.backend.Updater == nil || a.backend.Pipeline == nil {
			return a, nil
		}
		reqs, err := a.backend.Updater.UpdateRequests()
		if err != nil {
			a.err = err
			return a, nil
		}
		return a.startInstall(a.backend.Pipeline.StartIDs(a.ctx, reqs...))

	case views.UninstallModMsg:
		if a.backend.Uninstall == nil {
			return a, nil
		}
		uninstall, ctx := a.backend.Uninstall, a.ctx
		return a, func() tea.Msg {
			return uninstalledMsg{name: msg.Name, err: uninstall(ctx, msg.ID)}
		}

	case uninstalledMsg:
		if msg.err != nil {
			a.err = fmt.Errorf("uninstalling %s: %w", msg.name, msg.err)
			return a, nil
		}
		a.notice = fmt.Sprintf("Uninstalled %s", msg.name)
		a.syncInstalled()
		return a, nil

	case views.ConfirmMsg:
		if a.backend.Pipeline != nil {
			a.backend.Pipeline.Confirm(msg.Accept)
		}
		return a, nil

	case views.CancelInstallMsg:
		if a.backend.Pipeline != nil {
			a.backend.Pipeline.Cancel()
		}
		return a, nil

	case views.DismissMsg:
		if a.backend.Pipeline != nil {
			a.backend.Pipeline.Cancel()
		}
		a.currentView = ViewModBrowser
		return a, nil

	case views.SettingsChangedMsg:
		a.keys = NewKeyMap(msg.Settings.Keybindings)
		if a.backend.SaveSettings != nil {
			if err := a.backend.SaveSettings(msg.Settings); err != nil {
				a.err = fmt.Errorf("saving settings: %w", err)
			}
		}
		return a, nil
	}

	// Spinner ticks and cursor blinks go to every view that animates
	var browseCmd, installCmd tea.Cmd
	var m tea.Model
	m, browseCmd = a.modBrowser.Update(msg)
	a.modBrowser = m.(views.ModBrowser)
	m, installCmd = a.install.Update(msg)
	a.install = m.(views.Install)
	return a, tea.Batch(browseCmd, installCmd)
}

// updateModel forwards a message whose command is not needed
func updateModel[T tea.Model](model T, msg tea.Msg) T {
	m, _ := model.Update(msg)
	return m.(T)
}

func (a App) startInstall(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		a.err = err
		return a, nil
	}
	a.err = nil
	a.notice = ""
	a.currentView = ViewInstall
	return a, nil
}

func (a App) updateMod(id string) (tea.Model, tea.Cmd) {
	if a.backend.Installed == nil || a.backend.Pipeline == nil {
		return a, nil
	}
	for _, entry := range a.backend.Installed.Entries() {
		if entry.Record.ID == id {
			return a.startInstall(a.backend.Pipeline.Start(a.ctx, entry.Record))
		}
	}
	return a, nil
}

func (a *App) syncInstalled() {
	if a.backend.Browse != nil {
		a.backend.Browse.SyncInstalled()
	}
	if a.backend.Installed != nil {
		a.backend.Installed.SyncInstalled()
	}
}

// poll drives every state machine one step and pushes their state into the views
func (a App) poll() App {
	if c := a.backend.Browse; c != nil {
		c.Poll()
		a.modBrowser = updateModel(a.modBrowser, views.SearchResultsMsg{
			State:   c.State(),
			Message: c.Message(),
			Entries: c.Entries(),
			Page:    c.CurrentPage(),
			Pages:   c.TotalPages(),
		})
	}

	if c := a.backend.Installed; c != nil {
		c.Poll()
		a.installedMods = updateModel(a.installedMods, views.InstalledEntriesMsg{Entries: c.Entries()})
	}

	if p := a.backend.Pipeline; p != nil {
		stage := p.Advance()
		if stage == core.StageDone && a.lastStage != core.StageDone {
			a.syncInstalled()
		}
		if stage == core.StageConfirmationPending && a.lastStage != stage {
			a.currentView = ViewInstall
		}
		a.lastStage = stage

		done, total := p.Progress()
		a.install = updateModel(a.install, views.PipelineStateMsg{
			Stage:        stage,
			Status:       p.Status(),
			Confirmation: p.Confirmation(),
			Items:        p.Items(),
			Done:         done,
			Total:        total,
			Result:       p.Result(),
			Err:          p.Err(),
		})
	}
	return a
}

// typing is true while a text input of the current view takes key presses
func (a App) typing() bool {
	switch a.currentView {
	case ViewModBrowser:
		return a.modBrowser.IsSearchFocused()
	case ViewInstalledMods:
		return a.installedMods.IsFilterFocused()
	}
	return false
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.err = nil

	if msg.Type == tea.KeyCtrlC {
		return a, a.quit()
	}
	if a.typing() {
		return a.updateCurrentView(msg)
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	// Global keybindings
	switch {
	case a.keys.IsQuit(msg):
		return a, a.quit()

	case a.keys.IsHelp(msg):
		a.showHelp = true
		return a, nil
	}

	switch msg.String() {
	case "1":
		a.currentView = ViewModBrowser
		return a, nil

	case "2":
		a.currentView = ViewInstalledMods
		return a, nil

	case "3":
		a.currentView = ViewInstall
		return a, nil

	case "4":
		a.currentView = ViewSettings
		return a, nil
	}

	// Delegate to current view
	return a.updateCurrentView(a.keys.Translate(msg))
}

// quit stops every background activity before leaving
func (a App) quit() tea.Cmd {
	if a.backend.Pipeline != nil {
		a.backend.Pipeline.Cancel()
	}
	if a.backend.Browse != nil {
		a.backend.Browse.Cancel()
	}
	if a.backend.Installed != nil {
		a.backend.Installed.Cancel()
	}
	return tea.Quit
}

func (a App) updateCurrentView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var m tea.Model

	switch a.currentView {
	case ViewModBrowser:
		m, cmd = a.modBrowser.Update(msg)
		a.modBrowser = m.(views.ModBrowser)
	case ViewInstalledMods:
		m, cmd = a.installedMods.Update(msg)
		a.installedMods = m.(views.Installed)
	case ViewInstall:
		m, cmd = a.install.Update(msg)
		a.install = m.(views.Install)
	case ViewSettings:
		m, cmd = a.settings.Update(msg)
		a.settings = m.(views.Settings)
	}

	return a, cmd
}

// View implements tea.Model
func (a App) View() string {
	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	tabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	activeTabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Header
	header := titleStyle.Render("ocmods - OpenClonk Mod Manager")

	// Tab bar
	tabs := []string{"[1]Browse", "[2]Installed", "[3]Install", "[4]Settings"}
	tabBar := ""
	for i, tab := range tabs {
		if ViewType(i) == ViewInstall && a.install.Active() {
			tab += "*"
		}
		if ViewType(i) == a.currentView {
			tabBar += activeTabStyle.Render(tab) + "  "
		} else {
			tabBar += tabStyle.Render(tab) + "  "
		}
	}

	// Content
	content := a.renderCurrentView()
	if a.showHelp {
		content = a.keys.FullHelp()
	}

	// Error display
	if a.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		content = errStyle.Render(fmt.Sprintf("Error: %v", a.err)) + "\n\n" + content
	} else if a.notice != "" {
		noticeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
		content = noticeStyle.Render(a.notice) + "\n\n" + content
	}

	// Footer
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)
	footer := footerStyle.Render(a.keys.NavigationHelp() + "  q: quit  ?: help")

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", header, tabBar, content, footer)
}

func (a App) renderCurrentView() string {
	switch a.currentView {
	case ViewModBrowser:
		return a.modBrowser.View()
	case ViewInstalledMods:
		return a.installedMods.View()
	case ViewInstall:
		return a.install.View()
	case ViewSettings:
		return a.settings.View()
	default:
		return "Unknown view"
	}
}

// Run starts the TUI application
func Run(ctx context.Context, backend Backend, keys *KeyMap) error {
	app := NewApp(ctx, backend, keys)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
