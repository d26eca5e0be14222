package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines keybindings for the TUI
type KeyMap struct {
	mode string
}

// NewKeyMap creates a new keymap for the given mode
func NewKeyMap(mode string) *KeyMap {
	if mode == "" {
		mode = "vim"
	}
	return &KeyMap{mode: mode}
}

// IsQuit returns true if the key is a quit key
func (k *KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return msg.String() == "q" || msg.Type == tea.KeyCtrlC
}

// IsHelp returns true if the key should show help
func (k *KeyMap) IsHelp(msg tea.KeyMsg) bool {
	return msg.String() == "?"
}

// Translate maps vim navigation letters onto the arrow keys the views handle.
// Other keys, and every key in standard mode, pass through unchanged.
func (k *KeyMap) Translate(msg tea.KeyMsg) tea.KeyMsg {
	if k.mode != "vim" || msg.Type != tea.KeyRunes {
		return msg
	}
	switch msg.String() {
	case "k":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "j":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "h":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "l":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "g":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "G":
		return tea.KeyMsg{Type: tea.KeyEnd}
	}
	return msg
}

// NavigationHelp returns help text for navigation keys
func (k *KeyMap) NavigationHelp() string {
	if k.mode == "vim" {
		return "j/k: navigate  h/l: page"
	}
	return "↑/↓: navigate  ←/→: page"
}

// FullHelp returns complete help text
func (k *KeyMap) FullHelp() string {
	if k.mode == "vim" {
		return `Navigation:
  1-4     Switch tab
  j/k     Move down/up
  h/l     Previous/next page, change setting
  g/G     Go to first/last item

Browse:
  /       Search, "#12-34" installs mods by id
  enter   Install selected mod
  c/s/o   Compatible only, scenarios only, sort order

Installed:
  /       Filter
  u/U     Update selected/all
  d       Uninstall

  ?       Help
  q       Quit`
	}

	return `Navigation:
  1-4     Switch tab
  ↑/↓     Move up/down
  ←/→     Previous/next page, change setting
  Home    Go to first item
  End     Go to last item

Browse:
  /       Search, "#12-34" installs mods by id
  Enter   Install selected mod
  c/s/o   Compatible only, scenarios only, sort order

Installed:
  /       Filter
  u/U     Update selected/all
  d       Uninstall

  ?       Help
  q       Quit`
}
