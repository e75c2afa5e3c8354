package console

import tea "github.com/charmbracelet/bubbletea"

// KeyMap defines the console keybindings
type KeyMap struct {
	Quit     string
	Submit   string
	Clear    string
	Back     string
	Forward  string
	Collapse string
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     "ctrl+c",
		Submit:   "enter",
		Clear:    "esc",
		Back:     "ctrl+b",
		Forward:  "ctrl+f",
		Collapse: "ctrl+s",
	}
}

// HelpEntry is one keybinding hint
type HelpEntry struct {
	Key  string
	Desc string
}

// ShortHelp returns the hints shown in the footer
func (k KeyMap) ShortHelp() []HelpEntry {
	return []HelpEntry{
		{Key: k.Submit, Desc: "Run"},
		{Key: k.Back, Desc: "Back"},
		{Key: k.Forward, Desc: "Forward"},
		{Key: k.Collapse, Desc: "Sidebar"},
		{Key: k.Quit, Desc: "Quit"},
	}
}

// IsQuitKey checks if the key quits the console
func (k KeyMap) IsQuitKey(msg tea.KeyMsg) bool {
	s := msg.String()
	return s == k.Quit || s == "ctrl+d"
}
