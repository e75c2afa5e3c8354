package console

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles input, shell changes and command results
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := m.width - 4; w > 0 {
			m.input.Width = w
		}
		return m, nil

	case shellChangedMsg:
		m.snap = m.shell.Snapshot()
		return m, m.waitForChange()

	case commandResultMsg:
		if msg.quit {
			m.quitting = true
			m.Close()
			return m, tea.Quit
		}
		m.status, m.err = msg.status, msg.err
		if msg.err != nil {
			m.logger.Debug("Console command failed", "error", msg.err)
		}
		m.snap = m.shell.Snapshot()
		return m, nil

	case tea.KeyMsg:
		if m.keys.IsQuitKey(msg) {
			m.quitting = true
			m.Close()
			return m, tea.Quit
		}
		switch msg.String() {
		case m.keys.Submit:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			return m, m.runCmd(line)
		case m.keys.Clear:
			m.input.Reset()
			m.status, m.err = "", nil
			return m, nil
		case m.keys.Back:
			return m, m.runCmd("back")
		case m.keys.Forward:
			return m, m.runCmd("forward")
		case m.keys.Collapse:
			return m, m.runCmd("collapse")
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}
