// Package console renders the hub shell in a terminal: the sidebar, the
// mounted module with its loading state and breadcrumbs, and an input line
// that drives navigation.
package console

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/hub"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
)

// Shell is the part of the hub the console drives
type Shell interface {
	Snapshot() hub.Snapshot
	Subscribe(fn func(hub.Snapshot)) (cancel func())
	Navigate(ctx context.Context, path string)
	Back(ctx context.Context) bool
	Forward(ctx context.Context) bool
	ToggleCollapse(ctx context.Context) protocol.SidebarState
	ToggleSection(ctx context.Context, sectionID string) protocol.SidebarState
	Login(ctx context.Context, user protocol.User, redirect string) error
	Logout(ctx context.Context)
	Registry() *registry.Registry
}

// Model is the console's bubbletea model
type Model struct {
	shell   Shell
	user    protocol.User
	version string
	logger  *logger.Logger

	snap    hub.Snapshot
	changed chan struct{}
	cancel  func()

	input  textinput.Model
	keys   KeyMap
	status string
	err    error

	width    int
	height   int
	quitting bool
}

// NewModel creates a console over shell. user is signed in by the login
// command. The model follows shell changes until Close.
func NewModel(shell Shell, user protocol.User, version string, log *logger.Logger) *Model {
	ti := textinput.New()
	ti.Placeholder = "/employees/list, back, forward, collapse, toggle <section>, login, logout"
	ti.Prompt = "› "
	ti.Focus()

	m := &Model{
		shell:   shell,
		user:    user,
		version: version,
		logger:  logger.OrGlobal(log).With("component", "console"),
		snap:    shell.Snapshot(),
		changed: make(chan struct{}, 1),
		input:   ti,
		keys:    DefaultKeyMap(),
	}
	m.cancel = shell.Subscribe(func(hub.Snapshot) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Close stops following the shell
func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Init starts the cursor blink and the shell watch
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// shellChangedMsg reports that the shell published a new snapshot
type shellChangedMsg struct{}

// commandResultMsg carries the outcome of an input line
type commandResultMsg struct {
	status string
	err    error
	quit   bool
}

func (m *Model) waitForChange() tea.Cmd {
	changed := m.changed
	return func() tea.Msg {
		<-changed
		return shellChangedMsg{}
	}
}

func (m *Model) runCmd(line string) tea.Cmd {
	return func() tea.Msg {
		return m.execute(context.Background(), line)
	}
}
