package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/billm/framehub/pkg/types"
)

// execute runs one input line against the shell
func (m *Model) execute(ctx context.Context, line string) commandResultMsg {
	line = strings.TrimSpace(line)
	if line == "" {
		return commandResultMsg{}
	}
	if strings.HasPrefix(line, "/") {
		m.shell.Navigate(ctx, line)
		return commandResultMsg{status: "navigated to " + line}
	}

	fields := strings.Fields(line)
	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "back":
		if !m.shell.Back(ctx) {
			return commandResultMsg{err: types.NewError(types.ErrCodeFailedPrecondition, "no previous entry")}
		}
		return commandResultMsg{status: "back"}
	case "forward":
		if !m.shell.Forward(ctx) {
			return commandResultMsg{err: types.NewError(types.ErrCodeFailedPrecondition, "no next entry")}
		}
		return commandResultMsg{status: "forward"}
	case "collapse":
		st := m.shell.ToggleCollapse(ctx)
		if st.Collapsed {
			return commandResultMsg{status: "sidebar collapsed"}
		}
		return commandResultMsg{status: "sidebar expanded"}
	case "toggle":
		if len(args) != 1 {
			return commandResultMsg{err: types.NewError(types.ErrCodeInvalidArgument, "usage: toggle <section>")}
		}
		st := m.shell.ToggleSection(ctx, args[0])
		if st.IsExpanded(args[0]) {
			return commandResultMsg{status: args[0] + " expanded"}
		}
		return commandResultMsg{status: args[0] + " folded"}
	case "login":
		redirect := ""
		if len(args) > 0 {
			redirect = args[0]
		} else if r := m.shell.Snapshot().Route; r.Query != nil {
			redirect = r.Query["redirect"]
		}
		if err := m.shell.Login(ctx, m.user, redirect); err != nil {
			return commandResultMsg{err: err}
		}
		return commandResultMsg{status: fmt.Sprintf("signed in as %s", m.user.Name)}
	case "logout":
		m.shell.Logout(ctx)
		return commandResultMsg{status: "signed out"}
	case "quit", "exit":
		return commandResultMsg{quit: true}
	default:
		return commandResultMsg{err: types.NewError(types.ErrCodeInvalidArgument, "unknown command "+cmd)}
	}
}
