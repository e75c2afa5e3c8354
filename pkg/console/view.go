package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/billm/framehub/pkg/hub"
	"github.com/billm/framehub/pkg/registry"
)

const sidebarWidth = 30

// View renders the shell
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		Styles.SidebarBorder.Render(renderSidebar(m.shell.Registry(), m.snap)),
		Styles.ContentBorder.Render(renderContent(m.snap)),
	)
	b.WriteString(body)
	b.WriteString("\n")

	b.WriteString(Styles.InputBorder.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.footerView())
	return b.String()
}

func (m *Model) headerView() string {
	title := Styles.Title.Render("framehub")
	version := Styles.Muted.Render(m.version)
	user := Styles.Muted.Render("signed out")
	if m.snap.User != nil {
		user = Styles.Normal.Render(m.snap.User.Name)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", version, "  ", user)
}

func (m *Model) footerView() string {
	if m.err != nil {
		return Styles.FooterError.Render("✗ " + m.err.Error())
	}
	parts := make([]string, 0, 6)
	for _, e := range m.keys.ShortHelp() {
		parts = append(parts, Styles.HelpKey.Render(e.Key)+Styles.HelpDesc.Render(" "+e.Desc+" "))
	}
	if m.status != "" {
		parts = append(parts, Styles.FooterText.Render(" "+m.status))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderSidebar draws the navigation tree. A collapsed sidebar shows the
// section labels only; folded sections hide their groups.
func renderSidebar(reg *registry.Registry, snap hub.Snapshot) string {
	var b strings.Builder
	for _, s := range reg.Nav {
		if snap.Sidebar.Collapsed {
			b.WriteString(Styles.Section.Render(abbreviate(s.Label)))
			b.WriteString("\n")
			continue
		}
		marker := "▸"
		if snap.Sidebar.IsExpanded(s.ID) {
			marker = "▾"
		}
		b.WriteString(Styles.Section.Render(marker + " " + s.Label))
		b.WriteString("\n")
		if !snap.Sidebar.IsExpanded(s.ID) {
			continue
		}
		for _, g := range s.Groups {
			gm := "▸"
			if snap.Sidebar.IsExpanded(g.ID) {
				gm = "▾"
			}
			b.WriteString(Styles.Group.Render("  " + gm + " " + g.Label))
			b.WriteString("\n")
			if !snap.Sidebar.IsExpanded(g.ID) {
				continue
			}
			for _, it := range g.Items {
				if it.ID == snap.Active.ItemID {
					b.WriteString("    " + Styles.ItemActive.Render(it.Label))
				} else {
					b.WriteString(Styles.Item.Render("    " + it.Label))
				}
				b.WriteString("\n")
			}
		}
	}
	return lipgloss.NewStyle().Width(sidebarWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func abbreviate(label string) string {
	if label == "" {
		return "?"
	}
	return strings.ToUpper(label[:1])
}

// renderContent draws the route, the mounted module and its state
func renderContent(snap hub.Snapshot) string {
	lines := []string{Styles.Normal.Render("route   " + snap.Route.String())}

	if len(snap.Breadcrumbs) > 0 {
		labels := make([]string, len(snap.Breadcrumbs))
		for i, bc := range snap.Breadcrumbs {
			labels[i] = bc.Label
		}
		lines = append(lines, Styles.Breadcrumb.Render(strings.Join(labels, " / ")))
	}

	switch {
	case snap.Error != 0:
		lines = append(lines, Styles.StatusError.Render(fmt.Sprintf("error %d", int(snap.Error))))
	case snap.ModuleID == "":
		lines = append(lines, Styles.Muted.Render("no module"))
	default:
		lines = append(lines, Styles.Normal.Render("module  "+snap.ModuleID+"  "+snap.ModuleURL))
		state := Styles.StatusReady.Render("ready")
		if snap.Loading {
			state = Styles.StatusLoading.Render("loading")
		}
		lines = append(lines, state)
		if snap.SkeletonVisible {
			lines = append(lines, Styles.Skeleton.Render("░░░░░░░░░░░░░░░░░░░░"))
		}
	}

	attached := "none"
	if len(snap.Attached) > 0 {
		attached = strings.Join(snap.Attached, ", ")
	}
	lines = append(lines, Styles.Muted.Render("attached "+attached))
	return strings.Join(lines, "\n")
}
