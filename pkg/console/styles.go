package console

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the console
var Styles = &styleDefs{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
	Muted:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Normal: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),

	SidebarBorder: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("59")).
		Padding(0, 1),
	Section:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
	Group:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	Item:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	ItemActive: lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Bold(true),

	ContentBorder: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("96")).
		Padding(0, 1),
	Breadcrumb: lipgloss.NewStyle().Foreground(lipgloss.Color("117")),
	Skeleton:   lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Faint(true),

	StatusReady:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
	StatusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

	InputBorder: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")),

	HelpKey: lipgloss.NewStyle().
		Foreground(lipgloss.Color("228")).
		Background(lipgloss.Color("236")).
		Padding(0, 1),
	HelpDesc:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	FooterText:  lipgloss.NewStyle().Faint(true),
	FooterError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
}

type styleDefs struct {
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Normal lipgloss.Style

	SidebarBorder lipgloss.Style
	Section       lipgloss.Style
	Group         lipgloss.Style
	Item          lipgloss.Style
	ItemActive    lipgloss.Style

	ContentBorder lipgloss.Style
	Breadcrumb    lipgloss.Style
	Skeleton      lipgloss.Style

	StatusReady   lipgloss.Style
	StatusLoading lipgloss.Style
	StatusError   lipgloss.Style

	InputBorder lipgloss.Style

	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style
	FooterText  lipgloss.Style
	FooterError lipgloss.Style
}
