package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Container lipgloss.Style
	Divider   lipgloss.Style

	// Header styles
	Title    lipgloss.Style
	Pid      lipgloss.Style
	Duration lipgloss.Style

	// Footer style
	Footer lipgloss.Style

	// Output styles
	Stdout lipgloss.Style
	Stderr lipgloss.Style
	Exit   lipgloss.Style

	// Status colors
	StatusRunning  lipgloss.Style
	StatusStopping lipgloss.Style
	StatusSuccess  lipgloss.Style
	StatusFailed   lipgloss.Style
}{
	// Layout styles
	Container: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")),

	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	// Header styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")),

	Pid: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Duration: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	// Footer style
	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	// Output styles
	Stdout: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Stderr: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	Exit: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("177")),

	// Status colors
	StatusRunning: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	StatusStopping: lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")),

	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	StatusFailed: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),
}
