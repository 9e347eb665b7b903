package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth  = 40
	minHeight = 10
)

// View implements tea.Model. This renders the full TUI display.
func (m model) View() string {
	if m.width == 0 || m.height == 0 || !m.ready {
		return "Loading..."
	}

	// Handle too small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	sections := []string{
		m.renderHeader(),
		m.renderDivider(),
		m.viewport.View(),
		m.renderDivider(),
		m.renderFooter(),
	}

	rendered := styles.Container.
		Width(safeWidth(m.width - 2)).
		Render(strings.Join(sections, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, rendered)
}

// renderHeader renders the command, pid, status and elapsed time.
func (m model) renderHeader() string {
	status := m.status
	if m.status == statusExited {
		status = m.exit.String()
	}

	right := strings.Join([]string{
		styles.Pid.Render(fmt.Sprintf("pid %d", m.pid)),
		m.statusStyle().Render(status),
		styles.Duration.Render(m.elapsed().String()),
	}, "  ")

	titleWidth := max(0, m.width-4-lipgloss.Width(right)-2)
	title := styles.Title.Render(truncate(m.title, titleWidth))

	gap := max(1, m.width-4-lipgloss.Width(title)-lipgloss.Width(right))
	return title + strings.Repeat(" ", gap) + right
}

// renderLines renders the output buffer for the viewport.
func (m model) renderLines() string {
	rendered := make([]string, len(m.lines))
	for i, line := range m.lines {
		rendered[i] = renderLine(line)
	}
	return strings.Join(rendered, "\n")
}

func (m model) renderDivider() string {
	return styles.Divider.Render(strings.Repeat("─", safeWidth(m.width-4)))
}

func (m model) renderFooter() string {
	if m.done {
		return styles.Footer.Render("q: quit  ↑/↓ pgup/pgdn: scroll  g/G: top/bottom")
	}
	return styles.Footer.Render("q: stop and quit  ↑/↓ pgup/pgdn: scroll  g/G: top/bottom")
}

func (m model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small (%dx%d), need at least %dx%d", m.width, m.height, minWidth, minHeight)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

func safeWidth(w int) int {
	return max(1, w)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-1 {
		r = r[:max(0, width-1)]
	}
	return string(r) + "…"
}
