package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/syncproc/internal/events"
)

// StyleForStream returns the style for lines from the given stream.
func StyleForStream(stream events.EventType) lipgloss.Style {
	switch stream {
	case events.EventStderr:
		return styles.Stderr
	case events.EventExit:
		return styles.Exit
	default:
		return styles.Stdout
	}
}

// renderLine styles one output line, stripping escape sequences the child
// wrote so they cannot corrupt the layout.
func renderLine(line outputLine) string {
	return StyleForStream(line.Stream).Render(events.StripANSI(line.Text))
}
