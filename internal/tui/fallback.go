package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/npratt/syncproc/internal/events"
	"golang.org/x/term"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalSize returns the current terminal width and height.
// Returns 0, 0 if the terminal size cannot be determined.
func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// terminalTooSmall returns true if the terminal is below the minimum size.
func terminalTooSmall() bool {
	width, height := terminalSize()
	return width < minWidth || height < minHeight
}

// runSimple provides line-by-line output for non-interactive environments.
// It pulls events, formats them and prints them until the child exits.
func (t *TUI) runSimple() (events.ExitEvent, error) {
	for {
		event, done, err := t.source.Next()
		if err != nil {
			return events.ExitEvent{}, err
		}

		timestamp := time.Now().Format("15:04:05")
		if _, err := fmt.Fprintf(t.out, "%s %s\n", timestamp, events.Format(event)); err != nil {
			return events.ExitEvent{}, fmt.Errorf("print event: %w", err)
		}

		if done {
			exit, _ := event.(events.ExitEvent)
			return exit, nil
		}
	}
}
