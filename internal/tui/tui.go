// Package tui provides a terminal viewer for a running child process using
// bubbletea.
package tui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/signals"
)

// Source is the event stream the TUI pulls from.
// *syncproc.SyncChildProcess implements it.
type Source interface {
	Next() (events.Event, bool, error)
	Kill(sig signals.Signal) error
	Pid() int
}

// TUI is the terminal viewer for one child process.
type TUI struct {
	source Source
	title  string
	onQuit func()
	out    io.Writer
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI reading from source.
func New(source Source, opts ...Option) *TUI {
	t := &TUI{
		source: source,
		out:    os.Stdout,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithTitle sets the header text, usually the command line.
func WithTitle(title string) Option {
	return func(t *TUI) {
		t.title = title
	}
}

// WithOnQuit sets the callback invoked when the user presses 'q' while the
// child is still running. The default kills the child with SIGTERM.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithOutput sets where the non-interactive fallback prints. Defaults to
// stdout.
func WithOutput(w io.Writer) Option {
	return func(t *TUI) {
		if w != nil {
			t.out = w
		}
	}
}

// Run shows the child's output until it exits and the user quits, and
// returns its exit event. Without a usable terminal it prints events line
// by line instead.
func (t *TUI) Run() (events.ExitEvent, error) {
	if !isTerminal() || terminalTooSmall() {
		return t.runSimple()
	}

	m := newModel(t.source, t.title, t.quitFunc())

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return events.ExitEvent{}, err
	}
	return resultOf(final)
}

func (t *TUI) quitFunc() func() {
	if t.onQuit != nil {
		return t.onQuit
	}
	return func() { _ = t.source.Kill(signals.Default) }
}

// resultOf extracts the exit status from a finished program's model.
func resultOf(final tea.Model) (events.ExitEvent, error) {
	m, ok := final.(model)
	if !ok {
		return events.ExitEvent{}, fmt.Errorf("unexpected model %T", final)
	}
	if m.err != nil {
		return events.ExitEvent{}, m.err
	}
	return m.exit, nil
}
