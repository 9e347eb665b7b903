package tui

import (
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/npratt/syncproc/internal/events"
)

const (
	// maxOutputLines is the maximum number of output lines to keep in the buffer.
	maxOutputLines = 1000
	// trimOutputLines is the number of lines to remove when buffer exceeds max.
	trimOutputLines = 100
	// tickInterval is the interval for refreshing the elapsed time.
	tickInterval = time.Second
)

// tickMsg signals a periodic tick for the elapsed time display.
type tickMsg time.Time

// pullEvent creates a command that blocks on the next event from source.
// Only one pull is ever outstanding, so Next is never called concurrently.
func pullEvent(source Source) tea.Cmd {
	return func() tea.Msg {
		event, done, err := source.Next()
		if err != nil {
			return streamErrMsg{err: err}
		}
		return eventMsg{event: event, done: done}
	}
}

// doTick creates a command that waits for the tick interval and sends a tickMsg.
func doTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case eventMsg:
		m.handleEvent(msg.event)
		if !msg.done {
			return m, pullEvent(m.source)
		}
		m.done = true
		if m.status == statusStopping {
			// The user already asked to quit
			return m, tea.Quit
		}
		m.status = statusExited
		return m, nil

	case streamErrMsg:
		slog.Error("event stream failed", "error", msg.err)
		m.err = msg.err
		m.done = true
		m.status = statusFailed
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.now = time.Time(msg)
		return m, doTick()

	default:
		return m, nil
	}
}

// handleKey processes keyboard input and returns the updated model and command.
func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		if m.status != statusStopping {
			m.status = statusStopping
			if m.onQuit != nil {
				m.onQuit()
			}
		}
		// Quit once the exit event arrives.
		return m, nil

	case "home", "g":
		m.follow = false
		m.viewport.GotoTop()
		return m, nil

	case "end", "G":
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil

	default:
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd
	}
}

// handleEvent processes an event and updates model state.
func (m *model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.StdoutEvent:
		m.appendOutput(events.EventStdout, string(e.Data))
	case events.StderrEvent:
		m.appendOutput(events.EventStderr, string(e.Data))
	case events.ExitEvent:
		m.exit = e
		m.closeOpenLine()
		m.lines = append(m.lines, outputLine{Stream: events.EventExit, Text: events.Format(e)})
	}

	// Trim buffer if over max lines
	if len(m.lines) > maxOutputLines {
		m.lines = m.lines[trimOutputLines:]
	}
	m.refresh()
}

// appendOutput splits a chunk into lines, continuing the previous line when
// it is still open on the same stream.
func (m *model) appendOutput(stream events.EventType, text string) {
	segments := strings.Split(text, "\n")
	for i, seg := range segments {
		last := i == len(segments)-1
		if last && seg == "" {
			// Chunk ended on a newline.
			break
		}
		if i == 0 && len(m.lines) > 0 {
			prev := &m.lines[len(m.lines)-1]
			if prev.Open && prev.Stream == stream {
				prev.Text += seg
				prev.Open = last
				continue
			}
		}
		if i == 0 {
			m.closeOpenLine()
		}
		m.lines = append(m.lines, outputLine{Stream: stream, Text: seg, Open: last})
	}
}

func (m *model) closeOpenLine() {
	if len(m.lines) > 0 {
		m.lines[len(m.lines)-1].Open = false
	}
}
