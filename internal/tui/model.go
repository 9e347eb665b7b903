package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/npratt/syncproc/internal/events"
)

// outputLine is one line of child output. A line is open until its newline
// arrives, so the next chunk from the same stream extends it.
type outputLine struct {
	Stream events.EventType
	Text   string
	Open   bool
}

// Status values shown in the header.
const (
	statusRunning  = "running"
	statusStopping = "stopping..."
	statusExited   = "exited"
	statusFailed   = "failed"
)

// model is the bubbletea model for the TUI.
type model struct {
	// Event source
	source Source
	title  string
	pid    int

	// State
	status  string
	started time.Time
	now     time.Time
	exit    events.ExitEvent
	err     error
	done    bool

	// Output log
	lines []outputLine

	// UI state
	width    int
	height   int
	viewport viewport.Model
	ready    bool
	follow   bool

	// Callbacks
	onQuit func()
}

// eventMsg wraps one result of Source.Next for the bubbletea message system.
type eventMsg struct {
	event events.Event
	done  bool
}

// streamErrMsg reports that Source.Next failed.
type streamErrMsg struct {
	err error
}

// newModel creates a new model with the given configuration.
func newModel(source Source, title string, onQuit func()) model {
	now := time.Now()
	return model{
		source:  source,
		title:   title,
		pid:     source.Pid(),
		status:  statusRunning,
		started: now,
		now:     now,
		follow:  true,
		onQuit:  onQuit,
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		pullEvent(m.source),
		doTick(),
	)
}

// Update, handleKey, handleEvent are implemented in update.go
// View is implemented in view.go

// viewportHeight returns the number of output lines that fit on screen.
func (m model) viewportHeight() int {
	// Height minus: border (2), header (1), dividers (2), footer (1) = 6
	return max(1, m.height-6)
}

// resize fits the viewport to the window.
func (m *model) resize() {
	width := max(1, m.width-2)
	if !m.ready {
		m.viewport = viewport.New(width, m.viewportHeight())
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = m.viewportHeight()
	}
	m.refresh()
}

// refresh re-renders the output into the viewport.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLines())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m model) elapsed() time.Duration {
	return m.now.Sub(m.started).Truncate(time.Second)
}

func (m model) statusStyle() lipgloss.Style {
	switch m.status {
	case statusRunning:
		return styles.StatusRunning
	case statusStopping:
		return styles.StatusStopping
	case statusExited:
		if m.exit.Success() {
			return styles.StatusSuccess
		}
		return styles.StatusFailed
	default:
		return styles.StatusFailed
	}
}
