package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/npratt/syncproc/internal/events"
)

func TestView_Loading(t *testing.T) {
	m := newModel(newFakeSource(), "test", nil)
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestView_TooSmall(t *testing.T) {
	m := newModel(newFakeSource(), "test", nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 5})

	if got := updated.(model).View(); !strings.Contains(got, "Terminal too small") {
		t.Errorf("View() = %q, want too-small message", got)
	}
}

func TestView_ShowsOutputAndHeader(t *testing.T) {
	m := sizedModel(t)
	m.handleEvent(events.StdoutEvent{Data: []byte("hello from stdout\n")})
	m.handleEvent(events.StderrEvent{Data: []byte("hello from stderr\n")})

	view := m.View()
	for _, want := range []string{"test", "pid 4242", "running", "hello from stdout", "hello from stderr", "q: stop and quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_ShowsExitStatus(t *testing.T) {
	m := sizedModel(t)
	updated, _ := m.Update(eventMsg{event: events.Exited(2), done: true})

	view := updated.(model).View()
	if !strings.Contains(view, "code 2") {
		t.Error("View() should show the exit code in the header")
	}
	if !strings.Contains(view, "q: quit") {
		t.Error("View() should offer a plain quit once exited")
	}
}

func TestRenderLine_StripsEscapes(t *testing.T) {
	got := renderLine(outputLine{Stream: events.EventStdout, Text: "\x1b[2Jplain"})
	if strings.Contains(got, "\x1b[2J") {
		t.Errorf("renderLine kept a raw escape sequence: %q", got)
	}
	if !strings.Contains(got, "plain") {
		t.Errorf("renderLine = %q, want text kept", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much too long", 5, "much…"},
		{"anything", 0, ""},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
