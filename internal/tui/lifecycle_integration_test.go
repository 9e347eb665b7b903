package tui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/npratt/syncproc/internal/signals"
)

// TestTUILifecycleSmoke verifies the full bubbletea program lifecycle:
// start, pull events until exit, handle keyboard input, and quit cleanly.
// This test uses teatest to run the TUI headlessly without a real TTY.
func TestTUILifecycleSmoke(t *testing.T) {
	src := newFakeSource(stdout("hello, world!\n"), stderr("warning\n"), exited(0))

	var quitCalled bool
	m := newModel(src, "helper", func() { quitCalled = true })

	tm := teatest.NewTestModel(
		t,
		m,
		teatest.WithInitialTermSize(80, 24),
	)

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("hello, world!"))
	}, teatest.WithDuration(5*time.Second))

	// Scroll keys are harmless
	tm.Send(tea.KeyMsg{Type: tea.KeyDown})
	tm.Send(tea.KeyMsg{Type: tea.KeyUp})

	// Let the exit event land so q quits without stopping the child
	time.Sleep(50 * time.Millisecond)
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final, ok := fm.(model)
	if !ok {
		t.Fatalf("FinalModel = %T, want model", fm)
	}

	if !final.exit.Success() {
		t.Errorf("exit = %v, want code 0", final.exit)
	}
	if quitCalled {
		t.Error("quit callback should not run after the child exited")
	}
}

// TestTUIQuitStopsChild verifies that quitting while the child runs asks it
// to stop and waits for its exit event before the program ends.
func TestTUIQuitStopsChild(t *testing.T) {
	src := newFakeSource(stdout("working\n"))

	m := newModel(src, "helper", func() {
		_ = src.Kill(signals.SIGTERM)
		src.results <- pullResult{event: signalExit(signals.SIGTERM), done: true}
	})

	tm := teatest.NewTestModel(
		t,
		m,
		teatest.WithInitialTermSize(80, 24),
	)

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("working"))
	}, teatest.WithDuration(5*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
	final := fm.(model)

	if sig, ok := final.exit.Signal(); !ok || sig != signals.SIGTERM {
		t.Errorf("exit = %v, want signal SIGTERM", final.exit)
	}
	if got := src.kills(); len(got) != 1 {
		t.Errorf("kills = %v, want one", got)
	}
}
