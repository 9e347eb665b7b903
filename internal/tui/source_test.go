package tui

import (
	"sync"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/signals"
)

type pullResult struct {
	event events.Event
	done  bool
	err   error
}

// fakeSource replays scripted results. After a done result it keeps
// returning it, like a real child.
type fakeSource struct {
	results chan pullResult

	mu     sync.Mutex
	final  *pullResult
	killed []signals.Signal
}

func newFakeSource(results ...pullResult) *fakeSource {
	s := &fakeSource{results: make(chan pullResult, 16)}
	for _, r := range results {
		s.results <- r
	}
	return s
}

func (s *fakeSource) Next() (events.Event, bool, error) {
	s.mu.Lock()
	final := s.final
	s.mu.Unlock()
	if final != nil {
		return final.event, final.done, final.err
	}

	r := <-s.results
	if r.done || r.err != nil {
		s.mu.Lock()
		s.final = &r
		s.mu.Unlock()
	}
	return r.event, r.done, r.err
}

func (s *fakeSource) Kill(sig signals.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = append(s.killed, sig)
	return nil
}

func (s *fakeSource) Pid() int { return 4242 }

func (s *fakeSource) kills() []signals.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]signals.Signal(nil), s.killed...)
}

func stdout(s string) pullResult {
	return pullResult{event: events.StdoutEvent{Data: []byte(s)}}
}

func stderr(s string) pullResult {
	return pullResult{event: events.StderrEvent{Data: []byte(s)}}
}

func exited(code int) pullResult {
	return pullResult{event: events.Exited(code), done: true}
}

func signalExit(sig signals.Signal) events.ExitEvent {
	return events.Signaled(sig)
}
