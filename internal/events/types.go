// Package events defines the events a watched child process produces:
// output chunks on stdout and stderr, and a single terminal exit event.
package events

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/npratt/syncproc/internal/signals"
)

// EventType identifies which variant an Event is.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventExit   EventType = "exit"
)

// Event is implemented only by StdoutEvent, StderrEvent and ExitEvent.
type Event interface {
	Type() EventType
	sealed()
}

// StdoutEvent carries one chunk read from the child's standard output.
type StdoutEvent struct {
	Data []byte
}

// StderrEvent carries one chunk read from the child's standard error.
type StderrEvent struct {
	Data []byte
}

// Type returns EventStdout.
func (StdoutEvent) Type() EventType { return EventStdout }

// Type returns EventStderr.
func (StderrEvent) Type() EventType { return EventStderr }

// Type returns EventExit.
func (ExitEvent) Type() EventType { return EventExit }

func (StdoutEvent) sealed() {}
func (StderrEvent) sealed() {}
func (ExitEvent) sealed()   {}

type exitKind uint8

const (
	exitUnset exitKind = iota
	exitCode
	exitSignal
)

// ExitEvent records how the child terminated: either an exit code or the
// signal that killed it, never both. Build one with Exited or Signaled.
type ExitEvent struct {
	kind   exitKind
	code   int
	signal signals.Signal
}

// Exited returns the event for a normal exit with the given status code.
func Exited(code int) ExitEvent {
	return ExitEvent{kind: exitCode, code: code}
}

// Signaled returns the event for a process terminated by sig.
func Signaled(sig signals.Signal) ExitEvent {
	return ExitEvent{kind: exitSignal, signal: sig}
}

// Code returns the exit code, and false if the process was signaled.
func (e ExitEvent) Code() (int, bool) {
	return e.code, e.kind == exitCode
}

// Signal returns the terminating signal, and false if the process exited normally.
func (e ExitEvent) Signal() (signals.Signal, bool) {
	return e.signal, e.kind == exitSignal
}

// IsZero reports whether e was never set.
func (e ExitEvent) IsZero() bool {
	return e.kind == exitUnset
}

// Success reports a normal exit with code 0.
func (e ExitEvent) Success() bool {
	return e.kind == exitCode && e.code == 0
}

// ExitCode folds the event into a shell-style status: the code itself, or
// 128+signo for a signal.
func (e ExitEvent) ExitCode() int {
	if e.kind == exitSignal {
		return e.signal.ExitCode()
	}
	return e.code
}

// String renders "code 0" or "signal SIGINT".
func (e ExitEvent) String() string {
	switch e.kind {
	case exitCode:
		return fmt.Sprintf("code %d", e.code)
	case exitSignal:
		return fmt.Sprintf("signal %s", e.signal)
	default:
		return "unset"
	}
}

// wireEvent is the JSON shape of every event.
type wireEvent struct {
	Type       EventType       `json:"type"`
	Data       *string         `json:"data,omitempty"`
	DataBase64 []byte          `json:"data_base64,omitempty"`
	Code       *int            `json:"code,omitempty"`
	Signal     *signals.Signal `json:"signal,omitempty"`
}

func chunkWire(t EventType, data []byte) wireEvent {
	w := wireEvent{Type: t}
	if utf8.Valid(data) {
		s := string(data)
		w.Data = &s
	} else {
		w.DataBase64 = data
	}
	return w
}

// MarshalJSON encodes {"type":"stdout","data":"..."}.
func (e StdoutEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(chunkWire(EventStdout, e.Data))
}

// MarshalJSON encodes {"type":"stderr","data":"..."}.
func (e StderrEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(chunkWire(EventStderr, e.Data))
}

// MarshalJSON encodes {"type":"exit","code":N} or {"type":"exit","signal":"SIGX"}.
func (e ExitEvent) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: EventExit}
	switch e.kind {
	case exitCode:
		w.Code = &e.code
	case exitSignal:
		w.Signal = &e.signal
	default:
		return nil, fmt.Errorf("marshal exit event: no code or signal set")
	}
	return json.Marshal(w)
}

// Decode parses one JSON-encoded event as written by MarshalJSON.
func Decode(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	data := w.DataBase64
	if w.Data != nil {
		data = []byte(*w.Data)
	}

	switch w.Type {
	case EventStdout:
		return StdoutEvent{Data: data}, nil
	case EventStderr:
		return StderrEvent{Data: data}, nil
	case EventExit:
		switch {
		case w.Code != nil && w.Signal == nil:
			return Exited(*w.Code), nil
		case w.Signal != nil && w.Code == nil:
			return Signaled(*w.Signal), nil
		default:
			return nil, fmt.Errorf("decode event: exit needs exactly one of code or signal")
		}
	default:
		return nil, fmt.Errorf("decode event: unknown type %q", w.Type)
	}
}
