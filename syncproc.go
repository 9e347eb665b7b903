// Package syncproc runs a child process and exposes its lifecycle as a
// blocking, pull-based event stream.
//
// Each call to Next returns the next thing the child did: a chunk of
// standard output, a chunk of standard error, or its termination. Output is
// drained by background goroutines as soon as it is produced and buffered
// until Next consumes it, so a slow caller never stalls the child.
//
//	proc, err := syncproc.New("grep", []string{"-n", "TODO"})
//	if err != nil {
//		return err
//	}
//	_, _ = proc.Stdin().WriteString(source)
//	_ = proc.Stdin().End()
//	for {
//		ev, done, err := proc.Next()
//		if err != nil {
//			return err
//		}
//		switch ev := ev.(type) {
//		case syncproc.StdoutEvent:
//			os.Stdout.Write(ev.Data)
//		case syncproc.StderrEvent:
//			os.Stderr.Write(ev.Data)
//		case syncproc.ExitEvent:
//			fmt.Println("exited with", ev)
//		}
//		if done {
//			break
//		}
//	}
package syncproc

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/queue"
	"github.com/npratt/syncproc/internal/runner"
	"github.com/npratt/syncproc/internal/signals"
)

// Event variants. See package events for details.
type (
	Event       = events.Event
	StdoutEvent = events.StdoutEvent
	StderrEvent = events.StderrEvent
	ExitEvent   = events.ExitEvent
	Signal      = signals.Signal
)

// Signals commonly passed to Kill.
const (
	SIGHUP  = signals.SIGHUP
	SIGINT  = signals.SIGINT
	SIGQUIT = signals.SIGQUIT
	SIGKILL = signals.SIGKILL
	SIGTERM = signals.SIGTERM
)

// ParseSignal accepts "SIGINT", "INT" or a signal number.
func ParseSignal(s string) (Signal, error) {
	return signals.Parse(s)
}

type state uint8

const (
	stateRunning state = iota
	stateExited
)

// SyncChildProcess is a running child process viewed as a blocking event
// stream.
//
// Next, NextContext and Events must be called from a single goroutine.
// Kill, Stdin and Pid are safe to call from any goroutine.
type SyncChildProcess struct {
	pid        int
	stdin      *Stdin
	producer   *producer
	events     *queue.Queue[events.Event]
	killSignal signals.Signal

	state state
	final events.ExitEvent
}

// New starts path with args. It fails, returning no process, if the child
// cannot be spawned.
func New(path string, args []string, opts ...Option) (*SyncChildProcess, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	proc, err := o.runner.Start(o.ctx, runner.Spec{
		Path:         path,
		Args:         args,
		Dir:          o.dir,
		Env:          o.environment(),
		ProcessGroup: o.processGroup,
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", path, err)
	}

	o.logger.Info("process started", "pid", proc.Pid(), "path", path, "args", args)

	q := queue.New[events.Event]()
	stdin := newStdin(proc.Stdin(), o.logger)
	p := newProducer(proc, q, stdin, o)

	go stdin.pump()
	go p.run()

	return &SyncChildProcess{
		pid:        proc.Pid(),
		stdin:      stdin,
		producer:   p,
		events:     q,
		killSignal: o.killSignal,
	}, nil
}

// Pid returns the child's process ID.
func (c *SyncChildProcess) Pid() int {
	return c.pid
}

// Stdin returns the writer bound to the child's standard input.
func (c *SyncChildProcess) Stdin() *Stdin {
	return c.stdin
}

// Next blocks until the child produces its next event.
//
// Output events are returned with done=false. The exit event is returned
// with done=true, and so is every call after it, without blocking.
// An error means the child could not be waited on; see ErrNoExitStatus.
func (c *SyncChildProcess) Next() (Event, bool, error) {
	return c.NextContext(context.Background())
}

// NextContext is Next with a way out: if ctx is done before an event
// arrives it returns ctx.Err() and the event, when it comes, is kept for
// the following call.
func (c *SyncChildProcess) NextContext(ctx context.Context) (Event, bool, error) {
	if c.state == stateExited {
		return c.final, true, nil
	}

	ev, err := c.events.Receive(ctx)
	if errors.Is(err, queue.ErrClosed) {
		if c.producer.waitErr != nil {
			return nil, false, fmt.Errorf("%w: %w", ErrNoExitStatus, c.producer.waitErr)
		}
		return nil, false, ErrNoExitStatus
	}
	if err != nil {
		return nil, false, err
	}

	switch e := ev.(type) {
	case events.StdoutEvent:
		c.producer.consumed(len(e.Data))
		return e, false, nil
	case events.StderrEvent:
		c.producer.consumed(len(e.Data))
		return e, false, nil
	case events.ExitEvent:
		c.state = stateExited
		c.final = e
		return e, true, nil
	default:
		return nil, false, fmt.Errorf("unexpected event %T", ev)
	}
}

// Events iterates over Next. The exit event is the last value yielded;
// an error ends the sequence.
func (c *SyncChildProcess) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, done, err := c.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(ev, nil) || done {
				return
			}
		}
	}
}

// ExitEvent returns the exit event once Next has delivered it.
func (c *SyncChildProcess) ExitEvent() (ExitEvent, bool) {
	return c.final, c.state == stateExited
}

// Kill sends sig to the child, or the configured default (SIGTERM) when sig
// is zero. It also ends stdin. Kill does not wait: the exit event still
// arrives through Next.
//
// Only the first successful signal has any effect. Calls after that, or
// after the child exited, return nil and do nothing.
func (c *SyncChildProcess) Kill(sig Signal) error {
	if sig == 0 {
		sig = c.killSignal
	}
	_ = c.stdin.End()
	return c.producer.signal(sig)
}
