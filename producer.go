package syncproc

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/queue"
	"github.com/npratt/syncproc/internal/runner"
	"github.com/npratt/syncproc/internal/signals"
)

// producer owns the running child and its pipes. It is the only writer of
// domain events to the queue.
type producer struct {
	proc   runner.Process
	out    *queue.Queue[events.Event]
	stdin  *Stdin
	sink   events.Sink
	logger *slog.Logger

	readSize     int
	drainTimeout time.Duration
	bufferWarn   int64

	pending atomic.Int64
	warned  atomic.Bool

	signalMu sync.Mutex
	signaled bool
	exited   chan struct{}

	// waitErr is set before out is closed and read only after.
	waitErr error
}

func newProducer(proc runner.Process, out *queue.Queue[events.Event], stdin *Stdin, o options) *producer {
	return &producer{
		proc:         proc,
		out:          out,
		stdin:        stdin,
		sink:         o.transcript,
		logger:       o.logger,
		readSize:     o.readSize,
		drainTimeout: o.drainTimeout,
		bufferWarn:   o.bufferWarn,
		exited:       make(chan struct{}),
	}
}

// run drains both output pipes, waits for the child, then publishes the
// exit event and closes the queue.
func (p *producer) run() {
	defer p.out.Close()

	var readers sync.WaitGroup
	readers.Add(2)
	go p.drain(&readers, p.proc.Stdout(), events.EventStdout)
	go p.drain(&readers, p.proc.Stderr(), events.EventStderr)

	exit, err := p.proc.Wait()

	p.signalMu.Lock()
	close(p.exited)
	p.signalMu.Unlock()
	p.stdin.processExited()

	if !waitTimeout(&readers, p.drainTimeout) {
		p.logger.Warn("output still open after exit, closing pipes",
			"pid", p.proc.Pid(),
			"drain_timeout", p.drainTimeout,
		)
	}
	// Closing unblocks readers held open by grandchildren.
	_ = p.proc.Stdout().Close()
	_ = p.proc.Stderr().Close()
	readers.Wait()

	if err != nil {
		p.logger.Error("wait failed", "pid", p.proc.Pid(), "error", err)
		p.waitErr = err
		return
	}

	p.logger.Info("process exited", "pid", p.proc.Pid(), "status", exit.String())
	p.publish(exit)
}

// drain publishes each read from r as one event until r fails.
func (p *producer) drain(wg *sync.WaitGroup, r io.Reader, stream events.EventType) {
	defer wg.Done()

	buf := make([]byte, p.readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := bytes.Clone(buf[:n])
			if stream == events.EventStdout {
				p.publish(events.StdoutEvent{Data: data})
			} else {
				p.publish(events.StderrEvent{Data: data})
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.logger.Debug("read failed, treating as end of stream", "stream", stream, "error", err)
			} else {
				p.logger.Debug("stream closed", "stream", stream)
			}
			return
		}
	}
}

func (p *producer) publish(event events.Event) {
	if p.sink != nil {
		if err := p.sink.Record(event); err != nil {
			p.logger.Warn("transcript write failed", "error", err)
		}
	}

	if n := chunkLen(event); n > 0 {
		pending := p.pending.Add(int64(n))
		if p.bufferWarn > 0 && pending > p.bufferWarn && p.warned.CompareAndSwap(false, true) {
			p.logger.Warn("unconsumed output is piling up",
				"pid", p.proc.Pid(),
				"pending_bytes", pending,
				"events", p.out.Len(),
			)
		}
	}

	if err := p.out.Publish(event); err != nil {
		p.logger.Error("publish after close", "type", event.Type())
	}
}

// consumed is called by the front for each chunk it hands out.
func (p *producer) consumed(n int) {
	p.pending.Add(-int64(n))
}

// signal forwards sig unless the child has exited or was already signaled.
func (p *producer) signal(sig signals.Signal) error {
	p.signalMu.Lock()
	defer p.signalMu.Unlock()

	if p.signaled {
		return nil
	}
	select {
	case <-p.exited:
		return nil
	default:
	}

	if err := p.proc.Signal(sig); err != nil {
		return err
	}
	p.signaled = true
	p.logger.Debug("signal sent", "pid", p.proc.Pid(), "signal", sig.String())
	return nil
}

func chunkLen(event events.Event) int {
	switch e := event.(type) {
	case events.StdoutEvent:
		return len(e.Data)
	case events.StderrEvent:
		return len(e.Data)
	default:
		return 0
	}
}

// waitTimeout waits for wg, giving up after d. A non-positive d waits forever.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	if d <= 0 {
		wg.Wait()
		return true
	}

	c := make(chan struct{})
	go func() {
		wg.Wait()
		close(c)
	}()

	select {
	case <-c:
		return true
	case <-time.After(d):
		return false
	}
}
