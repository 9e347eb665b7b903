// Package testutil provides test infrastructure for unit and integration testing.
package testutil

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/runner"
	"github.com/npratt/syncproc/internal/signals"
)

// ErrWaitFailed is a canned error for FakeProcess.FailWait.
var ErrWaitFailed = errors.New("fake wait failed")

// FakeRunner implements runner.ProcessRunner by handing out a scripted
// FakeProcess. It records every Spec it is asked to start.
type FakeRunner struct {
	mu       sync.Mutex
	process  *FakeProcess
	startErr error
	specs    []runner.Spec
}

// NewFakeRunner creates a runner that starts proc.
func NewFakeRunner(proc *FakeProcess) *FakeRunner {
	return &FakeRunner{process: proc}
}

// SetStartError makes Start fail with err.
func (r *FakeRunner) SetStartError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startErr = err
}

// Start implements runner.ProcessRunner.
func (r *FakeRunner) Start(ctx context.Context, spec runner.Spec) (runner.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs = append(r.specs, spec)
	if r.startErr != nil {
		return nil, r.startErr
	}
	return r.process, nil
}

// Specs returns a copy of every Spec passed to Start.
func (r *FakeRunner) Specs() []runner.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]runner.Spec, len(r.specs))
	copy(result, r.specs)
	return result
}

// FakeProcess is a child process driven by the test. Output written with
// WriteStdout/WriteStderr is delivered through in-memory pipes; the process
// "exits" when the test calls Exit, ExitWithSignal or FailWait.
type FakeProcess struct {
	pid int

	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter
	stdinR           *io.PipeReader
	stdinW           *io.PipeWriter

	mu           sync.Mutex
	signals      []signals.Signal
	signalErr    error
	exitOnSignal bool
	exit         chan fakeExit
	exitOnce     sync.Once
}

type fakeExit struct {
	event events.ExitEvent
	err   error
}

// NewFakeProcess creates a fake with the given pid.
func NewFakeProcess(pid int) *FakeProcess {
	p := &FakeProcess{
		pid:  pid,
		exit: make(chan fakeExit, 1),
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	p.stdinR, p.stdinW = io.Pipe()
	return p
}

// ExitOnSignal makes Signal terminate the fake as if the signal killed it.
func (p *FakeProcess) ExitOnSignal() *FakeProcess {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitOnSignal = true
	return p
}

// SetSignalError makes Signal fail with err.
func (p *FakeProcess) SetSignalError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signalErr = err
}

// WriteStdout emits one stdout chunk. It returns once the chunk was read.
func (p *FakeProcess) WriteStdout(s string) error {
	_, err := io.WriteString(p.stdoutW, s)
	return err
}

// WriteStderr emits one stderr chunk. It returns once the chunk was read.
func (p *FakeProcess) WriteStderr(s string) error {
	_, err := io.WriteString(p.stderrW, s)
	return err
}

// FailStdout makes the next stdout read fail with err.
func (p *FakeProcess) FailStdout(err error) {
	_ = p.stdoutW.CloseWithError(err)
}

// ReadStdin reads up to n bytes the parent wrote to the fake's stdin.
func (p *FakeProcess) ReadStdin(n int) (string, error) {
	buf := make([]byte, n)
	read, err := p.stdinR.Read(buf)
	return string(buf[:read]), err
}

// ReadAllStdin reads stdin until the parent ends it.
func (p *FakeProcess) ReadAllStdin() (string, error) {
	data, err := io.ReadAll(p.stdinR)
	return string(data), err
}

// CloseStdin makes further writes to the fake's stdin fail, as if the child
// closed its end.
func (p *FakeProcess) CloseStdin() {
	_ = p.stdinR.CloseWithError(io.ErrClosedPipe)
}

// Exit closes the output pipes and makes Wait report a normal exit.
func (p *FakeProcess) Exit(code int) {
	p.finish(fakeExit{event: events.Exited(code)})
}

// ExitWithSignal closes the output pipes and makes Wait report sig.
func (p *FakeProcess) ExitWithSignal(sig signals.Signal) {
	p.finish(fakeExit{event: events.Signaled(sig)})
}

// FailWait closes the output pipes and makes Wait return err.
func (p *FakeProcess) FailWait(err error) {
	p.finish(fakeExit{err: err})
}

func (p *FakeProcess) finish(result fakeExit) {
	p.exitOnce.Do(func() {
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		_ = p.stdinR.CloseWithError(io.ErrClosedPipe)
		p.exit <- result
	})
}

// Signals returns every signal delivered so far.
func (p *FakeProcess) Signals() []signals.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]signals.Signal, len(p.signals))
	copy(result, p.signals)
	return result
}

// Pid implements runner.Process.
func (p *FakeProcess) Pid() int { return p.pid }

// Stdin implements runner.Process.
func (p *FakeProcess) Stdin() io.WriteCloser { return p.stdinW }

// Stdout implements runner.Process.
func (p *FakeProcess) Stdout() io.ReadCloser { return p.stdoutR }

// Stderr implements runner.Process.
func (p *FakeProcess) Stderr() io.ReadCloser { return p.stderrR }

// Wait implements runner.Process.
func (p *FakeProcess) Wait() (events.ExitEvent, error) {
	result := <-p.exit
	return result.event, result.err
}

// Signal implements runner.Process.
func (p *FakeProcess) Signal(sig signals.Signal) error {
	p.mu.Lock()
	if p.signalErr != nil {
		err := p.signalErr
		p.mu.Unlock()
		return err
	}
	p.signals = append(p.signals, sig)
	exitOnSignal := p.exitOnSignal
	p.mu.Unlock()

	if exitOnSignal {
		p.ExitWithSignal(sig)
	}
	return nil
}
