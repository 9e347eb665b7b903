// Package runner provides abstractions for spawning a child process with
// separate stdin, stdout and stderr pipes. It enables testability by allowing
// fake implementations to be substituted for real process execution.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/signals"
)

// Spec describes the process to spawn.
type Spec struct {
	Path string
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env is the complete environment; nil means inherit the caller's.
	Env []string
	// ProcessGroup puts the child in its own process group and makes
	// Signal target the whole group.
	ProcessGroup bool
}

// ProcessRunner spawns processes.
type ProcessRunner interface {
	// Start spawns a process. An error means no process exists and no
	// pipes need closing.
	Start(ctx context.Context, spec Spec) (Process, error)
}

// Process is a running child. Its pipes are owned by whoever drains them.
type Process interface {
	Pid() int

	// Stdin is the write end of the child's standard input.
	Stdin() io.WriteCloser
	// Stdout and Stderr are the read ends of the child's output pipes.
	// They report EOF once every holder of the write end has exited.
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	// Wait blocks until the process exits and returns how it terminated.
	// It must be called exactly once. It does not close Stdout or Stderr.
	Wait() (events.ExitEvent, error)

	// Signal delivers sig. Returns nil if the process has already exited.
	Signal(sig signals.Signal) error
}

// ExecRunner implements ProcessRunner using os/exec.
// It is the production implementation for running real processes.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Start spawns spec.Path with spec.Args. Cancelling ctx kills the process.
func (r *ExecRunner) Start(ctx context.Context, spec Spec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	if spec.ProcessGroup {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	// The output pipes are created here rather than with StdoutPipe so
	// that Wait leaves the read ends alone.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, fmt.Errorf("start process: %w", err)
	}

	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	return &execProcess{
		cmd:    cmd,
		group:  spec.ProcessGroup,
		stdin:  stdin,
		stdout: stdoutR,
		stderr: stderrR,
	}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	group  bool
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	mu     sync.Mutex
	waited bool
}

func (p *execProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.ReadCloser { return p.stdout }
func (p *execProcess) Stderr() io.ReadCloser { return p.stderr }

// Wait blocks until the process exits. The stdin pipe is closed by the
// time it returns.
func (p *execProcess) Wait() (events.ExitEvent, error) {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.waited = true
	p.mu.Unlock()

	state := p.cmd.ProcessState
	if state == nil {
		return events.ExitEvent{}, fmt.Errorf("wait: %w", err)
	}
	return ExitEventFromState(state), nil
}

// Signal delivers sig to the process, or to its group when ProcessGroup
// was set.
func (p *execProcess) Signal(sig signals.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.waited {
		return nil
	}

	var err error
	if p.group {
		err = syscall.Kill(-p.cmd.Process.Pid, sig.Sys())
		if errors.Is(err, syscall.ESRCH) {
			err = nil
		}
	} else {
		err = p.cmd.Process.Signal(sig.Sys())
		if errors.Is(err, os.ErrProcessDone) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("signal %s to pid %d: %w", sig, p.cmd.Process.Pid, err)
	}
	return nil
}

// ExitEventFromState converts a finished process state to an ExitEvent.
func ExitEventFromState(state *os.ProcessState) events.ExitEvent {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return events.Signaled(signals.Signal(ws.Signal()))
	}
	return events.Exited(state.ExitCode())
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
