package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/npratt/syncproc/internal/signals"
)

func start(t *testing.T, ctx context.Context, spec Spec) Process {
	t.Helper()
	p, err := NewExecRunner().Start(ctx, spec)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return p
}

func sh(script string) Spec {
	return Spec{Path: "sh", Args: []string{"-c", script}}
}

func TestExecRunner_StartAndWait(t *testing.T) {
	p := start(t, context.Background(), Spec{Path: "echo", Args: []string{"hello"}})

	out, err := io.ReadAll(p.Stdout())
	if err != nil {
		t.Fatalf("ReadAll stdout failed: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("stdout = %q, want %q", string(out), "hello\n")
	}

	errOut, err := io.ReadAll(p.Stderr())
	if err != nil {
		t.Fatalf("ReadAll stderr failed: %v", err)
	}
	if len(errOut) != 0 {
		t.Errorf("stderr = %q, want empty", string(errOut))
	}

	exit, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !exit.Success() {
		t.Errorf("exit = %v, want code 0", exit)
	}
}

func TestExecRunner_Stderr(t *testing.T) {
	p := start(t, context.Background(), sh("echo error >&2"))

	_, _ = io.ReadAll(p.Stdout())
	errOut, err := io.ReadAll(p.Stderr())
	if err != nil {
		t.Fatalf("ReadAll stderr failed: %v", err)
	}
	if string(errOut) != "error\n" {
		t.Errorf("stderr = %q, want %q", string(errOut), "error\n")
	}

	_, _ = p.Wait()
}

func TestExecRunner_Stdin(t *testing.T) {
	p := start(t, context.Background(), Spec{Path: "cat"})

	if _, err := io.WriteString(p.Stdin(), "round trip\n"); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	if err := p.Stdin().Close(); err != nil {
		t.Fatalf("close stdin: %v", err)
	}

	out, _ := io.ReadAll(p.Stdout())
	if string(out) != "round trip\n" {
		t.Errorf("stdout = %q, want %q", out, "round trip\n")
	}
	if exit, err := p.Wait(); err != nil || !exit.Success() {
		t.Errorf("Wait = (%v, %v), want code 0", exit, err)
	}
}

func TestExecRunner_ExitCode(t *testing.T) {
	p := start(t, context.Background(), sh("exit 42"))

	_, _ = io.ReadAll(p.Stdout())
	_, _ = io.ReadAll(p.Stderr())

	exit, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if code, ok := exit.Code(); !ok || code != 42 {
		t.Errorf("exit = %v, want code 42", exit)
	}
}

func TestExecRunner_Signal(t *testing.T) {
	p := start(t, context.Background(), Spec{Path: "sleep", Args: []string{"10"}})

	if err := p.Signal(signals.SIGINT); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	exit, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if sig, ok := exit.Signal(); !ok || sig != signals.SIGINT {
		t.Errorf("exit = %v, want signal SIGINT", exit)
	}

	// Signalling a reaped process is a no-op
	if err := p.Signal(signals.SIGTERM); err != nil {
		t.Errorf("Signal after Wait = %v, want nil", err)
	}
}

func TestExecRunner_SignalProcessGroup(t *testing.T) {
	spec := sh("sleep 10 & wait")
	spec.ProcessGroup = true
	p := start(t, context.Background(), spec)

	time.Sleep(50 * time.Millisecond)
	if err := p.Signal(signals.SIGTERM); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	// Both sh and its sleep are gone, so the pipes reach EOF.
	done := make(chan struct{})
	go func() {
		_, _ = io.ReadAll(p.Stdout())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stdout still open; group was not signaled")
	}

	exit, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if sig, ok := exit.Signal(); !ok || sig != signals.SIGTERM {
		t.Errorf("exit = %v, want signal SIGTERM", exit)
	}
}

func TestExecRunner_ConcurrentSignal(t *testing.T) {
	p := start(t, context.Background(), Spec{Path: "sleep", Args: []string{"1"}})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Signal(signals.SIGKILL)
		}()
	}

	wg.Wait()
	_, _ = p.Wait()
}

func TestExecRunner_DirAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := start(t, context.Background(), Spec{
		Path: "sh",
		Args: []string{"-c", `pwd; echo "$SYNCPROC_RUNNER_TEST"`},
		Dir:  dir,
		Env:  []string{"SYNCPROC_RUNNER_TEST=abcdef", "PATH=/usr/bin:/bin"},
	})

	out, _ := io.ReadAll(p.Stdout())
	_, _ = p.Wait()

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("stdout = %q, want two lines", out)
	}
	if filepath.Base(lines[0]) != filepath.Base(dir) {
		t.Errorf("pwd = %q, want %q", lines[0], dir)
	}
	if lines[1] != "abcdef" {
		t.Errorf("env = %q, want abcdef", lines[1])
	}
}

func TestExecRunner_InvalidCommand(t *testing.T) {
	_, err := NewExecRunner().Start(context.Background(), Spec{Path: "nonexistent-command-12345"})
	if err == nil {
		t.Fatal("Start with invalid command should fail")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("err = %v, want exec.ErrNotFound", err)
	}
}

func TestExecRunner_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := start(t, ctx, Spec{Path: "sleep", Args: []string{"10"}})

	cancel()

	exit, err := p.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if sig, ok := exit.Signal(); !ok || sig != signals.SIGKILL {
		t.Errorf("exit = %v, want signal SIGKILL", exit)
	}
	_ = p.Stdout().Close()
	_ = p.Stderr().Close()
}
