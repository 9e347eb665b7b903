package shutdown

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/npratt/syncproc/internal/signals"
	"github.com/npratt/syncproc/internal/testutil"
)

type recordingKiller struct {
	mu   sync.Mutex
	sigs []signals.Signal
}

func (k *recordingKiller) Kill(sig signals.Signal) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sigs = append(k.sigs, sig)
	return nil
}

func (k *recordingKiller) signals() []signals.Signal {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]signals.Signal(nil), k.sigs...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func raise(t *testing.T, sig syscall.Signal) {
	t.Helper()
	if err := syscall.Kill(os.Getpid(), sig); err != nil {
		t.Fatalf("raise %v: %v", sig, err)
	}
}

func TestForward_RelaysFirstSignal(t *testing.T) {
	k := &recordingKiller{}
	var forced atomic.Int32

	stop := Forward(context.Background(), discardLogger(), k, func() { forced.Add(1) }, syscall.SIGUSR1)
	defer stop()

	raise(t, syscall.SIGUSR1)
	testutil.Eventually(t, 5*time.Second, func() bool { return len(k.signals()) == 1 })

	if got := k.signals(); got[0] != signals.SIGUSR1 {
		t.Errorf("forwarded %v, want SIGUSR1", got[0])
	}
	if forced.Load() != 0 {
		t.Error("force should not run on the first signal")
	}
}

func TestForward_SecondSignalForces(t *testing.T) {
	k := &recordingKiller{}
	var forced atomic.Int32

	stop := Forward(context.Background(), discardLogger(), k, func() { forced.Add(1) }, syscall.SIGUSR2)
	defer stop()

	raise(t, syscall.SIGUSR2)
	testutil.Eventually(t, 5*time.Second, func() bool { return len(k.signals()) == 1 })

	raise(t, syscall.SIGUSR2)
	testutil.Eventually(t, 5*time.Second, func() bool { return forced.Load() == 1 })

	if got := k.signals(); len(got) != 1 {
		t.Errorf("forwarded %v, want a single signal", got)
	}
}

func TestForward_StopIsIdempotentWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	k := &recordingKiller{}

	stop := Forward(ctx, discardLogger(), k, nil, syscall.SIGUSR1)
	cancel()
	stop()
	stop()

	if got := k.signals(); len(got) != 0 {
		t.Errorf("forwarded %v, want none", got)
	}
}
