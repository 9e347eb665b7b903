// Package shutdown relays termination signals received by this process to
// the child it supervises.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/npratt/syncproc/internal/signals"
)

// Killer is a process that can be asked to terminate.
type Killer interface {
	Kill(sig signals.Signal) error
}

// DefaultSignals are forwarded when Forward is given none.
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// Forward relays sigs received by this process to k until ctx is done or
// stop is called. The first signal is passed on as is. Any later one calls
// force, if set, since k only acts on the first.
func Forward(ctx context.Context, logger *slog.Logger, k Killer, force func(), sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		forwarded := false
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				sysSig, ok := sig.(syscall.Signal)
				if !ok {
					continue
				}
				if !forwarded {
					forwarded = true
					logger.Info("received signal, forwarding to child", "signal", signals.Signal(sysSig).String())
					if err := k.Kill(signals.Signal(sysSig)); err != nil {
						logger.Error("forward signal failed", "error", err)
					}
					continue
				}
				if force != nil {
					logger.Warn("received signal again, forcing exit", "signal", signals.Signal(sysSig).String())
					force()
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
