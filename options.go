package syncproc

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/runner"
	"github.com/npratt/syncproc/internal/signals"
)

// Defaults for the tunables below.
const (
	DefaultReadSize     = 32 * 1024
	DefaultDrainTimeout = 10 * time.Second
	DefaultBufferWarn   = 64 * 1024 * 1024
)

type options struct {
	ctx          context.Context
	dir          string
	environ      []string
	env          map[string]string
	processGroup bool
	killSignal   signals.Signal
	logger       *slog.Logger
	runner       runner.ProcessRunner
	transcript   events.Sink
	readSize     int
	drainTimeout time.Duration
	bufferWarn   int64
}

func defaultOptions() options {
	return options{
		ctx:          context.Background(),
		killSignal:   signals.Default,
		logger:       slog.New(slog.DiscardHandler),
		runner:       runner.NewExecRunner(),
		readSize:     DefaultReadSize,
		drainTimeout: DefaultDrainTimeout,
		bufferWarn:   DefaultBufferWarn,
	}
}

// Option configures a SyncChildProcess.
type Option func(*options)

// WithContext ties the child's lifetime to ctx: when ctx is done the child
// is killed with SIGKILL and the exit event reports that signal.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		o.ctx = ctx
	}
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithEnv adds or overrides variables on top of the base environment, which
// is the caller's own unless WithEnviron replaces it.
func WithEnv(env map[string]string) Option {
	return func(o *options) {
		if o.env == nil {
			o.env = make(map[string]string, len(env))
		}
		for k, v := range env {
			o.env[k] = v
		}
	}
}

// WithEnviron replaces the inherited environment with environ ("KEY=value").
// A non-nil empty slice starts the child with no environment at all.
func WithEnviron(environ []string) Option {
	return func(o *options) {
		if environ == nil {
			environ = []string{}
		}
		o.environ = slices.Clone(environ)
	}
}

// WithProcessGroup starts the child in its own process group so that Kill
// reaches everything it spawned.
func WithProcessGroup() Option {
	return func(o *options) {
		o.processGroup = true
	}
}

// WithKillSignal changes the signal Kill sends when called with zero.
func WithKillSignal(sig signals.Signal) Option {
	return func(o *options) {
		if sig != 0 {
			o.killSignal = sig
		}
	}
}

// WithLogger sets the logger for lifecycle messages. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRunner replaces the process spawner. Used by tests.
func WithRunner(r runner.ProcessRunner) Option {
	return func(o *options) {
		if r != nil {
			o.runner = r
		}
	}
}

// WithTranscript records every event to sink as it is produced. The caller
// opens and closes the sink.
func WithTranscript(sink events.Sink) Option {
	return func(o *options) {
		o.transcript = sink
	}
}

// WithReadSize sets the buffer size of each read from stdout and stderr,
// which bounds the size of a single output event.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithDrainTimeout bounds how long output pipes are drained after the child
// exits, for grandchildren that keep them open. Zero or less waits forever.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		o.drainTimeout = d
	}
}

// WithBufferWarning sets how many unconsumed output bytes may pile up before
// a warning is logged. Output is never dropped. Zero or less disables it.
func WithBufferWarning(bytes int64) Option {
	return func(o *options) {
		o.bufferWarn = bytes
	}
}

// environment resolves the child's final environment.
func (o *options) environment() []string {
	if o.environ == nil && len(o.env) == 0 {
		return nil
	}

	base := o.environ
	if base == nil {
		base = os.Environ()
	}
	return mergeEnv(base, o.env)
}

// mergeEnv overlays overrides on base. Later duplicates in base win, as they
// do for exec.Cmd. New keys are appended in sorted order.
func mergeEnv(base []string, overrides map[string]string) []string {
	index := make(map[string]int, len(base))
	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if i, ok := index[key]; ok {
			merged[i] = kv
			continue
		}
		index[key] = len(merged)
		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		kv := key + "=" + overrides[key]
		if i, ok := index[key]; ok {
			merged[i] = kv
			continue
		}
		index[key] = len(merged)
		merged = append(merged, kv)
	}
	return merged
}
