package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/syncproc"
	"github.com/npratt/syncproc/internal/config"
	"github.com/npratt/syncproc/internal/events"
	"github.com/npratt/syncproc/internal/pidfile"
	"github.com/npratt/syncproc/internal/shutdown"
	"github.com/npratt/syncproc/internal/tui"
)

// debugLogName is the log file used by the TUI when no --log-file is given.
const debugLogName = "syncproc-debug.log"

// eventSource is the part of *syncproc.SyncChildProcess the output loop
// needs.
type eventSource interface {
	Next() (events.Event, bool, error)
}

// runCommand starts the child described by args and streams its events.
func runCommand(cmd *cobra.Command, args []string, logLevel *slog.LevelVar, logger *slog.Logger) error {
	cfg, err := config.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
		return err
	}

	tuiEnabled := viper.GetBool(FlagTUI)

	// Both would read this process's stdin.
	if tuiEnabled && viper.GetBool(FlagStdin) {
		return fmt.Errorf("--%s and --%s flags are incompatible", FlagTUI, FlagStdin)
	}

	// The TUI owns the terminal, so its logs always go to a file.
	if tuiEnabled && cfg.Paths.Log == "" {
		cfg.Paths.Log = filepath.Join(config.ProjectConfigDir, debugLogName)
	}
	if cfg.Paths.Log != "" {
		result := SetupFileLogger(cfg.Paths.Log, logLevel, cfg.LogRotation)
		defer func() { _ = result.Close() }()
		logger = result.Logger
	}

	env, err := cmd.Flags().GetStringArray(FlagEnv)
	if err != nil {
		return err
	}
	opts, err := buildOptions(cfg, env, viper.GetBool(FlagClearEnv), viper.GetString(FlagDir))
	if err != nil {
		return err
	}
	opts = append(opts, syncproc.WithLogger(logger))

	if cfg.Paths.Transcript != "" {
		sink := events.NewLogSink(cfg.Paths.Transcript)
		if err := sink.Open(); err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		opts = append(opts, syncproc.WithTranscript(sink))
	}

	// Cancelling ctx kills the child with SIGKILL.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	opts = append(opts, syncproc.WithContext(ctx))

	input, err := stdinSource(cfg, viper.GetBool(FlagStdin))
	if err != nil {
		return err
	}

	proc, err := syncproc.New(args[0], args[1:], opts...)
	if err != nil {
		return err
	}

	if cfg.Paths.PID != "" {
		pf := pidfile.New(cfg.Paths.PID)
		pf.CleanupStale()
		if err := pf.Write(proc.Pid()); err != nil {
			cancel()
			drain(proc)
			return fmt.Errorf("write pid file: %w", err)
		}
		defer func() {
			if err := pf.Remove(); err != nil {
				logger.Warn("remove pid file", "error", err)
			}
		}()
	}

	stop := shutdown.Forward(ctx, logger, proc, cancel)
	defer stop()

	if cfg.Process.Timeout > 0 {
		timer := time.AfterFunc(cfg.Process.Timeout, func() {
			logger.Warn("timeout reached, stopping child", "pid", proc.Pid(), "timeout", cfg.Process.Timeout)
			if err := proc.Kill(0); err != nil {
				logger.Error("kill after timeout", "error", err)
			}
		})
		defer timer.Stop()
	}

	go feedStdin(proc.Stdin(), input, logger)

	var exit events.ExitEvent
	if tuiEnabled {
		exit, err = tui.New(proc, tui.WithTitle(strings.Join(args, " "))).Run()
	} else {
		p := &printer{
			format:     cfg.Output.Format,
			timestamps: cfg.Output.Timestamps,
			stdout:     cmd.OutOrStdout(),
			stderr:     cmd.ErrOrStderr(),
			now:        time.Now,
		}
		exit, err = stream(proc, p)
	}
	if err != nil {
		return err
	}
	return exitStatus(exit)
}

// applyFlagOverrides copies explicitly set flags over the loaded config.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed(FlagLogFile) {
		cfg.Paths.Log = viper.GetString(FlagLogFile)
	}
	if flags.Changed(FlagPIDFile) {
		cfg.Paths.PID = viper.GetString(FlagPIDFile)
	}
	if flags.Changed(FlagTranscript) {
		cfg.Paths.Transcript = viper.GetString(FlagTranscript)
	}
	if flags.Changed(FlagFormat) {
		cfg.Output.Format = viper.GetString(FlagFormat)
	}
	if flags.Changed(FlagTimestamps) {
		cfg.Output.Timestamps = viper.GetBool(FlagTimestamps)
	}
	if flags.Changed(FlagKillSignal) {
		cfg.Process.KillSignal = viper.GetString(FlagKillSignal)
	}
	if flags.Changed(FlagDrainTimeout) {
		cfg.Process.DrainTimeout = viper.GetDuration(FlagDrainTimeout)
	}
	if flags.Changed(FlagReadSize) {
		cfg.Process.ReadSize = viper.GetInt(FlagReadSize)
	}
	if flags.Changed(FlagGroup) {
		cfg.Process.ProcessGroup = viper.GetBool(FlagGroup)
	}
	if flags.Changed(FlagTimeout) {
		cfg.Process.Timeout = viper.GetDuration(FlagTimeout)
	}
	if flags.Changed(FlagInput) {
		cfg.Input = viper.GetString(FlagInput)
	}
	if flags.Changed(FlagInputFile) {
		cfg.InputFile = viper.GetString(FlagInputFile)
	}

	// Flags can produce values the config files were checked against.
	return cfg.Validate()
}

// buildOptions turns the config and child environment flags into options
// for syncproc.New.
func buildOptions(cfg *config.Config, env []string, clearEnv bool, dir string) ([]syncproc.Option, error) {
	killSignal, err := cfg.KillSignal()
	if err != nil {
		return nil, err
	}

	opts := []syncproc.Option{
		syncproc.WithKillSignal(killSignal),
		syncproc.WithDrainTimeout(cfg.Process.DrainTimeout),
		syncproc.WithReadSize(cfg.Process.ReadSize),
		syncproc.WithBufferWarning(cfg.Process.BufferWarnBytes),
	}
	if cfg.Process.ProcessGroup {
		opts = append(opts, syncproc.WithProcessGroup())
	}
	if dir != "" {
		opts = append(opts, syncproc.WithDir(dir))
	}
	if clearEnv {
		opts = append(opts, syncproc.WithEnviron([]string{}))
	}
	if len(env) > 0 {
		vars, err := parseEnv(env)
		if err != nil {
			return nil, err
		}
		opts = append(opts, syncproc.WithEnv(vars))
	}
	return opts, nil
}

// parseEnv parses KEY=VALUE pairs. VALUE may be empty or contain '='.
func parseEnv(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --%s %q: want KEY=VALUE", FlagEnv, kv)
		}
		vars[key] = value
	}
	return vars, nil
}

// stdinSource picks what is written to the child's stdin: this process's
// own stdin, configured input, or nothing (the child sees end of input).
func stdinSource(cfg *config.Config, passthrough bool) (io.Reader, error) {
	if passthrough {
		return os.Stdin, nil
	}
	data, ok, err := cfg.LoadInput()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return strings.NewReader(string(data)), nil
}

// feedStdin copies r to the child and then ends its input.
func feedStdin(w *syncproc.Stdin, r io.Reader, logger *slog.Logger) {
	if r != nil {
		if _, err := io.Copy(w, r); err != nil {
			logger.Debug("stdin copy stopped", "error", err)
		}
	}
	if err := w.End(); err != nil {
		logger.Warn("child stdin", "error", err)
	}
}

// stream prints every event from src until the exit event.
func stream(src eventSource, p *printer) (events.ExitEvent, error) {
	for {
		ev, done, err := src.Next()
		if err != nil {
			return events.ExitEvent{}, err
		}
		if err := p.Print(ev); err != nil {
			return events.ExitEvent{}, err
		}
		if done {
			exit, _ := ev.(events.ExitEvent)
			return exit, nil
		}
	}
}

// drain discards events until the child has exited.
func drain(src eventSource) {
	for {
		_, done, err := src.Next()
		if done || err != nil {
			return
		}
	}
}

// exitStatus maps an unsuccessful exit to an *exitError.
func exitStatus(exit events.ExitEvent) error {
	if exit.Success() {
		return nil
	}
	return &exitError{code: exit.ExitCode(), desc: exit.String()}
}

// printer writes events in one of the output formats.
type printer struct {
	format     string
	timestamps bool
	stdout     io.Writer
	stderr     io.Writer
	now        func() time.Time
}

// Print writes one event.
func (p *printer) Print(ev events.Event) error {
	switch p.format {
	case config.FormatJSON:
		line, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.stdout, "%s\n", line)
		return err

	case config.FormatText:
		line := events.Format(ev)
		if p.timestamps {
			line = p.now().Format("15:04:05.000") + " " + line
		}
		_, err := fmt.Fprintln(p.stdout, line)
		return err

	default:
		var err error
		switch e := ev.(type) {
		case events.StdoutEvent:
			_, err = p.stdout.Write(e.Data)
		case events.StderrEvent:
			_, err = p.stderr.Write(e.Data)
		}
		return err
	}
}
