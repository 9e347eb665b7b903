// Package config provides configuration types and defaults for syncproc.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/npratt/syncproc/internal/signals"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("invalid config")

// Output formats.
const (
	FormatRaw  = "raw"  // child output copied through unchanged
	FormatText = "text" // one summary line per event
	FormatJSON = "json" // one JSON object per event
)

// Config holds all configuration for syncproc.
type Config struct {
	Process     ProcessConfig     `yaml:"process" mapstructure:"process"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Input       string            `yaml:"input" mapstructure:"input"`
	InputFile   string            `yaml:"input_file" mapstructure:"input_file"` // Path to stdin content (takes priority over Input)
}

// ProcessConfig holds settings for the child process.
type ProcessConfig struct {
	KillSignal      string        `yaml:"kill_signal" mapstructure:"kill_signal"`             // Signal sent by a plain kill, name or number
	DrainTimeout    time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout"`         // How long to drain output after exit (0 = forever)
	ReadSize        int           `yaml:"read_size" mapstructure:"read_size"`                 // Max bytes per output event
	BufferWarnBytes int64         `yaml:"buffer_warn_bytes" mapstructure:"buffer_warn_bytes"` // Unconsumed output before a warning (0 = never)
	ProcessGroup    bool          `yaml:"process_group" mapstructure:"process_group"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"` // Kill the child after this long (0 = never)
}

// OutputConfig holds settings for how events are printed.
type OutputConfig struct {
	Format     string `yaml:"format" mapstructure:"format"`
	Timestamps bool   `yaml:"timestamps" mapstructure:"timestamps"` // Prefix text lines with the time
}

// PathsConfig holds file paths for logs, the pid file and the transcript.
// Empty disables the file.
type PathsConfig struct {
	Log        string `yaml:"log" mapstructure:"log"`
	PID        string `yaml:"pid" mapstructure:"pid"`
	Transcript string `yaml:"transcript" mapstructure:"transcript"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Process: ProcessConfig{
			KillSignal:      "SIGTERM",
			DrainTimeout:    10 * time.Second,
			ReadSize:        32 * 1024,
			BufferWarnBytes: 64 * 1024 * 1024,
		},
		Output: OutputConfig{
			Format: FormatRaw,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate checks values the loader cannot type-check.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatRaw, FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: output.format %q (want %s, %s or %s)", ErrInvalid, c.Output.Format, FormatRaw, FormatText, FormatJSON)
	}
	if _, err := c.KillSignal(); err != nil {
		return fmt.Errorf("%w: process.kill_signal: %w", ErrInvalid, err)
	}
	if c.Process.ReadSize <= 0 {
		return fmt.Errorf("%w: process.read_size must be positive, got %d", ErrInvalid, c.Process.ReadSize)
	}
	return nil
}

// KillSignal parses Process.KillSignal.
func (c *Config) KillSignal() (signals.Signal, error) {
	return signals.Parse(c.Process.KillSignal)
}

// LoadInput returns the bytes to write to the child's stdin based on
// configuration priority: InputFile (load from file) > Input (inline).
// ok is false when neither is set.
func (c *Config) LoadInput() (data []byte, ok bool, err error) {
	if c.InputFile != "" {
		content, err := os.ReadFile(c.InputFile)
		if err != nil {
			return nil, false, fmt.Errorf("load input file %q: %w", c.InputFile, err)
		}
		return content, true, nil
	}

	if c.Input != "" {
		return []byte(c.Input), true, nil
	}

	return nil, false, nil
}
