// Package signals translates between OS signal names and numbers.
package signals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrUnknownSignal is returned by Parse for names the OS does not define.
var ErrUnknownSignal = errors.New("unknown signal")

// Signal is an OS signal number. The zero value means "no signal".
type Signal syscall.Signal

// Common signals.
const (
	SIGHUP  = Signal(unix.SIGHUP)
	SIGINT  = Signal(unix.SIGINT)
	SIGQUIT = Signal(unix.SIGQUIT)
	SIGKILL = Signal(unix.SIGKILL)
	SIGUSR1 = Signal(unix.SIGUSR1)
	SIGUSR2 = Signal(unix.SIGUSR2)
	SIGTERM = Signal(unix.SIGTERM)
)

// Default is the signal Kill sends when none is given.
const Default = SIGTERM

// Parse accepts "SIGINT", "INT", "int" or a decimal number.
func Parse(s string) (Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownSignal)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || unix.SignalName(syscall.Signal(n)) == "" {
			return 0, fmt.Errorf("%w: %d", ErrUnknownSignal, n)
		}
		return Signal(n), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	if sig == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, s)
	}
	return Signal(sig), nil
}

// String returns the canonical name ("SIGINT"), or the number when the OS
// has no name for it.
func (s Signal) String() string {
	if name := unix.SignalName(syscall.Signal(s)); name != "" {
		return name
	}
	return strconv.Itoa(int(s))
}

// Signal implements os.Signal.
func (s Signal) Signal() {}

// Sys returns the signal as a syscall.Signal for os.Process.Signal.
func (s Signal) Sys() syscall.Signal {
	return syscall.Signal(s)
}

// ExitCode is the shell convention for a process killed by s.
func (s Signal) ExitCode() int {
	return 128 + int(s)
}

// MarshalText writes the canonical name.
func (s Signal) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts anything Parse does.
func (s *Signal) UnmarshalText(text []byte) error {
	sig, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// Names lists every signal name known to the OS, ordered by number.
func Names() []string {
	var sigs []Signal
	for n := 1; n < 65; n++ {
		if unix.SignalName(syscall.Signal(n)) != "" {
			sigs = append(sigs, Signal(n))
		}
	}
	names := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		names = append(names, sig.String())
	}
	return names
}
