package events

import (
	"strings"
	"testing"

	"github.com/npratt/syncproc/internal/signals"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"nil", nil, ""},
		{"stdout", StdoutEvent{Data: []byte("hello, world!\n")}, "stdout: hello, world! (14 bytes)"},
		{"stderr", StderrEvent{Data: []byte("\x1b[31mred\x1b[0m")}, "stderr: red (12 bytes)"},
		{"exit code", Exited(123), "exit: code 123"},
		{"exit signal", Signaled(signals.SIGINT), "exit: killed by SIGINT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.event); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat_TruncatesLongChunks(t *testing.T) {
	got := Format(StdoutEvent{Data: []byte(strings.Repeat("x", 500))})
	if !strings.Contains(got, truncateIndicator) {
		t.Errorf("expected truncation indicator in %q", got)
	}
	if !strings.HasSuffix(got, "(500 bytes)") {
		t.Errorf("expected original length in %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "..."},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestSafeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line1\nline2", "line1 line2"},
		{"a\r\nb", "a b"},
		{"\x1b[1mbold\x1b[0m", "bold"},
		{"bell\x07", "bell"},
		{"  lots   of   space  ", "lots of space"},
	}

	for _, tt := range tests {
		if got := SafeString(tt.in); got != tt.want {
			t.Errorf("SafeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
