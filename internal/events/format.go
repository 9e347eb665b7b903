package events

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxChunkLength    = 200
	truncateIndicator = "..."
)

// Format converts an event to a single human-readable line.
// Returns empty string for nil.
func Format(event Event) string {
	if event == nil {
		return ""
	}

	switch e := event.(type) {
	case StdoutEvent:
		return formatChunk("stdout", e.Data)
	case StderrEvent:
		return formatChunk("stderr", e.Data)
	case ExitEvent:
		return formatExit(e)
	default:
		return ""
	}
}

func formatChunk(stream string, data []byte) string {
	return fmt.Sprintf("%s: %s (%d bytes)", stream, Truncate(string(data), maxChunkLength), len(data))
}

func formatExit(e ExitEvent) string {
	if sig, ok := e.Signal(); ok {
		return fmt.Sprintf("exit: killed by %s", sig)
	}
	code, _ := e.Code()
	return fmt.Sprintf("exit: code %d", code)
}

// Truncate shortens s to maxLen characters, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	s = SafeString(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncateIndicator) {
		return truncateIndicator
	}
	return s[:maxLen-len(truncateIndicator)] + truncateIndicator
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SafeString sanitizes a string for display by removing control characters
// and folding newlines into spaces.
func SafeString(s string) string {
	s = StripANSI(s)

	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == ' ' || !unicode.IsControl(r) {
			sb.WriteRune(r)
		}
	}

	result := sb.String()
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}

	return strings.TrimSpace(result)
}
