package initcmd

import (
	"fmt"
	"strings"
)

// contextLines is the number of unchanged lines shown around each change.
const contextLines = 3

type diffLine struct {
	op   byte // ' ', '-' or '+'
	text string
	old  int // 1-based line in old, 0 for inserts
	new  int // 1-based line in new, 0 for deletes
}

// UnifiedDiff renders the changes from oldContent to newContent as a
// unified diff. Returns empty string if contents are identical.
func UnifiedDiff(oldName, newName, oldContent, newContent string) string {
	if oldContent == newContent {
		return ""
	}

	lines := diffLines(splitLines(oldContent), splitLines(newContent))

	var out strings.Builder
	fmt.Fprintf(&out, "--- %s\n", oldName)
	fmt.Fprintf(&out, "+++ %s\n", newName)
	for _, h := range hunks(lines) {
		writeHunk(&out, lines[h[0]:h[1]])
	}
	return out.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// diffLines aligns a and b along a longest common subsequence. suffix[i][j]
// holds the LCS length of a[i:] and b[j:].
func diffLines(a, b []string) []diffLine {
	suffix := make([][]int, len(a)+1)
	for i := range suffix {
		suffix[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				suffix[i][j] = suffix[i+1][j+1] + 1
			} else {
				suffix[i][j] = max(suffix[i+1][j], suffix[i][j+1])
			}
		}
	}

	var out []diffLine
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i < len(a) && j < len(b) && a[i] == b[j]:
			out = append(out, diffLine{op: ' ', text: a[i], old: i + 1, new: j + 1})
			i++
			j++
		case i < len(a) && (j == len(b) || suffix[i+1][j] >= suffix[i][j+1]):
			out = append(out, diffLine{op: '-', text: a[i], old: i + 1})
			i++
		default:
			out = append(out, diffLine{op: '+', text: b[j], new: j + 1})
			j++
		}
	}
	return out
}

// hunks returns [start, end) ranges of lines covering every change plus
// context. Changes whose context overlaps share a hunk.
func hunks(lines []diffLine) [][2]int {
	var out [][2]int
	for i, l := range lines {
		if l.op == ' ' {
			continue
		}
		start := max(i-contextLines, 0)
		end := min(i+1+contextLines, len(lines))
		if n := len(out); n > 0 && start <= out[n-1][1] {
			out[n-1][1] = end
			continue
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func writeHunk(out *strings.Builder, lines []diffLine) {
	oldStart, newStart := 0, 0
	oldCount, newCount := 0, 0
	for _, l := range lines {
		if l.op != '+' {
			if oldStart == 0 {
				oldStart = l.old
			}
			oldCount++
		}
		if l.op != '-' {
			if newStart == 0 {
				newStart = l.new
			}
			newCount++
		}
	}
	// A hunk that is only inserts or only deletes still names a position.
	oldStart = max(oldStart, 1)
	newStart = max(newStart, 1)

	fmt.Fprintf(out, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, l := range lines {
		out.WriteByte(l.op)
		out.WriteString(l.text)
		out.WriteByte('\n')
	}
}
