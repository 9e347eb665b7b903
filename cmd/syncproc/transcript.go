package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/npratt/syncproc/internal/events"
)

// Poll intervals for tailFollow.
var (
	fileWaitInterval = 500 * time.Millisecond
	followInterval   = 100 * time.Millisecond
)

// tailLast prints the last n events from the transcript at path.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(w, "No events yet (transcript does not exist)")
			return nil
		}
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Read all lines into a buffer (simple approach for reasonable file sizes)
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	if len(lines) == 0 {
		fmt.Fprintln(w, "No events yet")
		return nil
	}

	start := 0
	if n > 0 && len(lines) > n {
		start = len(lines) - n
	}

	for _, line := range lines[start:] {
		printTranscriptLine(w, line)
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fileWaitInterval):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// tailFollow prints events from the transcript at path as they are
// appended, starting from the beginning. It returns after the exit event or
// when ctx is done.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open transcript: %w", err)
		}
		fmt.Fprintln(w, "Waiting for transcript to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)
	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, err := reader.ReadString('\n')
		partial.WriteString(chunk)
		if err != nil {
			if err == io.EOF {
				// No complete line yet, wait a bit
				time.Sleep(followInterval)
				continue
			}
			return fmt.Errorf("read transcript: %w", err)
		}

		line := strings.TrimSuffix(partial.String(), "\n")
		partial.Reset()
		if ev := printTranscriptLine(w, line); ev != nil && ev.Type() == events.EventExit {
			return nil
		}
	}
}

// printTranscriptLine prints one transcript line as a summary and returns
// the decoded event. Lines that are not events are printed as is.
func printTranscriptLine(w io.Writer, line string) events.Event {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	ev, err := events.Decode([]byte(line))
	if err != nil {
		fmt.Fprintln(w, line)
		return nil
	}
	fmt.Fprintln(w, events.Format(ev))
	return ev
}
