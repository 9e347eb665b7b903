package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink records events as they are produced.
type Sink interface {
	Record(event Event) error
	Close() error
}

// LogSink writes events to a JSON lines transcript file.
type LogSink struct {
	path    string
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewLogSink creates a new LogSink that writes to the specified path.
// The file is not touched until Open is called.
func NewLogSink(path string) *LogSink {
	return &LogSink{path: path}
}

// largeLogThreshold is the size above which we warn about large transcripts.
const largeLogThreshold = 100 * 1024 * 1024 // 100MB

// Open creates the transcript file, moving any previous non-empty transcript
// aside with a timestamp suffix.
func (s *LogSink) Open() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}

	if err := s.rotateExisting(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}

	s.mu.Lock()
	s.file = file
	s.encoder = json.NewEncoder(file)
	s.mu.Unlock()

	return nil
}

// rotateExisting renames an existing transcript with a timestamp suffix.
func (s *LogSink) rotateExisting() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat transcript: %w", err)
	}

	if info.Size() == 0 {
		return nil
	}

	if info.Size() > largeLogThreshold {
		fmt.Fprintf(os.Stderr, "transcript: warning: large file (%d MB), consider cleaning up old .bak files in %s\n",
			info.Size()/(1024*1024), filepath.Dir(s.path))
	}

	timestamp := time.Now().Format("2006-01-02T15-04-05")
	bakPath := fmt.Sprintf("%s.%s.bak", s.path, timestamp)

	if err := os.Rename(s.path, bakPath); err != nil {
		return fmt.Errorf("rotate transcript: %w", err)
	}

	return nil
}

// Record appends one event. It is safe for concurrent use.
func (s *LogSink) Record(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return fmt.Errorf("transcript %s: not open", s.path)
	}

	if err := s.encoder.Encode(event); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// Close closes the transcript file. Safe to call more than once.
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		s.encoder = nil
		return err
	}
	return nil
}

// Path returns the transcript file path.
func (s *LogSink) Path() string {
	return s.path
}
