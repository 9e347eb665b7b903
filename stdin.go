package syncproc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/npratt/syncproc/internal/queue"
)

// stdinChunk is one queued write, or the end-of-input marker.
type stdinChunk struct {
	data []byte
	end  bool
}

// Stdin is the write side of the child's standard input.
//
// Writes are queued and copied to the pipe by a background goroutine, so
// Write never waits for the child to read. A failure of an earlier write is
// reported by the next Write or End.
type Stdin struct {
	pipe   io.WriteCloser
	chunks *queue.Queue[stdinChunk]
	logger *slog.Logger

	mu     sync.Mutex
	ended  bool
	exited bool
	err    error

	done chan struct{}
}

var _ io.WriteCloser = (*Stdin)(nil)

func newStdin(pipe io.WriteCloser, logger *slog.Logger) *Stdin {
	return &Stdin{
		pipe:   pipe,
		chunks: queue.New[stdinChunk](),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Write queues p for the child. It fails with ErrStdinClosed after End,
// after Kill, or once the child has exited.
func (s *Stdin) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}
	if s.ended || s.exited {
		return 0, ErrStdinClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.chunks.Publish(stdinChunk{data: bytes.Clone(p)}); err != nil {
		return 0, ErrStdinClosed
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (s *Stdin) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// End closes the child's input once everything already written has been
// delivered. Calling it again has no effect. It returns any error retained
// from an earlier write.
func (s *Stdin) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ended {
		s.ended = true
		_ = s.chunks.Publish(stdinChunk{end: true})
		s.chunks.Close()
	}
	return s.err
}

// Close is End, for io.WriteCloser.
func (s *Stdin) Close() error {
	return s.End()
}

// processExited is called by the producer once the child is gone. Queued
// writes are still attempted so their errors are retained.
func (s *Stdin) processExited() {
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()

	s.chunks.Close()
}

func (s *Stdin) retain(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = fmt.Errorf("write stdin: %w", err)
	}
}

// pump copies queued chunks to the pipe and closes it at the end.
func (s *Stdin) pump() {
	defer close(s.done)
	defer func() {
		if err := s.pipe.Close(); err != nil {
			s.logger.Debug("stdin close", "error", err)
		}
	}()

	failed := false
	for {
		chunk, err := s.chunks.Receive(context.Background())
		if err != nil {
			// Closed and drained
			return
		}
		if chunk.end {
			return
		}
		if failed {
			continue
		}
		if _, err := s.pipe.Write(chunk.data); err != nil {
			s.logger.Debug("stdin write failed", "error", err)
			s.retain(err)
			failed = true
		}
	}
}
