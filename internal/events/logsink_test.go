package events

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/npratt/syncproc/internal/signals"
)

func TestNewLogSink(t *testing.T) {
	sink := NewLogSink("/tmp/test.jsonl")
	if sink == nil {
		t.Fatal("NewLogSink returned nil")
	}
	if sink.Path() != "/tmp/test.jsonl" {
		t.Errorf("Path() = %q, want %q", sink.Path(), "/tmp/test.jsonl")
	}
}

func TestLogSinkCreatesDirectory(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "subdir", "nested", "transcript.jsonl")

	sink := NewLogSink(path)
	if err := sink.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = sink.Close() }()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestLogSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")

	sink := NewLogSink(path)
	if err := sink.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	written := []Event{
		StdoutEvent{Data: []byte("hi\n")},
		StderrEvent{Data: []byte("warn\n")},
		Signaled(signals.SIGTERM),
	}
	for _, ev := range written {
		if err := sink.Record(ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer func() { _ = file.Close() }()

	var read []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		ev, err := Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("Decode(%s): %v", scanner.Text(), err)
		}
		read = append(read, ev)
	}

	if len(read) != len(written) {
		t.Fatalf("read %d events, want %d", len(read), len(written))
	}
	if got := Format(read[0]); got != Format(written[0]) {
		t.Errorf("first event = %q, want %q", got, Format(written[0]))
	}
	if exit, ok := read[2].(ExitEvent); !ok || exit.String() != "signal SIGTERM" {
		t.Errorf("last event = %#v, want signal SIGTERM", read[2])
	}
}

func TestLogSinkRotatesExistingTranscript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transcript.jsonl")
	if err := os.WriteFile(path, []byte(`{"type":"exit","code":0}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sink := NewLogSink(path)
	if err := sink.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = sink.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var backups int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".bak") {
			backups++
		}
	}
	if backups != 1 {
		t.Errorf("found %d .bak files, want 1", backups)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("new transcript size = %d, want 0", info.Size())
	}
}

func TestLogSinkRecordBeforeOpen(t *testing.T) {
	sink := NewLogSink(filepath.Join(t.TempDir(), "t.jsonl"))
	if err := sink.Record(Exited(0)); err == nil {
		t.Error("Record before Open should fail")
	}
}

func TestLogSinkConcurrentRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	sink := NewLogSink(path)
	if err := sink.Open(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sink.Record(StdoutEvent{Data: []byte("x")})
		}()
	}
	wg.Wait()
	_ = sink.Close()
	_ = sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 20 {
		t.Errorf("transcript has %d lines, want 20", lines)
	}
}
