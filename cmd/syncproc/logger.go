package main

import (
	"io"
	"log/slog"

	"github.com/npratt/syncproc/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLoggerResult contains the results of setting up logging to a file.
type FileLoggerResult struct {
	Logger   *slog.Logger
	LogFile  io.WriteCloser
	FilePath string
}

// Close closes the log file if it was opened.
func (r *FileLoggerResult) Close() error {
	if r.LogFile != nil {
		return r.LogFile.Close()
	}
	return nil
}

// SetupFileLogger creates a logger that writes to a rotating file instead of
// stderr, so log lines never mix with the child's output or corrupt the TUI.
// Uses lumberjack for automatic log rotation based on the provided config.
func SetupFileLogger(path string, level slog.Leveler, rotationCfg config.LogRotationConfig) *FileLoggerResult {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    rotationCfg.MaxSizeMB,
		MaxBackups: rotationCfg.MaxBackups,
		MaxAge:     rotationCfg.MaxAgeDays,
		Compress:   rotationCfg.Compress,
	}

	return &FileLoggerResult{
		Logger:   SetupLoggerWithWriter(writer, level),
		LogFile:  writer,
		FilePath: path,
	}
}

// SetupLoggerWithWriter creates a JSON logger that writes to the given writer.
func SetupLoggerWithWriter(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
