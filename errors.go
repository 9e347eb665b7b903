package syncproc

import "errors"

var (
	// ErrStdinClosed is returned by writes after End, Kill, or the child's exit.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrNoExitStatus is returned by Next when the process could not be
	// waited on, so no exit event will ever arrive.
	ErrNoExitStatus = errors.New("process ended without an exit status")
)
