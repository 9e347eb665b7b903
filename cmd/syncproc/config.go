package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagLogFile = "log-file"

	// Run command flags
	FlagStdin        = "stdin"
	FlagInput        = "input"
	FlagInputFile    = "input-file"
	FlagFormat       = "format"
	FlagTimestamps   = "timestamps"
	FlagEnv          = "env"
	FlagClearEnv     = "clear-env"
	FlagDir          = "dir"
	FlagTimeout      = "timeout"
	FlagKillSignal   = "kill-signal"
	FlagDrainTimeout = "drain-timeout"
	FlagReadSize     = "read-size"
	FlagGroup        = "process-group"
	FlagPIDFile      = "pid-file"
	FlagTranscript   = "transcript"
	FlagTUI          = "tui"

	// Transcript command flags
	FlagFollow = "follow"
	FlagCount  = "count"

	// Init command flags
	FlagDryRun = "dry-run"
	FlagForce  = "force"
	FlagGlobal = "global"
)
