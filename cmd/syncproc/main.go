package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	initcmd "github.com/npratt/syncproc/internal/init"
	"github.com/npratt/syncproc/internal/signals"
)

var version = "dev"

// exitError carries the child's exit status out of a command so main can
// exit with it.
type exitError struct {
	code int
	desc string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("child exited with %s", e.desc)
}

func main() {
	// Quiet by default so log lines don't mix with the child's stderr.
	logLevel := &slog.LevelVar{}
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	viper.SetEnvPrefix("SYNCPROC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "syncproc",
		Short: "Run a command and stream its output as events",
		Long: `syncproc runs a child process and reads its standard output, standard
error and termination as one ordered stream of events.

Output can be copied through unchanged, summarized one event per line,
emitted as JSON lines, recorded to a transcript, or watched in a terminal
viewer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool(FlagVerbose, false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().String(FlagConfig, "", "Config file path (default: .syncproc/config.yaml)")
	rootCmd.PersistentFlags().String(FlagLogFile, "", "Log file path (default: stderr)")

	// Bind all flags to viper
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("syncproc %s\n", version)
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARGS...]",
		Short: "Run a command and stream its events",
		Long: `Run COMMAND and print its events until it exits.

syncproc exits with the child's exit code, or 128 plus the signal number
when the child was killed by a signal. The first SIGINT, SIGTERM or SIGHUP
received is forwarded to the child; a second one kills it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool(FlagVerbose) {
				logLevel.Set(slog.LevelDebug)
			}
			return runCommand(cmd, args, logLevel, logger)
		},
	}
	// Everything after the command name belongs to the child.
	runCmd.Flags().SetInterspersed(false)

	runCmd.Flags().Bool(FlagStdin, false, "Copy this process's stdin to the child")
	runCmd.Flags().String(FlagInput, "", "Inline text written to the child's stdin")
	runCmd.Flags().String(FlagInputFile, "", "File whose contents are written to the child's stdin")
	runCmd.Flags().String(FlagFormat, "", "Output format: raw, text or json (default: raw)")
	runCmd.Flags().Bool(FlagTimestamps, false, "Prefix text output with the time")
	runCmd.Flags().StringArray(FlagEnv, nil, "Set KEY=VALUE in the child's environment (repeatable)")
	runCmd.Flags().Bool(FlagClearEnv, false, "Start the child with an empty environment")
	runCmd.Flags().String(FlagDir, "", "Working directory for the child")
	runCmd.Flags().Duration(FlagTimeout, 0, "Kill the child after this long (0 = never)")
	runCmd.Flags().String(FlagKillSignal, "", "Signal used to stop the child (default: SIGTERM)")
	runCmd.Flags().Duration(FlagDrainTimeout, 0, "How long to drain output after exit (default: 10s)")
	runCmd.Flags().Int(FlagReadSize, 0, "Max bytes per output event (default: 32768)")
	runCmd.Flags().Bool(FlagGroup, false, "Start the child in its own process group")
	runCmd.Flags().String(FlagPIDFile, "", "Write the child's pid to this file")
	runCmd.Flags().String(FlagTranscript, "", "Record every event to this JSON lines file")
	runCmd.Flags().Bool(FlagTUI, false, "Watch the child in a terminal viewer")
	runCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	signalsCmd := &cobra.Command{
		Use:   "signals",
		Short: "List signal names accepted by --kill-signal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printSignals(cmd.OutOrStdout())
		},
	}

	transcriptCmd := &cobra.Command{
		Use:   "transcript FILE",
		Short: "Print events recorded with --transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := viper.GetInt(FlagCount)
			follow := viper.GetBool(FlagFollow)

			if follow {
				return tailFollow(cmd.Context(), cmd.OutOrStdout(), args[0])
			}
			return tailLast(cmd.OutOrStdout(), args[0], count)
		},
	}

	transcriptCmd.Flags().Bool(FlagFollow, false, "Follow the transcript until the child exits (like tail -f)")
	transcriptCmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	transcriptCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write .syncproc/config.yaml (or the global config with --global) filled
with the default settings and a comment for each.

An existing file that differs is left alone unless --force is given;
--dry-run shows what would change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := initcmd.Run(initcmd.Options{
				DryRun: viper.GetBool(FlagDryRun),
				Force:  viper.GetBool(FlagForce),
				Global: viper.GetBool(FlagGlobal),
				Writer: cmd.OutOrStdout(),
			})
			return err
		},
	}

	initCmd.Flags().Bool(FlagDryRun, false, "Show what would be written without writing")
	initCmd.Flags().Bool(FlagForce, false, "Overwrite an existing config that differs")
	initCmd.Flags().Bool(FlagGlobal, false, "Write ~/.config/syncproc/config.yaml")
	initCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			logger.Debug("child failed", "status", exitErr.desc)
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printSignals writes one "NUMBER NAME" line per known signal.
func printSignals(w io.Writer) error {
	for _, name := range signals.Names() {
		sig, err := signals.Parse(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%2d %s\n", int(sig), name); err != nil {
			return err
		}
	}
	return nil
}
