// Package initcmd writes a starter syncproc config file.
package initcmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/npratt/syncproc/internal/config"
)

// ErrChanged is returned when the target file differs from the template
// and Force was not set.
var ErrChanged = errors.New("config file has changes (use --force to overwrite)")

// Options configures the init command behavior.
type Options struct {
	DryRun bool
	Force  bool
	Global bool      // Write ~/.config/syncproc/config.yaml instead of .syncproc/config.yaml
	Writer io.Writer // Output writer (defaults to os.Stdout)
}

// Action is what Run did, or would do in a dry run.
type Action string

const (
	ActionCreated     Action = "created"
	ActionOverwritten Action = "overwritten"
	ActionUnchanged   Action = "unchanged"
	ActionSkipped     Action = "skipped"
)

// Result contains the outcome of the init operation.
type Result struct {
	Path   string
	Action Action
	Diff   string // Unified diff against the existing file, if it differs
}

// Template returns the config file content init writes.
func Template() string {
	return MustReadTemplate("config.yaml")
}

// Run executes the init command with the given options.
func Run(opts Options) (*Result, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	w := opts.Writer

	path, err := targetPath(opts.Global)
	if err != nil {
		return nil, err
	}
	content := Template()

	result := &Result{Path: path}

	existing, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if exists {
		if string(existing) == content {
			result.Action = ActionUnchanged
			_, _ = fmt.Fprintf(w, "Already up to date: %s\n", path)
			return result, nil
		}
		result.Diff = UnifiedDiff("existing", "new", string(existing), content)
	}

	if opts.DryRun {
		_, _ = fmt.Fprintln(w, "DRY RUN - No changes will be made")
		_, _ = fmt.Fprintln(w)
		if exists {
			_, _ = fmt.Fprintf(w, "Would overwrite (has changes): %s\n", path)
			_, _ = fmt.Fprintln(w, result.Diff)
			result.Action = ActionSkipped
		} else {
			_, _ = fmt.Fprintf(w, "Would create: %s\n", path)
			_, _ = fmt.Fprintln(w, "--- BEGIN FILE ---")
			_, _ = fmt.Fprint(w, content)
			_, _ = fmt.Fprintln(w, "--- END FILE ---")
			result.Action = ActionCreated
		}
		_, _ = fmt.Fprintln(w, "Run without --dry-run to apply changes.")
		return result, nil
	}

	if exists && !opts.Force {
		_, _ = fmt.Fprintf(w, "%s has changes:\n", path)
		_, _ = fmt.Fprintln(w, result.Diff)
		result.Action = ActionSkipped
		return result, ErrChanged
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write config: %w", err)
	}

	if exists {
		result.Action = ActionOverwritten
		_, _ = fmt.Fprintf(w, "Overwrote: %s\n", path)
	} else {
		result.Action = ActionCreated
		_, _ = fmt.Fprintf(w, "Created: %s\n", path)
	}
	return result, nil
}

// targetPath returns the config file init writes.
func targetPath(global bool) (string, error) {
	if global {
		path, err := config.GlobalConfigPath()
		if err != nil {
			return "", fmt.Errorf("get config directory: %w", err)
		}
		return path, nil
	}
	return config.ProjectConfigPath(), nil
}
