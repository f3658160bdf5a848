package mover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"dropbox/internal/dropbox"
)

const (
	// maxOutput bounds the command output kept for error messages.
	maxOutput = 4096
	// waitDelay bounds how long a killed command's children may keep its
	// output pipes open.
	waitDelay = time.Second
)

// Processor does the work on a claimed file. path is inside the processing
// directory. Returning nil promotes the file to processed unless the
// processor already moved it elsewhere; returning an error sends it to the
// error directory.
type Processor interface {
	Process(ctx context.Context, path string, dirs *dropbox.DropBoxes) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, path string, dirs *dropbox.DropBoxes) error

func (f ProcessorFunc) Process(ctx context.Context, path string, dirs *dropbox.DropBoxes) error {
	return f(ctx, path, dirs)
}

// NopProcessor accepts every file, so the mover just promotes it.
type NopProcessor struct{}

func (NopProcessor) Process(context.Context, string, *dropbox.DropBoxes) error { return nil }

// CommandError reports a failed external command.
type CommandError struct {
	Path     string
	ExitCode int    // -1 when the command did not exit normally
	Output   string // trailing combined output
	Err      error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("command failed for %s (exit %d): %v: %s", e.Path, e.ExitCode, e.Err, e.Output)
	}
	return fmt.Sprintf("command failed for %s (exit %d): %v", e.Path, e.ExitCode, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandProcessor runs an external command with the processing path as
// its last argument. The command also sees the drop-box directories in
// DROPBOX_* environment variables.
//
// A running command is not interrupted when ctx is cancelled; only Timeout
// bounds it, so shutdown waits for in-flight work.
type CommandProcessor struct {
	Command []string
	Timeout time.Duration // zero means no limit
	Env     []string      // extra KEY=VALUE pairs
}

// NewCommandProcessor returns a processor for command, or an error when
// command is empty.
func NewCommandProcessor(command []string, timeout time.Duration) (*CommandProcessor, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("command is required")
	}
	return &CommandProcessor{Command: command, Timeout: timeout}, nil
}

// Process implements Processor.
func (p *CommandProcessor) Process(ctx context.Context, path string, dirs *dropbox.DropBoxes) error {
	ctx = context.WithoutCancel(ctx)
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), p.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	cmd.Env = append(append(os.Environ(), commandEnv(path, dirs)...), p.Env...)
	cmd.WaitDelay = waitDelay

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, ctx.Err())
		}
		return &CommandError{
			Path:     path,
			ExitCode: exitCode,
			Output:   tail(out.String(), maxOutput),
			Err:      err,
		}
	}
	return nil
}

func commandEnv(path string, dirs *dropbox.DropBoxes) []string {
	env := []string{
		"DROPBOX_FILE=" + path,
		"DROPBOX_TARGET=" + dirs.Target,
		"DROPBOX_ERROR=" + dirs.Error,
		"DROPBOX_PROCESSING=" + dirs.Processing,
		"DROPBOX_PROCESSED=" + dirs.Processed,
	}
	names := make([]string, 0, len(dirs.Extra))
	for name := range dirs.Extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, "DROPBOX_EXTRA_"+envName(name)+"="+dirs.Extra[name])
	}
	return env
}

// envName upper-cases name and replaces anything outside [A-Z0-9] with '_'.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
