// Package output handles CLI output formatting: verbose messages, headings
// and aligned tables, colored only on a terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output writes command results. It is safe for concurrent use.
type Output struct {
	config Config
	mu     sync.Mutex

	heading *color.Color
	ok      *color.Color
	bad     *color.Color
	warn    *color.Color
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	o := &Output{
		config:  config,
		heading: color.New(color.Bold),
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{o.heading, o.ok, o.bad, o.warn} {
		if config.IsTTY {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return o
}

// DefaultConfig returns a Config writing to stdout and stderr, with color
// when stdout is a terminal and NO_COLOR is unset.
func DefaultConfig() Config {
	return Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     !color.NoColor && term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (o *Output) write(w io.Writer, msg string) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprint(w, msg)
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...any) {
	if !o.config.Verbose {
		return
	}
	o.write(o.config.Writer, fmt.Sprintf(format, args...))
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...any) {
	o.write(o.config.Writer, fmt.Sprintf(format, args...))
}

// Heading prints a bold line.
func (o *Output) Heading(format string, args ...any) {
	o.write(o.config.Writer, o.heading.Sprintf(format, args...))
}

// Success prints a green message.
func (o *Output) Success(format string, args ...any) {
	o.write(o.config.Writer, o.ok.Sprintf(format, args...))
}

// Warn prints a yellow message to stderr.
func (o *Output) Warn(format string, args ...any) {
	o.write(o.config.ErrWriter, o.warn.Sprintf(format, args...))
}

// Error prints a red message to stderr.
func (o *Output) Error(format string, args ...any) {
	o.write(o.config.ErrWriter, o.bad.Sprintf(format, args...))
}

// Table prints rows in aligned columns under a bold header.
func (o *Output) Table(header []string, rows [][]string) {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()

	text := b.String()
	if first, rest, ok := strings.Cut(text, "\n"); ok {
		text = o.heading.Sprint(first) + "\n" + rest
	}
	o.write(o.config.Writer, text)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

// IsTTY returns whether the output is a terminal.
func (o *Output) IsTTY() bool {
	return o.config.IsTTY
}
