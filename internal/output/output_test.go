package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(verbose, tty bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(Config{Verbose: verbose, Writer: &out, ErrWriter: &errOut, IsTTY: tty}), &out, &errOut
}

func TestVerboseOutputOnlyAppearsWhenEnabled(t *testing.T) {
	quiet, buf, _ := newTest(false, false)
	quiet.Verbose("hidden")
	assert.Empty(t, buf.String())

	loud, buf, _ := newTest(true, false)
	loud.Verbose("shown %d", 1)
	assert.Equal(t, "shown 1\n", buf.String())
	assert.True(t, loud.IsVerbose())
}

func TestErrorsAndWarningsGoToErrWriter(t *testing.T) {
	o, out, errOut := newTest(false, false)

	o.Error("bad %s", "thing")
	o.Warn("careful")

	assert.Empty(t, out.String())
	assert.Equal(t, "bad thing\ncareful\n", errOut.String())
}

func TestNoColorWithoutTTY(t *testing.T) {
	o, out, _ := newTest(false, false)

	o.Heading("Inbox")
	o.Success("ok")

	assert.Equal(t, "Inbox\nok\n", out.String())
	assert.False(t, o.IsTTY())
}

func TestColorOnTTY(t *testing.T) {
	o, out, _ := newTest(false, true)

	o.Success("ok")

	assert.Contains(t, out.String(), "\x1b[32m")
}

func TestTable(t *testing.T) {
	o, out, _ := newTest(false, false)

	o.Table([]string{"DIR", "FILES"}, [][]string{
		{"target", "3"},
		{"processing", "0"},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "DIR         FILES", lines[0])
	assert.Equal(t, "target      3", lines[1])
	assert.Equal(t, "processing  0", lines[2])
}

func TestNewWithNilWriters(t *testing.T) {
	o := New(Config{})
	assert.NotNil(t, o.config.Writer)
	assert.NotNil(t, o.config.ErrWriter)
}

func TestInfoAlwaysEndsWithSingleNewline(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Info appends a newline only when missing", prop.ForAll(
		func(msg string, trailing bool) bool {
			o, buf, _ := newTest(false, false)
			if trailing {
				msg += "\n"
			}
			o.Info("%s", msg)
			want := msg
			if !trailing {
				want += "\n"
			}
			return buf.String() == want
		},
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
