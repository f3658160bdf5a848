package bytefmt

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want string
	}{
		{"bytes", 512, "   512 B"},
		{"four digits stay bytes", 9999, "  9999 B"},
		{"kibibytes", 102400, "100.00 KiB"},
		{"mebibytes", 10485760, " 10.00 MiB"},
		{"gibibytes", 53687091200, " 50.00 GiB"},
		{"tebibytes", 5 * TiB * 1000, "5000.00 TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.n))
		})
	}
}

func TestFormatBytes_CustomWidthAndDecimals(t *testing.T) {
	assert.Equal(t, "100.0 KiB", FormatBytes(102400, 1, 1))
	assert.Equal(t, "       100 KiB", FormatBytes(102400, 10, 0))
}

func TestFormatBytes_DefaultsOnNonPositive(t *testing.T) {
	assert.Equal(t, Format(102400), FormatBytes(102400, 0, -1))
}

func TestRate(t *testing.T) {
	assert.Equal(t, " 10.00 MiB/s", Rate(20*MiB, 2*time.Second))
	assert.True(t, strings.HasSuffix(Rate(10, 0), "/s"))
}

func TestFormatBytes_WidthIsMinimum_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("output carries a known unit and is at least width wide", prop.ForAll(
		func(n uint64) bool {
			out := Format(n)
			if len(out) < defaultWidth {
				return false
			}
			for _, unit := range []string{" B", " KiB", " MiB", " GiB", " TiB"} {
				if strings.HasSuffix(out, unit) {
					return true
				}
			}
			return false
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
