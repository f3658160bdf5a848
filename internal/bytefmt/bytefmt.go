// Package bytefmt renders byte counts and throughput for log lines.
package bytefmt

import (
	"fmt"
	"strconv"
	"time"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
	TiB = GiB * 1024
)

const (
	defaultWidth    = 6
	defaultDecimals = 2
)

// FormatBytes renders n right-aligned in width columns using binary units.
// The unit is chosen by the number of decimal digits in n: up to 4 digits are
// printed as plain bytes, 5-7 as KiB, 8-10 as MiB, 11-13 as GiB and anything
// larger as TiB. A width <= 0 selects 6 and a negative decimals selects 2.
func FormatBytes(n uint64, width, decimals int) string {
	if width <= 0 {
		width = defaultWidth
	}
	if decimals < 0 {
		decimals = defaultDecimals
	}

	switch digits := len(strconv.FormatUint(n, 10)); {
	case digits <= 4:
		return fmt.Sprintf("%*d B", width, n)
	case digits <= 7:
		return fmt.Sprintf("%*.*f KiB", width, decimals, float64(n)/KiB)
	case digits <= 10:
		return fmt.Sprintf("%*.*f MiB", width, decimals, float64(n)/MiB)
	case digits <= 13:
		return fmt.Sprintf("%*.*f GiB", width, decimals, float64(n)/GiB)
	default:
		return fmt.Sprintf("%*.*f TiB", width, decimals, float64(n)/TiB)
	}
}

// Format is FormatBytes with the default width and precision.
func Format(n uint64) string {
	return FormatBytes(n, defaultWidth, defaultDecimals)
}

// Rate renders the throughput of moving n bytes in d, e.g. "  1.50 MiB/s".
// A non-positive duration is treated as one nanosecond.
func Rate(n uint64, d time.Duration) string {
	if d <= 0 {
		d = time.Nanosecond
	}
	perSecond := float64(n) / d.Seconds()
	return Format(uint64(perSecond)) + "/s"
}
