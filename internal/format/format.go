// Package format provides small formatting helpers shared by the CLI and the web pages.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	kb = 1024.0
	mb = kb * 1024
	gb = mb * 1024
)

// FormatSize formats a byte count using KB, MB or GB with base 1024.
// Anything below one megabyte is shown in KB, so small files read "0 KB" or "0.5 KB".
// Non-finite and negative inputs format as "0 KB".
func FormatSize(bytes float64) string {
	if math.IsNaN(bytes) || math.IsInf(bytes, 0) || bytes < 0 {
		return "0 KB"
	}

	switch {
	case bytes >= gb:
		return trim(bytes/gb) + " GB"
	case bytes >= mb:
		return trim(bytes/mb) + " MB"
	default:
		return trim(bytes/kb) + " KB"
	}
}

// FormatBytes is FormatSize for integer sizes.
func FormatBytes(bytes int64) string {
	return FormatSize(float64(bytes))
}

// trim renders n with one decimal, rounding halves up, and drops a trailing ".0".
func trim(n float64) string {
	s := strconv.FormatFloat(math.Round(n*10)/10, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// NewID returns a random identifier for resumes and uploaded files.
func NewID() string {
	return uuid.NewString()
}
