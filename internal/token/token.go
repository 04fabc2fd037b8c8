// Package token owns the display format of daily queue tokens and the
// day key that scopes the per-day sequence counter. Keeping both here
// means the uniqueness constraint on visits and every later parse of a
// token agree on one textual shape.
package token

import (
	"fmt"
	"time"
)

const sequencePad = 3

// DayKey returns the counter key for the calendar day of t. All calls
// within the same calendar day map to the same key regardless of
// time-of-day.
func DayKey(t time.Time) string {
	return "seq_" + t.Format("2006-01-02")
}

// Format renders the queue token for a visit date and daily sequence as
// DD/MM/YYYY_NNN. The 3-digit pad is cosmetic: sequences above 999 keep
// their full width.
func Format(t time.Time, seq int64) string {
	return fmt.Sprintf("%02d/%02d/%04d_%0*d", t.Day(), int(t.Month()), t.Year(), sequencePad, seq)
}
