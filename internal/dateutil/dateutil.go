// Package dateutil works with calendar dates in the user's local time zone.
//
// Dates are carried around as "YYYY-MM-DD" keys. A key is never handed to a
// parser that assumes UTC: doing so shifts the day for users west of UTC.
package dateutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyLayout is the layout of a date key.
const KeyLayout = "2006-01-02"

// ErrInvalidKey is returned for strings that are not YYYY-MM-DD keys.
var ErrInvalidKey = errors.New("invalid date key")

// Key formats t as a date key using t's own location fields.
func Key(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// TodayKey returns the date key of now in now's location. Callers pass
// time.Now() (or a fixed time in tests).
func TodayKey(now time.Time) string {
	return Key(now)
}

// ParseKey builds local midnight of key in loc. A nil loc means time.Local.
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
		nums[i] = n
	}
	y, m, d := nums[0], nums[1], nums[2]
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		// time.Date normalised an impossible day such as Feb 30.
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return t, nil
}

// StartOfWeek returns local midnight of the first day of the week containing
// t, where weeks begin on weekStartsOn.
func StartOfWeek(t time.Time, weekStartsOn time.Weekday) time.Time {
	diff := (int(t.Weekday()) - int(weekStartsOn) + 7) % 7
	day := StartOfDay(t)
	return time.Date(day.Year(), day.Month(), day.Day()-diff, 0, 0, 0, 0, t.Location())
}

// WeekRange returns the first and last day of the week containing t.
// The end is 23:59:59 of the last day.
func WeekRange(t time.Time, weekStartsOn time.Weekday) (time.Time, time.Time) {
	start := StartOfWeek(t, weekStartsOn)
	return start, EndOfDay(start.AddDate(0, 0, 6))
}

// FormatDisplayDate renders a key as "Wed, Jun 4". Unparsable keys are
// returned unchanged.
func FormatDisplayDate(key string, loc *time.Location) string {
	t, err := ParseKey(key, loc)
	if err != nil {
		return key
	}
	return t.Format("Mon, Jan 2")
}

// AddDays shifts a key by n calendar days. Unparsable keys are returned unchanged.
func AddDays(key string, n int) string {
	t, err := ParseKey(key, time.UTC)
	if err != nil {
		return key
	}
	return Key(t.AddDate(0, 0, n))
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	// UTC midnights have no DST gaps, so the division is exact.
	ta, err := ParseKey(a, time.UTC)
	if err != nil {
		return 0, err
	}
	tb, err := ParseKey(b, time.UTC)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ClockString formats the time of day of t as HH:MM:SS.
func ClockString(t time.Time) string {
	return t.Format("15:04:05")
}
