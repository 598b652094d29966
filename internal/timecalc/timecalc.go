package timecalc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Each unit is looked up on its own so that stored strings keep parsing the
// way they always have: the first token of a unit wins and repeats are ignored.
var (
	hoursRe   = regexp.MustCompile(`(?i)(\d+)\s*h`)
	minutesRe = regexp.MustCompile(`(?i)(\d+)\s*m`)
	secondsRe = regexp.MustCompile(`(?i)(\d+)\s*s`)
)

// MaxDurationSeconds bounds parsed durations at 100000 hours.
const MaxDurationSeconds int64 = 100000 * 3600

// ParseDuration converts a duration string like "1h 30m 10s" to whole seconds.
// Unrecognised or empty input yields 0, as does anything longer than
// MaxDurationSeconds.
func ParseDuration(text string) int64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	h := firstMatch(hoursRe, text)
	m := firstMatch(minutesRe, text)
	s := firstMatch(secondsRe, text)
	if h > MaxDurationSeconds/3600 || m > MaxDurationSeconds/60 || s > MaxDurationSeconds {
		return 0
	}
	if total := h*3600 + m*60 + s; total <= MaxDurationSeconds {
		return total
	}
	return 0
}

func firstMatch(re *regexp.Regexp, text string) int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// \d+ only fails on range; report it as too large.
		return math.MaxInt64
	}
	return n
}

// FormatDuration formats seconds as "1h 30m", "45m" or "30s". Seconds are
// included when alwaysShowSeconds is set or when hours and minutes are both
// zero, so the result is never empty.
func FormatDuration(seconds int64, alwaysShowSeconds bool) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if alwaysShowSeconds || (h == 0 && m == 0) {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}

// FormatHMS rounds seconds to the nearest whole second and formats it as HH:MM:SS.
func FormatHMS(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	return FormatDurationHHMMSS(int64(math.Round(seconds)))
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// SumDurations adds up duration strings in the seconds domain.
func SumDurations(texts []string) int64 {
	var total int64
	for _, t := range texts {
		total += ParseDuration(t)
	}
	return total
}

// SumFormatted is SumDurations reformatted with FormatDuration.
func SumFormatted(texts []string) string {
	return FormatDuration(SumDurations(texts), false)
}

// ParseClock splits an "HH:MM" or "HH:MM:SS" clock string into its parts.
// ok is false when the string is not a clock time.
func ParseClock(value string) (hour, minute, second int, ok bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}

// ClockSeconds returns the number of seconds since midnight for a clock string.
func ClockSeconds(value string) (int64, bool) {
	h, m, s, ok := ParseClock(value)
	if !ok {
		return 0, false
	}
	return int64(h)*3600 + int64(m)*60 + int64(s), true
}

// Elapsed returns the seconds between two clock strings on the same date.
// An end earlier than start is treated as crossing midnight and one day is added.
func Elapsed(start, end string) (int64, bool) {
	from, ok := ClockSeconds(start)
	if !ok {
		return 0, false
	}
	to, ok := ClockSeconds(end)
	if !ok {
		return 0, false
	}
	if to < from {
		to += 24 * 3600
	}
	return to - from, true
}
