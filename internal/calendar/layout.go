// Package calendar places time entries on a week grid of seven day columns
// and twenty-four hour rows.
//
// Overlapping entries are not spread into side-by-side lanes: each block is
// full width in its day column and overlaps simply stack.
package calendar

import (
	"math"
	"time"

	"github.com/bayclock/bayclock/internal/dateutil"
	"github.com/bayclock/bayclock/internal/model"
	"github.com/bayclock/bayclock/internal/timecalc"
)

// Placeholder hours for entries without start or end times.
const (
	PlaceholderStartHour = 9
	PlaceholderEndHour   = 10
)

// Grid is the pixel geometry of the hour grid.
type Grid struct {
	HourHeight     float64 `json:"hour_height"`
	HeaderOffset   float64 `json:"header_offset"`
	MinBlockHeight float64 `json:"min_block_height"`
}

// DefaultGrid returns the standard week view geometry.
func DefaultGrid() Grid {
	return Grid{HourHeight: 48, HeaderOffset: 50, MinBlockHeight: 28}
}

// Span is the clamped hour range an entry occupies.
type Span struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`
}

// Block is the rectangle of one entry.
type Block struct {
	EntryID string  `json:"entry_id"`
	Date    string  `json:"date"`
	Top     float64 `json:"top"`
	Height  float64 `json:"height"`
	Column  int     `json:"column"`
	Span    Span    `json:"span"`
}

// Bottom returns the lower edge of the block.
func (b Block) Bottom() float64 {
	return b.Top + b.Height
}

// HourRange returns the hours an entry covers. Entries without start or end
// get a one hour placeholder at 9am. The start hour is clamped to 0..23 and
// the end hour to at least one hour after the start and at most 24. The end
// minute is kept unless the end lands on 24, where it is dropped so the block
// stays on the grid.
func HourRange(e model.TimeEntry) Span {
	sh, sm, _, okStart := timecalc.ParseClock(e.Start)
	eh, em, _, okEnd := timecalc.ParseClock(e.End)
	if e.Start == "" || e.End == "" || !okStart || !okEnd {
		return Span{StartHour: PlaceholderStartHour, EndHour: PlaceholderEndHour}
	}

	sh = clamp(sh, 0, 23)
	clampedEnd := max(sh+1, min(24, eh))
	if clampedEnd == 24 {
		em = 0
	}
	return Span{
		StartHour:   sh,
		StartMinute: clamp(sm, 0, 59),
		EndHour:     clampedEnd,
		EndMinute:   clamp(em, 0, 59),
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Layout computes the block of e in the given day column.
func (g Grid) Layout(e model.TimeEntry, column int) Block {
	span := HourRange(e)
	startPx := float64(span.StartHour)*g.HourHeight + float64(span.StartMinute)/60*g.HourHeight
	endPx := float64(span.EndHour)*g.HourHeight + float64(span.EndMinute)/60*g.HourHeight
	return Block{
		EntryID: e.ID,
		Date:    e.Date,
		Top:     g.HeaderOffset + startPx,
		Height:  math.Max(g.MinBlockHeight, endPx-startPx),
		Column:  column,
		Span:    span,
	}
}

// LayoutWeek lays out every entry dated within the seven days starting at
// weekStart. The column is the day offset from weekStart. Entries outside the
// week or with unreadable dates are skipped.
func (g Grid) LayoutWeek(entries []model.TimeEntry, weekStart time.Time) []Block {
	first := dateutil.Key(weekStart)
	blocks := make([]Block, 0, len(entries))
	for _, e := range entries {
		col, err := dateutil.DaysBetween(first, e.Date)
		if err != nil || col < 0 || col > 6 {
			continue
		}
		blocks = append(blocks, g.Layout(e, col))
	}
	return blocks
}
