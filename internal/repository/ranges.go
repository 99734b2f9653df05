// ABOUTME: Calendar ranges for day, week and month queries.
// ABOUTME: Every range is half-open [Start, End) and starts at local midnight.
package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/storage"
)

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayRange covers the calendar day containing t.
func DayRange(t time.Time) Range {
	start := midnight(t)
	return Range{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekRange covers seven days starting at the midnight of t.
func WeekRange(t time.Time) Range {
	start := midnight(t)
	return Range{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthRange covers one calendar month starting at the midnight of t.
func MonthRange(t time.Time) Range {
	start := midnight(t)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ContainsMillis is Contains for an epoch-millisecond record date.
func (r Range) ContainsMillis(ms int64) bool {
	return r.Contains(models.FromMillis(ms))
}

// Trailing returns the day, week or month range ending with the day of t,
// for "today", "this week" style listings.
func Trailing(period string, t time.Time) (Range, error) {
	switch strings.ToLower(period) {
	case "", "day", "today":
		return DayRange(t), nil
	case "week":
		return WeekRange(t.AddDate(0, 0, -6)), nil
	case "month":
		return MonthRange(t.AddDate(0, -1, 1)), nil
	default:
		return Range{}, fmt.Errorf("unknown period %q (want day, week or month)", period)
	}
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// ParseTime reads a user supplied timestamp in local time. Empty means now.
func ParseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (use RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD)", s)
}

// Query selects records. The zero Query matches every record.
type Query struct {
	Range *Range
	// Category is the medication type, exercise type or meal category.
	Category string
	Limit    int
}

// In returns a query for every record inside r.
func In(r Range) Query {
	return Query{Range: &r}
}

func (q Query) filter() storage.Filter {
	f := storage.Filter{Category: q.Category, Limit: q.Limit}
	if q.Range != nil {
		f.Start = models.Millis(q.Range.Start)
		f.End = models.Millis(q.Range.End)
		f.Dated = true
	}
	return f
}
