package ledger

import (
	"fmt"
	"time"

	"splitbill/internal/core"
)

// RangeMode selects how a week group's date range is labelled.
type RangeMode int

const (
	// RangeBucket labels the day-of-month bucket itself: days 1-7, 8-14 and
	// so on, clamped to the end of the month.
	RangeBucket RangeMode = iota
	// RangeCalendarWeek labels the Sunday-to-Saturday week containing the
	// first transaction seen in the bucket.
	RangeCalendarWeek
)

// UndatedLabel names the month and week groups holding transactions whose
// date cannot be parsed.
const UndatedLabel = "Undated"

// ParseRangeMode maps a configuration value to a RangeMode.
func ParseRangeMode(s string) (RangeMode, error) {
	switch s {
	case "", "bucket":
		return RangeBucket, nil
	case "calendar":
		return RangeCalendarWeek, nil
	default:
		return RangeBucket, fmt.Errorf("unknown week range mode %q (want bucket or calendar)", s)
	}
}

func (m RangeMode) String() string {
	if m == RangeCalendarWeek {
		return "calendar"
	}
	return "bucket"
}

type Options struct {
	// Location is the display time zone; nil means UTC.
	Location *time.Location
	Range    RangeMode
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

type WeekGroup struct {
	Label        string             `json:"label"`
	DateRange    string             `json:"dateRange"`
	Transactions []core.Transaction `json:"transactions"`
}

type MonthGroup struct {
	Label string      `json:"label"`
	Weeks []WeekGroup `json:"weeks"`
}

// Count returns the number of transactions in the month.
func (m MonthGroup) Count() int {
	n := 0
	for _, w := range m.Weeks {
		n += len(w.Transactions)
	}
	return n
}

// WeekOfMonth returns the day-of-month bucket: days 1-7 are week 1, 8-14
// week 2, and 29-31 week 5.
func WeekOfMonth(day int) int {
	return (day + 6) / 7
}

// WeekLabel returns "Week N" for a day of the month.
func WeekLabel(day int) string {
	return fmt.Sprintf("Week %d", WeekOfMonth(day))
}

// MonthLabel returns the long month name and year, "March 2024".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

// Group sorts txs newest first and groups them by month, then by
// day-of-month week. Groups appear in first-seen order, so reading every
// week of every month in turn yields exactly the sorted list.
func Group(txs []core.Transaction, opts Options) []MonthGroup {
	ds := parseAll(txs, opts.location())
	sortDated(ds)

	var months []MonthGroup
	monthIdx := map[string]int{}
	weekIdx := map[string]map[string]int{}

	for _, d := range ds {
		monthKey, weekKey, dateRange := UndatedLabel, UndatedLabel, ""
		if d.ok {
			monthKey = MonthLabel(d.at)
			weekKey = WeekLabel(d.at.Day())
			dateRange = weekRange(d.at, opts.Range)
		}

		mi, ok := monthIdx[monthKey]
		if !ok {
			mi = len(months)
			monthIdx[monthKey] = mi
			weekIdx[monthKey] = map[string]int{}
			months = append(months, MonthGroup{Label: monthKey})
		}
		wi, ok := weekIdx[monthKey][weekKey]
		if !ok {
			wi = len(months[mi].Weeks)
			weekIdx[monthKey][weekKey] = wi
			months[mi].Weeks = append(months[mi].Weeks, WeekGroup{Label: weekKey, DateRange: dateRange})
		}
		months[mi].Weeks[wi].Transactions = append(months[mi].Weeks[wi].Transactions, d.tx)
	}
	return months
}

// Flatten concatenates the groups back into a single list.
func Flatten(months []MonthGroup) []core.Transaction {
	var out []core.Transaction
	for _, m := range months {
		for _, w := range m.Weeks {
			out = append(out, w.Transactions...)
		}
	}
	return out
}

func weekRange(t time.Time, mode RangeMode) string {
	var start, end time.Time
	switch mode {
	case RangeCalendarWeek:
		start = t.AddDate(0, 0, -int(t.Weekday()))
		end = start.AddDate(0, 0, 6)
	default:
		w := WeekOfMonth(t.Day())
		first := (w-1)*7 + 1
		last := min(w*7, daysIn(t))
		start = time.Date(t.Year(), t.Month(), first, 0, 0, 0, 0, t.Location())
		end = time.Date(t.Year(), t.Month(), last, 0, 0, 0, 0, t.Location())
	}
	return start.Format("2 Jan") + " - " + end.Format("2 Jan")
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
