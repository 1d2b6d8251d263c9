package ledger

import (
	"time"

	"splitbill/internal/core"
)

// Total is one labelled sum for the stats charts.
type Total struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// MonthlyTotals sums bill amounts for the n months ending with the month of
// the newest transaction, oldest first. Months without transactions are
// present with a zero amount.
func MonthlyTotals(txs []core.Transaction, n int, opts Options) []Total {
	if n <= 0 {
		return nil
	}
	ds := parseAll(txs, opts.location())
	latest, ok := newest(ds)
	if !ok {
		return nil
	}
	end := time.Date(latest.Year(), latest.Month(), 1, 0, 0, 0, 0, latest.Location())
	start := end.AddDate(0, -(n - 1), 0)

	cents := make([]int64, n)
	for _, d := range ds {
		if !d.ok {
			continue
		}
		i := monthsBetween(start, d.at)
		if i >= 0 && i < n {
			cents[i] += core.ToCents(d.tx.BillAmount)
		}
	}
	out := make([]Total, n)
	for i := range out {
		out[i] = Total{Label: start.AddDate(0, i, 0).Format("Jan 2006"), Amount: core.FromCents(cents[i])}
	}
	return out
}

// WeeklyTotals sums bill amounts for the n Sunday-start weeks ending with
// the week of the newest transaction, oldest first. Labels are the week's
// Sunday ("3 Mar").
func WeeklyTotals(txs []core.Transaction, n int, opts Options) []Total {
	if n <= 0 {
		return nil
	}
	ds := parseAll(txs, opts.location())
	latest, ok := newest(ds)
	if !ok {
		return nil
	}
	lastSunday := startOfDay(latest).AddDate(0, 0, -int(latest.Weekday()))
	start := lastSunday.AddDate(0, 0, -7*(n-1))

	cents := make([]int64, n)
	for _, d := range ds {
		if !d.ok || d.at.Before(start) {
			continue
		}
		days := int(startOfDay(d.at).Sub(start).Hours()+12) / 24
		if i := days / 7; i < n {
			cents[i] += core.ToCents(d.tx.BillAmount)
		}
	}
	out := make([]Total, n)
	for i := range out {
		out[i] = Total{Label: start.AddDate(0, 0, 7*i).Format("2 Jan"), Amount: core.FromCents(cents[i])}
	}
	return out
}

// TotalsByType sums bill amounts per transaction type in the fixed type
// order. Unknown types are counted under OTHER.
func TotalsByType(txs []core.Transaction) []Total {
	types := core.TransactionTypes()
	cents := make(map[core.TransactionType]int64, len(types))
	for _, tx := range txs {
		t := tx.TransactionType
		if !t.IsValid() {
			t = core.Other
		}
		cents[t] += core.ToCents(tx.BillAmount)
	}
	out := make([]Total, len(types))
	for i, t := range types {
		out[i] = Total{Label: t.Label(), Amount: core.FromCents(cents[t])}
	}
	return out
}

// Spent sums the viewer's own shares across txs.
func Spent(txs []core.Transaction, viewerID int64) float64 {
	var cents int64
	for _, tx := range txs {
		if s, ok := tx.FindSplit(viewerID); ok {
			cents += core.ToCents(s.Amount)
		}
	}
	return core.FromCents(cents)
}

func newest(ds []dated) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, d := range ds {
		if d.ok && (!found || d.at.After(latest)) {
			latest, found = d.at, true
		}
	}
	return latest, found
}

func monthsBetween(start, t time.Time) int {
	return (t.Year()-start.Year())*12 + int(t.Month()) - int(start.Month())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
