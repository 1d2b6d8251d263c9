// Package ledger shapes transaction lists for display: date ordering,
// month and week grouping, per-viewer debt and chart totals.
package ledger

import (
	"sort"
	"time"

	"splitbill/internal/core"
)

type dated struct {
	tx core.Transaction
	at time.Time
	ok bool
}

func parseAll(txs []core.Transaction, loc *time.Location) []dated {
	out := make([]dated, len(txs))
	for i, tx := range txs {
		at, err := core.ParseDate(tx.Date, loc)
		out[i] = dated{tx: tx, at: at, ok: err == nil}
	}
	return out
}

// sortDated orders newest first. Equal dates keep input order and
// unparseable dates go last.
func sortDated(ds []dated) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.at.After(b.at)
	})
}

// SortByDateDesc returns a copy of txs ordered newest first. The input is
// left untouched.
func SortByDateDesc(txs []core.Transaction, loc *time.Location) []core.Transaction {
	ds := parseAll(txs, loc)
	sortDated(ds)
	out := make([]core.Transaction, len(ds))
	for i, d := range ds {
		out[i] = d.tx
	}
	return out
}

// FilterBySplit keeps the transactions of one split group. A zero id keeps
// everything.
func FilterBySplit(txs []core.Transaction, splitID int64) []core.Transaction {
	if splitID == 0 {
		return txs
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.SplitID == splitID {
			out = append(out, tx)
		}
	}
	return out
}
