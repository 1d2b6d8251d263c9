package ledger

import (
	"math"

	"splitbill/internal/core"
)

type DebtKind string

const (
	Owe  DebtKind = "owe"
	Owed DebtKind = "owed"
)

// Debt is the viewer's position on one transaction. Amount is never
// negative.
type Debt struct {
	Kind   DebtKind `json:"type"`
	Amount float64  `json:"amount"`
}

// Label is the short phrase shown next to a transaction.
func (d Debt) Label() string {
	if d.Kind == Owe {
		return "You owe"
	}
	return "You're owed"
}

// DebtStatus compares what the viewer paid with what they owe. Missing
// entries count as zero, so a viewer outside the transaction is owed 0.
// Amounts are compared as given, without rounding to cents.
func DebtStatus(tx core.Transaction, viewerID int64) Debt {
	var owes, paid float64
	if s, ok := tx.FindSplit(viewerID); ok {
		owes = s.Amount
	}
	if p, ok := tx.FindPayment(viewerID); ok {
		paid = p.Amount
	}
	if paid >= owes {
		return Debt{Kind: Owed, Amount: math.Abs(paid - owes)}
	}
	return Debt{Kind: Owe, Amount: math.Abs(owes - paid)}
}

// UserShare is the signed amount shown in the all-transactions list: the
// negated split entry of the viewer, or 0 when they are not in it.
func UserShare(tx core.Transaction, viewerID int64) float64 {
	s, ok := tx.FindSplit(viewerID)
	if !ok || s.Amount == 0 {
		return 0
	}
	return -s.Amount
}

// Balance sums DebtStatus over txs: positive when the viewer is owed money
// overall, negative when they owe.
func Balance(txs []core.Transaction, viewerID int64) float64 {
	var total float64
	for _, tx := range txs {
		d := DebtStatus(tx, viewerID)
		if d.Kind == Owe {
			total -= d.Amount
		} else {
			total += d.Amount
		}
	}
	return total
}
