package sheets

import (
	"context"
	"strconv"
	"time"

	"splitbill/internal/core"
)

// Header is the first row of every ledger sheet.
var Header = []any{"Event", "Date", "Title", "Type", "Split", "Amount", "Paid by", "Recorded at"}

// LedgerRow is one transaction as mirrored to a spreadsheet.
type LedgerRow struct {
	EventID     string
	Date        time.Time
	Title       string
	Type        core.TransactionType
	SplitID     int64
	AmountCents int64
	PaidBy      string
	RecordedAt  time.Time
}

// Values renders the row in Header order.
func (r LedgerRow) Values() []any {
	return []any{
		r.EventID,
		r.Date.Format("2006-01-02"),
		r.Title,
		r.Type.Label(),
		strconv.FormatInt(r.SplitID, 10),
		strconv.FormatFloat(core.FromCents(r.AmountCents), 'f', 2, 64),
		r.PaidBy,
		r.RecordedAt.UTC().Format(time.RFC3339),
	}
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends rows. Appending an EventID that is already
	// present returns the existing row reference, so redelivered events are
	// written once.
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}
)
