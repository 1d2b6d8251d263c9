package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	Shopping      TransactionType = "SHOPPING"
	Grocery       TransactionType = "GROCERY"
	Dining        TransactionType = "DINING"
	Entertainment TransactionType = "ENTERTAINMENT"
	Other         TransactionType = "OTHER"
)

type (
	TransactionType string

	Person struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
	}

	// Split is a named group of people sharing bills.
	Split struct {
		ID     int64    `json:"id"`
		Name   string   `json:"name"`
		People []Person `json:"people"`
	}

	Item struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	// Share is one person's portion of a bill: owed in Splits, paid in PaidBy.
	Share struct {
		Person Person  `json:"person"`
		Amount float64 `json:"amount"`
	}

	Transaction struct {
		ID              int64           `json:"id,omitempty"`
		SplitID         int64           `json:"splitId"`
		Title           string          `json:"title"`
		TransactionType TransactionType `json:"transactionType"`
		Items           []Item          `json:"items"`
		Splits          []Share         `json:"splits"`
		BillAmount      float64         `json:"billAmount"`
		PaidBy          []Share         `json:"paidBy"`
		Date            string          `json:"date"`
		BillLink        string          `json:"billLink,omitempty"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyTitle        = errors.New("empty title")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrSplitsMismatch    = errors.New("splits do not add up to bill amount")
	ErrPaymentsMismatch  = errors.New("payments do not add up to bill amount")
	ErrNoParticipants    = errors.New("transaction has no split entries")
	ErrMissingSplitGroup = errors.New("missing split id")
)

// amountTolerance absorbs rounding from thirds such as 66.67 * 3.
const amountTolerance = 0.015

// TransactionTypes lists all known types in display order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Shopping, Grocery, Dining, Entertainment, Other}
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Shopping, Grocery, Dining, Entertainment, Other:
		return true
	default:
		return false
	}
}

// Label returns the lower-case display form ("grocery").
func (t TransactionType) Label() string {
	return strings.ToLower(string(t))
}

// FindSplit returns the entry owed by personID, if any.
func (tx Transaction) FindSplit(personID int64) (Share, bool) {
	return findShare(tx.Splits, personID)
}

// FindPayment returns the entry paid by personID, if any.
func (tx Transaction) FindPayment(personID int64) (Share, bool) {
	return findShare(tx.PaidBy, personID)
}

// PayerNames joins the names of everyone who paid.
func (tx Transaction) PayerNames() string {
	names := make([]string, 0, len(tx.PaidBy))
	for _, p := range tx.PaidBy {
		names = append(names, p.Person.Name)
	}
	return strings.Join(names, ", ")
}

func findShare(shares []Share, personID int64) (Share, bool) {
	for _, s := range shares {
		if s.Person.ID == personID {
			return s, true
		}
	}
	return Share{}, false
}

// Validate checks the structure of a transaction before it is created.
// Reads are never validated: the backend owns the data. Whether shares add
// up to the bill is reported separately by CheckTotals.
func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.Title) == "" {
		return ErrEmptyTitle
	}
	if tx.SplitID <= 0 {
		return ErrMissingSplitGroup
	}
	if !tx.TransactionType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, tx.TransactionType)
	}
	if tx.BillAmount <= 0 || math.IsNaN(tx.BillAmount) || math.IsInf(tx.BillAmount, 0) {
		return ErrInvalidAmount
	}
	if _, err := ParseDate(tx.Date, time.UTC); err != nil {
		return err
	}
	if len(tx.Splits) == 0 {
		return ErrNoParticipants
	}
	return nil
}

// CheckTotals reports whether the splits, and the payments when present, add
// up to the bill amount. A mismatch is a warning, not a reason to refuse the
// transaction.
func (tx Transaction) CheckTotals() error {
	if math.Abs(sumShares(tx.Splits)-tx.BillAmount) > amountTolerance*float64(len(tx.Splits)) {
		return ErrSplitsMismatch
	}
	if len(tx.PaidBy) > 0 && math.Abs(sumShares(tx.PaidBy)-tx.BillAmount) > amountTolerance*float64(len(tx.PaidBy)) {
		return ErrPaymentsMismatch
	}
	return nil
}

func sumShares(shares []Share) float64 {
	var total float64
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the ISO date strings the backend produces. Zone-less
// values are read in loc; values carrying an offset are converted to loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dateLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}
