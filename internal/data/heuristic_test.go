package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"splitbill/internal/core"
)

type seedReader struct{ seed Seed }

func (s seedReader) User(context.Context) (core.Person, error)    { return s.seed.People[0], nil }
func (s seedReader) Splits(context.Context) ([]core.Split, error) { return s.seed.Splits, nil }

func TestHeuristicProposer(t *testing.T) {
	r := seedReader{DefaultSeed()}
	p := HeuristicProposer{Users: r, Splits: r, Now: func() time.Time {
		return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	}}

	tx, err := p.ProposeBill(context.Background(), core.ChatRequest{Message: "groceries at walmart $100", ImageURL: "https://i/x.png"})
	if err != nil {
		t.Fatalf("ProposeBill: %v", err)
	}
	if tx.BillAmount != 100 || tx.SplitID != 1 || tx.TransactionType != core.Grocery {
		t.Fatalf("unexpected proposal %+v", tx)
	}
	if tx.Title != "Groceries at walmart" || tx.Date != "2024-03-08" || tx.BillLink != "https://i/x.png" {
		t.Fatalf("title/date/link %q %q %q", tx.Title, tx.Date, tx.BillLink)
	}
	if len(tx.Splits) != 3 || tx.Splits[0].Amount != 33.34 || tx.Splits[2].Amount != 33.33 {
		t.Fatalf("splits %+v", tx.Splits)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("proposal should validate: %v", err)
	}
	if err := tx.CheckTotals(); err != nil {
		t.Fatalf("proposal shares should add up: %v", err)
	}
}

func TestHeuristicProposerNeedsAmount(t *testing.T) {
	r := seedReader{DefaultSeed()}
	p := HeuristicProposer{Users: r, Splits: r}
	if _, err := p.ProposeBill(context.Background(), core.ChatRequest{Message: "hello"}); !errors.Is(err, ErrNoAmount) {
		t.Fatalf("expected ErrNoAmount, got %v", err)
	}
}

func TestDefaultSeedIsConsistent(t *testing.T) {
	seed := DefaultSeed()
	if len(seed.People) != 5 || len(seed.Splits) != 5 || len(seed.Transactions) != 3 {
		t.Fatalf("unexpected seed sizes")
	}
	for _, tx := range seed.Transactions {
		if err := tx.Validate(); err != nil {
			t.Errorf("seed transaction %d: %v", tx.ID, err)
		}
		if err := tx.CheckTotals(); err != nil {
			t.Errorf("seed transaction %d totals: %v", tx.ID, err)
		}
	}
}

func TestHeuristicProposerPicksLargestAmount(t *testing.T) {
	r := seedReader{DefaultSeed()}
	p := HeuristicProposer{Users: r, Splits: r}
	tx, err := p.ProposeBill(context.Background(), core.ChatRequest{Message: "dinner for 2 people 45.50"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.BillAmount != 45.5 || tx.TransactionType != core.Dining {
		t.Fatalf("got %v %s", tx.BillAmount, tx.TransactionType)
	}
}
