package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"splitbill/internal/core"
	"splitbill/internal/data"
)

var _ data.Backend = (*Store)(nil)

func TestSeededStore(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	u, err := s.User(ctx)
	if err != nil || u.Name != "Alice" {
		t.Fatalf("User = %+v, %v", u, err)
	}
	splits, _ := s.Splits(ctx)
	if len(splits) != 5 || splits[3].Name != "Dinner Out" || len(splits[3].People) != 5 {
		t.Fatalf("unexpected splits %+v", splits)
	}
	txs, _ := s.Transactions(ctx, 2)
	if len(txs) != 1 || txs[0].Title != "Starbucks" {
		t.Fatalf("split 2 transactions %+v", txs)
	}
}

func TestCreateTransaction(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	alice := core.Person{ID: 1, Name: "Alice"}
	tx := core.Transaction{
		SplitID: 1, Title: "Pizza", TransactionType: core.Dining, BillAmount: 20,
		Splits: []core.Share{{Person: alice, Amount: 20}},
		PaidBy: []core.Share{{Person: alice, Amount: 20}},
		Date:   "2024-03-01",
	}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	all, _ := s.Transactions(ctx, 0)
	if len(all) != 4 || all[3].ID != 4 {
		t.Fatalf("expected new transaction with id 4, got %+v", all[len(all)-1])
	}

	tx.Title = ""
	if err := s.CreateTransaction(ctx, tx); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProposeBillUsesSeed(t *testing.T) {
	s := NewSeeded()
	tx, err := s.ProposeBill(context.Background(), core.ChatRequest{Message: "coffee 9"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.SplitID != 1 || tx.PaidBy[0].Person.Name != "Alice" {
		t.Fatalf("proposal %+v", tx)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if u, _ := s.User(context.Background()); u.Name != "Alice" {
		t.Fatal("expected default seed when file is missing")
	}

	path := filepath.Join(dir, "seed.json")
	os.WriteFile(path, []byte(`{"people":[{"id":7,"name":"Zed"}],"splits":[],"transactions":[]}`), 0o644)
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if u, _ := s.User(context.Background()); u.ID != 7 {
		t.Fatalf("expected seed from file, got %+v", u)
	}

	os.WriteFile(path, []byte(`{`), 0o644)
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected parse error")
	}

	empty := New(data.Seed{})
	if _, err := empty.User(context.Background()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("empty store User = %v", err)
	}
}
