package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"splitbill/internal/core"
	"splitbill/internal/data"
)

var _ data.Backend = (*SQLiteRepository)(nil)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "splitbill.db")
	repo, err := NewSQLiteRepository(context.Background(), path, data.DefaultSeed(), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestSeededRepository(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.User(ctx)
	if err != nil || u.Name != "Alice" || u.Email != "alice@example.com" {
		t.Fatalf("User = %+v, %v", u, err)
	}

	splits, err := repo.Splits(ctx)
	if err != nil || len(splits) != 5 {
		t.Fatalf("Splits = %+v, %v", splits, err)
	}
	dinner := splits[3]
	if dinner.Name != "Dinner Out" || len(dinner.People) != 5 || dinner.People[0].Name != "Bob" {
		t.Fatalf("member order not kept: %+v", dinner)
	}

	txs, err := repo.Transactions(ctx, 3)
	if err != nil || len(txs) != 1 {
		t.Fatalf("Transactions(3) = %+v, %v", txs, err)
	}
	util := txs[0]
	if util.Title != "Utility Company" || util.BillAmount != 200 || len(util.Splits) != 3 || util.Splits[0].Amount != 66.67 {
		t.Fatalf("utility transaction %+v", util)
	}
	if len(util.PaidBy) != 1 || util.PaidBy[0].Person.Name != "Alice" || util.Items[0].Name != "Electricity Bill" {
		t.Fatalf("utility paid/items %+v", util)
	}
}

func TestCreateTransactionRoundTrip(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	alice := core.Person{ID: 1, Name: "Alice"}
	eve := core.Person{ID: 42, Name: "Eve", Email: "eve@example.com"}
	in := core.Transaction{
		SplitID: 5, Title: "Cinema", TransactionType: core.Entertainment,
		Items:      []core.Item{{Name: "Tickets", Price: 24}},
		Splits:     []core.Share{{Person: alice, Amount: 12}, {Person: eve, Amount: 12}},
		BillAmount: 24,
		PaidBy:     []core.Share{{Person: eve, Amount: 24}},
		Date:       "2024-03-08",
		BillLink:   "https://i.ibb.co/x.png",
	}
	if err := repo.CreateTransaction(ctx, in); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// Reopening must not seed twice.
	repo.Close()
	again, err := NewSQLiteRepository(ctx, path, data.DefaultSeed(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()

	txs, _ := again.Transactions(ctx, 0)
	if len(txs) != 4 {
		t.Fatalf("expected 4 transactions after reopen, got %d", len(txs))
	}
	got := txs[3]
	if got.ID != 4 || got.Title != "Cinema" || got.BillLink != in.BillLink {
		t.Fatalf("stored transaction %+v", got)
	}
	if got.PaidBy[0].Person != eve {
		t.Fatalf("unknown payer not stored: %+v", got.PaidBy)
	}

	in.BillAmount = 0
	if err := again.CreateTransaction(ctx, in); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestProposeBillFallsBackToHeuristic(t *testing.T) {
	repo, _ := newTestRepo(t)
	tx, err := repo.ProposeBill(context.Background(), core.ChatRequest{Message: "pizza 30"})
	if err != nil {
		t.Fatal(err)
	}
	if tx.BillAmount != 30 || tx.TransactionType != core.Dining {
		t.Fatalf("proposal %+v", tx)
	}
}

func TestMigrationsShareConnectionAndReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	if v := repo.SchemaVersion(); v != 1 {
		t.Fatalf("SchemaVersion = %d, want 1", v)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("connection closed by migrations: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	again, err := NewSQLiteRepository(ctx, path, data.DefaultSeed(), nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if v := again.SchemaVersion(); v != 1 {
		t.Fatalf("SchemaVersion after reopen = %d, want 1", v)
	}
	txs, err := again.Transactions(ctx, 0)
	if err != nil || len(txs) != 3 {
		t.Fatalf("Transactions after reopen = %d, %v", len(txs), err)
	}
}
