// Package storage is the SQLite backend: people, split groups and
// transactions with their items and shares, migrated with golang-migrate.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"splitbill/internal/core"
	"splitbill/internal/data"
	"splitbill/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	proposer      data.BillProposer
	logger        *log.Logger
	schemaVersion uint
}

// NewSQLiteRepository opens dbPath, runs migrations and seeds an empty
// database with seed.
func NewSQLiteRepository(ctx context.Context, dbPath string, seed data.Seed, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	version, err := migrateSchema(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := &SQLiteRepository{
		db:            db,
		queries:       New(db),
		logger:        logger,
		schemaVersion: version,
	}
	repo.proposer = data.HeuristicProposer{Users: repo, Splits: repo}

	if err := repo.seedIfEmpty(ctx, seed); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// SchemaVersion is the migration version the database was brought to.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

// SetProposer replaces the heuristic bill proposer.
func (r *SQLiteRepository) SetProposer(p data.BillProposer) {
	r.proposer = p
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) seedIfEmpty(ctx context.Context, seed data.Seed) error {
	n, err := r.queries.CountPeople(ctx)
	if err != nil {
		return fmt.Errorf("count people: %w", err)
	}
	if n > 0 {
		return nil
	}

	err = r.inTx(ctx, func(q *Queries) error {
		for _, p := range seed.People {
			if err := q.EnsurePerson(ctx, Person{ID: p.ID, Name: p.Name, Email: p.Email}); err != nil {
				return fmt.Errorf("seed person %d: %w", p.ID, err)
			}
		}
		for _, s := range seed.Splits {
			if err := q.InsertSplit(ctx, s.ID, s.Name); err != nil {
				return fmt.Errorf("seed split %d: %w", s.ID, err)
			}
			for i, p := range s.People {
				if err := q.InsertSplitPerson(ctx, s.ID, p.ID, i); err != nil {
					return fmt.Errorf("seed split %d member %d: %w", s.ID, p.ID, err)
				}
			}
		}
		for _, tx := range seed.Transactions {
			if _, err := insertTransactionWithDetails(ctx, q, tx); err != nil {
				return fmt.Errorf("seed transaction %d: %w", tx.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "Seeded empty database",
		"people", len(seed.People),
		"splits", len(seed.Splits),
		"transactions", len(seed.Transactions))
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTransactionWithDetails(ctx context.Context, q *Queries, tx core.Transaction) (int64, error) {
	id, err := q.InsertTransaction(ctx, Transaction{
		ID:              tx.ID,
		SplitID:         tx.SplitID,
		Title:           tx.Title,
		TransactionType: string(tx.TransactionType),
		BillAmountCents: core.ToCents(tx.BillAmount),
		Date:            tx.Date,
		BillLink:        tx.BillLink,
	})
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	for i, it := range tx.Items {
		if err := q.InsertItem(ctx, id, i, it.Name, core.ToCents(it.Price)); err != nil {
			return 0, fmt.Errorf("insert item: %w", err)
		}
	}
	shares := []struct {
		kind string
		list []core.Share
	}{{shareSplit, tx.Splits}, {sharePaid, tx.PaidBy}}
	for _, group := range shares {
		for i, s := range group.list {
			p := s.Person
			if err := q.EnsurePerson(ctx, Person{ID: p.ID, Name: p.Name, Email: p.Email}); err != nil {
				return 0, fmt.Errorf("ensure person %d: %w", p.ID, err)
			}
			if err := q.InsertShare(ctx, id, group.kind, i, p.ID, core.ToCents(s.Amount)); err != nil {
				return 0, fmt.Errorf("insert share: %w", err)
			}
		}
	}
	return id, nil
}

// User implements data.UserReader: the first person is the viewer.
func (r *SQLiteRepository) User(ctx context.Context) (core.Person, error) {
	p, err := r.queries.FirstPerson(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Person{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Person{}, fmt.Errorf("get user: %w", err)
	}
	return core.Person{ID: p.ID, Name: p.Name, Email: p.Email}, nil
}

// Splits implements data.SplitLister
func (r *SQLiteRepository) Splits(ctx context.Context) ([]core.Split, error) {
	members, err := r.queries.ListSplitMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	var out []core.Split
	for _, m := range members {
		if len(out) == 0 || out[len(out)-1].ID != m.SplitID {
			out = append(out, core.Split{ID: m.SplitID, Name: m.SplitName, People: []core.Person{}})
		}
		if m.Person.ID != 0 {
			last := &out[len(out)-1]
			last.People = append(last.People, core.Person{ID: m.Person.ID, Name: m.Person.Name, Email: m.Person.Email})
		}
	}
	return out, nil
}

// Transactions implements data.TransactionLister
func (r *SQLiteRepository) Transactions(ctx context.Context, splitID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, splitID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	items, err := r.queries.ListItems(ctx, splitID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	shares, err := r.queries.ListShares(ctx, splitID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	out := make([]core.Transaction, len(rows))
	index := make(map[int64]int, len(rows))
	for i, t := range rows {
		index[t.ID] = i
		out[i] = core.Transaction{
			ID:              t.ID,
			SplitID:         t.SplitID,
			Title:           t.Title,
			TransactionType: core.TransactionType(t.TransactionType),
			Items:           []core.Item{},
			Splits:          []core.Share{},
			BillAmount:      core.FromCents(t.BillAmountCents),
			PaidBy:          []core.Share{},
			Date:            t.Date,
			BillLink:        t.BillLink,
		}
	}
	for _, it := range items {
		if i, ok := index[it.TransactionID]; ok {
			out[i].Items = append(out[i].Items, core.Item{Name: it.Name, Price: core.FromCents(it.PriceCents)})
		}
	}
	for _, s := range shares {
		i, ok := index[s.TransactionID]
		if !ok {
			continue
		}
		share := core.Share{
			Person: core.Person{ID: s.Person.ID, Name: s.Person.Name, Email: s.Person.Email},
			Amount: core.FromCents(s.AmountCents),
		}
		if s.Kind == sharePaid {
			out[i].PaidBy = append(out[i].PaidBy, share)
		} else {
			out[i].Splits = append(out[i].Splits, share)
		}
	}
	return out, nil
}

// CreateTransaction implements data.TransactionWriter. The transaction and
// its rows are written atomically.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	tx.ID = 0
	var id int64
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		id, err = insertTransactionWithDetails(ctx, q, tx)
		return err
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, id,
		log.FieldTitle, tx.Title,
		log.FieldSplitID, tx.SplitID,
		log.FieldAmountCents, core.ToCents(tx.BillAmount))
	return nil
}

// ProposeBill implements data.BillProposer through the configured proposer.
func (r *SQLiteRepository) ProposeBill(ctx context.Context, req core.ChatRequest) (core.Transaction, error) {
	return r.proposer.ProposeBill(ctx, req)
}
