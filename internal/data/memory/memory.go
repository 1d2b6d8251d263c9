// Package memory is an in-process backend seeded with demo data. It is the
// default for local development and the fake behind handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"splitbill/internal/core"
	"splitbill/internal/data"
)

type Store struct {
	mu       sync.Mutex
	people   []core.Person
	splits   []core.Split
	txs      []core.Transaction
	nextID   int64
	proposer data.BillProposer
}

// New returns a store holding seed. Bill proposals use the heuristic
// proposer unless SetProposer is called.
func New(seed data.Seed) *Store {
	s := &Store{
		people: append([]core.Person(nil), seed.People...),
		splits: append([]core.Split(nil), seed.Splits...),
	}
	for _, tx := range seed.Transactions {
		s.txs = append(s.txs, tx)
		s.nextID = max(s.nextID, tx.ID)
	}
	s.proposer = data.HeuristicProposer{Users: s, Splits: s}
	return s
}

// NewSeeded returns a store with the default demo data.
func NewSeeded() *Store {
	return New(data.DefaultSeed())
}

// NewFromFile loads a JSON seed from path. A missing file yields the
// default seed.
func NewFromFile(path string) (*Store, error) {
	seed, err := data.LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// SetProposer replaces the bill proposer.
func (s *Store) SetProposer(p data.BillProposer) {
	s.mu.Lock()
	s.proposer = p
	s.mu.Unlock()
}

// User returns the first person, like the backend's /user endpoint.
func (s *Store) User(_ context.Context) (core.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.people) == 0 {
		return core.Person{}, fmt.Errorf("user: %w", core.ErrNotFound)
	}
	return s.people[0], nil
}

func (s *Store) Splits(_ context.Context) ([]core.Split, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Split(nil), s.splits...), nil
}

func (s *Store) Transactions(_ context.Context, splitID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if splitID == 0 || tx.SplitID == splitID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// CreateTransaction assigns the next id and stores tx.
func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tx.ID = s.nextID
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) ProposeBill(ctx context.Context, req core.ChatRequest) (core.Transaction, error) {
	s.mu.Lock()
	p := s.proposer
	s.mu.Unlock()
	return p.ProposeBill(ctx, req)
}

func (s *Store) Ping(context.Context) error { return nil }
