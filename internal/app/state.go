// Package app holds the application state shared by every request: the
// backend, read caches and the loading state of each view.
package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"splitbill/internal/cache"
	"splitbill/internal/core"
	"splitbill/internal/data"
	"splitbill/internal/ledger"
	"splitbill/internal/log"
	"splitbill/internal/viewstate"
)

const (
	DefaultCacheTTL = 30 * time.Second
	cacheSize       = 64
	viewerKey       = "viewer"
	splitsKey       = "splits"
)

// Publisher announces created transactions; the AMQP client implements it.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction) error
}

type Options struct {
	Backend   data.Backend
	Publisher Publisher // optional
	Logger    *log.Logger
	// CacheTTL bounds how long backend reads are reused; negative disables
	// caching.
	CacheTTL      time.Duration
	CacheObserver cache.Observer
	Ledger        ledger.Options
}

// State is built once at startup and passed to every handler.
type State struct {
	backend   data.Backend
	publisher Publisher
	logger    *log.Logger
	ledger    ledger.Options

	viewer *viewstate.Resource[core.Person]
	splits *viewstate.Resource[[]core.Split]

	txMu sync.Mutex
	txs  map[int64]*viewstate.Resource[[]core.Transaction]

	viewerCache *cache.LRUCache[core.Person]
	splitCache  *cache.LRUCache[[]core.Split]
	txCache     *cache.LRUCache[[]core.Transaction]
	caches      *cache.Manager
	cacheTTL    time.Duration
}

func New(opts Options) *State {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	var copts []cache.Option
	if opts.CacheObserver != nil {
		copts = append(copts, cache.WithObserver(opts.CacheObserver))
	}

	s := &State{
		backend:     opts.Backend,
		publisher:   opts.Publisher,
		logger:      logger.WithComponent(log.ComponentState),
		ledger:      opts.Ledger,
		viewer:      viewstate.New(core.Person{}),
		splits:      viewstate.New([]core.Split{}),
		txs:         make(map[int64]*viewstate.Resource[[]core.Transaction]),
		viewerCache: cache.NewLRUCache[core.Person]("viewer", 1, ttl, copts...),
		splitCache:  cache.NewLRUCache[[]core.Split]("splits", 1, ttl, copts...),
		txCache:     cache.NewLRUCache[[]core.Transaction]("transactions", cacheSize, ttl, copts...),
		caches:      cache.NewManager(logger),
		cacheTTL:    ttl,
	}
	s.caches.Register(s.viewerCache)
	s.caches.Register(s.splitCache)
	s.caches.Register(s.txCache)
	if ttl > 0 {
		s.caches.StartCleanup(ttl)
	}
	return s
}

// LedgerOptions returns the grouping options pages should use.
func (s *State) LedgerOptions() ledger.Options { return s.ledger }

func (s *State) cached() bool { return s.cacheTTL > 0 }

// Viewer loads the current user.
func (s *State) Viewer(ctx context.Context) viewstate.Snapshot[core.Person] {
	snap, _ := s.viewer.Load(ctx, func(ctx context.Context) (core.Person, error) {
		if s.cached() {
			if p, ok := s.viewerCache.Get(viewerKey); ok {
				return p, nil
			}
		}
		p, err := s.backend.User(ctx)
		if err != nil {
			return core.Person{}, fmt.Errorf("load user: %w", err)
		}
		s.viewerCache.Set(viewerKey, p)
		return p, nil
	})
	s.logFailure(ctx, "user", snap.Err)
	return snap
}

// Splits loads every split group.
func (s *State) Splits(ctx context.Context) viewstate.Snapshot[[]core.Split] {
	snap, _ := s.splits.Load(ctx, func(ctx context.Context) ([]core.Split, error) {
		if s.cached() {
			if v, ok := s.splitCache.Get(splitsKey); ok {
				return v, nil
			}
		}
		v, err := s.backend.Splits(ctx)
		if err != nil {
			return nil, fmt.Errorf("load splits: %w", err)
		}
		if v == nil {
			v = []core.Split{}
		}
		s.splitCache.Set(splitsKey, v)
		return v, nil
	})
	s.logFailure(ctx, "splits", snap.Err)
	return snap
}

// Split returns one group from the split list.
func (s *State) Split(ctx context.Context, id int64) (core.Split, error) {
	snap := s.Splits(ctx)
	for _, sp := range snap.Data {
		if sp.ID == id {
			return sp, nil
		}
	}
	if snap.Err != nil {
		return core.Split{}, snap.Err
	}
	return core.Split{}, fmt.Errorf("split %d: %w", id, core.ErrNotFound)
}

func (s *State) txResource(splitID int64) *viewstate.Resource[[]core.Transaction] {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	r, ok := s.txs[splitID]
	if !ok {
		r = viewstate.New([]core.Transaction{})
		s.txs[splitID] = r
	}
	return r
}

// Transactions loads transactions, restricted to one split group when
// splitID is non-zero. Order is the backend's.
func (s *State) Transactions(ctx context.Context, splitID int64) viewstate.Snapshot[[]core.Transaction] {
	key := strconv.FormatInt(splitID, 10)
	snap, _ := s.txResource(splitID).Load(ctx, func(ctx context.Context) ([]core.Transaction, error) {
		if s.cached() {
			if v, ok := s.txCache.Get(key); ok {
				return v, nil
			}
		}
		v, err := s.backend.Transactions(ctx, splitID)
		if err != nil {
			return nil, fmt.Errorf("load transactions: %w", err)
		}
		if v == nil {
			v = []core.Transaction{}
		}
		s.txCache.Set(key, v)
		return v, nil
	})
	s.logFailure(ctx, "transactions", snap.Err, log.FieldSplitID, splitID)
	return snap
}

// Transaction finds one transaction in the full list.
func (s *State) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	snap := s.Transactions(ctx, 0)
	for _, tx := range snap.Data {
		if tx.ID == id {
			return tx, nil
		}
	}
	if snap.Err != nil {
		return core.Transaction{}, snap.Err
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
}

// Dashboard is what the home page needs.
type Dashboard struct {
	Viewer       viewstate.Snapshot[core.Person]
	Splits       viewstate.Snapshot[[]core.Split]
	Transactions viewstate.Snapshot[[]core.Transaction]
}

// Dashboard loads the viewer, the split groups and all transactions
// concurrently. A failed read leaves its own view empty and does not cancel
// the others.
func (s *State) Dashboard(ctx context.Context) Dashboard {
	var d Dashboard
	var g errgroup.Group
	g.Go(func() error { d.Viewer = s.Viewer(ctx); return nil })
	g.Go(func() error { d.Splits = s.Splits(ctx); return nil })
	g.Go(func() error { d.Transactions = s.Transactions(ctx, 0); return nil })
	_ = g.Wait()
	return d
}

// AddTransaction validates tx, creates it through the backend, drops cached
// transaction lists and publishes a created event. Shares that do not add up
// to the bill and a failed publish are logged and do not fail the call.
func (s *State) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	if err := tx.CheckTotals(); err != nil {
		s.logger.WarnContext(ctx, "Saving transaction whose shares do not add up",
			log.FieldTitle, tx.Title,
			log.FieldSplitID, tx.SplitID,
			log.FieldError, err)
	}
	if err := s.backend.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	s.txCache.Clear()

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx, tx.Title, tx.SplitID, core.ToCents(tx.BillAmount))

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionCreated(ctx, tx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish transaction event",
				log.FieldTitle, tx.Title,
				log.FieldError, err)
		}
	}
	return nil
}

// Invalidate drops every cached read.
func (s *State) Invalidate() {
	s.viewerCache.Clear()
	s.splitCache.Clear()
	s.txCache.Clear()
}

// Ping checks the backend when it supports readiness checks.
func (s *State) Ping(ctx context.Context) error {
	if p, ok := s.backend.(data.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Backend exposes the configured backend, used by the chat service as its
// proposer.
func (s *State) Backend() data.Backend { return s.backend }

func (s *State) logFailure(ctx context.Context, what string, err error, args ...any) {
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "Read failed, keeping previous view",
		append([]any{"view", what, log.FieldError, err}, args...)...)
}

// Close stops background cache cleanup.
func (s *State) Close() error {
	s.caches.Stop()
	return nil
}
