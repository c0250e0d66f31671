package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dompet/internal/cache"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/ports"
)

// Dashboard is the month view the home screen renders in one round trip.
type Dashboard struct {
	Ledger     core.Ledger           `json:"ledger"`
	Breakdown  []core.CategoryAmount `json:"breakdown"`
	Categories []string              `json:"categories"`
}

// TransactionService orchestrates transaction operations across storage,
// the ledger cache and the export queue.
type TransactionService struct {
	store     ports.Store
	publisher ports.SyncPublisher
	ledgers   *cache.LRUCache[core.Ledger]
	loc       *time.Location
	now       func() time.Time
	logger    *applog.Logger
	events    *applog.StructuredLogger

	// gens counts writes per user; a ledger read whose generation changed
	// before it finished is not cached.
	genMu sync.Mutex
	gens  map[string]uint64
}

type Option func(*TransactionService)

// WithPublisher enables sync messages for the export worker.
func WithPublisher(p ports.SyncPublisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

// WithLedgerCache caches computed month ledgers.
func WithLedgerCache(c *cache.LRUCache[core.Ledger]) Option {
	return func(s *TransactionService) { s.ledgers = c }
}

// WithLocation sets the zone month boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *TransactionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewTransactionService(store ports.Store, logger *applog.Logger, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:  store,
		loc:    time.UTC,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentTransaction),
		gens:   make(map[string]uint64),
	}
	s.events = applog.NewStructuredLogger(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the zone used for month boundaries.
func (s *TransactionService) Location() *time.Location {
	return s.loc
}

// CurrentMonth returns the year and month of now in the service location.
func (s *TransactionService) CurrentMonth() (int, int) {
	now := s.now().In(s.loc)
	return now.Year(), int(now.Month())
}

// Create validates and stores a transaction, then announces it for export.
func (s *TransactionService) Create(ctx context.Context, userID string, in core.TransactionInput) (core.Transaction, error) {
	tx, err := in.Build(userID, s.now())
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = uuid.NewString()

	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID)

	s.events.LogTransactionCreated(ctx, userID, tx.ID, tx.Title, string(tx.Type), tx.Category, tx.Amount.String())

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionSync(ctx, userID, tx.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message",
				applog.FieldTxID, tx.ID, applog.FieldError, err.Error())
		}
	}
	return tx, nil
}

// Delete removes one of the user's transactions. A foreign or unknown id is ports.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(userID)

	s.events.LogTransactionDeleted(ctx, userID, id)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDelete(ctx, userID, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish delete message",
				applog.FieldTxID, id, applog.FieldError, err.Error())
		}
	}
	return nil
}

// List returns every transaction the user owns, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

func ledgerKey(userID string, year, month int) string {
	return fmt.Sprintf("%s|%04d|%02d", userID, year, month)
}

func (s *TransactionService) invalidate(userID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.gens[userID]++
	if s.ledgers != nil {
		s.ledgers.DeletePrefix(userID + "|")
	}
}

func (s *TransactionService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

// cacheLedger stores l only if no write for userID happened since gen was read.
func (s *TransactionService) cacheLedger(userID, key string, gen uint64, l core.Ledger) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[userID] != gen {
		return false
	}
	s.ledgers.Set(key, l)
	return true
}

// MonthLedger builds the ledger for one calendar month.
func (s *TransactionService) MonthLedger(ctx context.Context, userID string, year, month int) (core.Ledger, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.Ledger{}, err
	}
	key := ledgerKey(userID, year, month)
	if s.ledgers != nil {
		if l, ok := s.ledgers.Get(key); ok {
			return l, nil
		}
	}

	gen := s.generation(userID)
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return core.Ledger{}, fmt.Errorf("list transactions: %w", err)
	}
	l := core.BuildLedger(txs, year, month, s.loc)

	if s.ledgers != nil && !s.cacheLedger(userID, key, gen, l) {
		s.logger.DebugContext(ctx, "Ledger changed while computing, not cached",
			applog.FieldUserID, userID, applog.FieldYear, year, applog.FieldMonth, month)
	}
	s.logger.DebugContext(ctx, "Ledger computed",
		applog.FieldUserID, userID, applog.FieldYear, year, applog.FieldMonth, month,
		"entries", len(l.Entries))
	return l, nil
}

// Breakdown returns the expense breakdown for all time, or for one month when
// month is non-zero.
func (s *TransactionService) Breakdown(ctx context.Context, userID string, year, month int) ([]core.CategoryAmount, error) {
	if month != 0 {
		if err := core.ValidateMonth(month); err != nil {
			return nil, err
		}
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if month != 0 {
		txs = core.FilterMonth(txs, year, month, s.loc)
	}
	return core.CategoryBreakdown(txs), nil
}

// Dashboard loads the month ledger, its breakdown and the category list concurrently.
func (s *TransactionService) Dashboard(ctx context.Context, userID string, year, month int) (Dashboard, error) {
	if err := core.ValidateMonth(month); err != nil {
		return Dashboard{}, err
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := s.MonthLedger(gctx, userID, year, month)
		d.Ledger = l
		return err
	})
	g.Go(func() error {
		b, err := s.Breakdown(gctx, userID, year, month)
		d.Breakdown = b
		return err
	})
	g.Go(func() error {
		c, err := s.Categories(gctx, userID)
		d.Categories = c
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Categories returns the user's stored categories, or the defaults when none are stored.
func (s *TransactionService) Categories(ctx context.Context, userID string) ([]string, error) {
	cats, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return append([]string(nil), core.DefaultCategories...), nil
	}
	return cats, nil
}

// AddCategory stores a category and returns the updated list.
func (s *TransactionService) AddCategory(ctx context.Context, userID, name string) ([]string, error) {
	name, err := core.NormalizeCategory(name)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddCategory(ctx, userID, name); err != nil {
		return nil, fmt.Errorf("add category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category added", applog.FieldUserID, userID, applog.FieldCategory, name)
	return s.Categories(ctx, userID)
}
