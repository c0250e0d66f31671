// Package memory is an in-process implementation of ports.Store.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dompet/internal/core"
	"dompet/internal/ports"
)

type Store struct {
	mu    sync.Mutex
	users map[string]core.User // by normalized email
	txs   map[string]map[string]core.Transaction
	cats  map[string][]string
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: map[string]core.User{},
		txs:   map[string]map[string]core.Transaction{},
		cats:  map[string][]string{},
	}
}

// SaveTransaction stores tx under its owner. The id must be set.
func (s *Store) SaveTransaction(_ context.Context, tx core.Transaction) error {
	if tx.ID == "" || tx.UserID == "" {
		return fmt.Errorf("transaction id and user id are required")
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrInvalidType)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.txs[tx.UserID]
	if !ok {
		byID = map[string]core.Transaction{}
		s.txs[tx.UserID] = byID
	}
	if _, exists := byID[tx.ID]; exists {
		return fmt.Errorf("transaction %s: %w", tx.ID, ports.ErrConflict)
	}
	byID[tx.ID] = tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[userID][id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs[userID]))
	for _, tx := range s.txs[userID] {
		out = append(out, tx)
	}
	s.mu.Unlock()
	core.SortNewestFirst(out)
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[userID][id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	delete(s.txs[userID], id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats[userID]...), nil
}

// AddCategory appends name unless the user already has it (case-insensitive).
func (s *Store) AddCategory(_ context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats[userID] {
		if strings.EqualFold(c, name) {
			return nil
		}
	}
	s.cats[userID] = append(s.cats[userID], name)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	email := core.NormalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return fmt.Errorf("user %s: %w", email, ports.ErrConflict)
	}
	u.Email = email
	s.users[email] = u
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[core.NormalizeEmail(email)]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", email, ports.ErrNotFound)
	}
	return u, nil
}
