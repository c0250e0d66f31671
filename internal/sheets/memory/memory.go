// Package memory is an in-process ledger export used when no spreadsheet is
// configured. Rows live only as long as the process.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dompet/internal/core"
	"dompet/internal/ports"
)

var _ ports.LedgerExporter = (*Sheet)(nil)

// Sheet keeps exported transactions in append order, one row per id.
type Sheet struct {
	mu   sync.Mutex
	name string
	rows []core.Transaction
}

func New(name string) *Sheet {
	if name == "" {
		name = "Transactions"
	}
	return &Sheet{name: name}
}

// AppendTransaction adds tx unless its id is already present, in which case
// the existing row reference is returned.
func (s *Sheet) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(tx.ID); i >= 0 {
		return s.ref(i), nil
	}
	s.rows = append(s.rows, tx)
	return s.ref(len(s.rows) - 1), nil
}

// RemoveTransaction drops the row for id. A missing row is not an error.
func (s *Sheet) RemoveTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the exported transactions in sheet order.
func (s *Sheet) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}

func (s *Sheet) indexOf(id string) int {
	for i, tx := range s.rows {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// ref mirrors the A1 range the Sheets API reports; row 1 is the header.
func (s *Sheet) ref(i int) string {
	row := i + 2
	return fmt.Sprintf("%s!A%d:G%d", s.name, row, row)
}
