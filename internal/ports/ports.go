package ports

import (
	"context"
	"errors"

	"dompet/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Ports for outbound adapters. Every transaction and category call is scoped
// by the owning user's id; a record owned by someone else is ErrNotFound.
type (
	TransactionWriter interface {
		SaveTransaction(ctx context.Context, tx core.Transaction) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	}

	// TransactionLister returns every transaction a user owns, newest first.
	TransactionLister interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// CategoryStore keeps user-defined categories. ListCategories returns only
	// what the user stored; an empty result means the defaults apply.
	CategoryStore interface {
		ListCategories(ctx context.Context, userID string) ([]string, error)
		AddCategory(ctx context.Context, userID, name string) error
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		UserByEmail(ctx context.Context, email string) (core.User, error)
	}

	// Store is everything the API needs from a persistence backend.
	Store interface {
		TransactionWriter
		TransactionReader
		TransactionLister
		TransactionDeleter
		CategoryStore
		UserStore
	}

	// SyncPublisher announces changes for the export worker.
	SyncPublisher interface {
		PublishTransactionSync(ctx context.Context, userID, id string) error
		PublishTransactionDelete(ctx context.Context, userID, id string) error
	}

	// LedgerExporter mirrors transactions into an external spreadsheet.
	LedgerExporter interface {
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		RemoveTransaction(ctx context.Context, id string) error
	}
)
