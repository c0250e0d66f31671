package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/ports"
	"dompet/internal/storage"
)

// SyncStore is the slice of the SQLite repository the worker reads and marks.
type SyncStore interface {
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	PendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
	PendingDeletes(ctx context.Context, limit int) ([]storage.Tombstone, error)
	MarkDeleteSynced(ctx context.Context, id string) error
}

var _ SyncStore = (*storage.SQLiteRepository)(nil)

// SyncWorker mirrors transactions from SQLite into the ledger export.
type SyncWorker struct {
	store     SyncStore
	exporter  ports.LedgerExporter
	batchSize int
}

// SweepResult counts what one pass over pending rows did.
type SweepResult struct {
	Synced  int
	Deleted int
	Failed  int
}

func NewSyncWorker(store SyncStore, exporter ports.LedgerExporter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches a queue message by type.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	switch msg.Type {
	case amqp.MessageSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.MessageDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// HandleSyncMessage exports the transaction named by msg. A transaction deleted
// before the message arrived is skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "transaction_id", msg.TransactionID)

	tx, err := w.store.GetTransaction(ctx, msg.UserID, msg.TransactionID)
	if errors.Is(err, ports.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, skipping sync", "transaction_id", msg.TransactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.syncTransaction(ctx, tx)
}

// HandleDeleteMessage removes the exported row for msg.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "transaction_id", msg.TransactionID)
	return w.removeTransaction(ctx, msg.TransactionID)
}

// ProcessPending exports rows that are still pending or errored and removes
// rows for tombstoned transactions. It is the backstop for lost messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	pending, err := w.store.PendingSync(ctx, w.batchSize)
	if err != nil {
		return res, fmt.Errorf("get pending transactions: %w", err)
	}
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.syncTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "transaction_id", tx.ID, "error", err)
			res.Failed++
			continue
		}
		res.Synced++
	}

	tombstones, err := w.store.PendingDeletes(ctx, w.batchSize)
	if err != nil {
		return res, fmt.Errorf("get pending deletes: %w", err)
	}
	for _, t := range tombstones {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := w.removeTransaction(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to remove exported row", "transaction_id", t.ID, "error", err)
			res.Failed++
			continue
		}
		res.Deleted++
	}

	if res != (SweepResult{}) {
		slog.InfoContext(ctx, "Pending sweep completed",
			"synced", res.Synced,
			"deleted", res.Deleted,
			"failed", res.Failed)
	}
	return res, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.AppendTransaction(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// The row is exported; a failed mark only means the sweep appends again,
	// which the exporter dedupes by id.
	if err := w.store.MarkSynced(ctx, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"type", tx.Type,
		"amount", tx.Amount.String())
	return nil
}

func (w *SyncWorker) removeTransaction(ctx context.Context, id string) error {
	if err := w.exporter.RemoveTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete from sheets: %w", err)
	}
	if err := w.store.MarkDeleteSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to clear tombstone", "transaction_id", id, "error", err)
	}
	slog.InfoContext(ctx, "Successfully removed exported transaction", "transaction_id", id)
	return nil
}
