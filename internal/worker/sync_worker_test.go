package worker

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/amqp"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/storage"
)

type fakeExporter struct {
	mu        sync.Mutex
	rows      map[string]core.Transaction
	appendErr error
	removeErr error
	removed   []string
}

func newFakeExporter() *fakeExporter {
	return &fakeExporter{rows: map[string]core.Transaction{}}
}

func (f *fakeExporter) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.rows[tx.ID] = tx
	return "Transactions!A" + tx.ID, nil
}

func (f *fakeExporter) RemoveTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.rows, id)
	f.removed = append(f.removed, id)
	return nil
}

func newTestStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func saveTx(t *testing.T, repo *storage.SQLiteRepository, id string) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		ID:        id,
		UserID:    "u1",
		Title:     "Parkir",
		Amount:    decimal.NewFromInt(5000),
		Type:      core.Expense,
		Category:  "Transportation",
		Timestamp: time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC).UnixMilli(),
	}
	if err := repo.SaveTransaction(context.Background(), tx); err != nil {
		t.Fatalf("save: %v", err)
	}
	return tx
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	exp := newFakeExporter()
	w := NewSyncWorker(repo, exp, 10)

	saveTx(t, repo, "t1")
	if err := w.HandleMessage(ctx, amqp.NewSyncMessage("u1", "t1")); err != nil {
		t.Fatalf("handle sync: %v", err)
	}
	if _, ok := exp.rows["t1"]; !ok {
		t.Fatalf("expected row exported")
	}
	if status, _ := repo.SyncStatus(ctx, "t1"); status != storage.SyncSynced {
		t.Fatalf("expected synced status, got %q", status)
	}

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage("u1", "gone")); err != nil {
		t.Fatalf("missing transaction should be skipped, got %v", err)
	}
}

func TestSyncWorker_SyncFailureMarksError(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	exp := newFakeExporter()
	exp.appendErr = errors.New("quota exceeded")
	w := NewSyncWorker(repo, exp, 10)

	saveTx(t, repo, "t1")
	if err := w.HandleSyncMessage(ctx, amqp.NewSyncMessage("u1", "t1")); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
	if status, _ := repo.SyncStatus(ctx, "t1"); status != storage.SyncError {
		t.Fatalf("expected error status, got %q", status)
	}
}

func TestSyncWorker_HandleDeleteMessage(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	exp := newFakeExporter()
	w := NewSyncWorker(repo, exp, 10)

	saveTx(t, repo, "t1")
	if err := w.HandleMessage(ctx, amqp.NewSyncMessage("u1", "t1")); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := w.HandleMessage(ctx, amqp.NewDeleteMessage("u1", "t1")); err != nil {
		t.Fatalf("handle delete: %v", err)
	}
	if _, ok := exp.rows["t1"]; ok {
		t.Fatalf("expected exported row removed")
	}
	if tombs, _ := repo.PendingDeletes(ctx, 10); len(tombs) != 0 {
		t.Fatalf("expected tombstone cleared, got %+v", tombs)
	}

	exp.removeErr = errors.New("sheets down")
	if err := w.HandleDeleteMessage(ctx, amqp.NewDeleteMessage("u1", "t2")); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
}

func TestSyncWorker_UnknownMessageType(t *testing.T) {
	w := NewSyncWorker(newTestStore(t), newFakeExporter(), 10)
	if err := w.HandleMessage(context.Background(), &amqp.TransactionMessage{Type: "rename"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestSyncWorker_ProcessPending(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	exp := newFakeExporter()
	w := NewSyncWorker(repo, exp, 10)

	saveTx(t, repo, "t1")
	saveTx(t, repo, "t2")
	saveTx(t, repo, "t3")
	if err := repo.MarkSynced(ctx, "t3"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t3"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	res, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if res.Synced != 2 || res.Deleted != 1 || res.Failed != 0 {
		t.Fatalf("unexpected sweep result %+v", res)
	}

	res, err = w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res != (SweepResult{}) {
		t.Fatalf("expected nothing left to do, got %+v", res)
	}
}

func TestSyncWorker_ProcessPendingCountsFailures(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t)
	exp := newFakeExporter()
	exp.appendErr = errors.New("quota exceeded")
	w := NewSyncWorker(repo, exp, 10)

	saveTx(t, repo, "t1")
	res, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if res.Failed != 1 || res.Synced != 0 {
		t.Fatalf("unexpected sweep result %+v", res)
	}

	// Errored rows are retried on the next sweep.
	exp.appendErr = nil
	res, _ = w.ProcessPending(ctx)
	if res.Synced != 1 {
		t.Fatalf("expected retry to succeed, got %+v", res)
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	ran := make(chan struct{}, 1)

	s, err := NewScheduler(context.Background(), "@every 1s", logger, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	logger := applog.New(applog.Config{Output: io.Discard})
	if _, err := NewScheduler(context.Background(), "every minute", logger, func(context.Context) {}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
