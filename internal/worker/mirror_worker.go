package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pouch/internal/amqp"
	"pouch/internal/sheets"
	"pouch/internal/storage"
)

// MirrorWorker keeps the Google Sheets mirror in step with SQLite. Events
// from AMQP drive the fast path; ProcessPending sweeps up rows whose events
// were lost.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.TransactionWriter
	remover   sheets.TransactionRemover
	batchSize int
}

func NewMirrorWorker(storage *storage.SQLiteRepository, writer sheets.TransactionWriter, remover sheets.TransactionRemover, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		writer:    writer,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors one transaction. The row is re-read from SQLite
// so the mirror always reflects the latest state, not the state at publish
// time.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	t, err := w.storage.GetTransactionByID(ctx, msg.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted between publish and consume; the delete event will follow.
		slog.InfoContext(ctx, "Transaction gone before mirror, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	rowRef, err := w.writer.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction to sheets: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, t.ID, time.Now()); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"id", t.ID,
		"row_ref", rowRef)
	return nil
}

// HandleDeleteMessage removes a transaction's mirror row.
func (w *MirrorWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.remover == nil {
		slog.WarnContext(ctx, "No mirror remover configured, skipping removal", "id", msg.ID)
		return nil
	}

	if err := w.remover.Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove mirror row: %w", err)
	}
	return nil
}

// ProcessPending mirrors up to batchSize unsynced rows and reports how many
// succeeded. Individual failures are logged and left pending for the next
// sweep.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unsynced: %w", err)
	}

	processed := 0
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if _, err := w.writer.Append(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction",
				"id", t.ID, "error", err)
			continue
		}
		if err := w.storage.MarkSynced(ctx, t.ID, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction synced",
				"id", t.ID, "error", err)
			continue
		}
		processed++
	}

	if processed > 0 {
		slog.InfoContext(ctx, "Pending sweep complete",
			"processed", processed,
			"pending", len(pending))
	}
	return processed, nil
}

// RunSweeper runs ProcessPending on a ticker until the context is cancelled.
func (w *MirrorWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}
