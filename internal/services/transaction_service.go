package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pouch/internal/amqp"
	"pouch/internal/core"
	"pouch/internal/storage"
)

// TransactionService orchestrates transaction writes across SQLite and AMQP.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateTransaction saves a transaction locally and publishes a sync event.
// The event is best-effort; a broker outage never fails the request.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	// paidAt is caller-supplied, defaulting to creation time.
	if t.PaidAt.IsZero() {
		t.PaidAt = time.Now()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	// Ownership check before the insert.
	if _, err := s.storage.GetWallet(ctx, userID, t.WalletID); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishSync(ctx, created.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", created.ID, "error", err)
		// Don't fail the request, the transaction is saved locally.
	}

	return created, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, userID string, id int64) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context, userID string, walletID int64) ([]core.Transaction, error) {
	if _, err := s.storage.GetWallet(ctx, userID, walletID); err != nil {
		return nil, err
	}
	return s.storage.ListTransactions(ctx, userID, walletID)
}

// UpdateTransaction applies editable fields and re-queues the row for
// mirroring.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.storage.UpdateTransaction(ctx, userID, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	if err := s.publishSync(ctx, updated.ID, 2); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", updated.ID, "error", err)
	}

	return updated, nil
}

// DeleteTransaction soft-deletes locally and publishes a delete event.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID string, id int64) error {
	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
	}

	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishTransactionSync(ctx, id, version)
}

func (s *TransactionService) publishDelete(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishTransactionDelete(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
