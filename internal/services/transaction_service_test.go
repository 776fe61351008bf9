package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"pouch/internal/core"
)

func validTransaction(t *testing.T, walletID int64) core.Transaction {
	t.Helper()
	amount, err := core.ParseMoney("12.34")
	if err != nil {
		t.Fatalf("parse money: %v", err)
	}
	return core.Transaction{
		WalletID:    walletID,
		Amount:      amount,
		Category:    core.CategoryFood,
		Description: "lunch",
		PaidAt:      time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	// nil AMQP client: events are skipped, writes still succeed
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, validWallet("u1", "W"))
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	created, err := svc.CreateTransaction(ctx, "u1", validTransaction(t, w.ID))
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned id")
	}

	got, err := svc.GetTransaction(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Amount.String() != "12.34" || got.Description != "lunch" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCreateTransactionDefaultsPaidAt(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, validWallet("u1", "W"))
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	tx := validTransaction(t, w.ID)
	tx.PaidAt = time.Time{}

	before := time.Now().Add(-time.Second)
	created, err := svc.CreateTransaction(ctx, "u1", tx)
	if err != nil {
		t.Fatalf("create without paidAt: %v", err)
	}
	after := time.Now().Add(time.Second)

	if created.PaidAt.Before(before) || created.PaidAt.After(after) {
		t.Fatalf("paidAt should default to creation time, got %v", created.PaidAt)
	}
}

func TestCreateTransactionChecksOwnership(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, validWallet("u1", "W"))
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	if _, err := svc.CreateTransaction(ctx, "u2", validTransaction(t, w.ID)); !errors.Is(err, core.ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	tx := validTransaction(t, 1)
	tx.Amount = core.ZeroMoney
	if _, err := svc.CreateTransaction(ctx, "u1", tx); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	tx = validTransaction(t, 1)
	tx.Category = "SPACESHIPS"
	if _, err := svc.CreateTransaction(ctx, "u1", tx); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, validWallet("u1", "W"))
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	created, err := svc.CreateTransaction(ctx, "u1", validTransaction(t, w.ID))
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	created.Description = "dinner"
	updated, err := svc.UpdateTransaction(ctx, "u1", created)
	if err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	if updated.Description != "dinner" {
		t.Fatalf("update not applied: %+v", updated)
	}

	// Foreign user cannot touch the row.
	if _, err := svc.UpdateTransaction(ctx, "u2", created); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for foreign update, got %v", err)
	}
	if err := svc.DeleteTransaction(ctx, "u2", created.ID); err == nil {
		t.Fatal("expected foreign delete to fail")
	}

	if err := svc.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if _, err := svc.GetTransaction(ctx, "u1", created.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows after delete, got %v", err)
	}
}

func TestListTransactionsMostRecentFirst(t *testing.T) {
	repo := newTestRepo(t)
	wallets := NewWalletService(repo)
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	w, err := wallets.CreateWallet(ctx, validWallet("u1", "W"))
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	older := validTransaction(t, w.ID)
	older.PaidAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := validTransaction(t, w.ID)
	newer.PaidAt = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)

	if _, err := svc.CreateTransaction(ctx, "u1", older); err != nil {
		t.Fatalf("create older: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, "u1", newer); err != nil {
		t.Fatalf("create newer: %v", err)
	}

	txs, err := svc.ListTransactions(ctx, "u1", w.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txs) != 2 || !txs[0].PaidAt.After(txs[1].PaidAt) {
		t.Fatalf("expected most recent first, got %+v", txs)
	}
}
