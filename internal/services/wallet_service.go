package services

import (
	"context"
	"fmt"

	"pouch/internal/core"
	"pouch/internal/storage"
)

// WalletService owns wallet lifecycle rules on top of the repository.
type WalletService struct {
	storage *storage.SQLiteRepository
}

func NewWalletService(storage *storage.SQLiteRepository) *WalletService {
	return &WalletService{storage: storage}
}

// CreateWallet validates and inserts a wallet. A sub-wallet's parent must be
// an existing top-level wallet of the same user; the hierarchy never goes
// deeper than one level.
func (s *WalletService) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	if w.SpendingPeriod == "" {
		w.SpendingPeriod = core.PeriodMonth
	}
	if err := w.Validate(); err != nil {
		return core.Wallet{}, err
	}

	if w.SubWalletOf != nil {
		parent, err := s.storage.GetWallet(ctx, w.UserID, *w.SubWalletOf)
		if err != nil {
			return core.Wallet{}, err
		}
		if parent.IsSubWallet() {
			return core.Wallet{}, core.ErrNestedSubWallet
		}
	}

	created, err := s.storage.CreateWallet(ctx, w)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return created, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userID string, id int64) (core.Wallet, error) {
	return s.storage.GetWallet(ctx, userID, id)
}

// ListWallets returns the user's top-level wallets in display order.
func (s *WalletService) ListWallets(ctx context.Context, userID string) ([]core.Wallet, error) {
	return s.storage.ListWallets(ctx, userID)
}

func (s *WalletService) ListSubWallets(ctx context.Context, userID string, parentID int64) ([]core.Wallet, error) {
	return s.storage.ListSubWallets(ctx, userID, parentID)
}

// UpdateWallet applies editable fields onto the stored wallet. Ownership and
// the parent link are immutable.
func (s *WalletService) UpdateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	current, err := s.storage.GetWallet(ctx, w.UserID, w.ID)
	if err != nil {
		return core.Wallet{}, err
	}
	current.Name = w.Name
	current.Currency = w.Currency
	current.Country = w.Country
	current.SpendingPeriod = w.SpendingPeriod
	current.ArchivedAt = w.ArchivedAt
	if err := current.Validate(); err != nil {
		return core.Wallet{}, err
	}
	return s.storage.UpdateWallet(ctx, current)
}

// DeleteWallet soft-deletes the wallet, its sub-wallets and their
// transactions.
func (s *WalletService) DeleteWallet(ctx context.Context, userID string, id int64) error {
	return s.storage.DeleteWallet(ctx, userID, id)
}
