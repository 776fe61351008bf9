package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryAccommodation Category = "ACCOMMODATION"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryFitness       Category = "FITNESS"
	CategoryFood          Category = "FOOD"
	CategoryGames         Category = "GAMES"
	CategoryGifts         Category = "GIFTS"
	CategoryGrooming      Category = "GROOMING"
	CategoryHobbies       Category = "HOBBIES"
	CategoryInsurance     Category = "INSURANCE"
	CategoryMedical       Category = "MEDICAL"
	CategoryOthers        Category = "OTHERS"
	CategoryPet           Category = "PET"
	CategoryShopping      Category = "SHOPPING"
	CategoryTransfers     Category = "TRANSFERS"
	CategoryTransport     Category = "TRANSPORT"
	CategoryTravel        Category = "TRAVEL"
	CategoryUtilities     Category = "UTILITIES"
	CategoryWork          Category = "WORK"
)

type (
	// Category is a closed enumeration of transaction tags.
	Category string

	// Wallet is a spending account owned by a user. A wallet whose
	// SubWalletOf is non-nil is a sub-wallet of a top-level wallet;
	// nesting never goes deeper than one level.
	Wallet struct {
		ID             int64      `json:"id"`
		UserID         string     `json:"userId"`
		Name           string     `json:"name"`
		Currency       string     `json:"currency"`
		Country        string     `json:"country"`
		SpendingPeriod PeriodUnit `json:"spendingPeriod"`
		OrderIndex     int        `json:"orderIndex"`
		ArchivedAt     *time.Time `json:"archivedAt"`
		SubWalletOf    *int64     `json:"subWalletOf"`
		CreatedAt      time.Time  `json:"createdAt"`
		UpdatedAt      *time.Time `json:"updatedAt"`
		DeletedAt      *time.Time `json:"deletedAt"`
	}

	// Transaction is a single spend recorded against a wallet.
	Transaction struct {
		ID             int64      `json:"id"`
		WalletID       int64      `json:"walletId"`
		Amount         Money      `json:"amount"`
		Category       Category   `json:"category"`
		Description    string     `json:"description"`
		PaidAt         time.Time  `json:"paidAt"`
		SubscriptionID *int64     `json:"subscriptionId"`
		CreatedAt      time.Time  `json:"createdAt"`
		UpdatedAt      *time.Time `json:"updatedAt"`
		DeletedAt      *time.Time `json:"deletedAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrInvalidCountry   = errors.New("invalid country code")
	ErrEmptyName        = errors.New("empty wallet name")
	ErrEmptyDescription = errors.New("empty description")
	ErrNestedSubWallet  = errors.New("parent wallet is itself a sub-wallet")
	ErrWalletNotFound   = errors.New("wallet not found")
)

var categories = map[Category]struct{}{
	CategoryAccommodation: {},
	CategoryEntertainment: {},
	CategoryFitness:       {},
	CategoryFood:          {},
	CategoryGames:         {},
	CategoryGifts:         {},
	CategoryGrooming:      {},
	CategoryHobbies:       {},
	CategoryInsurance:     {},
	CategoryMedical:       {},
	CategoryOthers:        {},
	CategoryPet:           {},
	CategoryShopping:      {},
	CategoryTransfers:     {},
	CategoryTransport:     {},
	CategoryTravel:        {},
	CategoryUtilities:     {},
	CategoryWork:          {},
}

// ParseCategory validates a wire value against the closed category set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := categories[c]; !ok {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// IsSubWallet reports whether the wallet belongs to a top-level parent.
func (w Wallet) IsSubWallet() bool {
	return w.SubWalletOf != nil
}

func (w Wallet) Validate() error {
	if len(strings.TrimSpace(w.Name)) == 0 {
		return ErrEmptyName
	}
	if len(w.Name) > 50 {
		return errors.New("wallet name too long (max 50 characters)")
	}
	if len(w.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if len(w.Country) != 2 {
		return ErrInvalidCountry
	}
	if _, err := ParsePeriodUnit(string(w.SpendingPeriod)); err != nil {
		return err
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if _, ok := categories[t.Category]; !ok {
		return ErrInvalidCategory
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	if t.PaidAt.IsZero() {
		return errors.New("paidAt cannot be zero")
	}
	return nil
}
