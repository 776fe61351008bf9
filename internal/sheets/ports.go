package sheets

import (
	"context"

	"pouch/internal/core"
)

// Ports for the mirror adapters.
type (
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionRemover interface {
		Remove(ctx context.Context, id int64) error
	}
)
