package storage

import (
	"context"
	"sort"

	"cashflow/internal/core"
)

// Repository is the Transaction Store. Implementations never cache: every
// Query reads persisted state.
type Repository interface {
	// Insert persists t under a freshly assigned identifier. Non-positive
	// amounts are rejected with a core.ValidationError.
	Insert(ctx context.Context, t core.Transaction) (int64, error)

	// Query returns every transaction matching f, most recent first.
	// No match yields an empty slice, not an error.
	Query(ctx context.Context, f Filter) ([]core.Transaction, error)

	Ping(ctx context.Context) error
	Close() error
}

// SortRecentFirst orders by date descending, then identifier descending.
func SortRecentFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].ID > txs[j].ID
	})
}
