//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
)

// Integration tests require a reachable Postgres database.
// Run with: POSTGRES_URL=postgres://... go test -tags=integration ./internal/storage

// newPostgresRepo connects to POSTGRES_URL and returns a tenant unique to the
// test so rows from other runs never match.
func newPostgresRepo(t *testing.T) (*PostgresRepository, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}
	repo, err := NewPostgresRepository(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, "it-" + uuid.NewString()
}

func TestIntegration_PostgresInsertAndQuery(t *testing.T) {
	repo, tenant := newPostgresRepo(t)
	ctx := context.Background()

	insert := func(tr core.Transaction) int64 {
		tr.TenantID = tenant
		id, err := repo.Insert(ctx, tr)
		require.NoError(t, err)
		return id
	}
	id1 := insert(tx(core.NewDate(2025, 1, 10), core.KindIncome, "Salary", "Salary", "January pay", 500000))
	id2 := insert(tx(core.NewDate(2025, 1, 12), core.KindExpense, "Food", "Supermarket", "Groceries", 12345))
	id3 := insert(tx(core.NewDate(2025, 1, 12), core.KindExpense, "Housing", "Rent", "Rent 50%", 150000))
	assert.True(t, id1 < id2 && id2 < id3)

	all, err := repo.Query(ctx, Filter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{id3, id2, id1}, []int64{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "2025-01-12", all[0].Date.String())
	assert.Equal(t, core.KindExpense, all[0].Kind)
	assert.Equal(t, int64(150000), all[0].Amount.Cents)
	assert.Equal(t, tenant, all[0].TenantID)

	expenses, err := repo.Query(ctx, Filter{TenantID: tenant, Kind: core.KindExpense, Category: "Food"})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Groceries", expenses[0].Description)

	t.Run("search is a case-sensitive literal", func(t *testing.T) {
		got, err := repo.Query(ctx, Filter{TenantID: tenant, Search: "groceries"})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = repo.Query(ctx, Filter{TenantID: tenant, Search: "Grocer"})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = repo.Query(ctx, Filter{TenantID: tenant, Search: "%"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		got, err := repo.Query(ctx, Filter{TenantID: tenant, DateFrom: core.NewDate(2025, 1, 10), DateTo: core.NewDate(2025, 1, 11)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, id1, got[0].ID)
	})

	t.Run("no match is empty", func(t *testing.T) {
		got, err := repo.Query(ctx, Filter{TenantID: tenant, Category: "Nope"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestIntegration_PostgresRejectsNonPositiveAmount(t *testing.T) {
	repo, tenant := newPostgresRepo(t)
	ctx := context.Background()

	bad := tx(core.NewDate(2025, 1, 1), core.KindExpense, "Food", "Bakery", "", 0)
	bad.TenantID = tenant
	_, err := repo.Insert(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	got, err := repo.Query(ctx, Filter{TenantID: tenant})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntegration_PostgresTenantIsolation(t *testing.T) {
	repo, tenant := newPostgresRepo(t)
	ctx := context.Background()
	other := tenant + "-other"

	a := tx(core.NewDate(2025, 1, 1), core.KindExpense, "Food", "Bakery", "a", 100)
	a.TenantID = tenant
	b := a
	b.TenantID = other
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, b)
	require.NoError(t, err)

	got, err := repo.Query(ctx, Filter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tenant, got[0].TenantID)
	assert.NoError(t, repo.Ping(ctx))
}
