package storage

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
)

//go:embed postgres_schema.sql
var postgresSchema string

// PostgresRepository is the Transaction Store for shared multi-tenant
// deployments.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to url and applies the schema.
func NewPostgresRepository(ctx context.Context, url string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Insert(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Amount.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO transactions
			(date, kind, category, subcategory, description, amount_cents, account, tags, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		t.Date.Time, string(t.Kind), t.Category, t.Subcategory, t.Description,
		t.Amount.Cents, t.Account, t.Tags, t.TenantID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to Postgres",
		applog.FieldComponent, applog.ComponentStorage,
		"id", id,
		"tenant_id", t.TenantID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents)
	return id, nil
}

func (r *PostgresRepository) Query(ctx context.Context, f Filter) ([]core.Transaction, error) {
	where, args := f.Normalize().Where(DialectPostgres)
	rows, err := r.pool.Query(ctx, selectColumns+where+" ORDER BY date DESC, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t    core.Transaction
			date time.Time
			kind string
		)
		if err := rows.Scan(&t.ID, &date, &kind, &t.Category, &t.Subcategory,
			&t.Description, &t.Amount.Cents, &t.Account, &t.Tags, &t.TenantID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = core.DateOf(date)
		t.Kind = core.Kind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
