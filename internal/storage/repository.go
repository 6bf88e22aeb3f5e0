package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cashflow/internal/core"
	applog "cashflow/internal/log"

	_ "modernc.org/sqlite"
)

const selectColumns = `SELECT id, date, kind, category, subcategory, description,
	amount_cents, account, tags, tenant_id FROM transactions`

const insertTransaction = `INSERT INTO transactions
	(date, kind, category, subcategory, description, amount_cents, account, tags, tenant_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteRepository is the file-backed Transaction Store.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent inserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", applog.FieldComponent, applog.ComponentStorage, "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements Repository.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Amount.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, insertTransaction,
		t.Date.String(),
		string(t.Kind),
		t.Category,
		t.Subcategory,
		t.Description,
		t.Amount.Cents,
		t.Account,
		t.Tags,
		t.TenantID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		"id", id,
		"kind", t.Kind,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return id, nil
}

// Query implements Repository.
func (r *SQLiteRepository) Query(ctx context.Context, f Filter) ([]core.Transaction, error) {
	where, args := f.Normalize().Where(DialectSQLite)
	rows, err := r.db.QueryContext(ctx, selectColumns+where+" ORDER BY date DESC, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t    core.Transaction
			date string
			kind string
		)
		if err := rows.Scan(&t.ID, &date, &kind, &t.Category, &t.Subcategory,
			&t.Description, &t.Amount.Cents, &t.Account, &t.Tags, &t.TenantID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d has malformed date %q: %w", t.ID, date, err)
		}
		t.Kind = core.Kind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

var _ Repository = (*SQLiteRepository)(nil)
