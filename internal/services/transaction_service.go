package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cashflow/internal/core"
	"cashflow/internal/storage"
	"cashflow/internal/taxonomy"
	"cashflow/internal/transfer"
)

// EventPublisher announces stored transactions. The amqp client implements it.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
}

// NewTransaction is the raw input of a manual entry.
type NewTransaction struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Account     string `json:"account"`
	Tags        string `json:"tags"`
	TenantID    string `json:"-"`
}

type ImportPolicy int

const (
	// AbortOnError stops at the first invalid row. Rows before it stay stored.
	AbortOnError ImportPolicy = iota
	// SkipInvalid stores every valid row and reports the rest.
	SkipInvalid
)

// ParseImportPolicy maps "abort" and "skip" to a policy. Empty means abort.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortOnError, nil
	case "skip":
		return SkipInvalid, nil
	}
	return 0, &core.ValidationError{Field: "policy", Err: fmt.Errorf("unknown import policy %q", s)}
}

type ImportResult struct {
	Imported int                 `json:"imported"`
	Skipped  int                 `json:"skipped"`
	Errors   []transfer.RowError `json:"errors"`
}

// TransactionService orchestrates validation, storage and event publishing.
type TransactionService struct {
	repo      storage.Repository
	taxonomy  *taxonomy.Taxonomy
	publisher EventPublisher
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(repo storage.Repository, tax *taxonomy.Taxonomy, publisher EventPublisher) *TransactionService {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &TransactionService{
		repo:      repo,
		taxonomy:  tax,
		publisher: publisher,
	}
}

// Parse converts raw input into a transaction that passed every check a
// manual entry must pass, including taxonomy membership.
func (s *TransactionService) Parse(in NewTransaction) (core.Transaction, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:        date,
		Kind:        kind,
		Category:    strings.TrimSpace(in.Category),
		Subcategory: strings.TrimSpace(in.Subcategory),
		Description: sanitize(in.Description),
		Account:     sanitize(in.Account),
		Tags:        sanitize(in.Tags),
		TenantID:    strings.TrimSpace(in.TenantID),
	}
	if t.Category == "" {
		return core.Transaction{}, &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if t.Subcategory == "" {
		return core.Transaction{}, &core.ValidationError{Field: "subcategory", Err: core.ErrEmptySubcategory}
	}
	if err := s.taxonomy.Check(kind, t.Category, t.Subcategory); err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = core.ParseMoney(in.Amount); err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Create validates and stores a manual entry, then publishes
// transaction.created. A failed publish is logged and does not fail the call.
// The stored transaction is returned with its ID set.
func (s *TransactionService) Create(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	t, err := s.Parse(in)
	if err != nil {
		return core.Transaction{}, err
	}
	id, err := s.repo.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id
	s.publish(ctx, t)
	return t, nil
}

// Import stores the rows of a CSV document. Header problems reject the whole
// file; row problems are handled according to policy.
func (s *TransactionService) Import(ctx context.Context, r io.Reader, tenant string, policy ImportPolicy) (ImportResult, error) {
	res := ImportResult{Errors: []transfer.RowError{}}
	cr, err := transfer.NewReader(r)
	if err != nil {
		return res, err
	}
	for {
		row, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if row.Err != nil {
			rowErr := transfer.RowError{Line: row.Line, Err: row.Err}
			res.Errors = append(res.Errors, rowErr)
			if policy == AbortOnError {
				return res, rowErr
			}
			res.Skipped++
			continue
		}

		t := row.Transaction
		t.TenantID = tenant
		id, err := s.repo.Insert(ctx, t)
		if err != nil {
			return res, fmt.Errorf("line %d: save transaction: %w", row.Line, err)
		}
		t.ID = id
		res.Imported++
		s.publish(ctx, t)
	}

	slog.InfoContext(ctx, "CSV import finished",
		"tenant_id", tenant,
		"imported", res.Imported,
		"skipped", res.Skipped)
	return res, nil
}

// Export writes the transactions matching f as CSV, most recent first.
func (s *TransactionService) Export(ctx context.Context, w io.Writer, f storage.Filter) (int, error) {
	txs, err := s.List(ctx, f)
	if err != nil {
		return 0, err
	}
	if err := transfer.Write(w, txs); err != nil {
		return 0, fmt.Errorf("export csv: %w", err)
	}
	return len(txs), nil
}

// List returns the transactions matching f, most recent first.
func (s *TransactionService) List(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	txs, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) publish(ctx context.Context, t core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping transaction.created", "id", t.ID)
		return
	}
	if err := s.publisher.PublishTransactionCreated(ctx, t); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction.created",
			"id", t.ID, "error", err)
	}
}

// Close releases the store.
func (s *TransactionService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close transaction service: %w", err)
	}
	return nil
}

// sanitize trims free text and drops control characters.
func sanitize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s))
}
