package report

import (
	"context"
	"fmt"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// Engine runs aggregations against the Transaction Store. It keeps no
// state between calls.
type Engine struct {
	repo    storage.Repository
	targets []Target
}

func NewEngine(repo storage.Repository) *Engine {
	return &Engine{repo: repo, targets: DefaultTargets}
}

// WithTargets returns a copy of the engine using targets for advice.
func (e *Engine) WithTargets(targets []Target) *Engine {
	return &Engine{repo: e.repo, targets: targets}
}

func (e *Engine) query(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	txs, err := e.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("report query: %w", err)
	}
	return txs, nil
}

func rangeFilter(from, to core.Date, tenant string) storage.Filter {
	return storage.Filter{DateFrom: from, DateTo: to, TenantID: tenant}
}

// MonthlyCashflow nets income against expenses per month in [from, to].
// Zero dates leave that side of the range open.
func (e *Engine) MonthlyCashflow(ctx context.Context, from, to core.Date, tenant string) ([]CashflowRow, error) {
	txs, err := e.query(ctx, rangeFilter(from, to, tenant))
	if err != nil {
		return nil, err
	}
	return Cashflow(txs), nil
}

// MonthlyBreakdown splits each month in [from, to] into income and expense.
func (e *Engine) MonthlyBreakdown(ctx context.Context, from, to core.Date, tenant string) ([]BreakdownRow, error) {
	txs, err := e.query(ctx, rangeFilter(from, to, tenant))
	if err != nil {
		return nil, err
	}
	return Breakdown(txs), nil
}

// CategorySums sums expenses per category under f. Any kind in f is
// replaced by Expense.
func (e *Engine) CategorySums(ctx context.Context, f storage.Filter) ([]core.CategoryAmount, error) {
	f.Kind = core.KindExpense
	txs, err := e.query(ctx, f)
	if err != nil {
		return nil, err
	}
	return SumByCategory(txs, core.KindExpense), nil
}

// CategorySumsByKind sums kind per category within [from, to].
func (e *Engine) CategorySumsByKind(ctx context.Context, kind core.Kind, from, to core.Date, tenant string) ([]core.CategoryAmount, error) {
	f := rangeFilter(from, to, tenant)
	f.Kind = kind
	txs, err := e.query(ctx, f)
	if err != nil {
		return nil, err
	}
	return SumByCategory(txs, kind), nil
}

// Totals returns income, expense and balance of the transactions matching f.
func (e *Engine) Totals(ctx context.Context, f storage.Filter) (Totals, error) {
	txs, err := e.query(ctx, f)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(txs), nil
}

// Advice compares the last two months of the breakdown over f's date range
// and tenant, and checks category spend from the full query under f.
func (e *Engine) Advice(ctx context.Context, f storage.Filter) (Advice, error) {
	f = f.Normalize()
	rows, err := e.MonthlyBreakdown(ctx, f.DateFrom, f.DateTo, f.TenantID)
	if err != nil {
		return Advice{}, err
	}
	if len(rows) < 2 {
		return Advice{}, nil
	}
	txs, err := e.query(ctx, f)
	if err != nil {
		return Advice{}, err
	}
	return Advise(rows, txs, e.targets), nil
}
