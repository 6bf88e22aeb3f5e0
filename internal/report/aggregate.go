// Package report turns transaction lists into summaries: monthly cash-flow,
// monthly income/expense breakdown, category sums, totals and budget advice.
//
// The functions in this file are pure. Engine wraps them with repository
// queries so every call reflects persisted state.
package report

import (
	"sort"

	"cashflow/internal/core"
)

// CashflowRow is the net amount of one month.
type CashflowRow struct {
	Month core.YearMonth `json:"month"`
	Label string         `json:"label"`
	Net   core.Money     `json:"net"`
}

// BreakdownRow splits one month into income and expense.
type BreakdownRow struct {
	Month   core.YearMonth `json:"month"`
	Label   string         `json:"label"`
	Income  core.Money     `json:"income"`
	Expense core.Money     `json:"expense"`
	Balance core.Money     `json:"balance"`
}

// Totals are the overview metrics of a filtered list.
type Totals struct {
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Balance core.Money `json:"balance"`
	Count   int        `json:"count"`
}

// Cashflow groups txs by month, adding income and subtracting expenses.
// Only months with at least one transaction appear, oldest first.
func Cashflow(txs []core.Transaction) []CashflowRow {
	rows := Breakdown(txs)
	out := make([]CashflowRow, len(rows))
	for i, r := range rows {
		out[i] = CashflowRow{Month: r.Month, Label: r.Label, Net: r.Balance}
	}
	return out
}

// Breakdown groups txs by month with separate income and expense sums.
func Breakdown(txs []core.Transaction) []BreakdownRow {
	byMonth := make(map[core.YearMonth]*BreakdownRow)
	for _, t := range txs {
		ym := t.Date.YearMonth()
		row, ok := byMonth[ym]
		if !ok {
			row = &BreakdownRow{Month: ym, Label: ym.Label()}
			byMonth[ym] = row
		}
		switch t.Kind {
		case core.KindIncome:
			row.Income = row.Income.Add(t.Amount)
		case core.KindExpense:
			row.Expense = row.Expense.Add(t.Amount)
		}
	}

	out := make([]BreakdownRow, 0, len(byMonth))
	for _, row := range byMonth {
		row.Balance = row.Income.Sub(row.Expense)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// SumByCategory sums the amounts of kind per category, largest first.
// Equal sums are ordered by category name.
func SumByCategory(txs []core.Transaction, kind core.Kind) []core.CategoryAmount {
	sums := make(map[string]int64)
	for _, t := range txs {
		if t.Kind == kind {
			sums[t.Category] += t.Amount.Cents
		}
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ComputeTotals sums income and expense over txs.
func ComputeTotals(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Kind {
		case core.KindIncome:
			t.Income = t.Income.Add(tx.Amount)
		case core.KindExpense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	t.Count = len(txs)
	return t
}

// InMonth keeps the transactions dated within ym.
func InMonth(txs []core.Transaction, ym core.YearMonth) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.YearMonth() == ym {
			out = append(out, t)
		}
	}
	return out
}
