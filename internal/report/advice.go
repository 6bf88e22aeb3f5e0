package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusInfo    Status = "info"
)

// Target is a recommended ceiling for a category, as a whole percentage of
// the month's income.
type Target struct {
	Category string `json:"category"`
	Percent  int64  `json:"percent"`
}

// SavingsTarget is the minimum share of income the balance should reach.
const SavingsTarget int64 = 20

// DefaultTargets are evaluated in this order.
var DefaultTargets = []Target{
	{Category: "Housing", Percent: 30},
	{Category: "Food", Percent: 15},
	{Category: "Transport", Percent: 15},
	{Category: "Leisure", Percent: 10},
	{Category: "Debt/Credit", Percent: 20},
}

// ParseTargets reads "Category=Percent" pairs separated by commas, e.g.
// "Housing=35,Food=12". An empty string yields DefaultTargets.
func ParseTargets(s string) ([]Target, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultTargets, nil
	}
	var out []Target
	seen := make(map[string]bool)
	for _, pair := range strings.Split(s, ",") {
		name, pct, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid budget target %q: want Category=Percent", strings.TrimSpace(pair))
		}
		n, err := strconv.ParseInt(strings.TrimSpace(pct), 10, 64)
		if err != nil || n < 1 || n > 100 {
			return nil, fmt.Errorf("invalid budget target %q: percent must be 1-100", strings.TrimSpace(pair))
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate budget target %q", name)
		}
		seen[name] = true
		out = append(out, Target{Category: name, Percent: n})
	}
	return out, nil
}

// Change compares one metric between the two latest months.
type Change struct {
	Metric   string     `json:"metric"`
	Current  core.Money `json:"current"`
	Previous core.Money `json:"previous"`
	Percent  float64    `json:"percent"`
}

// Rule is the outcome of one budget check.
type Rule struct {
	Name          string  `json:"name"`
	Status        Status  `json:"status"`
	SharePercent  float64 `json:"share_percent"`
	TargetPercent int64   `json:"target_percent"`
	Message       string  `json:"message"`
}

// Advice is the month-over-month comparison plus budget rules for the
// latest month of a breakdown.
type Advice struct {
	Available  bool          `json:"available"`
	Current    *BreakdownRow `json:"current,omitempty"`
	Previous   *BreakdownRow `json:"previous,omitempty"`
	Changes    []Change      `json:"changes,omitempty"`
	Savings    *Rule         `json:"savings,omitempty"`
	Categories []Rule        `json:"categories,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// Alerts returns the rules that did not pass.
func (a Advice) Alerts() []Rule {
	var out []Rule
	if a.Savings != nil && a.Savings.Status != StatusOK {
		out = append(out, *a.Savings)
	}
	for _, r := range a.Categories {
		if r.Status != StatusOK {
			out = append(out, r)
		}
	}
	return out
}

// Advise evaluates the last two months of rows. txs is the transaction list
// the breakdown was built from; only its entries in the latest month count
// toward category spend. Fewer than two months yields Available=false.
func Advise(rows []BreakdownRow, txs []core.Transaction, targets []Target) Advice {
	if len(rows) < 2 {
		return Advice{}
	}
	curr, prev := rows[len(rows)-1], rows[len(rows)-2]
	adv := Advice{
		Available: true,
		Current:   &curr,
		Previous:  &prev,
		Changes: []Change{
			{Metric: "income", Current: curr.Income, Previous: prev.Income, Percent: percentChange(curr.Income, prev.Income)},
			{Metric: "expense", Current: curr.Expense, Previous: prev.Expense, Percent: percentChange(curr.Expense, prev.Expense)},
			{Metric: "balance", Current: curr.Balance, Previous: prev.Balance, Percent: percentChange(curr.Balance, prev.Balance)},
		},
	}

	income := curr.Income.Cents
	savings := Rule{Name: "savings", TargetPercent: SavingsTarget}
	if income > 0 {
		savings.SharePercent = share(curr.Balance.Cents, income)
		if curr.Balance.Cents*100 >= income*SavingsTarget {
			savings.Status = StatusOK
			savings.Message = fmt.Sprintf("saving %.1f%% of income (target: %d%%)", savings.SharePercent, SavingsTarget)
		} else {
			savings.Status = StatusWarning
			savings.Message = fmt.Sprintf("saving %.1f%% of income, below the recommended %d%%", savings.SharePercent, SavingsTarget)
		}
	} else {
		savings.Status = StatusInfo
		savings.Message = "no income this month to evaluate savings"
	}
	adv.Savings = &savings

	spend := make(map[string]int64)
	for _, s := range SumByCategory(InMonth(txs, curr.Month), core.KindExpense) {
		spend[s.Name] = s.Amount.Cents
	}
	for _, tg := range targets {
		r := Rule{Name: tg.Category, TargetPercent: tg.Percent}
		val := spend[tg.Category]
		switch {
		case income <= 0:
			r.Status = StatusInfo
			r.Message = "no income this month, cannot evaluate"
		case val*100 <= income*tg.Percent:
			r.SharePercent = share(val, income)
			r.Status = StatusOK
			r.Message = fmt.Sprintf("%.1f%% of income (target <= %d%%)", r.SharePercent, tg.Percent)
		default:
			r.SharePercent = share(val, income)
			r.Status = StatusWarning
			r.Message = fmt.Sprintf("%.1f%% of income, above the recommended %d%%", r.SharePercent, tg.Percent)
		}
		adv.Categories = append(adv.Categories, r)
	}

	if income <= 0 && curr.Expense.Cents > 0 {
		adv.Warnings = append(adv.Warnings, "there are expenses but no income recorded in the current month")
	}
	return adv
}

// percentChange is (curr-prev)/|prev| as a percentage rounded to one
// decimal, or 0 when prev is zero.
func percentChange(curr, prev core.Money) float64 {
	if prev.Cents == 0 {
		return 0
	}
	diff := decimal.NewFromInt(curr.Cents - prev.Cents)
	base := decimal.NewFromInt(prev.Cents).Abs()
	return diff.Div(base).Shift(2).Round(1).InexactFloat64()
}

func share(part, whole int64) float64 {
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(whole)).Shift(2).Round(1).InexactFloat64()
}
