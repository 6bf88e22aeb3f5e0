package main

import (
	"github.com/spf13/cobra"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// filterFlags bind the query filter to command flags.
type filterFlags struct {
	kind        string
	category    string
	subcategory string
	from        string
	to          string
	month       string
	search      string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.kind, "kind", "", "Expense or Income (default any)")
	fl.StringVar(&f.category, "category", "", "category name")
	fl.StringVar(&f.subcategory, "subcategory", "", "subcategory name")
	fl.StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	fl.StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	fl.StringVar(&f.month, "month", "", "calendar month YYYY-MM (overrides --from/--to)")
	fl.StringVarP(&f.search, "search", "q", "", "substring of description, account or tags")
}

func (f *filterFlags) filter(tenant string) (storage.Filter, error) {
	out := storage.Filter{
		Category:    f.category,
		Subcategory: f.subcategory,
		Search:      f.search,
		TenantID:    tenant,
	}
	if !storage.IsAll(f.kind) {
		kind, err := core.ParseKind(f.kind)
		if err != nil {
			return storage.Filter{}, err
		}
		out.Kind = kind
	}
	if f.from != "" {
		d, err := core.ParseDate(f.from)
		if err != nil {
			return storage.Filter{}, err
		}
		out.DateFrom = d
	}
	if f.to != "" {
		d, err := core.ParseDate(f.to)
		if err != nil {
			return storage.Filter{}, err
		}
		out.DateTo = d
	}
	if f.month != "" {
		ym, err := core.ParseYearMonth(f.month)
		if err != nil {
			return storage.Filter{}, err
		}
		out.DateFrom, out.DateTo = ym.First(), ym.Last()
	}
	return out.Normalize(), nil
}
