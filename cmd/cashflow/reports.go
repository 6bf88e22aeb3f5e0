package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cashflow/internal/core"
	"cashflow/internal/report"
)

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals, the monthly breakdown and expense by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			f, err := ff.filter(opts.tenantFor(rt))
			if err != nil {
				return err
			}
			totals, err := rt.Engine.Totals(ctx, f)
			if err != nil {
				return err
			}
			months, err := rt.Engine.MonthlyBreakdown(ctx, f.DateFrom, f.DateTo, f.TenantID)
			if err != nil {
				return err
			}
			cats, err := rt.Engine.CategorySums(ctx, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printTotals(out, totals)
			printBreakdown(out, months)
			printCategories(out, cats)
			return nil
		},
	}

	ff.bind(cmd)
	return cmd
}

func newAdviseCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Compare the last two months and check budget targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := ff.filter(opts.tenantFor(rt))
			if err != nil {
				return err
			}
			adv, err := rt.Engine.Advice(cmd.Context(), f)
			if err != nil {
				return err
			}
			printAdvice(cmd.OutOrStdout(), adv)
			return nil
		},
	}

	ff.bind(cmd)
	return cmd
}

func printTotals(w io.Writer, t report.Totals) {
	fmt.Fprintf(w, "Entries: %d\nIncome:  %s\nExpense: %s\nBalance: %s\n\n",
		t.Count, t.Income.Human(), t.Expense.Human(), t.Balance.Human())
}

func printBreakdown(w io.Writer, rows []report.BreakdownRow) {
	if len(rows) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tBALANCE\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.Label, r.Income.Human(), r.Expense.Human(), r.Balance.Human())
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printCategories(w io.Writer, cats []core.CategoryAmount) {
	if len(cats) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tEXPENSE")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount.Human())
	}
	tw.Flush()
}

func printAdvice(w io.Writer, adv report.Advice) {
	if !adv.Available {
		fmt.Fprintln(w, "Not enough data: advice needs at least two months with entries.")
		return
	}
	fmt.Fprintf(w, "%s compared with %s\n", adv.Current.Label, adv.Previous.Label)
	for _, c := range adv.Changes {
		fmt.Fprintf(w, "  %-8s %12s -> %12s  (%+.1f%%)\n",
			c.Metric, c.Previous.Human(), c.Current.Human(), c.Percent)
	}
	fmt.Fprintln(w)
	if adv.Savings != nil {
		fmt.Fprintf(w, "[%s] %s\n", adv.Savings.Status, adv.Savings.Message)
	}
	for _, r := range adv.Categories {
		fmt.Fprintf(w, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
	}
	for _, msg := range adv.Warnings {
		fmt.Fprintf(w, "[warning] %s\n", msg)
	}
}
