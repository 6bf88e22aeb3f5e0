package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/services"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var in services.NewTransaction

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or expense entry",
		Example: `  cashflow add --kind expense --category Food --subcategory Bakery --amount 3.50
  cashflow add --kind income --category Salary --subcategory Salary --amount 2500 --date 2025-01-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if in.Date == "" {
				in.Date = core.DateOf(time.Now()).String()
			}
			in.TenantID = opts.tenantFor(rt)

			t, err := rt.Service.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			rt.Logger.Debug("Transaction recorded", applog.FieldTxID, t.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded #%d: %s %s/%s %s\n",
				t.ID, t.Kind, t.Category, t.Subcategory, t.Amount.Human())
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&in.Date, "date", "", "date YYYY-MM-DD (default today)")
	fl.StringVar(&in.Kind, "kind", "", "Expense or Income")
	fl.StringVar(&in.Category, "category", "", "category name")
	fl.StringVar(&in.Subcategory, "subcategory", "", "subcategory name")
	fl.StringVar(&in.Amount, "amount", "", "positive amount, e.g. 12.50")
	fl.StringVar(&in.Description, "description", "", "free text")
	fl.StringVar(&in.Account, "account", "", "account or payment method")
	fl.StringVar(&in.Tags, "tags", "", "comma separated tags")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("subcategory")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
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
			txs, err := rt.Service.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			return printTransactions(cmd.OutOrStdout(), txs)
		},
	}

	ff.bind(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many entries (0 = all)")
	return cmd
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tKIND\tCATEGORY\tSUBCATEGORY\tAMOUNT\tDESCRIPTION\tACCOUNT\tTAGS")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Kind, t.Category, t.Subcategory,
			signed(t), t.Description, t.Account, t.Tags)
	}
	return tw.Flush()
}

func signed(t core.Transaction) string {
	if t.Kind == core.KindExpense {
		return "-" + t.Amount.Human()
	}
	return t.Amount.Human()
}
