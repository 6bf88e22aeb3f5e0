package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cashflow/internal/core"
	"cashflow/internal/storage"
	"cashflow/internal/taxonomy"
)

func newCategoriesCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "categories [CATEGORY]",
		Short: "Show the category taxonomy",
		Long: `Without arguments, print every category with its subcategories.
With CATEGORY, print only that category's subcategories.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tax := taxonomy.Default()
			out := cmd.OutOrStdout()

			kinds := core.Kinds()
			if !storage.IsAll(kind) {
				k, err := core.ParseKind(kind)
				if err != nil {
					return err
				}
				kinds = []core.Kind{k}
			}

			if len(args) == 1 {
				var subs []string
				if len(kinds) == 1 {
					subs = tax.Subcategories(args[0], kinds[0])
				} else {
					subs = tax.AnySubcategories(args[0])
				}
				if len(subs) == 0 {
					return fmt.Errorf("unknown category %q", args[0])
				}
				for _, s := range subs {
					fmt.Fprintln(out, s)
				}
				return nil
			}

			for _, k := range kinds {
				fmt.Fprintf(out, "%s\n", k)
				for _, c := range tax.Tree(k) {
					fmt.Fprintf(out, "  %s: %s\n", c.Name, strings.Join(c.Subcategories, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Expense or Income (default both)")
	return cmd
}
