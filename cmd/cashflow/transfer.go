package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	applog "cashflow/internal/log"
	"cashflow/internal/services"
	"cashflow/internal/sheets/google"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import entries from a CSV file (- reads stdin)",
		Long: `Import entries from a CSV file with the header
date,kind,category,subcategory,description,amount,account,tags

--policy abort stops at the first invalid row; rows before it stay stored.
--policy skip stores every valid row and reports the rest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := services.ParseImportPolicy(policy)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Service.Import(cmd.Context(), in, opts.tenantFor(rt), p)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d, skipped %d\n", res.Imported, res.Skipped)
			for _, re := range res.Errors {
				fmt.Fprintf(out, "  line %d: %v\n", re.Line, re.Err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "abort", "row error policy: abort or skip")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var ff filterFlags
	var toSheets bool

	cmd := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Export entries as CSV to FILE or stdout",
		Long: `Export the entries matching the filter as CSV, most recent first.

With --sheets the same rows replace the configured Google Sheets tab
(GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME).`,
		Args: cobra.MaximumNArgs(1),
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

			if toSheets {
				if !rt.Config.SheetsEnabled() {
					return errors.New("--sheets requires GOOGLE_SPREADSHEET_ID")
				}
				txs, err := rt.Service.List(ctx, f)
				if err != nil {
					return err
				}
				client, err := google.NewFromEnv(ctx)
				if err != nil {
					return err
				}
				ref, err := client.Export(ctx, txs)
				if err != nil {
					rt.Logger.Error("Sheets export failed",
						applog.FieldComponent, applog.ComponentSheets,
						applog.FieldError, err)
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(txs), ref)
				return nil
			}

			var buf bytes.Buffer
			n, err := rt.Service.Export(ctx, &buf, f)
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(args[0], buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", n, args[0])
			return nil
		},
	}

	ff.bind(cmd)
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "export to Google Sheets instead of CSV")
	return cmd
}
