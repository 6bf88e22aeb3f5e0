package main

import (
	"os"

	"github.com/spf13/cobra"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	tenant string
	debug  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cashflow",
		Short: "Track income and expenses and get budget advice",
		Long: `cashflow records income and expense entries tagged with a category,
subcategory, account and free-text tags, and summarises them as totals,
monthly cash-flow, category breakdowns and budget advice.

Configuration is read from the environment (and a .env file when present):
DATA_BACKEND selects memory, sqlite or postgres storage.

Example:
  cashflow add --kind expense --category Food --subcategory Bakery --amount 3.50
  cashflow summary --from 2025-01-01
  cashflow serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant identifier (default DEFAULT_TENANT)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newSummaryCmd(opts),
		newAdviseCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newCategoriesCmd(),
	)
	return root
}

// bootstrap opens the runtime for cmd. Logs go to stderr so that command
// output on stdout stays clean.
func (o *rootOptions) bootstrap(cmd *cobra.Command) (*cli.Runtime, error) {
	rt, err := cli.Bootstrap(cmd.Context(), cli.Options{Debug: o.debug, LogOutput: os.Stderr})
	if err != nil {
		return nil, err
	}
	rt.Logger.WithComponent(applog.ComponentCLI).Debug("Command started",
		"command", cmd.CommandPath(), "backend", rt.Config.DataBackend)
	return rt, nil
}

// tenantFor resolves --tenant against the configured default.
func (o *rootOptions) tenantFor(rt *cli.Runtime) string {
	if o.tenant != "" {
		return o.tenant
	}
	return rt.Config.DefaultTenant
}
