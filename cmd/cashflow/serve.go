package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cashflow/internal/cli"
	apphttp "cashflow/internal/http"
	applog "cashflow/internal/log"
	"cashflow/internal/worker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON HTTP API",
		Long: `Run the JSON HTTP API on PORT.

With --with-worker and AMQP configured, the budget-alert consumer runs in
the same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.bootstrap(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					rt.Logger.Error("Backend cleanup failed", applog.FieldError, err)
				}
			}()

			ctx, cancel := cli.SignalContext(cmd.Context(), rt.Logger)
			defer cancel()

			srv := apphttp.NewServer(":"+rt.Config.Port, apphttp.Deps{
				Service:            rt.Service,
				Engine:             rt.Engine,
				Ready:              rt.Backend.Repository.Ping,
				Logger:             rt.Logger,
				DefaultTenant:      rt.Config.DefaultTenant,
				RateLimitPerMinute: rt.Config.RateLimitPerMinute,
				RequestTimeout:     rt.Config.RequestTimeout,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Run(gctx, 30*time.Second)
			})

			if withWorker {
				if rt.Backend.AMQP == nil {
					rt.Logger.Warn("--with-worker ignored: AMQP is not configured or unreachable")
				} else {
					w := worker.NewAdviceWorker(rt.Engine, nil)
					g.Go(func() error {
						err := rt.Backend.AMQP.ConsumeTransactionCreated(gctx, w.HandleTransactionCreated)
						if errors.Is(err, context.Canceled) {
							return nil
						}
						return err
					})
				}
			}

			rt.Logger.Info("Starting cashflow server",
				"port", rt.Config.Port,
				"backend", rt.Config.DataBackend,
				"worker", withWorker && rt.Backend.AMQP != nil)
			err = g.Wait()
			rt.Logger.Info("Server stopped")
			return err
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", false, "also consume transaction.created events")
	return cmd
}
