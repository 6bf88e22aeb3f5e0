package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/worker"
)

// recheckInterval is how often the current month is re-evaluated when no
// transaction.created message arrives.
const recheckInterval = 24 * time.Hour

func main() {
	ctx := context.Background()

	rt, err := cli.Bootstrap(ctx, cli.Options{})
	if err != nil {
		applog.FromContext(ctx).Error("Failed to start cashflow-worker", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.Logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	logger := rt.Logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting cashflow-worker", "backend", rt.Config.DataBackend)

	if rt.Backend.AMQP == nil {
		logger.Error("AMQP is required by the worker: set AMQP_URL to a reachable broker")
		rt.Close()
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(ctx, logger)
	defer cancel()

	adviceWorker := worker.NewAdviceWorker(rt.Engine, nil)
	tenant := rt.Config.DefaultTenant

	// Process the current month once so alerts exist before the first message.
	logger.Info("Performing startup advice check...")
	if err := adviceWorker.StartupCheck(ctx, tenant); err != nil {
		logger.Error("Failed startup advice check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithComponent(applog.ComponentAMQP).Info("Consuming transaction.created",
			"exchange", rt.Config.AMQPExchange, "queue", rt.Config.AMQPQueue)
		err := rt.Backend.AMQP.ConsumeTransactionCreated(gctx, adviceWorker.HandleTransactionCreated)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(recheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := adviceWorker.StartupCheck(gctx, tenant); err != nil {
					logger.Error("Periodic advice check failed", applog.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		rt.Close()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
