package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/report"
	"cashflow/internal/storage"
)

// Alert is a budget rule that did not pass for a tenant's month.
type Alert struct {
	TenantID string
	Month    core.YearMonth
	Rule     report.Rule
}

// AdviceWorker re-evaluates budget advice whenever a transaction is stored.
type AdviceWorker struct {
	engine  *report.Engine
	onAlert func(context.Context, Alert)
}

// NewAdviceWorker creates the worker. onAlert is optional and runs after an
// alert has been logged.
func NewAdviceWorker(engine *report.Engine, onAlert func(context.Context, Alert)) *AdviceWorker {
	return &AdviceWorker{engine: engine, onAlert: onAlert}
}

// HandleTransactionCreated processes a single transaction.created message.
func (w *AdviceWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	slog.InfoContext(ctx, "Processing transaction.created message",
		"id", msg.ID,
		"tenant_id", msg.TenantID,
		"date", msg.Date)

	ym, err := msg.Month()
	if err != nil {
		// A malformed date will never succeed; drop rather than requeue.
		slog.ErrorContext(ctx, "Discarding message with malformed date",
			"id", msg.ID, "date", msg.Date, "error", err)
		return nil
	}

	if _, err := w.CheckMonth(ctx, msg.TenantID, ym); err != nil {
		return fmt.Errorf("check month %s: %w", ym, err)
	}
	return nil
}

// CheckMonth evaluates advice for ym against the month before it and logs
// every rule that did not pass.
func (w *AdviceWorker) CheckMonth(ctx context.Context, tenant string, ym core.YearMonth) ([]Alert, error) {
	f := storage.Filter{
		DateFrom: ym.AddMonths(-1).First(),
		DateTo:   ym.Last(),
		TenantID: tenant,
	}
	adv, err := w.engine.Advice(ctx, f)
	if err != nil {
		return nil, err
	}
	if !adv.Available {
		slog.DebugContext(ctx, "Not enough history for advice",
			"tenant_id", tenant, "month", ym.String())
		return nil, nil
	}
	if adv.Current.Month != ym {
		// The message month has no data of its own yet.
		return nil, nil
	}

	var alerts []Alert
	for _, r := range adv.Alerts() {
		a := Alert{TenantID: tenant, Month: ym, Rule: r}
		alerts = append(alerts, a)
		slog.WarnContext(ctx, "Budget alert",
			"tenant_id", tenant,
			"month", ym.Label(),
			"rule", r.Name,
			"status", r.Status,
			"share_percent", r.SharePercent,
			"target_percent", r.TargetPercent,
			"message", r.Message)
		if w.onAlert != nil {
			w.onAlert(ctx, a)
		}
	}
	for _, msg := range adv.Warnings {
		slog.WarnContext(ctx, "Budget warning",
			"tenant_id", tenant,
			"month", ym.Label(),
			"message", msg)
	}
	return alerts, nil
}

// StartupCheck evaluates the current month once when the worker starts, so
// alerts are visible even if no new transaction arrives.
func (w *AdviceWorker) StartupCheck(ctx context.Context, tenant string) error {
	ym := core.DateOf(time.Now()).YearMonth()
	alerts, err := w.CheckMonth(ctx, tenant, ym)
	if err != nil {
		return fmt.Errorf("startup advice check: %w", err)
	}
	slog.InfoContext(ctx, "Startup advice check finished",
		"tenant_id", tenant,
		"month", ym.Label(),
		"alerts", len(alerts))
	return nil
}
