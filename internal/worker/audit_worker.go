// Package worker implements the override audit consumer: it turns the
// override event stream into an append-only audit trail and periodically
// reconciles that trail against the live override table.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dre/internal/amqp"
	"dre/internal/core"
)

// AuditStore is the slice of storage the worker needs.
type AuditStore interface {
	RecordAudit(ctx context.Context, o core.Override) error
	LatestAudit(ctx context.Context, lineNumber int, period string) (core.Override, bool, error)
	CurrentOverrides(ctx context.Context) ([]core.Override, error)
}

// AuditWorker consumes override events and maintains the audit trail.
type AuditWorker struct {
	store AuditStore
}

func NewAuditWorker(store AuditStore) *AuditWorker {
	return &AuditWorker{store: store}
}

// HandleOverrideEvent records one accepted override in the audit trail.
// Returning an error requeues the event.
func (w *AuditWorker) HandleOverrideEvent(ctx context.Context, ev *amqp.OverrideEvent) error {
	o := core.Override{
		LineNumber: ev.LineNumber,
		Period:     ev.Period,
		Value:      core.Money{Cents: ev.ValueCents},
		Version:    ev.Version,
	}

	if err := w.store.RecordAudit(ctx, o); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Recorded override audit entry",
		"line_number", ev.LineNumber,
		"period", ev.Period,
		"value_cents", ev.ValueCents,
		"version", ev.Version)

	return nil
}

// HandleDataCleared notes a full purge. The audit trail itself is
// append-only and survives the purge.
func (w *AuditWorker) HandleDataCleared(ctx context.Context, ev *amqp.DataClearedEvent) error {
	slog.InfoContext(ctx, "Data cleared upstream, audit trail retained",
		"cleared_at", ev.Timestamp)
	return nil
}

// Reconcile compares every live override against the newest audit entry
// for its cell and logs any divergence. A divergence means an event was
// lost or is still in flight; the live table is the source of truth, so
// reconciliation records the missing entry itself.
func (w *AuditWorker) Reconcile(ctx context.Context) error {
	overrides, err := w.store.CurrentOverrides(ctx)
	if err != nil {
		return fmt.Errorf("list current overrides: %w", err)
	}

	repaired := 0
	for _, o := range overrides {
		latest, found, err := w.store.LatestAudit(ctx, o.LineNumber, o.Period)
		if err != nil {
			return fmt.Errorf("read latest audit for line %d period %s: %w", o.LineNumber, o.Period, err)
		}
		if found && latest.Version == o.Version && latest.Value == o.Value {
			continue
		}

		slog.WarnContext(ctx, "Audit trail behind live override, repairing",
			"line_number", o.LineNumber,
			"period", o.Period,
			"live_version", o.Version,
			"audit_found", found)

		if err := w.store.RecordAudit(ctx, o); err != nil {
			return fmt.Errorf("repair audit entry: %w", err)
		}
		repaired++
	}

	if repaired > 0 {
		slog.InfoContext(ctx, "Reconciliation repaired audit entries", "count", repaired)
	} else {
		slog.DebugContext(ctx, "Reconciliation found audit trail consistent", "overrides", len(overrides))
	}

	return nil
}

// RunReconcileLoop reconciles on the given interval until the context
// ends. A failing pass is logged and retried on the next tick.
func (w *AuditWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping reconciliation loop", "reason", ctx.Err())
			return
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Reconciliation pass failed", "error", err)
			}
		}
	}
}
