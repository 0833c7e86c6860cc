package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dre/internal/amqp"
	"dre/internal/core"
)

type fakeAuditStore struct {
	recorded  []core.Override
	recordErr error

	live  []core.Override
	audit map[string]core.Override
}

func cellID(lineNumber int, period string) string {
	return fmt.Sprintf("%d@%s", lineNumber, period)
}

func (f *fakeAuditStore) RecordAudit(ctx context.Context, o core.Override) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, o)
	if f.audit == nil {
		f.audit = make(map[string]core.Override)
	}
	f.audit[cellID(o.LineNumber, o.Period)] = o
	return nil
}

func (f *fakeAuditStore) LatestAudit(ctx context.Context, lineNumber int, period string) (core.Override, bool, error) {
	o, ok := f.audit[cellID(lineNumber, period)]
	return o, ok, nil
}

func (f *fakeAuditStore) CurrentOverrides(ctx context.Context) ([]core.Override, error) {
	return f.live, nil
}

func TestHandleOverrideEvent(t *testing.T) {
	store := &fakeAuditStore{}
	w := NewAuditWorker(store)

	ev := amqp.NewOverrideEvent(5, "2024-03", 12345, 2)
	if err := w.HandleOverrideEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleOverrideEvent() error = %v", err)
	}

	if len(store.recorded) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(store.recorded))
	}
	got := store.recorded[0]
	if got.LineNumber != 5 || got.Period != "2024-03" || got.Value.Cents != 12345 || got.Version != 2 {
		t.Errorf("recorded entry = %+v", got)
	}
}

func TestHandleOverrideEventStoreFailure(t *testing.T) {
	wantErr := errors.New("disk full")
	w := NewAuditWorker(&fakeAuditStore{recordErr: wantErr})

	err := w.HandleOverrideEvent(context.Background(), amqp.NewOverrideEvent(1, "2024-01", 1, 1))
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestReconcileRepairsMissingEntries(t *testing.T) {
	store := &fakeAuditStore{
		live: []core.Override{
			{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 3},
			{LineNumber: 5, Period: "2024-02", Value: core.Money{Cents: 200}, Version: 1},
		},
		audit: map[string]core.Override{
			// Line 2 is already recorded at the live version.
			cellID(2, "2024-01"): {LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 3},
		},
	}
	w := NewAuditWorker(store)

	if err := w.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(store.recorded) != 1 {
		t.Fatalf("repaired %d entries, want 1", len(store.recorded))
	}
	if store.recorded[0].LineNumber != 5 {
		t.Errorf("repaired line = %d, want 5", store.recorded[0].LineNumber)
	}
}

func TestReconcileRepairsStaleVersions(t *testing.T) {
	store := &fakeAuditStore{
		live: []core.Override{
			{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 500}, Version: 4},
		},
		audit: map[string]core.Override{
			cellID(2, "2024-01"): {LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 3},
		},
	}
	w := NewAuditWorker(store)

	if err := w.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(store.recorded) != 1 {
		t.Fatalf("repaired %d entries, want 1", len(store.recorded))
	}
	if got := store.recorded[0]; got.Version != 4 || got.Value.Cents != 500 {
		t.Errorf("repaired entry = %+v, want live version 4 value 500", got)
	}
}

func TestReconcileConsistentTrail(t *testing.T) {
	store := &fakeAuditStore{
		live: []core.Override{
			{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 1},
		},
		audit: map[string]core.Override{
			cellID(2, "2024-01"): {LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 1},
		},
	}
	w := NewAuditWorker(store)

	if err := w.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(store.recorded) != 0 {
		t.Errorf("consistent trail repaired %d entries, want 0", len(store.recorded))
	}
}
