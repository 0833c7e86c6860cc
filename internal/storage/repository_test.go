package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"dre/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTestData(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	layout := []core.LineItem{
		{LineNumber: 1, Description: "REVENUE", IsHeader: true},
		{LineNumber: 2, Description: "Sales", IndentLevel: 1},
		{LineNumber: 3, Description: "Marketing", IndentLevel: 1},
		{LineNumber: 4, Description: "(=) TOTAL", IsTotal: true},
	}
	if err := repo.SeedLayout(ctx, layout); err != nil {
		t.Fatalf("SeedLayout() error = %v", err)
	}

	txs := []struct {
		line int
		tx   core.Transaction
	}{
		{2, core.Transaction{Date: "2024-01-10", Period: "2024-01", Counterparty: "Google LLC", Description: "Payout", Amount: core.Money{Cents: 60000}, Category: "Sales"}},
		{2, core.Transaction{Date: "2024-01-20", Period: "2024-01", Counterparty: "Apple Inc", Description: "Payout", Amount: core.Money{Cents: 40000}, Category: "Sales"}},
		{2, core.Transaction{Date: "2024-02-10", Period: "2024-02", Counterparty: "Google LLC", Description: "Payout", Amount: core.Money{Cents: 70000}, Category: "Sales"}},
		{3, core.Transaction{Date: "2024-01-25", Period: "2024-01", Counterparty: "Meta", Description: "Ads", Amount: core.Money{Cents: -5000}, Category: "Marketing"}},
	}
	for _, s := range txs {
		if _, err := repo.AddTransaction(ctx, s.line, s.tx); err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
	}
}

func TestLoadStatementNoData(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.LoadStatement(context.Background())
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("LoadStatement() on empty database error = %v, want ErrNoData", err)
	}
}

func TestLoadStatementAssembly(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	st, err := repo.LoadStatement(ctx)
	if err != nil {
		t.Fatalf("LoadStatement() error = %v", err)
	}

	if !reflect.DeepEqual(st.Periods, []string{"2024-01", "2024-02"}) {
		t.Errorf("periods = %v, want sorted ascending", st.Periods)
	}
	if len(st.Rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(st.Rows))
	}
	if !st.Rows[0].IsHeader || st.Rows[0].Description != "REVENUE" {
		t.Errorf("first row = %+v, layout order or flags lost", st.Rows[0])
	}

	sales, _ := st.Row(2)
	if got := sales.Value("2024-01").Cents; got != 100000 {
		t.Errorf("sales 2024-01 = %d, want summed 100000", got)
	}
	marketing, _ := st.Row(3)
	if got := marketing.Value("2024-01").Cents; got != -5000 {
		t.Errorf("marketing 2024-01 = %d, want -5000", got)
	}
}

func TestSaveOverrideVersioning(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	o := core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 123}}

	v, err := repo.SaveOverride(ctx, o)
	if err != nil || v != 1 {
		t.Fatalf("first SaveOverride() = %d, %v, want 1, nil", v, err)
	}

	if _, err := repo.SaveOverride(ctx, o); !errors.Is(err, core.ErrStaleOverride) {
		t.Errorf("stale version 0 error = %v, want ErrStaleOverride", err)
	}

	o.Version = 1
	o.Value = core.Money{Cents: 456}
	if v, err = repo.SaveOverride(ctx, o); err != nil || v != 2 {
		t.Fatalf("second SaveOverride() = %d, %v, want 2, nil", v, err)
	}

	// The override wins over the transaction sum on the next load.
	st, err := repo.LoadStatement(ctx)
	if err != nil {
		t.Fatalf("LoadStatement() error = %v", err)
	}
	sales, _ := st.Row(2)
	if got := sales.Value("2024-01").Cents; got != 456 {
		t.Errorf("overridden cell = %d, want 456", got)
	}
}

func TestSaveOverrideUnknownLine(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)

	o := core.Override{LineNumber: 99, Period: "2024-01", Value: core.Money{Cents: 1}}
	if _, err := repo.SaveOverride(context.Background(), o); !errors.Is(err, core.ErrLineNotFound) {
		t.Errorf("unknown line error = %v, want ErrLineNotFound", err)
	}
}

func TestListTransactions(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	dd, err := repo.ListTransactions(ctx, 2, "2024-01")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(dd.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(dd.Transactions))
	}
	// Date ordering is part of the contract.
	if dd.Transactions[0].Date != "2024-01-10" || dd.Transactions[1].Date != "2024-01-20" {
		t.Errorf("transactions out of date order: %s, %s", dd.Transactions[0].Date, dd.Transactions[1].Date)
	}
	if dd.Total.Cents != 100000 {
		t.Errorf("total = %d, want 100000", dd.Total.Cents)
	}

	// An empty period filter returns every transaction of the line.
	dd, err = repo.ListTransactions(ctx, 2, "")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(dd.Transactions) != 3 {
		t.Errorf("unfiltered transactions = %d, want 3", len(dd.Transactions))
	}
}

func TestSummaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	kpis, err := repo.ReadKPISummary(ctx)
	if err != nil {
		t.Fatalf("ReadKPISummary() error = %v", err)
	}
	if kpis.TotalRevenue != nil {
		t.Error("empty summary table produced a non-nil KPI")
	}

	if err := repo.SetKPI(ctx, "total_revenue", 1000); err != nil {
		t.Fatalf("SetKPI() error = %v", err)
	}
	if err := repo.SetKPI(ctx, "total_revenue", 1100); err != nil {
		t.Fatalf("SetKPI() upsert error = %v", err)
	}
	if err := repo.SetCost(ctx, "marketing", 30); err != nil {
		t.Fatalf("SetCost() error = %v", err)
	}

	kpis, err = repo.ReadKPISummary(ctx)
	if err != nil {
		t.Fatalf("ReadKPISummary() error = %v", err)
	}
	if kpis.TotalRevenue == nil || *kpis.TotalRevenue != 1100 {
		t.Errorf("total_revenue = %v, want 1100", kpis.TotalRevenue)
	}

	costs, err := repo.ReadCostStructure(ctx)
	if err != nil {
		t.Fatalf("ReadCostStructure() error = %v", err)
	}
	if costs.Marketing != 30 {
		t.Errorf("marketing = %v, want 30", costs.Marketing)
	}
}

func TestAuditTrail(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	if _, found, err := repo.LatestAudit(ctx, 2, "2024-01"); err != nil || found {
		t.Fatalf("LatestAudit() on empty trail = found=%v, err=%v", found, err)
	}

	entries := []core.Override{
		{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 100}, Version: 1},
		{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 200}, Version: 2},
	}
	for _, e := range entries {
		if err := repo.RecordAudit(ctx, e); err != nil {
			t.Fatalf("RecordAudit() error = %v", err)
		}
	}

	latest, found, err := repo.LatestAudit(ctx, 2, "2024-01")
	if err != nil || !found {
		t.Fatalf("LatestAudit() = found=%v, err=%v", found, err)
	}
	if latest.Version != 2 || latest.Value.Cents != 200 {
		t.Errorf("latest entry = %+v, want version 2 value 200", latest)
	}
}

func TestCurrentOverrides(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	if _, err := repo.SaveOverride(ctx, core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 10}}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SaveOverride(ctx, core.Override{LineNumber: 3, Period: "2024-02", Value: core.Money{Cents: 20}}); err != nil {
		t.Fatal(err)
	}

	overrides, err := repo.CurrentOverrides(ctx)
	if err != nil {
		t.Fatalf("CurrentOverrides() error = %v", err)
	}
	if len(overrides) != 2 {
		t.Errorf("overrides = %d, want 2", len(overrides))
	}
}

func TestClearOverrides(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	if _, err := repo.SaveOverride(ctx, core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 10}}); err != nil {
		t.Fatal(err)
	}

	if err := repo.ClearOverrides(ctx); err != nil {
		t.Fatalf("ClearOverrides() error = %v", err)
	}

	st, err := repo.LoadStatement(ctx)
	if err != nil {
		t.Fatalf("LoadStatement() error = %v", err)
	}
	sales, _ := st.Row(2)
	if got := sales.Value("2024-01").Cents; got != 100000 {
		t.Errorf("cell after clear = %d, want computed 100000", got)
	}

	// Version history resets with the layer: version 0 writes again.
	if v, err := repo.SaveOverride(ctx, core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 1}}); err != nil || v != 1 {
		t.Errorf("post-clear SaveOverride() = %d, %v, want 1, nil", v, err)
	}
}

func TestClearAll(t *testing.T) {
	repo := newTestRepo(t)
	seedTestData(t, repo)
	ctx := context.Background()

	if _, err := repo.SaveOverride(ctx, core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 10}}); err != nil {
		t.Fatal(err)
	}
	if err := repo.RecordAudit(ctx, core.Override{LineNumber: 2, Period: "2024-01", Value: core.Money{Cents: 10}, Version: 1}); err != nil {
		t.Fatal(err)
	}

	if err := repo.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	st, err := repo.LoadStatement(ctx)
	if err != nil {
		t.Fatalf("LoadStatement() after clear error = %v", err)
	}
	if len(st.Periods) != 0 {
		t.Errorf("periods after clear = %v, want none", st.Periods)
	}
	if len(st.Rows) != 4 {
		t.Errorf("rows after clear = %d, want the full layout", len(st.Rows))
	}

	// The audit trail is append-only and survives a purge.
	if _, found, err := repo.LatestAudit(ctx, 2, "2024-01"); err != nil || !found {
		t.Errorf("audit trail lost on clear: found=%v, err=%v", found, err)
	}
}
