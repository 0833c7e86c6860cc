package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dre/internal/core"

	_ "modernc.org/sqlite"

	"database/sql"
)

// SQLiteRepository implements the pnl ports against a local SQLite file.
// It is the production backend: statements are assembled from categorized
// transactions overlaid with accepted overrides.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadStatement implements pnl.StatementReader. Row order follows the
// layout table's position column; cell values are transaction sums with
// the override layer applied on top.
func (r *SQLiteRepository) LoadStatement(ctx context.Context) (core.Statement, error) {
	layout, err := r.queries.GetLineItems(ctx)
	if err != nil {
		return core.Statement{}, fmt.Errorf("load line items: %w", err)
	}
	if len(layout) == 0 {
		return core.Statement{}, core.ErrNoData
	}

	periods, err := r.queries.GetPeriods(ctx)
	if err != nil {
		return core.Statement{}, fmt.Errorf("load periods: %w", err)
	}

	sums, err := r.queries.GetCellSums(ctx)
	if err != nil {
		return core.Statement{}, fmt.Errorf("load cell sums: %w", err)
	}

	overrides, err := r.queries.GetOverrides(ctx)
	if err != nil {
		return core.Statement{}, fmt.Errorf("load overrides: %w", err)
	}

	type cell struct {
		line   int
		period string
	}
	values := make(map[cell]core.Money, len(sums))
	for _, s := range sums {
		values[cell{int(s.LineNumber), s.Period}] = core.Money{Cents: s.TotalCents}
	}
	for _, o := range overrides {
		values[cell{int(o.LineNumber), o.Period}] = core.Money{Cents: o.ValueCents}
	}

	rows := make([]core.LineItem, 0, len(layout))
	for _, li := range layout {
		item := core.LineItem{
			LineNumber:  int(li.LineNumber),
			Description: li.Description,
			IsHeader:    li.IsHeader,
			IsTotal:     li.IsTotal,
			IndentLevel: int(li.IndentLevel),
			Values:      make(map[string]core.Money),
		}
		for _, p := range periods {
			if v, ok := values[cell{item.LineNumber, p}]; ok {
				item.Values[p] = v
			}
		}
		rows = append(rows, item)
	}

	return core.Statement{Periods: periods, Rows: rows}, nil
}

// SaveOverride implements pnl.OverrideWriter with versioned optimistic
// concurrency: the write only succeeds when the caller's version matches
// the stored one (0 for a cell that has never been overridden).
func (r *SQLiteRepository) SaveOverride(ctx context.Context, o core.Override) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}

	exists, err := r.queries.LineExists(ctx, int64(o.LineNumber))
	if err != nil {
		return 0, fmt.Errorf("check line: %w", err)
	}
	if !exists {
		return 0, core.ErrLineNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin override tx: %w", err)
	}
	defer tx.Rollback()

	current, err := r.queries.GetOverrideVersion(ctx, tx, int64(o.LineNumber), o.Period)
	if err != nil {
		return 0, fmt.Errorf("read override version: %w", err)
	}
	if o.Version != current {
		return 0, core.ErrStaleOverride
	}

	next := current + 1
	if err := r.queries.UpsertOverride(ctx, tx, OverrideRow{
		LineNumber: int64(o.LineNumber),
		Period:     o.Period,
		ValueCents: o.Value.Cents,
		Version:    next,
	}); err != nil {
		return 0, fmt.Errorf("write override: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit override: %w", err)
	}

	slog.InfoContext(ctx, "Override saved",
		"line_number", o.LineNumber,
		"period", o.Period,
		"value_cents", o.Value.Cents,
		"version", next)

	return next, nil
}

// ListTransactions implements pnl.TransactionResolver. The total is the
// authoritative reconciliation for the cell; an empty slice means the
// value exists but has no transaction-level detail.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, lineNumber int, period string) (core.DrillDown, error) {
	rows, err := r.queries.GetTransactionsForCell(ctx, int64(lineNumber), period)
	if err != nil {
		return core.DrillDown{}, fmt.Errorf("list transactions (line=%d, period=%s): %w", lineNumber, period, err)
	}

	var dd core.DrillDown
	for _, t := range rows {
		dd.Transactions = append(dd.Transactions, core.Transaction{
			Date:         t.TxDate,
			Period:       t.Period,
			CostCenter:   t.CostCenter,
			Counterparty: t.Counterparty,
			Description:  t.Description,
			Amount:       core.Money{Cents: t.AmountCents},
			Category:     t.Category,
		})
		dd.Total.Cents += t.AmountCents
	}
	return dd, nil
}

// ReadKPISummary implements pnl.SummaryReader. Absent names stay nil so
// the formula engine falls back to its derivations.
func (r *SQLiteRepository) ReadKPISummary(ctx context.Context) (core.KPISummary, error) {
	raw, err := r.queries.GetKPISummary(ctx)
	if err != nil {
		return core.KPISummary{}, fmt.Errorf("read kpi summary: %w", err)
	}

	var s core.KPISummary
	assign := func(name string, dst **float64) {
		if v, ok := raw[name]; ok {
			val := v
			*dst = &val
		}
	}
	assign("total_revenue", &s.TotalRevenue)
	assign("gross_profit", &s.GrossProfit)
	assign("ebitda", &s.EBITDA)
	assign("net_result", &s.NetResult)
	assign("gross_margin", &s.GrossMargin)
	assign("ebitda_margin", &s.EBITDAMargin)
	assign("google_revenue", &s.GoogleRevenue)
	assign("apple_revenue", &s.AppleRevenue)
	return s, nil
}

// ReadCostStructure implements pnl.SummaryReader.
func (r *SQLiteRepository) ReadCostStructure(ctx context.Context) (core.CostStructure, error) {
	raw, err := r.queries.GetCostStructure(ctx)
	if err != nil {
		return core.CostStructure{}, fmt.Errorf("read cost structure: %w", err)
	}
	return core.CostStructure{
		PaymentProcessing: raw["payment_processing"],
		COGS:              raw["cogs"],
		Marketing:         raw["marketing"],
		Wages:             raw["wages"],
		Tech:              raw["tech"],
		Other:             raw["other"],
	}, nil
}

// ClearOverrides implements pnl.DataPurger. Only the override layer is
// dropped; the audit trail keeps its history.
func (r *SQLiteRepository) ClearOverrides(ctx context.Context) error {
	if err := r.queries.ClearOverrides(ctx); err != nil {
		return fmt.Errorf("clear overrides: %w", err)
	}
	slog.InfoContext(ctx, "All overrides cleared, cells revert to computed values")
	return nil
}

// ClearAll implements pnl.DataPurger. The statement layout survives so a
// reload renders an empty statement instead of failing.
func (r *SQLiteRepository) ClearAll(ctx context.Context) error {
	if err := r.queries.ClearData(ctx); err != nil {
		return fmt.Errorf("clear data: %w", err)
	}
	slog.InfoContext(ctx, "All transaction data, overrides, and summaries cleared")
	return nil
}

// RecordAudit appends one accepted override to the audit trail. Used by
// the worker, not the request path.
func (r *SQLiteRepository) RecordAudit(ctx context.Context, o core.Override) error {
	err := r.queries.InsertAuditEntry(ctx, AuditEntryParams{
		LineNumber: int64(o.LineNumber),
		Period:     o.Period,
		ValueCents: o.Value.Cents,
		Version:    o.Version,
	})
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// LatestAudit returns the most recent audit entry for a cell.
func (r *SQLiteRepository) LatestAudit(ctx context.Context, lineNumber int, period string) (core.Override, bool, error) {
	row, ok, err := r.queries.GetLatestAuditEntry(ctx, int64(lineNumber), period)
	if err != nil {
		return core.Override{}, false, fmt.Errorf("latest audit entry: %w", err)
	}
	if !ok {
		return core.Override{}, false, nil
	}
	return core.Override{
		LineNumber: int(row.LineNumber),
		Period:     row.Period,
		Value:      core.Money{Cents: row.ValueCents},
		Version:    row.Version,
	}, true, nil
}

// CurrentOverrides returns the live override layer, used by the worker's
// reconciliation pass.
func (r *SQLiteRepository) CurrentOverrides(ctx context.Context) ([]core.Override, error) {
	rows, err := r.queries.GetOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("current overrides: %w", err)
	}
	out := make([]core.Override, len(rows))
	for i, row := range rows {
		out[i] = core.Override{
			LineNumber: int(row.LineNumber),
			Period:     row.Period,
			Value:      core.Money{Cents: row.ValueCents},
			Version:    row.Version,
		}
	}
	return out, nil
}

// SeedLayout installs or updates the statement layout in display order.
func (r *SQLiteRepository) SeedLayout(ctx context.Context, rows []core.LineItem) error {
	for i, li := range rows {
		err := r.queries.CreateLineItem(ctx, LineItemRow{
			LineNumber:  int64(li.LineNumber),
			Description: li.Description,
			IsHeader:    li.IsHeader,
			IsTotal:     li.IsTotal,
			IndentLevel: int64(li.IndentLevel),
		}, int64(i+1))
		if err != nil {
			return fmt.Errorf("seed line %d: %w", li.LineNumber, err)
		}
	}
	return nil
}

// SetKPI stores one backend-supplied summary scalar by name.
func (r *SQLiteRepository) SetKPI(ctx context.Context, name string, value float64) error {
	if err := r.queries.SetKPIValue(ctx, name, value); err != nil {
		return fmt.Errorf("set kpi %s: %w", name, err)
	}
	return nil
}

// SetCost stores one cost-structure amount by category.
func (r *SQLiteRepository) SetCost(ctx context.Context, category string, amount float64) error {
	if err := r.queries.SetCostAmount(ctx, category, amount); err != nil {
		return fmt.Errorf("set cost %s: %w", category, err)
	}
	return nil
}

// AddTransaction stores one categorized transaction under a layout line.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, lineNumber int, tx core.Transaction) (int64, error) {
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		TxDate:       tx.Date,
		Period:       tx.Period,
		CostCenter:   tx.CostCenter,
		Counterparty: tx.Counterparty,
		Description:  tx.Description,
		AmountCents:  tx.Amount.Cents,
		Category:     tx.Category,
		LineNumber:   int64(lineNumber),
	})
	if err != nil {
		return 0, fmt.Errorf("add transaction: %w", err)
	}
	return id, nil
}
