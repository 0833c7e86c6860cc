package storage

import (
	"context"
	"database/sql"
)

// Queries wraps raw SQL access. Repository methods convert the row types
// defined here into core domain values.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

type LineItemRow struct {
	LineNumber  int64
	Description string
	IsHeader    bool
	IsTotal     bool
	IndentLevel int64
}

type CellSumRow struct {
	LineNumber int64
	Period     string
	TotalCents int64
}

type OverrideRow struct {
	LineNumber int64
	Period     string
	ValueCents int64
	Version    int64
}

type TransactionRow struct {
	TxDate       string
	Period       string
	CostCenter   string
	Counterparty string
	Description  string
	AmountCents  int64
	Category     string
}

type CreateTransactionParams struct {
	TxDate       string
	Period       string
	CostCenter   string
	Counterparty string
	Description  string
	AmountCents  int64
	Category     string
	LineNumber   int64
}

type AuditEntryParams struct {
	LineNumber int64
	Period     string
	ValueCents int64
	Version    int64
}

func (q *Queries) GetLineItems(ctx context.Context) ([]LineItemRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT line_number, description, is_header, is_total, indent_level
		FROM line_items
		ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItemRow
	for rows.Next() {
		var r LineItemRow
		if err := rows.Scan(&r.LineNumber, &r.Description, &r.IsHeader, &r.IsTotal, &r.IndentLevel); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) GetPeriods(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT period FROM (
			SELECT period FROM transactions
			UNION
			SELECT period FROM overrides
		)
		ORDER BY period`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetCellSums(ctx context.Context) ([]CellSumRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT line_number, period, SUM(amount_cents)
		FROM transactions
		GROUP BY line_number, period`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CellSumRow
	for rows.Next() {
		var r CellSumRow
		if err := rows.Scan(&r.LineNumber, &r.Period, &r.TotalCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) GetOverrides(ctx context.Context) ([]OverrideRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT line_number, period, value_cents, version
		FROM overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverrideRow
	for rows.Next() {
		var r OverrideRow
		if err := rows.Scan(&r.LineNumber, &r.Period, &r.ValueCents, &r.Version); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) GetOverrideVersion(ctx context.Context, tx *sql.Tx, lineNumber int64, period string) (int64, error) {
	var version int64
	err := tx.QueryRowContext(ctx, `
		SELECT version FROM overrides
		WHERE line_number = ? AND period = ?`, lineNumber, period).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

func (q *Queries) UpsertOverride(ctx context.Context, tx *sql.Tx, r OverrideRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO overrides (line_number, period, value_cents, version, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (line_number, period) DO UPDATE SET
			value_cents = excluded.value_cents,
			version     = excluded.version,
			updated_at  = excluded.updated_at`,
		r.LineNumber, r.Period, r.ValueCents, r.Version)
	return err
}

func (q *Queries) GetTransactionsForCell(ctx context.Context, lineNumber int64, period string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT tx_date, period, cost_center, counterparty, description, amount_cents, category
		FROM transactions
		WHERE line_number = ? AND (? = '' OR period = ?)
		ORDER BY tx_date, id`,
		lineNumber, period, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var r TransactionRow
		if err := rows.Scan(&r.TxDate, &r.Period, &r.CostCenter, &r.Counterparty, &r.Description, &r.AmountCents, &r.Category); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) LineExists(ctx context.Context, lineNumber int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM line_items WHERE line_number = ?`, lineNumber).Scan(&n)
	return n > 0, err
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (tx_date, period, cost_center, counterparty, description, amount_cents, category, line_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TxDate, p.Period, p.CostCenter, p.Counterparty, p.Description, p.AmountCents, p.Category, p.LineNumber)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) CreateLineItem(ctx context.Context, r LineItemRow, position int64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO line_items (line_number, description, is_header, is_total, indent_level, position)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (line_number) DO UPDATE SET
			description  = excluded.description,
			is_header    = excluded.is_header,
			is_total     = excluded.is_total,
			indent_level = excluded.indent_level,
			position     = excluded.position`,
		r.LineNumber, r.Description, r.IsHeader, r.IsTotal, r.IndentLevel, position)
	return err
}

func (q *Queries) GetKPISummary(ctx context.Context) (map[string]float64, error) {
	return q.readNameValue(ctx, `SELECT name, value FROM kpi_summary`)
}

func (q *Queries) GetCostStructure(ctx context.Context) (map[string]float64, error) {
	return q.readNameValue(ctx, `SELECT category, amount FROM cost_structure`)
}

func (q *Queries) SetKPIValue(ctx context.Context, name string, value float64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO kpi_summary (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}

func (q *Queries) SetCostAmount(ctx context.Context, category string, amount float64) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO cost_structure (category, amount) VALUES (?, ?)
		ON CONFLICT (category) DO UPDATE SET amount = excluded.amount`, category, amount)
	return err
}

func (q *Queries) ClearOverrides(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM overrides`)
	return err
}

func (q *Queries) ClearData(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM transactions`,
		`DELETE FROM overrides`,
		`DELETE FROM kpi_summary`,
		`DELETE FROM cost_structure`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) InsertAuditEntry(ctx context.Context, p AuditEntryParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO override_audit (line_number, period, value_cents, version)
		VALUES (?, ?, ?, ?)`,
		p.LineNumber, p.Period, p.ValueCents, p.Version)
	return err
}

func (q *Queries) GetLatestAuditEntry(ctx context.Context, lineNumber int64, period string) (OverrideRow, bool, error) {
	var r OverrideRow
	err := q.db.QueryRowContext(ctx, `
		SELECT line_number, period, value_cents, version
		FROM override_audit
		WHERE line_number = ? AND period = ?
		ORDER BY id DESC LIMIT 1`, lineNumber, period).
		Scan(&r.LineNumber, &r.Period, &r.ValueCents, &r.Version)
	if err == sql.ErrNoRows {
		return OverrideRow{}, false, nil
	}
	if err != nil {
		return OverrideRow{}, false, err
	}
	return r, true, nil
}

func (q *Queries) readNameValue(ctx context.Context, query string) (map[string]float64, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}
