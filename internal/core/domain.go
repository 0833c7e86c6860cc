package core

import (
	"errors"
	"strings"
)

type (
	// LineItem is one row of the P&L statement. LineNumber is the stable
	// identifier joining the display model, override requests, and
	// drill-down requests; it never changes once assigned.
	LineItem struct {
		LineNumber  int              `json:"line_number"`
		Description string           `json:"description"`
		Values      map[string]Money `json:"values"`
		IsHeader    bool             `json:"is_header"`
		IsTotal     bool             `json:"is_total"`
		IndentLevel int              `json:"indent_level"`
	}

	// Statement is the full P&L for the loaded data set. Rows are in
	// display order (top to bottom) and are never re-sorted here; header
	// and total flags come from the source layout, not recomputed.
	Statement struct {
		Periods []string   `json:"headers"`
		Rows    []LineItem `json:"rows"`
	}

	// Transaction is read-only drill-down evidence for one statement cell.
	Transaction struct {
		Date         string `json:"date"`
		Period       string `json:"month"`
		CostCenter   string `json:"cost_center"`
		Counterparty string `json:"counterparty"`
		Description  string `json:"description"`
		Amount       Money  `json:"amount"`
		Category     string `json:"category"`
	}

	// DrillDown is the reconciled transaction view for one (line, period)
	// cell. Total is authoritative and may differ from the displayed cell
	// value when the client cache is stale. An empty Transactions slice is
	// a valid result, distinct from a failed or still-loading request.
	DrillDown struct {
		Total        Money         `json:"total"`
		Transactions []Transaction `json:"transactions"`
	}

	// Override is a write-intent replacing one computed cell. Version is
	// the optimistic-concurrency token: a write carrying a version older
	// than the stored one is rejected instead of silently winning.
	Override struct {
		LineNumber int    `json:"line_number"`
		Period     string `json:"month"`
		Value      Money  `json:"value"`
		Version    int64  `json:"version"`
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrLineNotFound   = errors.New("line not found")
	ErrHeaderRow      = errors.New("header rows have no cell value")
	ErrStaleOverride  = errors.New("override version is stale")
	ErrNoData         = errors.New("no data loaded")
	ErrEmptyStatement = errors.New("statement has no rows")
)

// Value returns the cell value for a period. Absent periods count as zero.
func (li LineItem) Value(period string) Money {
	return li.Values[period]
}

// WithValue returns a copy of the line item with exactly one period entry
// replaced. The values map is fully copied so statements already handed to
// readers keep seeing the old cell.
func (li LineItem) WithValue(period string, m Money) LineItem {
	values := make(map[string]Money, len(li.Values)+1)
	for k, v := range li.Values {
		values[k] = v
	}
	values[period] = m
	li.Values = values
	return li
}

// Validate checks the override shape before it is sent anywhere.
func (o Override) Validate() error {
	if o.LineNumber <= 0 {
		return ErrLineNotFound
	}
	if strings.TrimSpace(o.Period) == "" {
		return ErrInvalidPeriod
	}
	return nil
}
