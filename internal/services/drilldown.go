package services

import (
	"context"
	"fmt"

	"dre/internal/core"
	"dre/internal/pnl"
)

// DrillDown resolves the transactions behind one statement cell. Header
// rows carry no transactions and are refused before the backend is asked.
type DrillDown struct {
	resolver pnl.TransactionResolver
}

func NewDrillDown(resolver pnl.TransactionResolver) *DrillDown {
	return &DrillDown{resolver: resolver}
}

// Resolve returns the transaction list for a cell of st. The returned
// total is the sum of the listed transactions, which can differ from the
// displayed cell value when an override is in place.
func (d *DrillDown) Resolve(ctx context.Context, st core.Statement, lineNumber int, period string) (core.DrillDown, error) {
	row, err := st.Row(lineNumber)
	if err != nil {
		return core.DrillDown{}, err
	}
	if row.IsHeader {
		return core.DrillDown{}, core.ErrHeaderRow
	}

	dd, err := d.resolver.ListTransactions(ctx, lineNumber, period)
	if err != nil {
		return core.DrillDown{}, fmt.Errorf("list transactions for line %d: %w", lineNumber, err)
	}
	return dd, nil
}
