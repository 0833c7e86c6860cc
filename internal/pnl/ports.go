package pnl

import (
	"context"

	"dre/internal/core"
)

// Ports for outbound adapters. The HTTP layer and session services only
// ever talk to these; SQLite and the in-memory store both implement them.
type (
	// StatementReader assembles the full P&L from categorized
	// transactions overlaid with accepted overrides.
	StatementReader interface {
		LoadStatement(ctx context.Context) (core.Statement, error)
	}

	// OverrideWriter persists a user-entered cell value. It returns the
	// new version for the cell, or core.ErrStaleOverride when the write
	// carries an outdated version.
	OverrideWriter interface {
		SaveOverride(ctx context.Context, o core.Override) (version int64, err error)
	}

	// TransactionResolver returns the transactions backing one
	// (line, period) cell together with the reconciled total. An empty
	// transaction list is a valid answer.
	TransactionResolver interface {
		ListTransactions(ctx context.Context, lineNumber int, period string) (core.DrillDown, error)
	}

	// SummaryReader supplies the formula-engine inputs.
	SummaryReader interface {
		ReadKPISummary(ctx context.Context) (core.KPISummary, error)
		ReadCostStructure(ctx context.Context) (core.CostStructure, error)
	}

	// DataPurger clears underlying data; the caller is expected to reload
	// afterwards. ClearOverrides drops only the override layer, restoring
	// every cell to its computed value.
	DataPurger interface {
		ClearAll(ctx context.Context) error
		ClearOverrides(ctx context.Context) error
	}
)

// Backend bundles every port a fully wired server needs.
type Backend interface {
	StatementReader
	OverrideWriter
	TransactionResolver
	SummaryReader
	DataPurger
}
