// Package memory is an in-process implementation of the pnl ports, used
// as the default dev backend and as the test double for the HTTP layer.
package memory

import (
	"context"
	"sort"
	"sync"

	"dre/internal/core"
)

type Store struct {
	mu     sync.Mutex
	layout []core.LineItem
	txs    []core.Transaction
	// txLines maps a layout line number to indexes into txs; a line
	// without an entry has no transaction-level detail.
	txLines   map[int][]int
	kpis      core.KPISummary
	costs     core.CostStructure
	overrides map[cellKey]overrideState
}

type cellKey struct {
	line   int
	period string
}

type overrideState struct {
	value   core.Money
	version int64
}

// New builds a store around a fixed statement layout and transaction set.
func New(layout []core.LineItem, txs []core.Transaction, txLines map[int][]int, kpis core.KPISummary, costs core.CostStructure) *Store {
	return &Store{
		layout:    layout,
		txs:       txs,
		txLines:   txLines,
		kpis:      kpis,
		costs:     costs,
		overrides: make(map[cellKey]overrideState),
	}
}

// NewSeeded returns a store pre-loaded with a small demo statement so the
// server has something to show before real data is imported.
func NewSeeded() *Store {
	layout := []core.LineItem{
		{LineNumber: 1, Description: "GROSS OPERATING REVENUE", IsHeader: true},
		{LineNumber: 2, Description: "Sales Revenue (Google + Apple)", IndentLevel: 1},
		{LineNumber: 3, Description: "Investment Income", IndentLevel: 1},
		{LineNumber: 4, Description: "(-) DIRECT COSTS", IsHeader: true},
		{LineNumber: 5, Description: "Payment Processing", IndentLevel: 1},
		{LineNumber: 6, Description: "COGS (Web Services)", IndentLevel: 1},
		{LineNumber: 7, Description: "(=) GROSS PROFIT", IsTotal: true},
		{LineNumber: 8, Description: "(-) OPERATING EXPENSES", IsHeader: true},
		{LineNumber: 9, Description: "Marketing", IndentLevel: 1},
		{LineNumber: 10, Description: "Wages", IndentLevel: 1},
		{LineNumber: 11, Description: "Tech Support & Services", IndentLevel: 1},
		{LineNumber: 12, Description: "Other Expenses", IndentLevel: 1},
		{LineNumber: 13, Description: "(=) EBITDA", IsTotal: true},
	}
	txs := []core.Transaction{
		{Date: "2024-01-15", Period: "2024-01", CostCenter: "Revenue", Counterparty: "Google LLC", Description: "Play Store payout", Amount: core.Money{Cents: 55000_00}, Category: "Sales Revenue"},
		{Date: "2024-01-18", Period: "2024-01", CostCenter: "Revenue", Counterparty: "Apple Inc", Description: "App Store payout", Amount: core.Money{Cents: 45000_00}, Category: "Sales Revenue"},
		{Date: "2024-01-20", Period: "2024-01", CostCenter: "Marketing", Counterparty: "Meta Platforms", Description: "Campaign spend", Amount: core.Money{Cents: -3000_00}, Category: "Marketing"},
		{Date: "2024-01-31", Period: "2024-01", CostCenter: "Payroll", Counterparty: "Payroll run", Description: "January wages", Amount: core.Money{Cents: -4000_00}, Category: "Wages"},
		{Date: "2024-02-15", Period: "2024-02", CostCenter: "Revenue", Counterparty: "Google LLC", Description: "Play Store payout", Amount: core.Money{Cents: 58000_00}, Category: "Sales Revenue"},
		{Date: "2024-02-22", Period: "2024-02", CostCenter: "Tech", Counterparty: "AWS", Description: "Web services", Amount: core.Money{Cents: -1000_00}, Category: "COGS"},
	}
	txLines := map[int][]int{2: {0, 1, 4}, 9: {2}, 10: {3}, 6: {5}}
	return New(layout, txs, txLines, core.KPISummary{}, core.CostStructure{})
}

// LoadStatement assembles the statement: layout order preserved, cell
// values summed from transactions and overlaid with overrides, periods
// sorted ascending.
func (s *Store) LoadStatement(_ context.Context) (core.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	periodSet := make(map[string]struct{})
	for _, tx := range s.txs {
		periodSet[tx.Period] = struct{}{}
	}
	for key := range s.overrides {
		periodSet[key.period] = struct{}{}
	}
	periods := make([]string, 0, len(periodSet))
	for p := range periodSet {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	rows := make([]core.LineItem, 0, len(s.layout))
	for _, li := range s.layout {
		values := make(map[string]core.Money)
		for _, i := range s.txLines[li.LineNumber] {
			tx := s.txs[i]
			v := values[tx.Period]
			v.Cents += tx.Amount.Cents
			values[tx.Period] = v
		}
		for key, ov := range s.overrides {
			if key.line == li.LineNumber {
				values[key.period] = ov.value
			}
		}
		li.Values = values
		rows = append(rows, li)
	}

	return core.Statement{Periods: periods, Rows: rows}, nil
}

// SaveOverride applies versioned optimistic concurrency: version 0 targets
// a cell with no prior override; any other version must match the stored
// one exactly.
func (s *Store) SaveOverride(_ context.Context, o core.Override) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cellKey{line: o.LineNumber, period: o.Period}
	current := s.overrides[key]
	if o.Version != current.version {
		return 0, core.ErrStaleOverride
	}
	next := current.version + 1
	s.overrides[key] = overrideState{value: o.Value, version: next}
	return next, nil
}

// ListTransactions filters the seed transactions for one cell and returns
// the reconciled total.
func (s *Store) ListTransactions(_ context.Context, lineNumber int, period string) (core.DrillDown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dd core.DrillDown
	for _, i := range s.txLines[lineNumber] {
		tx := s.txs[i]
		if period != "" && tx.Period != period {
			continue
		}
		dd.Transactions = append(dd.Transactions, tx)
		dd.Total.Cents += tx.Amount.Cents
	}
	return dd, nil
}

func (s *Store) ReadKPISummary(_ context.Context) (core.KPISummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kpis, nil
}

func (s *Store) ReadCostStructure(_ context.Context) (core.CostStructure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.costs, nil
}

// ClearOverrides drops the override layer only. Every cell reverts to
// its computed transaction sum.
func (s *Store) ClearOverrides(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[cellKey]overrideState)
	return nil
}

// ClearAll drops transactions and overrides but keeps the layout, so a
// reload shows an empty statement rather than a broken one.
func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = nil
	s.txLines = nil
	s.overrides = make(map[cellKey]overrideState)
	return nil
}
