package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dre/internal/core"
	"dre/internal/formula"
	"dre/internal/pnl"
)

// Breakdown derives KPI breakdowns from the backend's summary tables.
type Breakdown struct {
	summaries pnl.SummaryReader
}

func NewBreakdown(summaries pnl.SummaryReader) *Breakdown {
	return &Breakdown{summaries: summaries}
}

// Derive fetches the KPI summary and cost structure concurrently and
// runs the formula engine for the requested kind.
func (b *Breakdown) Derive(ctx context.Context, kind formula.Kind) (*formula.Breakdown, error) {
	var (
		kpis  core.KPISummary
		costs core.CostStructure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kpis, err = b.summaries.ReadKPISummary(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		costs, err = b.summaries.ReadCostStructure(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}

	return formula.Derive(kind, kpis, costs), nil
}
