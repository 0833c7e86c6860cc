package services

import (
	"context"
	"errors"
	"testing"

	"dre/internal/core"
	"dre/internal/formula"
)

type fakeSummaries struct {
	kpis    core.KPISummary
	costs   core.CostStructure
	kpiErr  error
	costErr error
}

func (f *fakeSummaries) ReadKPISummary(ctx context.Context) (core.KPISummary, error) {
	return f.kpis, f.kpiErr
}

func (f *fakeSummaries) ReadCostStructure(ctx context.Context) (core.CostStructure, error) {
	return f.costs, f.costErr
}

func TestBreakdownDerive(t *testing.T) {
	revenue := 1000.0
	svc := NewBreakdown(&fakeSummaries{
		kpis: core.KPISummary{TotalRevenue: &revenue},
		costs: core.CostStructure{
			PaymentProcessing: 176.5,
			COGS:              50,
			Marketing:         30,
			Wages:             40,
			Tech:              10,
			Other:             5,
		},
	})

	b, err := svc.Derive(context.Background(), formula.EBITDA)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if b.Value != 688.5 {
		t.Errorf("EBITDA = %.2f, want 688.50", b.Value)
	}
}

func TestBreakdownDerivePropagatesErrors(t *testing.T) {
	wantErr := errors.New("summary table unavailable")
	svc := NewBreakdown(&fakeSummaries{costErr: wantErr})

	if _, err := svc.Derive(context.Background(), formula.GrossProfit); !errors.Is(err, wantErr) {
		t.Errorf("Derive() error = %v, want %v", err, wantErr)
	}
}
