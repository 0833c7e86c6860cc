package formula

import (
	"math"
	"reflect"
	"testing"

	"dre/internal/core"
)

func fp(v float64) *float64 { return &v }

// The reference scenario: revenue 1000, payment processing 176.5, COGS 50,
// marketing 30, wages 40, tech 10, other 5. Cost of revenue is 226.5,
// gross profit 773.5, operating expenses 85, EBITDA 688.5.
func referenceInputs() (core.KPISummary, core.CostStructure) {
	kpis := core.KPISummary{TotalRevenue: fp(1000)}
	costs := core.CostStructure{
		PaymentProcessing: 176.5,
		COGS:              50,
		Marketing:         30,
		Wages:             40,
		Tech:              10,
		Other:             5,
	}
	return kpis, costs
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeriveValues(t *testing.T) {
	kpis, costs := referenceInputs()

	tests := []struct {
		kind Kind
		want float64
	}{
		{TotalRevenue, 1000},
		{GrossProfit, 773.5},
		{EBITDA, 688.5},
		{NetResult, 688.5},
		{EBITDAMargin, 68.85},
		{GrossMargin, 77.35},
		{PaymentProcessing, 176.5},
		{COGS, 50},
		{Marketing, 30},
		{Wages, 40},
		{Tech, 10},
		{Other, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			bd := Derive(tt.kind, kpis, costs)
			if bd == nil {
				t.Fatal("Derive() returned nil for a known kind")
			}
			if !almostEqual(bd.Value, tt.want) {
				t.Errorf("Value = %v, want %v", bd.Value, tt.want)
			}
			if len(bd.Steps) == 0 {
				t.Fatal("no steps")
			}
			last := bd.Steps[len(bd.Steps)-1]
			if last.Symbol != "=" {
				t.Errorf("last step symbol = %q, want \"=\"", last.Symbol)
			}
			if !almostEqual(last.Value, tt.want) {
				t.Errorf("last step value = %v, want %v", last.Value, tt.want)
			}
			if bd.FormulaText == "" {
				t.Error("empty formula text")
			}
		})
	}
}

func TestDeriveGoogleAppleSplit(t *testing.T) {
	kpis, costs := referenceInputs()

	bd := Derive(TotalRevenue, kpis, costs)

	// 176.5 / 0.1765 = 1000 of store revenue, split 55/45.
	wantGoogle := 550.0
	wantApple := 450.0
	if !almostEqual(bd.Steps[0].Value, wantGoogle) {
		t.Errorf("google revenue = %v, want %v", bd.Steps[0].Value, wantGoogle)
	}
	if !almostEqual(bd.Steps[1].Value, wantApple) {
		t.Errorf("apple revenue = %v, want %v", bd.Steps[1].Value, wantApple)
	}
	// Store revenue happens to equal total revenue here, so the residual
	// investment income is zero.
	if !almostEqual(bd.Steps[2].Value, 0) {
		t.Errorf("investment income = %v, want 0", bd.Steps[2].Value)
	}
}

func TestDeriveInvestmentIncomeResidualCanGoNegative(t *testing.T) {
	kpis := core.KPISummary{TotalRevenue: fp(900)}
	costs := core.CostStructure{PaymentProcessing: 176.5}

	bd := Derive(TotalRevenue, kpis, costs)
	if !almostEqual(bd.Steps[2].Value, -100) {
		t.Errorf("investment income = %v, want -100", bd.Steps[2].Value)
	}
}

func TestDerivePrefersSuppliedKPIs(t *testing.T) {
	kpis, costs := referenceInputs()
	kpis.EBITDA = fp(700)
	kpis.GoogleRevenue = fp(600)
	kpis.AppleRevenue = fp(300)

	if bd := Derive(EBITDA, kpis, costs); !almostEqual(bd.Value, 700) {
		t.Errorf("supplied EBITDA ignored: got %v", bd.Value)
	}

	bd := Derive(TotalRevenue, kpis, costs)
	if !almostEqual(bd.Steps[0].Value, 600) || !almostEqual(bd.Steps[1].Value, 300) {
		t.Errorf("supplied split ignored: google %v apple %v", bd.Steps[0].Value, bd.Steps[1].Value)
	}
	// Residual picks up the 100 not covered by the stores.
	if !almostEqual(bd.Steps[2].Value, 100) {
		t.Errorf("investment income = %v, want 100", bd.Steps[2].Value)
	}
}

func TestDeriveZeroRevenueMargins(t *testing.T) {
	costs := core.CostStructure{Marketing: 10}

	for _, kind := range []Kind{EBITDAMargin, GrossMargin} {
		bd := Derive(kind, core.KPISummary{}, costs)
		if bd.Value != 0 {
			t.Errorf("%s with zero revenue = %v, want 0", kind, bd.Value)
		}
	}
}

func TestDeriveEmptyInputs(t *testing.T) {
	for _, kind := range Kinds {
		bd := Derive(kind, core.KPISummary{}, core.CostStructure{})
		if bd == nil {
			t.Fatalf("Derive(%s) on empty inputs returned nil", kind)
		}
		if bd.Value != 0 {
			t.Errorf("Derive(%s) on empty inputs = %v, want 0", kind, bd.Value)
		}
	}
}

func TestDeriveUnknownKind(t *testing.T) {
	if bd := Derive(Kind("nonsense"), core.KPISummary{}, core.CostStructure{}); bd != nil {
		t.Errorf("Derive(nonsense) = %+v, want nil", bd)
	}
}

func TestDeriveDeterministic(t *testing.T) {
	kpis, costs := referenceInputs()
	for _, kind := range Kinds {
		a := Derive(kind, kpis, costs)
		b := Derive(kind, kpis, costs)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Derive(%s) not deterministic", kind)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, ok := ParseKind(string(k))
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, ok)
		}
	}
	if _, ok := ParseKind("EBITDA"); ok {
		t.Error("ParseKind is case-sensitive by contract, accepted uppercase")
	}
	if _, ok := ParseKind(""); ok {
		t.Error("ParseKind accepted empty string")
	}
}
