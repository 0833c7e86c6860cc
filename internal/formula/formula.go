// Package formula derives KPI values together with a human-auditable
// breakdown: an ordered list of arithmetic steps plus a formal-notation
// formula string with the substituted numbers. Every derivation is a pure
// function of the KPI summary and cost structure; missing inputs default
// to zero and never surface as an error.
package formula

import (
	"fmt"

	"dre/internal/core"
)

// Kind identifies one derivable concept. The set is closed: every kind
// listed here has a case in Derive, and anything else yields no breakdown.
type Kind string

const (
	TotalRevenue      Kind = "total_revenue"
	GrossProfit       Kind = "gross_profit"
	EBITDA            Kind = "ebitda"
	NetResult         Kind = "net_result"
	EBITDAMargin      Kind = "ebitda_margin"
	GrossMargin       Kind = "gross_margin"
	PaymentProcessing Kind = "payment_processing"
	COGS              Kind = "cogs"
	Marketing         Kind = "marketing"
	Wages             Kind = "wages"
	Tech              Kind = "tech"
	Other             Kind = "other"
)

// Kinds lists every derivable kind in display order.
var Kinds = []Kind{
	TotalRevenue, GrossProfit, EBITDA, NetResult,
	EBITDAMargin, GrossMargin,
	PaymentProcessing, COGS, Marketing, Wages, Tech, Other,
}

// ParseKind maps a request string to a Kind. ok is false for anything
// outside the closed set; callers treat that as "no breakdown available",
// not as a failure.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Step is one entry of the audit trail. Symbol is the operator applied to
// the running derivation (+, -, *, / or =); SubItem marks indented detail
// rows that expand a preceding aggregate.
type Step struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Symbol  string  `json:"symbol,omitempty"`
	SubItem bool    `json:"is_sub_item,omitempty"`
}

// Breakdown is the full derivation for one KPI. The last step always
// carries symbol "=" and the final value, and FormulaText renders the
// symbolic formula with values substituted at two fraction digits.
type Breakdown struct {
	Title       string  `json:"title"`
	Value       float64 `json:"value"`
	Steps       []Step  `json:"breakdown"`
	FormulaText string  `json:"formula"`
}

// The Google/Apple revenue estimate assumes payment processing is 17.65%
// of store revenue, split 55/45. It is a fallback for when the backend
// does not supply the actual split; the residual "investment income" plug
// can go negative when the ratio does not hold for the real data.
const processingRate = 0.1765

// Derive computes the breakdown for one kind. It returns nil only for a
// kind outside the closed set. Calling it twice with the same inputs
// yields identical output, including byte-identical FormulaText.
func Derive(kind Kind, kpis core.KPISummary, costs core.CostStructure) *Breakdown {
	paymentProcessing := costs.PaymentProcessing
	cogs := costs.COGS
	marketing := costs.Marketing
	wages := costs.Wages
	tech := costs.Tech
	other := costs.Other

	totalRevenue := orZero(kpis.TotalRevenue)
	costOfRevenue := paymentProcessing + cogs
	grossProfit := orElse(kpis.GrossProfit, totalRevenue-costOfRevenue)
	sgaTotal := marketing + wages + tech
	totalOpex := sgaTotal + other
	ebitda := orElse(kpis.EBITDA, grossProfit-totalOpex)
	// Net result has no financial-expense or tax adjustment yet; it is the
	// EBITDA identity until that model exists.
	netResult := orElse(kpis.NetResult, ebitda)

	googleRev := orElse(kpis.GoogleRevenue, paymentProcessing/processingRate*0.55)
	appleRev := orElse(kpis.AppleRevenue, paymentProcessing/processingRate*0.45)
	investIncome := totalRevenue - (googleRev + appleRev)
	revenueNoTax := googleRev + appleRev

	switch kind {
	case TotalRevenue:
		return &Breakdown{
			Title: "Total Revenue",
			Value: totalRevenue,
			Steps: []Step{
				{Label: "Google Revenue", Value: googleRev, Symbol: "+"},
				{Label: "Apple Revenue", Value: appleRev, Symbol: "+"},
				{Label: "Investment Income", Value: investIncome, Symbol: "="},
				{Label: "Total", Value: totalRevenue, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% Total Revenue\nTotal_Revenue = Google_Rev + Apple_Rev + Invest_Income\n\n%% Values:\nGoogle_Rev = %.2f\nApple_Rev = %.2f\nInvest_Income = %.2f\nTotal_Revenue = %.2f",
				googleRev, appleRev, investIncome, totalRevenue),
		}

	case GrossProfit:
		return &Breakdown{
			Title: "Gross Profit",
			Value: grossProfit,
			Steps: []Step{
				{Label: "Total Revenue", Value: totalRevenue, Symbol: "-"},
				{Label: "Cost of Revenue", Value: costOfRevenue},
				{Label: "Payment Processing (17.65%)", Value: paymentProcessing, Symbol: "-", SubItem: true},
				{Label: "COGS (Web Services)", Value: cogs, Symbol: "-", SubItem: true},
				{Label: "Total", Value: grossProfit, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% Gross Profit\nGross_Profit = Total_Revenue - Cost_of_Revenue\n\n%% Where:\nCost_of_Revenue = Payment_Processing + COGS\nPayment_Processing = Revenue_NoTax * 0.1765\n\n%% Values:\nTotal_Revenue = %.2f\nPayment_Processing = %.2f\nCOGS = %.2f\nGross_Profit = %.2f",
				totalRevenue, paymentProcessing, cogs, grossProfit),
		}

	case EBITDA:
		return &Breakdown{
			Title: "EBITDA",
			Value: ebitda,
			Steps: []Step{
				{Label: "Gross Profit", Value: grossProfit, Symbol: "-"},
				{Label: "Operating Expenses", Value: totalOpex},
				{Label: "SG&A", Value: sgaTotal, SubItem: true},
				{Label: "Marketing", Value: marketing, Symbol: "-", SubItem: true},
				{Label: "Wages", Value: wages, Symbol: "-", SubItem: true},
				{Label: "Tech Support & Services", Value: tech, Symbol: "-", SubItem: true},
				{Label: "Other Expenses", Value: other, Symbol: "-"},
				{Label: "Total", Value: ebitda, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% EBITDA\nEBITDA = Gross_Profit - OpEx\n\n%% Where:\nOpEx = SGA + Other_Expenses\nSGA = Marketing + Wages + Tech_Support\n\n%% Values:\nGross_Profit = %.2f\nMarketing = %.2f\nWages = %.2f\nTech_Support = %.2f\nOther_Expenses = %.2f\nEBITDA = %.2f",
				grossProfit, marketing, wages, tech, other, ebitda),
		}

	case NetResult:
		return &Breakdown{
			Title: "Net Result",
			Value: netResult,
			Steps: []Step{
				{Label: "EBITDA", Value: ebitda, Symbol: "="},
				{Label: "Total", Value: netResult, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% Net Result\n%% No financial expenses or taxes yet\nNet_Result = EBITDA\n\n%% Full formula (future):\n%% Net_Result = EBITDA - Financial_Expenses - Taxes\n\n%% Values:\nEBITDA = %.2f\nNet_Result = %.2f",
				ebitda, netResult),
		}

	case EBITDAMargin:
		margin := orElse(kpis.EBITDAMargin, ratio(ebitda, totalRevenue))
		return &Breakdown{
			Title: "EBITDA Margin",
			Value: margin,
			Steps: []Step{
				{Label: "EBITDA", Value: ebitda, Symbol: "/"},
				{Label: "Total Revenue", Value: totalRevenue, Symbol: "*"},
				{Label: "100", Value: 100, Symbol: "="},
				{Label: "Total (%)", Value: margin, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% EBITDA Margin\nEBITDA_Margin = (EBITDA / Total_Revenue) * 100\n\n%% Values:\nEBITDA = %.2f\nTotal_Revenue = %.2f\nEBITDA_Margin = %.2f%%",
				ebitda, totalRevenue, margin),
		}

	case GrossMargin:
		margin := orElse(kpis.GrossMargin, ratio(grossProfit, totalRevenue))
		return &Breakdown{
			Title: "Gross Margin",
			Value: margin,
			Steps: []Step{
				{Label: "Gross Profit", Value: grossProfit, Symbol: "/"},
				{Label: "Total Revenue", Value: totalRevenue, Symbol: "*"},
				{Label: "100", Value: 100, Symbol: "="},
				{Label: "Total (%)", Value: margin, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% Gross Margin\nGross_Margin = (Gross_Profit / Total_Revenue) * 100\n\n%% Values:\nGross_Profit = %.2f\nTotal_Revenue = %.2f\nGross_Margin = %.2f%%",
				grossProfit, totalRevenue, margin),
		}

	case PaymentProcessing:
		return &Breakdown{
			Title: "Payment Processing (17.65%)",
			Value: paymentProcessing,
			Steps: []Step{
				{Label: "Revenue (Google + Apple)", Value: revenueNoTax, Symbol: "*"},
				{Label: "Rate", Value: processingRate, Symbol: "="},
				{Label: "Total", Value: paymentProcessing, Symbol: "="},
			},
			FormulaText: fmt.Sprintf(
				"%% Payment Processing (17.65%%)\nPayment_Processing = Revenue_NoTax * 0.1765\n\n%% Values:\nRevenue_NoTax = %.2f\nRate = 17.65%%\nPayment_Processing = %.2f",
				revenueNoTax, paymentProcessing),
		}

	case COGS:
		return flatBreakdown("COGS (Web Services)", cogs)
	case Marketing:
		return flatBreakdown("Marketing", marketing)
	case Wages:
		return flatBreakdown("Wages", wages)
	case Tech:
		return flatBreakdown("Tech Support & Services", tech)
	case Other:
		return flatBreakdown("Other Expenses", other)

	default:
		return nil
	}
}

// flatBreakdown covers cost categories that are plain aggregates with no
// derivation of their own.
func flatBreakdown(title string, value float64) *Breakdown {
	return &Breakdown{
		Title: title,
		Value: value,
		Steps: []Step{
			{Label: "Total", Value: value, Symbol: "="},
		},
		FormulaText: fmt.Sprintf("%% %s\nTotal = %.2f", title, value),
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}
