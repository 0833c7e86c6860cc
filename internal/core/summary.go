package core

// CostStructure aggregates cost categories for the period in scope.
// Missing categories count as zero in every derivation.
type CostStructure struct {
	PaymentProcessing float64 `json:"payment_processing"`
	COGS              float64 `json:"cogs"`
	Marketing         float64 `json:"marketing"`
	Wages             float64 `json:"wages"`
	Tech              float64 `json:"tech"`
	Other             float64 `json:"other"`
}

// KPISummary carries backend-supplied scalars. A nil field means the value
// was not supplied and the formula engine derives it from the cost
// structure and the other KPIs.
type KPISummary struct {
	TotalRevenue  *float64 `json:"total_revenue,omitempty"`
	GrossProfit   *float64 `json:"gross_profit,omitempty"`
	EBITDA        *float64 `json:"ebitda,omitempty"`
	NetResult     *float64 `json:"net_result,omitempty"`
	GrossMargin   *float64 `json:"gross_margin,omitempty"`
	EBITDAMargin  *float64 `json:"ebitda_margin,omitempty"`
	GoogleRevenue *float64 `json:"google_revenue,omitempty"`
	AppleRevenue  *float64 `json:"apple_revenue,omitempty"`
}
