package domain

// PerformanceMetrics is a pure aggregation over the resolved-bet and
// equity-sample ledger. Recomputed on demand, never mutated in place.
type PerformanceMetrics struct {
	TotalPnL    float64
	WinRate     float64
	NumBets     int
	AvgEdge     float64
	Sharpe      float64
	MaxDrawdown float64
}

// BacktestResult summarizes one historical replay.
type BacktestResult struct {
	StartBankroll float64
	FinalBankroll float64
	TotalPnL      float64
	NumTrades     int
	WinRate       float64
	Sharpe        float64
	MaxDrawdown   float64
	Trades        []BetResult
	Equity        []EquitySample
}
