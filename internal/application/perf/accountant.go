// Package perf derives performance metrics from the append-only ledger.
// Everything here is pure aggregation recomputed on demand.
package perf

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

const tradingDaysPerYear = 365 // prediction markets trade every day

// WinRate is wins over total resolved bets, 0 when nothing resolved yet.
func WinRate(results []domain.BetResult) float64 {
	if len(results) == 0 {
		return 0
	}
	wins := 0
	for _, r := range results {
		if r.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(results))
}

// AvgEdge is the mean edge-at-entry over resolved bets.
func AvgEdge(results []domain.BetResult) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.EdgeAtEntry
	}
	return sum / float64(len(results))
}

// TotalPnL sums realized P&L over resolved bets.
func TotalPnL(results []domain.BetResult) float64 {
	total := 0.0
	for _, r := range results {
		total += r.PnL
	}
	return total
}

// DailyReturns converts an equity series into simple period returns.
// Samples with a non-positive predecessor contribute 0.
func DailyReturns(samples []domain.EquitySample) []float64 {
	if len(samples) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		prev := samples[i-1].Bankroll
		if prev <= 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (samples[i].Bankroll-prev)/prev)
	}
	return returns
}

// SharpeRatio annualizes mean/stdev of the daily returns. Returns 0 — never
// NaN — for fewer than 2 samples or zero variance.
func SharpeRatio(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range dailyReturns {
		mean += r
	}
	mean /= float64(len(dailyReturns))

	variance := 0.0
	for _, r := range dailyReturns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(dailyReturns))

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown is the largest peak-to-trough decline as a fraction of the
// peak, 0 for series shorter than 2 points.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Accountant recomputes metrics from the ledger.
type Accountant struct {
	ledger ports.Ledger
}

func New(ledger ports.Ledger) *Accountant {
	return &Accountant{ledger: ledger}
}

// Metrics reads the resolved-bet and equity ledgers and aggregates them.
func (a *Accountant) Metrics(ctx context.Context) (domain.PerformanceMetrics, error) {
	results, err := a.ledger.BetResults(ctx)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("perf.Metrics: bet results: %w", err)
	}
	samples, err := a.ledger.EquitySeries(ctx)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("perf.Metrics: equity series: %w", err)
	}

	equity := make([]float64, len(samples))
	for i, s := range samples {
		equity[i] = s.Bankroll
	}

	return domain.PerformanceMetrics{
		TotalPnL:    TotalPnL(results),
		WinRate:     WinRate(results),
		NumBets:     len(results),
		AvgEdge:     AvgEdge(results),
		Sharpe:      SharpeRatio(DailyReturns(samples)),
		MaxDrawdown: MaxDrawdown(equity),
	}, nil
}
