package perf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/application/perf"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func TestMaxDrawdown(t *testing.T) {
	// Peak 600, trough 450 → 25%
	assert.InDelta(t, 0.25, perf.MaxDrawdown([]float64{500, 600, 450, 700}), 1e-9)

	// Monotonic growth never draws down
	assert.Zero(t, perf.MaxDrawdown([]float64{500, 550, 600}))

	// Too short to measure
	assert.Zero(t, perf.MaxDrawdown(nil))
	assert.Zero(t, perf.MaxDrawdown([]float64{500}))
}

func TestWinRate(t *testing.T) {
	results := []domain.BetResult{
		{PnL: 25}, {PnL: -10}, {PnL: 5},
	}
	assert.InDelta(t, 2.0/3.0, perf.WinRate(results), 1e-9)
	assert.Zero(t, perf.WinRate(nil))
}

func TestAvgEdgeAndTotalPnL(t *testing.T) {
	results := []domain.BetResult{
		{PnL: 25, EdgeAtEntry: 0.10},
		{PnL: -10, EdgeAtEntry: 0.06},
	}
	assert.InDelta(t, 0.08, perf.AvgEdge(results), 1e-9)
	assert.InDelta(t, 15, perf.TotalPnL(results), 1e-9)
	assert.Zero(t, perf.AvgEdge(nil))
	assert.Zero(t, perf.TotalPnL(nil))
}

func TestDailyReturns(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }
	samples := []domain.EquitySample{
		{Date: day(1), Bankroll: 500},
		{Date: day(2), Bankroll: 550},
		{Date: day(3), Bankroll: 495},
	}

	returns := perf.DailyReturns(samples)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Nil(t, perf.DailyReturns(samples[:1]))
}

func TestSharpeRatio_Guards(t *testing.T) {
	// Never NaN: short series and flat series both yield 0
	assert.Zero(t, perf.SharpeRatio(nil))
	assert.Zero(t, perf.SharpeRatio([]float64{0.01}))
	assert.Zero(t, perf.SharpeRatio([]float64{0.02, 0.02, 0.02}))
}

func TestSharpeRatio_Annualized(t *testing.T) {
	got := perf.SharpeRatio([]float64{0.01, 0.03})
	// mean 0.02, stdev 0.01 → 2 * sqrt(365)
	assert.InDelta(t, 2*19.1049731745, got, 1e-6)
	assert.Greater(t, got, 0.0)
}

func TestAccountant_Metrics(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }
	led := &ledgerStub{
		results: []domain.BetResult{
			{PnL: 25, EdgeAtEntry: 0.10},
			{PnL: -10, EdgeAtEntry: 0.06},
		},
		samples: []domain.EquitySample{
			{Date: day(1), Bankroll: 500},
			{Date: day(2), Bankroll: 600},
			{Date: day(3), Bankroll: 450},
		},
	}

	m, err := perf.New(led).Metrics(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 15, m.TotalPnL, 1e-9)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.Equal(t, 2, m.NumBets)
	assert.InDelta(t, 0.08, m.AvgEdge, 1e-9)
	assert.InDelta(t, 0.25, m.MaxDrawdown, 1e-9)
}

// ledgerStub serves canned results for the read-back methods the accountant
// uses; everything else is unused.
type ledgerStub struct {
	results []domain.BetResult
	samples []domain.EquitySample
}

func (l *ledgerStub) SaveSignal(context.Context, domain.Signal, string) error { return nil }
func (l *ledgerStub) ApplyBet(context.Context, domain.Bet, domain.Position, float64) error {
	return nil
}
func (l *ledgerStub) ApplyResolution(context.Context, domain.Resolution, []domain.BetResult, float64) error {
	return nil
}
func (l *ledgerStub) SaveEquitySample(context.Context, domain.EquitySample) error { return nil }
func (l *ledgerStub) Bankroll(context.Context) (float64, bool, error)             { return 0, false, nil }
func (l *ledgerStub) SetBankroll(context.Context, float64) error                  { return nil }
func (l *ledgerStub) OpenPositions(context.Context) ([]domain.Position, error)    { return nil, nil }
func (l *ledgerStub) OpenBets(context.Context) ([]domain.Bet, error)              { return nil, nil }
func (l *ledgerStub) ResolvedMarkets(context.Context) ([]domain.Resolution, error) {
	return nil, nil
}
func (l *ledgerStub) BetResults(context.Context) ([]domain.BetResult, error) { return l.results, nil }
func (l *ledgerStub) EquitySeries(context.Context) ([]domain.EquitySample, error) {
	return l.samples, nil
}
func (l *ledgerStub) Close() error { return nil }
