package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func samplePositions() []domain.Position {
	return []domain.Position{{
		MarketID:  "0xabc",
		Direction: domain.DirectionYes,
		Shares:    41.67,
		AvgPrice:  0.60,
		OpenedAt:  time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
		Status:    domain.PositionOpen,
	}}
}

func sampleMetrics() domain.PerformanceMetrics {
	return domain.PerformanceMetrics{
		TotalPnL:    16.67,
		WinRate:     0.5,
		NumBets:     4,
		AvgEdge:     0.08,
		Sharpe:      1.2,
		MaxDrawdown: 0.05,
	}
}

func TestNotifyStatus_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	err := c.NotifyStatus(context.Background(), samplePositions(), sampleMetrics(), 491.67)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "bank $491.67")
	assert.Contains(t, out, "1 open")
	assert.Contains(t, out, "pnl $16.67")
	assert.Contains(t, out, "win 50%")
	assert.Contains(t, out, "YES 0xabc 41.7@0.60")
}

func TestNotifyStatus_Table(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	err := c.NotifyStatus(context.Background(), samplePositions(), sampleMetrics(), 491.67)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "bankroll $491.67")
	assert.Contains(t, out, "0xabc")
	assert.Contains(t, out, "41.67")
	// Cost basis = shares * avg price
	assert.Contains(t, out, "$25.00")
	assert.Contains(t, out, "sharpe 1.20")
}

func TestNotifyStatus_EmptyBook(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	err := c.NotifyStatus(context.Background(), nil, domain.PerformanceMetrics{}, 500)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0 open positions")
}

func TestPrintBacktest_WithTrades(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.PrintBacktest(domain.BacktestResult{
		StartBankroll: 500,
		FinalBankroll: 541.67,
		TotalPnL:      41.67,
		NumTrades:     2,
		WinRate:       1.0,
		Sharpe:        2.1,
		MaxDrawdown:   0.03,
		Trades: []domain.BetResult{{
			MarketID:   "0xabc",
			Direction:  domain.DirectionYes,
			PnL:        16.67,
			Outcome:    "win",
			ResolvedAt: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "BACKTEST REPORT")
	assert.Contains(t, out, "$500.00 -> $541.67 (+8.3%)")
	assert.Contains(t, out, "WIN")
	assert.Contains(t, out, "2026-08-02")
	assert.Contains(t, out, "Win rate:     100.0%")
}

func TestPrintBacktest_NoTrades(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintBacktest(domain.BacktestResult{StartBankroll: 500, FinalBankroll: 500})
	assert.Contains(t, buf.String(), "No trades executed")
}
