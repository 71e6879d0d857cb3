package risk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/edgebot/internal/application/risk"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func check() risk.Check {
	return risk.Check{
		Signal: domain.Signal{MarketID: "0xmkt", Edge: 0.12},
		Stake:  20,
		State: domain.RiskState{
			Bankroll:           500,
			StartOfDayBankroll: 500,
			DailyPnL:           0,
			OpenPositions:      2,
		},
		MarketVolume24h:  10_000,
		ExistingExposure: 0,
	}
}

func TestApprove_Passes(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	ok, reason := m.Approve(check())
	assert.True(t, ok)
	assert.Equal(t, risk.ReasonPassed, reason)
}

func TestApprove_MinEdge(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	c := check()
	c.Signal.Edge = 0.03
	ok, reason := m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonMinEdge), reason)
}

func TestApprove_MaxPositions(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	c := check()
	c.State.OpenPositions = 10
	ok, reason := m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonMaxPositions), reason)
}

func TestApprove_DailyLoss(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	// 10% of a 500 start-of-day bankroll is -50; hitting it exactly stops
	c := check()
	c.State.DailyPnL = -50
	ok, reason := m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonDailyLoss), reason)

	c.State.DailyPnL = -49.99
	ok, _ = m.Approve(c)
	assert.True(t, ok)
}

func TestApprove_Liquidity(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	c := check()
	c.Stake = 1001 // over 10% of 10k volume
	ok, reason := m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonLiquidity), reason)

	c = check()
	c.MarketVolume24h = 0
	ok, reason = m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonLiquidity), reason)
}

func TestApprove_Exposure(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	// per-market cap is 5% of 500 = 25; 15 committed + 20 more breaks it
	c := check()
	c.ExistingExposure = 15
	ok, reason := m.Approve(c)
	assert.False(t, ok)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonExposure), reason)
}

func TestApprove_GateOrderShortCircuits(t *testing.T) {
	m := risk.New(risk.DefaultLimits())

	// Fails edge AND position count — edge is reported, being first
	c := check()
	c.Signal.Edge = 0.01
	c.State.OpenPositions = 10
	_, reason := m.Approve(c)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonMinEdge), reason)

	// Fails daily loss AND liquidity — daily loss wins
	c = check()
	c.State.DailyPnL = -100
	c.MarketVolume24h = 0
	_, reason = m.Approve(c)
	assert.True(t, strings.HasPrefix(reason, risk.ReasonDailyLoss), reason)
}
