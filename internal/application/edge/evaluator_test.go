package edge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/application/edge"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

var now = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func quote() domain.MarketQuote {
	return domain.MarketQuote{
		MarketID:  "0xmkt",
		Question:  "Will it happen?",
		YesPrice:  0.60,
		NoPrice:   0.40,
		Volume24h: 50_000,
		FetchedAt: now,
	}
}

func raw() domain.RawSignal {
	return domain.RawSignal{
		MarketID:      "0xmkt",
		Direction:     domain.DirectionYes,
		EstimatedProb: 0.75,
		Confidence:    8,
		Reasoning:     "breaking news",
	}
}

func TestEvaluate_FeeFreeEdge(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	sig, err := ev.Evaluate(raw(), quote(), 25, now)
	require.NoError(t, err)

	// p=0.75 at 0.60: 0.75*0.40 - 0.25*0.60 = 0.15
	assert.InDelta(t, 0.15, sig.Edge, 1e-9)
	assert.InDelta(t, 0.60, sig.QuotedPrice, 1e-9)
	assert.InDelta(t, 0.60, sig.EffectivePrice, 1e-9)
	assert.Equal(t, domain.DirectionYes, sig.Direction)
	assert.NotEmpty(t, sig.ID)
}

func TestEvaluate_TakerFeeReducesEdge(t *testing.T) {
	ev := edge.New(edge.Config{TakerFeeRate: 0.02, MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	sig, err := ev.Evaluate(raw(), quote(), 25, now)
	require.NoError(t, err)
	assert.InDelta(t, 0.13, sig.Edge, 1e-9)
}

func TestEvaluate_NoDirectionUsesNoPrice(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	r := raw()
	r.Direction = domain.DirectionNo
	sig, err := ev.Evaluate(r, quote(), 25, now)
	require.NoError(t, err)

	// p=0.75 at 0.40: 0.75*0.60 - 0.25*0.40 = 0.35
	assert.InDelta(t, 0.40, sig.QuotedPrice, 1e-9)
	assert.InDelta(t, 0.35, sig.Edge, 1e-9)
}

func TestEvaluate_EdgeAtThresholdRejected(t *testing.T) {
	// p=0.55 at 0.50 → ev mathematically exactly 0.05, but float rounding
	// lands the computed value a hair above the floor; still a rejection.
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	r := raw()
	r.EstimatedProb = 0.55
	q := quote()
	q.YesPrice, q.NoPrice = 0.50, 0.50

	_, err := ev.Evaluate(r, q, 25, now)
	assert.ErrorIs(t, err, edge.ErrEdgeTooSmall)

	// Binary-exact equality (0.5625*0.5 - 0.4375*0.5 == 0.0625 with no
	// rounding) is rejected the same way.
	ev = edge.New(edge.Config{MinEdge: 0.0625, MinConfidence: 6}, edge.NoSlippage)
	r.EstimatedProb = 0.5625
	_, err = ev.Evaluate(r, q, 25, now)
	assert.ErrorIs(t, err, edge.ErrEdgeTooSmall)

	// A floor genuinely below the EV still passes.
	ev = edge.New(edge.Config{MinEdge: 0.06, MinConfidence: 6}, edge.NoSlippage)
	sig, err := ev.Evaluate(r, q, 25, now)
	require.NoError(t, err)
	assert.InDelta(t, 0.0625, sig.Edge, 1e-9)
}

func TestEvaluate_LowConfidenceRejected(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	r := raw()
	r.Confidence = 5
	_, err := ev.Evaluate(r, quote(), 25, now)
	assert.ErrorIs(t, err, edge.ErrLowConfidence)
}

func TestEvaluate_InvalidProbability(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	r := raw()
	r.EstimatedProb = 1.2
	_, err := ev.Evaluate(r, quote(), 25, now)
	assert.ErrorIs(t, err, domain.ErrInvalidSignal)
}

func TestEvaluate_MissingQuoteRejected(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	_, err := ev.Evaluate(raw(), domain.MarketQuote{}, 25, now)
	assert.ErrorIs(t, err, domain.ErrStaleMarketData)
}

func TestEvaluate_StaleQuoteRejected(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6, MaxQuoteAge: time.Minute}, edge.NoSlippage)

	q := quote()
	q.FetchedAt = now.Add(-2 * time.Minute)
	_, err := ev.Evaluate(raw(), q, 25, now)
	assert.ErrorIs(t, err, domain.ErrStaleMarketData)
}

func TestLinearSlippage(t *testing.T) {
	// $1000 into $10k daily volume at impact 0.10 bumps the price 1%
	assert.InDelta(t, 0.606, edge.LinearSlippage(0.60, 1000, 10_000), 1e-9)

	// unknown volume → quote taken as-is
	assert.InDelta(t, 0.60, edge.LinearSlippage(0.60, 1000, 0), 1e-9)

	// never slips past the ceiling
	assert.InDelta(t, 0.99, edge.LinearSlippage(0.95, 50_000, 10_000), 1e-9)
}

func TestEvaluate_DeterministicEdge(t *testing.T) {
	ev := edge.New(edge.Config{MinEdge: 0.05, MinConfidence: 6}, edge.NoSlippage)

	a, err := ev.Evaluate(raw(), quote(), 25, now)
	require.NoError(t, err)
	b, err := ev.Evaluate(raw(), quote(), 25, now)
	require.NoError(t, err)

	assert.Equal(t, a.Edge, b.Edge)
	assert.Equal(t, a.EffectivePrice, b.EffectivePrice)
}
