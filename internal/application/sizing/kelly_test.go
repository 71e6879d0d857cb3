package sizing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/edgebot/internal/application/sizing"
)

func TestKellyFraction_HalfKelly(t *testing.T) {
	// p=0.6 at even odds: full Kelly = (0.6*1 - 0.4)/1 = 0.2, half = 0.1
	got := sizing.KellyFraction(0.6, 2.0, 0.5)
	assert.InDelta(t, 0.1, got, 1e-9)
}

func TestKellyFraction_NegativeEdgeIsZero(t *testing.T) {
	// p=0.4 at even odds loses money — never bet
	assert.Zero(t, sizing.KellyFraction(0.4, 2.0, 0.5))
}

func TestKellyFraction_DegenerateInputs(t *testing.T) {
	assert.Zero(t, sizing.KellyFraction(0.6, 1.0, 0.5), "odds <= 1")
	assert.Zero(t, sizing.KellyFraction(0.6, 0.8, 0.5), "odds below 1")
	assert.Zero(t, sizing.KellyFraction(0, 2.0, 0.5), "p = 0")
	assert.Zero(t, sizing.KellyFraction(1, 2.0, 0.5), "p = 1")
	assert.Zero(t, sizing.KellyFraction(0.6, 2.0, 0), "fraction = 0")
}

func TestKellyFraction_ClampedToOne(t *testing.T) {
	// Near-certain win at long odds pushes scaled Kelly past 1
	got := sizing.KellyFraction(0.99, 50.0, 1.5)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestStakeAmount_CappedAtMaxBetPct(t *testing.T) {
	// price 0.5 → odds 2; p=0.9 half-Kelly = 0.4, cap 5% wins
	got := sizing.StakeAmount(1000, 0.9, 0.5, 0.5, 0.05)
	assert.InDelta(t, 50.0, got, 1e-9)
}

func TestStakeAmount_BelowCap(t *testing.T) {
	// half-Kelly 0.1 under a 25% cap → $100 on $1000
	got := sizing.StakeAmount(1000, 0.6, 0.5, 0.5, 0.25)
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestStakeAmount_NoEdgeNoStake(t *testing.T) {
	assert.Zero(t, sizing.StakeAmount(1000, 0.4, 0.5, 0.5, 0.05))
}

func TestStakeAmount_InvalidInputs(t *testing.T) {
	assert.Zero(t, sizing.StakeAmount(0, 0.6, 0.5, 0.5, 0.05), "no bankroll")
	assert.Zero(t, sizing.StakeAmount(1000, 0.6, 0, 0.5, 0.05), "price 0")
	assert.Zero(t, sizing.StakeAmount(1000, 0.6, 1, 0.5, 0.05), "price 1")
	assert.Zero(t, sizing.StakeAmount(1000, 0.6, 0.5, 0.5, 0), "no cap")
}
