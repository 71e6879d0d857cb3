// Package risk gates sized signals against portfolio-level limits.
// Every check is a total function over explicit arguments — no hidden IO —
// so the gate behaves identically in backtest, paper and live modes.
package risk

import (
	"fmt"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Rejection reasons, recorded alongside the signal. A rejection is expected
// control flow, not an error.
const (
	ReasonPassed       = "passed"
	ReasonMinEdge      = "MIN_EDGE"
	ReasonMaxPositions = "MAX_POSITIONS"
	ReasonDailyLoss    = "DAILY_LOSS"
	ReasonLiquidity    = "LIQUIDITY"
	ReasonExposure     = "EXPOSURE"
)

// Limits are the portfolio-level constraints.
type Limits struct {
	MinEdge         float64
	MaxPositions    int
	MaxDailyLossPct float64 // of start-of-day bankroll
	MaxVolumePct    float64 // stake vs market 24h volume
	MaxBetPct       float64 // combined per-market exposure vs bankroll
}

// DefaultLimits mirror the production defaults.
func DefaultLimits() Limits {
	return Limits{
		MinEdge:         0.05,
		MaxPositions:    10,
		MaxDailyLossPct: 0.10,
		MaxVolumePct:    0.10,
		MaxBetPct:       0.05,
	}
}

// Check is everything one gate evaluation needs, passed by value.
type Check struct {
	Signal           domain.Signal
	Stake            float64
	State            domain.RiskState
	MarketVolume24h  float64
	ExistingExposure float64 // cost basis already committed to this market
}

// Manager runs the ordered gate.
type Manager struct {
	limits Limits
}

func New(limits Limits) *Manager {
	return &Manager{limits: limits}
}

// Approve runs the gates in order and short-circuits on the first failure.
func (m *Manager) Approve(c Check) (bool, string) {
	if ok, reason := m.checkEdge(c.Signal); !ok {
		return false, reason
	}
	if ok, reason := m.checkPositionCount(c.State); !ok {
		return false, reason
	}
	if ok, reason := m.checkDailyLoss(c.State); !ok {
		return false, reason
	}
	if ok, reason := m.checkLiquidity(c.Stake, c.MarketVolume24h); !ok {
		return false, reason
	}
	if ok, reason := m.checkExposure(c.Stake, c.ExistingExposure, c.State.Bankroll); !ok {
		return false, reason
	}
	return true, ReasonPassed
}

// checkEdge re-checks the minimum edge at the gate so the rejection reason
// lands in the signal log even when the evaluator threshold differs.
func (m *Manager) checkEdge(sig domain.Signal) (bool, string) {
	if sig.Edge < m.limits.MinEdge {
		return false, fmt.Sprintf("%s: edge %.3f below min_edge %.3f", ReasonMinEdge, sig.Edge, m.limits.MinEdge)
	}
	return true, ReasonPassed
}

func (m *Manager) checkPositionCount(state domain.RiskState) (bool, string) {
	if state.OpenPositions >= m.limits.MaxPositions {
		return false, fmt.Sprintf("%s: max positions reached (%d)", ReasonMaxPositions, m.limits.MaxPositions)
	}
	return true, ReasonPassed
}

func (m *Manager) checkDailyLoss(state domain.RiskState) (bool, string) {
	if state.StartOfDayBankroll <= 0 {
		return false, fmt.Sprintf("%s: start-of-day bankroll <= 0", ReasonDailyLoss)
	}
	limit := -m.limits.MaxDailyLossPct * state.StartOfDayBankroll
	if state.DailyPnL <= limit {
		return false, fmt.Sprintf("%s: daily pnl %.2f exceeds limit %.2f", ReasonDailyLoss, state.DailyPnL, limit)
	}
	return true, ReasonPassed
}

func (m *Manager) checkLiquidity(stake, volume24h float64) (bool, string) {
	if volume24h <= 0 {
		return false, fmt.Sprintf("%s: market volume unavailable", ReasonLiquidity)
	}
	if stake > m.limits.MaxVolumePct*volume24h {
		return false, fmt.Sprintf("%s: stake %.2f exceeds %.0f%% of 24h volume %.2f",
			ReasonLiquidity, stake, m.limits.MaxVolumePct*100, volume24h)
	}
	return true, ReasonPassed
}

func (m *Manager) checkExposure(stake, existing, bankroll float64) (bool, string) {
	if bankroll <= 0 {
		return false, fmt.Sprintf("%s: bankroll <= 0", ReasonExposure)
	}
	limit := m.limits.MaxBetPct * bankroll
	if existing+stake > limit {
		return false, fmt.Sprintf("%s: exposure %.2f + stake %.2f exceeds %.2f",
			ReasonExposure, existing, stake, limit)
	}
	return true, ReasonPassed
}
