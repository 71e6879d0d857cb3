package domain

import "time"

// Mode tells where a bet was executed. The decision pipeline never branches
// on it — only the data source and clock differ between modes.
type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModePaper    Mode = "paper"
	ModeLive     Mode = "live"
)

// Bet is a sized, risk-approved stake. Immutable once created.
type Bet struct {
	ID             string
	SignalID       string
	Timestamp      time.Time
	MarketID       string
	Direction      Direction
	Stake          float64 // USDC debited from the bankroll
	ExecutionPrice float64 // effective price the shares were bought at
	Shares         float64 // Stake / ExecutionPrice
	EstimatedProb  float64
	EdgeAtEntry    float64
	KellyFraction  float64
	Mode           Mode
}

// PositionStatus is the lifecycle of a simulated position.
type PositionStatus string

const (
	PositionOpen     PositionStatus = "OPEN"
	PositionResolved PositionStatus = "RESOLVED"
)

// Position is the aggregate holding in one market. Exactly one open
// position exists per market; repeat bets merge into it.
type Position struct {
	MarketID  string
	Direction Direction
	Shares    float64
	AvgPrice  float64
	OpenedAt  time.Time
	Status    PositionStatus
}

// CostBasis returns the total USDC spent to build the position.
func (p Position) CostBasis() float64 {
	return p.Shares * p.AvgPrice
}

// BetResult is the terminal record of a resolved bet.
type BetResult struct {
	BetID       string
	MarketID    string
	Direction   Direction
	Stake       float64
	Price       float64
	Outcome     string // "win" | "lose"
	PnL         float64
	EdgeAtEntry float64
	ResolvedAt  time.Time
}

// EquitySample is one point of the append-only equity curve.
type EquitySample struct {
	Date     time.Time
	Bankroll float64
}

// RiskState is the portfolio snapshot the risk gates evaluate against.
// It is mutated only inside a tick's Acting/Tracking phases.
type RiskState struct {
	Bankroll           float64
	StartOfDayBankroll float64
	DailyPnL           float64
	OpenPositions      int
}
