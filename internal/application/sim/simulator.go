// Package sim executes accepted bets against a virtual venue. Paper and
// backtest modes share this engine; live execution is an external
// collaborator with the same contract.
//
// Each market walks NoPosition -> Open -> Resolved (terminal). The
// simulator is the only writer of bankroll and position state, and it is
// only driven from inside a single tick, so it needs no locking.
package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// Simulator holds the authoritative bankroll and open positions. All
// mutations go through the ledger first, so a crash between ticks never
// leaves memory ahead of disk.
type Simulator struct {
	ledger    ports.Ledger // nil means in-memory only (backtests, tests)
	bankroll  float64
	positions map[string]*domain.Position
	openBets  map[string][]domain.Bet
	resolved  map[string]domain.Direction
}

// New creates a simulator starting from initialBankroll. Call Restore to
// pick up persisted state instead.
func New(initialBankroll float64, ledger ports.Ledger) *Simulator {
	return &Simulator{
		ledger:    ledger,
		bankroll:  initialBankroll,
		positions: make(map[string]*domain.Position),
		openBets:  make(map[string][]domain.Bet),
		resolved:  make(map[string]domain.Direction),
	}
}

// Restore loads bankroll, open positions, open bets and the resolved-market
// set from the ledger, keeping the in-memory defaults where the ledger has
// nothing yet.
func (s *Simulator) Restore(ctx context.Context) error {
	if s.ledger == nil {
		return nil
	}

	bankroll, ok, err := s.ledger.Bankroll(ctx)
	if err != nil {
		return fmt.Errorf("sim.Restore: load bankroll: %w", err)
	}
	if ok {
		s.bankroll = bankroll
	} else if err := s.ledger.SetBankroll(ctx, s.bankroll); err != nil {
		return fmt.Errorf("sim.Restore: seed bankroll: %w", err)
	}

	positions, err := s.ledger.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("sim.Restore: load positions: %w", err)
	}
	for i := range positions {
		p := positions[i]
		s.positions[p.MarketID] = &p
	}

	bets, err := s.ledger.OpenBets(ctx)
	if err != nil {
		return fmt.Errorf("sim.Restore: load open bets: %w", err)
	}
	for _, b := range bets {
		s.openBets[b.MarketID] = append(s.openBets[b.MarketID], b)
	}

	resolutions, err := s.ledger.ResolvedMarkets(ctx)
	if err != nil {
		return fmt.Errorf("sim.Restore: load resolutions: %w", err)
	}
	for _, r := range resolutions {
		s.resolved[r.MarketID] = r.Outcome
	}

	slog.Info("simulator state restored",
		"bankroll", fmt.Sprintf("$%.2f", s.bankroll),
		"open_positions", len(s.positions),
		"resolved_markets", len(s.resolved),
	)
	return nil
}

// PlaceBet debits the bankroll and creates or merges the position. The two
// mutations commit atomically: on any failure neither applies.
func (s *Simulator) PlaceBet(ctx context.Context, bet domain.Bet) error {
	if bet.Stake <= 0 || bet.ExecutionPrice <= 0 || bet.ExecutionPrice >= 1 {
		return fmt.Errorf("sim.PlaceBet: stake %.2f at price %.3f: %w",
			bet.Stake, bet.ExecutionPrice, domain.ErrInvalidSignal)
	}
	if bet.Stake > s.bankroll {
		return fmt.Errorf("sim.PlaceBet: stake %.2f > bankroll %.2f: %w",
			bet.Stake, s.bankroll, domain.ErrInsufficientBankroll)
	}
	if _, done := s.resolved[bet.MarketID]; done {
		return fmt.Errorf("sim.PlaceBet: market %s already resolved: %w",
			bet.MarketID, domain.ErrStaleMarketData)
	}

	shares := bet.Stake / bet.ExecutionPrice
	bet.Shares = shares

	merged := domain.Position{
		MarketID:  bet.MarketID,
		Direction: bet.Direction,
		Shares:    shares,
		AvgPrice:  bet.ExecutionPrice,
		OpenedAt:  bet.Timestamp,
		Status:    domain.PositionOpen,
	}
	if existing, ok := s.positions[bet.MarketID]; ok {
		if existing.Direction != bet.Direction {
			return fmt.Errorf("sim.PlaceBet: open %s position in %s: %w",
				existing.Direction, bet.MarketID, domain.ErrDirectionConflict)
		}
		total := existing.Shares + shares
		merged.Shares = total
		merged.AvgPrice = (existing.Shares*existing.AvgPrice + shares*bet.ExecutionPrice) / total
		merged.OpenedAt = existing.OpenedAt
	}

	newBankroll := s.bankroll - bet.Stake
	if s.ledger != nil {
		if err := s.ledger.ApplyBet(ctx, bet, merged, newBankroll); err != nil {
			return fmt.Errorf("sim.PlaceBet: persist: %w", err)
		}
	}

	s.bankroll = newBankroll
	s.positions[bet.MarketID] = &merged
	s.openBets[bet.MarketID] = append(s.openBets[bet.MarketID], bet)
	return nil
}

// Resolve settles the market's position against the outcome. Redelivering a
// resolution for an already-resolved or unknown market is a no-op: applied
// is false and state is untouched.
func (s *Simulator) Resolve(ctx context.Context, res domain.Resolution) (pnl float64, applied bool, err error) {
	if _, done := s.resolved[res.MarketID]; done {
		slog.Debug("resolution redelivered, ignoring", "market_id", res.MarketID)
		return 0, false, nil
	}
	pos, ok := s.positions[res.MarketID]
	if !ok {
		slog.Debug("resolution for unknown market, ignoring", "market_id", res.MarketID)
		return 0, false, nil
	}

	won := pos.Direction == res.Outcome
	payout := 0.0
	if won {
		payout = pos.Shares // binary contracts settle at $1
	}
	pnl = payout - pos.CostBasis()

	results := make([]domain.BetResult, 0, len(s.openBets[res.MarketID]))
	for _, bet := range s.openBets[res.MarketID] {
		r := domain.BetResult{
			BetID:       bet.ID,
			MarketID:    bet.MarketID,
			Direction:   bet.Direction,
			Stake:       bet.Stake,
			Price:       bet.ExecutionPrice,
			EdgeAtEntry: bet.EdgeAtEntry,
			ResolvedAt:  res.ResolvedAt,
		}
		if bet.Direction == res.Outcome {
			r.Outcome = "win"
			r.PnL = bet.Shares - bet.Stake
		} else {
			r.Outcome = "lose"
			r.PnL = -bet.Stake
		}
		results = append(results, r)
	}

	newBankroll := s.bankroll + payout
	if s.ledger != nil {
		if err := s.ledger.ApplyResolution(ctx, res, results, newBankroll); err != nil {
			return 0, false, fmt.Errorf("sim.Resolve: persist: %w", err)
		}
	}

	s.bankroll = newBankroll
	s.resolved[res.MarketID] = res.Outcome
	delete(s.positions, res.MarketID)
	delete(s.openBets, res.MarketID)

	slog.Info("position resolved",
		"market_id", res.MarketID,
		"outcome", res.Outcome,
		"pnl", fmt.Sprintf("$%.2f", pnl),
	)
	return pnl, true, nil
}

// Bankroll returns the available (undeployed) bankroll.
func (s *Simulator) Bankroll() float64 {
	return s.bankroll
}

// OpenPositions returns a copy of the open positions.
func (s *Simulator) OpenPositions() []domain.Position {
	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}

// OpenPositionCount avoids the copy when only the count matters.
func (s *Simulator) OpenPositionCount() int {
	return len(s.positions)
}

// Exposure returns the cost basis already committed to the market, zero
// when no position is open.
func (s *Simulator) Exposure(marketID string) float64 {
	if p, ok := s.positions[marketID]; ok {
		return p.CostBasis()
	}
	return 0
}
