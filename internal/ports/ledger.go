package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Ledger is the append-only trading record: signals, bets, resolutions and
// equity samples, plus the read-back the accountant and crash recovery need.
//
// ApplyBet and ApplyResolution are single transactions — a bet's bankroll
// debit and its position mutation commit together or not at all.
type Ledger interface {
	// SaveSignal records an evaluated signal. rejected is empty for signals
	// that passed, otherwise the rejection reason.
	SaveSignal(ctx context.Context, sig domain.Signal, rejected string) error

	// ApplyBet atomically records the bet, upserts the merged position and
	// sets the new bankroll.
	ApplyBet(ctx context.Context, bet domain.Bet, pos domain.Position, bankroll float64) error

	// ApplyResolution atomically records the resolution, finalizes the
	// market's open bets into results, closes the position and sets the
	// new bankroll.
	ApplyResolution(ctx context.Context, res domain.Resolution, results []domain.BetResult, bankroll float64) error

	SaveEquitySample(ctx context.Context, sample domain.EquitySample) error

	// Recovery and read-back.
	Bankroll(ctx context.Context) (float64, bool, error)
	SetBankroll(ctx context.Context, amount float64) error
	OpenPositions(ctx context.Context) ([]domain.Position, error)
	OpenBets(ctx context.Context) ([]domain.Bet, error)
	ResolvedMarkets(ctx context.Context) ([]domain.Resolution, error)
	BetResults(ctx context.Context) ([]domain.BetResult, error)
	EquitySeries(ctx context.Context) ([]domain.EquitySample, error)

	Close() error
}
