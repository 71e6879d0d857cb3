package strategy

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Strategy turns the tick's articles and market universe into raw signals.
// Implementations must not touch bankroll or position state — they only
// propose; the evaluator and risk gates decide.
type Strategy interface {
	Name() string
	GenerateSignals(ctx context.Context, articles []domain.Article, markets []domain.MarketQuote) ([]domain.RawSignal, error)
}
