package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// SignalExtractor maps one article against a candidate market list and
// returns zero or more untrusted raw signals. Output is validated
// downstream by the edge evaluator — nothing from here is trusted.
type SignalExtractor interface {
	ExtractSignals(ctx context.Context, article domain.Article, candidates []domain.MarketQuote) ([]domain.RawSignal, error)
}
