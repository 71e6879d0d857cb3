package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// HistoryProvider serves date-keyed snapshots for backtest replay.
// A day with no snapshot yields empty slices, not an error.
type HistoryProvider interface {
	NewsFor(ctx context.Context, day time.Time) ([]domain.Article, error)
	MarketsFor(ctx context.Context, day time.Time) ([]domain.MarketQuote, error)
	ResolutionsFor(ctx context.Context, day time.Time) ([]domain.Resolution, error)
}

// SnapshotWriter records daily market/news/resolution snapshots so live
// runs produce the data backtests replay.
type SnapshotWriter interface {
	WriteMarketSnapshot(ctx context.Context, day time.Time, markets []domain.MarketQuote) error
	WriteNewsSnapshot(ctx context.Context, day time.Time, articles []domain.Article) error
	WriteResolutions(ctx context.Context, day time.Time, resolutions []domain.Resolution) error
}
