package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// MarketProvider serves current quotes for the open market universe.
type MarketProvider interface {
	// FetchMarkets returns quotes for tradable binary markets, paginating
	// internally until the universe is exhausted.
	FetchMarkets(ctx context.Context) ([]domain.MarketQuote, error)

	// FetchMarket returns the current quote for a single market,
	// including resolution state. Used to poll open positions.
	FetchMarket(ctx context.Context, marketID string) (domain.MarketQuote, error)
}

// ResolutionStream pushes resolution events as they happen, as an
// alternative to polling FetchMarket per open position.
type ResolutionStream interface {
	// StreamResolutions delivers resolutions on the returned channel until
	// the context is cancelled. The channel is closed on exit.
	StreamResolutions(ctx context.Context, marketIDs []string) (<-chan domain.Resolution, error)
}
