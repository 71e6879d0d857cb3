package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
	gammaMaxPages    = 50 // hard stop against a runaway universe
)

// FetchMarkets pages through Gamma's open binary markets and returns quotes
// for those with two usable prices. Implements ports.MarketProvider.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.MarketQuote, error) {
	var quotes []domain.MarketQuote

	for page := 0; page < gammaMaxPages; page++ {
		q := url.Values{}
		q.Set("active", "true")
		q.Set("closed", "false")
		q.Set("limit", strconv.Itoa(gammaPageSize))
		q.Set("offset", strconv.Itoa(page*gammaPageSize))

		var resp []gammaMarket
		if err := c.get(ctx, c.gammaBase+gammaMarketsPath+"?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("polymarket.FetchMarkets: page %d: %w", page, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, gm := range resp {
			quote, ok := mapGammaMarket(gm)
			if !ok {
				continue
			}
			quotes = append(quotes, quote)
		}

		if len(resp) < gammaPageSize {
			break
		}
	}

	slog.Debug("fetched market universe", "markets", len(quotes))
	return quotes, nil
}

// FetchMarket returns the current quote for one market, including its
// resolution state once closed.
func (c *Client) FetchMarket(ctx context.Context, marketID string) (domain.MarketQuote, error) {
	var gm gammaMarket
	u := fmt.Sprintf("%s%s/%s", c.gammaBase, gammaMarketsPath, url.PathEscape(marketID))
	if err := c.get(ctx, u, &gm); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("polymarket.FetchMarket: %s: %w", marketID, err)
	}

	quote, ok := mapGammaMarket(gm)
	if !ok {
		return domain.MarketQuote{}, fmt.Errorf("polymarket.FetchMarket: %s: not a binary market", marketID)
	}
	return quote, nil
}
