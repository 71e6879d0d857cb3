package polymarket

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// gammaMarket is the Gamma /markets DTO. Prices and outcomes arrive as
// JSON-encoded strings inside the JSON, e.g. `"[\"0.62\", \"0.38\"]"`.
type gammaMarket struct {
	ID            string      `json:"id"`
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	Volume24h     json.Number `json:"volume24hr"`
	EndDate       string      `json:"endDate"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
}

// mapGammaMarket converts a Gamma DTO to a MarketQuote. ok is false for
// anything that is not a two-outcome Yes/No market with parseable prices.
func mapGammaMarket(gm gammaMarket) (domain.MarketQuote, bool) {
	prices, ok := parseStringArray(gm.OutcomePrices)
	if !ok || len(prices) != 2 {
		return domain.MarketQuote{}, false
	}
	yes, err1 := strconv.ParseFloat(prices[0], 64)
	no, err2 := strconv.ParseFloat(prices[1], 64)
	if err1 != nil || err2 != nil {
		return domain.MarketQuote{}, false
	}

	id := gm.ConditionID
	if id == "" {
		id = gm.ID
	}
	if id == "" || gm.Question == "" {
		return domain.MarketQuote{}, false
	}

	quote := domain.MarketQuote{
		MarketID:  id,
		Question:  gm.Question,
		YesPrice:  yes,
		NoPrice:   no,
		FetchedAt: time.Now().UTC(),
		Resolved:  gm.Closed,
	}

	if v, err := gm.Volume24h.Float64(); err == nil {
		quote.Volume24h = v
	}
	quote.EndDate = parseEndDate(gm.EndDate)

	// Settled markets converge to 1/0; the winning side is whichever price
	// crossed one half.
	if quote.Resolved {
		if yes >= 0.5 {
			quote.Outcome = domain.DirectionYes
		} else {
			quote.Outcome = domain.DirectionNo
		}
	}

	return quote, true
}

// parseStringArray decodes Gamma's doubly-encoded string arrays.
func parseStringArray(raw string) ([]string, bool) {
	if raw == "" {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	return out, true
}

// parseEndDate tries the formats Polymarket has been seen emitting.
func parseEndDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
