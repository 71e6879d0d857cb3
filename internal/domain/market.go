package domain

import "time"

// Article is a de-duplicated news item from a NewsSource.
type Article struct {
	Headline    string
	Summary     string
	Source      string
	URL         string
	PublishedAt time.Time
	Category    string
}

// MarketQuote is the current state of a binary market as seen by the
// market data source.
type MarketQuote struct {
	MarketID  string
	Question  string
	YesPrice  float64
	NoPrice   float64
	Volume24h float64
	EndDate   time.Time
	FetchedAt time.Time
	Resolved  bool
	Outcome   Direction // set only when Resolved
}

// AskFor returns the price to buy the given side.
func (q MarketQuote) AskFor(d Direction) float64 {
	if d == DirectionYes {
		return q.YesPrice
	}
	return q.NoPrice
}

// HasPrices reports whether both sides carry a usable price.
func (q MarketQuote) HasPrices() bool {
	return q.YesPrice > 0 && q.YesPrice < 1 && q.NoPrice > 0 && q.NoPrice < 1
}

// StaleAfter reports whether the quote is older than maxAge at now.
// A zero FetchedAt counts as stale — the source never stamped it.
func (q MarketQuote) StaleAfter(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	if q.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(q.FetchedAt) > maxAge
}

// Resolution is the external event declaring a market's final outcome.
type Resolution struct {
	MarketID   string
	Outcome    Direction
	ResolvedAt time.Time
}
