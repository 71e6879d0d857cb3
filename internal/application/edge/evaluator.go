// Package edge converts untrusted raw signals into fee-adjusted, validated
// trading signals. Evaluation is pure: the same raw signal and quote always
// produce the same output, so backtest and live runs evaluate identically.
package edge

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Expected rejections — control flow, not failures.
var (
	ErrEdgeTooSmall  = errors.New("edge below minimum")
	ErrLowConfidence = errors.New("confidence below minimum")
)

// SlippageFunc adjusts a quoted price for the market impact of the
// contemplated stake. volume24h acts as the depth proxy.
type SlippageFunc func(price, stake, volume24h float64) float64

const (
	slippageImpact  = 0.10 // price impact per (stake / daily volume)
	maxSlippedPrice = 0.99

	// An EV sitting exactly on the floor is a rejection. The computed EV
	// carries float rounding (0.55*0.5 - 0.45*0.5 != 0.05 exactly), so the
	// comparison tolerates it.
	edgeEpsilon = 1e-9
)

// LinearSlippage bumps the price proportionally to the stake's share of the
// market's 24h volume. With unknown volume the quote is taken as-is.
func LinearSlippage(price, stake, volume24h float64) float64 {
	if volume24h <= 0 || stake <= 0 {
		return price
	}
	slipped := price * (1 + slippageImpact*stake/volume24h)
	if slipped > maxSlippedPrice {
		return maxSlippedPrice
	}
	return slipped
}

// NoSlippage returns the quoted price unchanged. Used when the fee model
// should not move prices (fee-free test scenarios, thin fixtures).
func NoSlippage(price, _, _ float64) float64 {
	return price
}

// Config holds the fee model and rejection thresholds.
type Config struct {
	TakerFeeRate  float64
	MinEdge       float64
	MinConfidence int
	MaxQuoteAge   time.Duration
}

// Evaluator computes fee/slippage-adjusted expected value per dollar staked.
type Evaluator struct {
	cfg  Config
	slip SlippageFunc
}

// New creates an Evaluator. A nil slippage function defaults to LinearSlippage.
func New(cfg Config, slip SlippageFunc) *Evaluator {
	if slip == nil {
		slip = LinearSlippage
	}
	return &Evaluator{cfg: cfg, slip: slip}
}

// Evaluate validates raw against quote and returns a Signal whose edge is
// recomputed from scratch — upstream edge claims are ignored.
//
// stakeHint is the stake the caller contemplates (typically the per-bet
// cap), used only to estimate slippage before sizing runs.
func (e *Evaluator) Evaluate(raw domain.RawSignal, quote domain.MarketQuote, stakeHint float64, now time.Time) (domain.Signal, error) {
	if raw.EstimatedProb < 0 || raw.EstimatedProb > 1 {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: estimated_prob %.3f outside [0,1]: %w",
			raw.EstimatedProb, domain.ErrInvalidSignal)
	}
	if raw.Direction != domain.DirectionYes && raw.Direction != domain.DirectionNo {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: direction %q: %w", raw.Direction, domain.ErrInvalidSignal)
	}
	if quote.MarketID == "" || !quote.HasPrices() {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: market %q has no usable quote: %w",
			raw.MarketID, domain.ErrStaleMarketData)
	}
	if quote.StaleAfter(now, e.cfg.MaxQuoteAge) {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: quote for %s fetched %s ago: %w",
			quote.MarketID, now.Sub(quote.FetchedAt).Round(time.Second), domain.ErrStaleMarketData)
	}

	quoted := quote.AskFor(raw.Direction)
	effective := e.slip(quoted, stakeHint, quote.Volume24h)

	// EV per dollar staked at the effective price, net of taker fee.
	p := raw.EstimatedProb
	ev := p*(1-effective) - (1-p)*effective - e.cfg.TakerFeeRate

	if raw.Confidence < e.cfg.MinConfidence {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: confidence %d < %d: %w",
			raw.Confidence, e.cfg.MinConfidence, ErrLowConfidence)
	}
	if ev <= e.cfg.MinEdge+edgeEpsilon {
		return domain.Signal{}, fmt.Errorf("edge.Evaluate: ev %.4f <= min_edge %.4f: %w",
			ev, e.cfg.MinEdge, ErrEdgeTooSmall)
	}

	return domain.Signal{
		ID:             uuid.NewString(),
		Timestamp:      now,
		MarketID:       quote.MarketID,
		MarketQuestion: quote.Question,
		Direction:      raw.Direction,
		QuotedPrice:    quoted,
		EffectivePrice: effective,
		EstimatedProb:  p,
		Edge:           ev,
		Confidence:     raw.Confidence,
		Reasoning:      raw.Reasoning,
		NewsHeadline:   raw.NewsHeadline,
	}, nil
}
