package domain

import "errors"

// Non-retryable validation failures. Anything transient (fetch timeouts,
// rate limits) is retried inside the adapters and never surfaces as one
// of these.
var (
	// ErrInvalidSignal marks malformed extractor output: probability outside
	// [0,1], unknown direction, missing market reference.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrStaleMarketData marks a missing or out-of-date quote.
	ErrStaleMarketData = errors.New("stale market data")

	// ErrInsufficientBankroll rejects a bet whose stake exceeds the
	// available bankroll. Nothing is committed.
	ErrInsufficientBankroll = errors.New("insufficient bankroll")

	// ErrDirectionConflict rejects a bet against the opposite side of an
	// already-open position in the same market.
	ErrDirectionConflict = errors.New("position direction conflict")
)
