// Package sizing maps (probability, odds, bankroll, limits) to a stake.
// Both functions are pure — identical inputs always yield identical stakes,
// which backtest determinism depends on.
package sizing

// KellyFraction returns the fraction of bankroll that maximizes long-run
// log-growth for a bet won with probability probWin at decimal odds,
// scaled by fraction (0.5 = half-Kelly).
func KellyFraction(probWin, odds, fraction float64) float64 {
	if odds <= 1 || probWin <= 0 || probWin >= 1 || fraction <= 0 {
		return 0
	}

	b := odds - 1
	q := 1 - probWin
	kelly := (probWin*b - q) / b
	if kelly <= 0 {
		return 0
	}

	scaled := kelly * fraction
	if scaled > 1 {
		return 1
	}
	return scaled
}

// StakeAmount converts an effective price into decimal odds and returns the
// USD stake, capped at maxBetPct of bankroll. Zero for anything that isn't
// a positive-expectation bet.
func StakeAmount(bankroll, estimatedProb, effectivePrice, kellyFraction, maxBetPct float64) float64 {
	if bankroll <= 0 || maxBetPct <= 0 || kellyFraction <= 0 {
		return 0
	}
	if effectivePrice <= 0 || effectivePrice >= 1 {
		return 0
	}

	odds := 1 / effectivePrice
	kelly := KellyFraction(estimatedProb, odds, kellyFraction)
	if kelly <= 0 {
		return 0
	}

	betFraction := kelly
	if betFraction > maxBetPct {
		betFraction = maxBetPct
	}
	return bankroll * betFraction
}
