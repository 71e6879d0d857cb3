package domain

import (
	"strings"
	"time"
)

// Direction is the side of a binary market a signal points at.
type Direction string

const (
	DirectionYes Direction = "YES"
	DirectionNo  Direction = "NO"
)

// ParseDirection normalizes free-form extractor output into a Direction.
// Returns false for anything that isn't YES/NO.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionYes:
		return DirectionYes, true
	case DirectionNo:
		return DirectionNo, true
	}
	return "", false
}

// Opposite returns the other side of the market.
func (d Direction) Opposite() Direction {
	if d == DirectionYes {
		return DirectionNo
	}
	return DirectionYes
}

// RawSignal is an untrusted candidate produced by a SignalExtractor.
// Everything in it — probability, confidence, even the market reference —
// must be re-validated before it becomes a Signal.
type RawSignal struct {
	MarketID      string
	Direction     Direction
	EstimatedProb float64
	Confidence    int // 1-10
	Reasoning     string
	NewsHeadline  string
}

// Signal is a validated, fee-adjusted trading signal. Edge is always
// recomputed by the evaluator from the quote and the estimated probability;
// it is never copied from upstream.
type Signal struct {
	ID             string
	Timestamp      time.Time
	MarketID       string
	MarketQuestion string
	Direction      Direction
	QuotedPrice    float64 // best ask for the chosen side at evaluation time
	EffectivePrice float64 // quoted price adjusted for slippage
	EstimatedProb  float64
	Edge           float64 // expected value per dollar staked, after fees
	Confidence     int
	Reasoning      string
	NewsHeadline   string
}
