package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

const (
	defaultMinConfidence      = 6
	defaultMaxMarketsPerCycle = 5
	minTokenLen               = 3
)

var tokenRE = regexp.MustCompile(`[a-z0-9]+`)

var stopwords = map[string]bool{
	"and": true, "are": true, "for": true, "from": true, "has": true,
	"its": true, "that": true, "the": true, "was": true, "were": true,
	"will": true, "with": true,
}

// NewsSpeedConfig tunes candidate selection.
type NewsSpeedConfig struct {
	MinConfidence      int
	MaxMarketsPerCycle int
}

// NewsSpeed bets on markets before they reprice to breaking news. For each
// article it narrows the universe to the most lexically related markets and
// asks the extractor which of them the news moves.
type NewsSpeed struct {
	extractor ports.SignalExtractor
	cfg       NewsSpeedConfig
}

func NewNewsSpeed(extractor ports.SignalExtractor, cfg NewsSpeedConfig) *NewsSpeed {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	if cfg.MaxMarketsPerCycle <= 0 {
		cfg.MaxMarketsPerCycle = defaultMaxMarketsPerCycle
	}
	return &NewsSpeed{extractor: extractor, cfg: cfg}
}

func (s *NewsSpeed) Name() string { return "news_speed" }

// GenerateSignals runs every article through the extractor and sanitizes
// the output: unknown markets, bad directions, out-of-range probabilities
// and low confidence are dropped here, before evaluation.
func (s *NewsSpeed) GenerateSignals(ctx context.Context, articles []domain.Article, markets []domain.MarketQuote) ([]domain.RawSignal, error) {
	if len(articles) == 0 || len(markets) == 0 {
		return nil, nil
	}

	var signals []domain.RawSignal
	for _, article := range articles {
		candidates := s.selectCandidates(article, markets)
		if len(candidates) == 0 {
			continue
		}

		raw, err := s.extractor.ExtractSignals(ctx, article, candidates)
		if err != nil {
			// One bad article must not sink the whole cycle.
			slog.Warn("extractor failed for article", "headline", article.Headline, "err", err)
			continue
		}

		byID := make(map[string]domain.MarketQuote, len(candidates))
		for _, m := range candidates {
			byID[m.MarketID] = m
		}
		for _, sig := range raw {
			if _, ok := byID[sig.MarketID]; !ok {
				continue
			}
			if _, ok := domain.ParseDirection(string(sig.Direction)); !ok {
				continue
			}
			if sig.EstimatedProb < 0 || sig.EstimatedProb > 1 {
				continue
			}
			if sig.Confidence < s.cfg.MinConfidence {
				continue
			}
			sig.Confidence = clampInt(sig.Confidence, 1, 10)
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

// selectCandidates ranks markets by token overlap with the article text and
// keeps the top MaxMarketsPerCycle. No overlap means no candidates — an
// article about nothing we trade should produce nothing.
func (s *NewsSpeed) selectCandidates(article domain.Article, markets []domain.MarketQuote) []domain.MarketQuote {
	query := tokenize(fmt.Sprintf("%s %s", article.Headline, article.Summary))
	if len(query) == 0 {
		return nil
	}

	type scored struct {
		score  int
		market domain.MarketQuote
	}
	var ranked []scored
	for _, m := range markets {
		if m.Question == "" || m.Resolved || !m.HasPrices() {
			continue
		}
		score := overlap(query, tokenize(m.Question))
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{score: score, market: m})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > s.cfg.MaxMarketsPerCycle {
		ranked = ranked[:s.cfg.MaxMarketsPerCycle]
	}

	out := make([]domain.MarketQuote, len(ranked))
	for i, r := range ranked {
		out[i] = r.market
	}
	return out
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range tokenRE.FindAllString(strings.ToLower(text), -1) {
		if len(w) < minTokenLen || stopwords[w] {
			continue
		}
		tokens[w] = true
	}
	return tokens
}

func overlap(a, b map[string]bool) int {
	n := 0
	for w := range a {
		if b[w] {
			n++
		}
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
