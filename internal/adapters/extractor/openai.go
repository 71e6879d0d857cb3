// Package extractor implements the signal extractor port on the OpenAI
// chat completions API.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 60 * time.Second
	maxCompletion  = 1024
)

// Models sometimes wrap the JSON in prose or a code fence despite
// instructions; pull out the first array literal as a fallback.
var jsonBlockRE = regexp.MustCompile(`(?s)\[.*\]`)

const systemPrompt = `You analyze breaking news against prediction markets.
Given one article and a list of binary markets, return a JSON array of
signals — one entry per market whose probability the news materially moves,
empty array if none. Each entry:
{"market_id": "...", "direction": "YES"|"NO", "probability": 0.0-1.0,
 "confidence": 1-10, "reasoning": "one sentence"}
direction is the side to buy. probability is your estimate that the market
resolves in that direction. Return ONLY the JSON array, no other text.`

// OpenAI calls the chat completions endpoint and parses its JSON reply into
// raw signals. Output is clamped, never trusted.
type OpenAI struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

func NewOpenAI(cfg Config) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &OpenAI{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type rawSignalDTO struct {
	MarketID    string  `json:"market_id"`
	Direction   string  `json:"direction"`
	Probability float64 `json:"probability"`
	Confidence  int     `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// ExtractSignals implements ports.SignalExtractor.
func (o *OpenAI) ExtractSignals(ctx context.Context, article domain.Article, candidates []domain.MarketQuote) ([]domain.RawSignal, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(article, candidates)},
		},
		Temperature: 0,
		MaxTokens:   maxCompletion,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor.ExtractSignals: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extractor.ExtractSignals: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor.ExtractSignals: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("extractor.ExtractSignals: status %d: %s", resp.StatusCode, string(msg))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("extractor.ExtractSignals: decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extractor.ExtractSignals: empty completion")
	}

	return parseSignals(chat.Choices[0].Message.Content, article.Headline)
}

// userPrompt renders the article and the candidate markets with their
// current prices so the model can judge what is already priced in.
func userPrompt(article domain.Article, candidates []domain.MarketQuote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ARTICLE\nheadline: %s\nsummary: %s\nsource: %s\npublished: %s\n\nMARKETS\n",
		article.Headline, article.Summary, article.Source,
		article.PublishedAt.Format(time.RFC3339))
	for _, m := range candidates {
		fmt.Fprintf(&b, "- market_id: %s | question: %s | yes_price: %.3f | no_price: %.3f\n",
			m.MarketID, m.Question, m.YesPrice, m.NoPrice)
	}
	return b.String()
}

// parseSignals decodes the model output, tolerating wrapped JSON, and clamps
// every field to its domain range.
func parseSignals(content, headline string) ([]domain.RawSignal, error) {
	var dtos []rawSignalDTO
	if err := json.Unmarshal([]byte(content), &dtos); err != nil {
		block := jsonBlockRE.FindString(content)
		if block == "" {
			return nil, fmt.Errorf("extractor.parseSignals: no JSON array in completion")
		}
		if err := json.Unmarshal([]byte(block), &dtos); err != nil {
			return nil, fmt.Errorf("extractor.parseSignals: decode completion: %w", err)
		}
	}

	signals := make([]domain.RawSignal, 0, len(dtos))
	for _, dto := range dtos {
		direction, ok := domain.ParseDirection(dto.Direction)
		if !ok || dto.MarketID == "" {
			continue
		}
		signals = append(signals, domain.RawSignal{
			MarketID:      dto.MarketID,
			Direction:     direction,
			EstimatedProb: clamp(dto.Probability, 0, 1),
			Confidence:    clampInt(dto.Confidence, 1, 10),
			Reasoning:     dto.Reasoning,
			NewsHeadline:  headline,
		})
	}
	return signals, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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
