package extractor_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/extractor"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(0), req["temperature"])

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newExtractor(srv *httptest.Server) *extractor.OpenAI {
	return extractor.NewOpenAI(extractor.Config{BaseURL: srv.URL, APIKey: "test-key"})
}

var (
	testArticle = domain.Article{Headline: "Fed signals rate cut"}
	testMarkets = []domain.MarketQuote{{
		MarketID: "0xfed",
		Question: "Will the Fed cut rates in September?",
		YesPrice: 0.60,
		NoPrice:  0.40,
	}}
)

func TestExtractSignals_ParsesCompletion(t *testing.T) {
	srv := completionServer(t, `[{"market_id":"0xfed","direction":"YES",
		"probability":0.78,"confidence":8,"reasoning":"explicit guidance"}]`)

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, "0xfed", sig.MarketID)
	assert.Equal(t, domain.DirectionYes, sig.Direction)
	assert.InDelta(t, 0.78, sig.EstimatedProb, 1e-9)
	assert.Equal(t, 8, sig.Confidence)
	assert.Equal(t, "explicit guidance", sig.Reasoning)
	assert.Equal(t, "Fed signals rate cut", sig.NewsHeadline)
}

func TestExtractSignals_FencedJSONFallback(t *testing.T) {
	srv := completionServer(t, "Here are the signals:\n```json\n"+
		`[{"market_id":"0xfed","direction":"no","probability":0.3,"confidence":7}]`+
		"\n```")

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.DirectionNo, signals[0].Direction, "direction parsing is case-insensitive")
}

func TestExtractSignals_ClampsOutOfRangeFields(t *testing.T) {
	srv := completionServer(t, `[{"market_id":"0xfed","direction":"YES",
		"probability":1.4,"confidence":99}]`)

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.InDelta(t, 1.0, signals[0].EstimatedProb, 1e-9)
	assert.Equal(t, 10, signals[0].Confidence)
}

func TestExtractSignals_DropsMalformedEntries(t *testing.T) {
	srv := completionServer(t, `[
		{"market_id":"","direction":"YES","probability":0.7,"confidence":8},
		{"market_id":"0xfed","direction":"MAYBE","probability":0.7,"confidence":8},
		{"market_id":"0xfed","direction":"YES","probability":0.7,"confidence":8}
	]`)

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.NoError(t, err)
	require.Len(t, signals, 1, "entries without market or side are discarded")
}

func TestExtractSignals_EmptyArrayMeansNoSignals(t *testing.T) {
	srv := completionServer(t, `[]`)

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestExtractSignals_NoCandidatesSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected without candidate markets")
	}))
	t.Cleanup(srv.Close)

	signals, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, nil)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestExtractSignals_ProseWithoutJSONFails(t *testing.T) {
	srv := completionServer(t, "I could not find any relevant markets.")

	_, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	assert.Error(t, err)
}

func TestExtractSignals_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	t.Cleanup(srv.Close)

	_, err := newExtractor(srv).ExtractSignals(context.Background(), testArticle, testMarkets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
