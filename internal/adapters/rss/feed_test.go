package rss_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/rss"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>%s</title>
    %s
  </channel>
</rss>`

func item(title, link, pubDate string) string {
	return fmt.Sprintf(`<item>
  <title>%s</title>
  <link>%s</link>
  <description>summary of %s</description>
  <pubDate>%s</pubDate>
  <category>markets</category>
</item>`, title, link, title, pubDate)
}

func feedServer(t *testing.T, title string, items ...string) *httptest.Server {
	t.Helper()
	body := ""
	for _, it := range items {
		body += it
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, feedTemplate, title, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchNewArticles_ParsesAndOrders(t *testing.T) {
	srv := feedServer(t, "Wire Service",
		item("Second headline", "https://example.com/2", "Mon, 24 Aug 2026 12:00:00 +0000"),
		item("First headline", "https://example.com/1", "Mon, 24 Aug 2026 10:00:00 +0000"),
	)
	agg := rss.NewAggregator([]string{srv.URL})

	articles, err := agg.FetchNewArticles(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "First headline", articles[0].Headline, "oldest first")
	assert.Equal(t, "Second headline", articles[1].Headline)
	assert.Equal(t, "Wire Service", articles[0].Source)
	assert.Equal(t, "https://example.com/1", articles[0].URL)
	assert.Equal(t, "summary of First headline", articles[0].Summary)
	assert.Equal(t, "markets", articles[0].Category)
	assert.Equal(t, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), articles[0].PublishedAt)
}

func TestFetchNewArticles_WatermarkAndURLDedup(t *testing.T) {
	srv := feedServer(t, "Wire Service",
		item("Old news", "https://example.com/old", "Mon, 24 Aug 2026 08:00:00 +0000"),
		item("Fresh news", "https://example.com/fresh", "Mon, 24 Aug 2026 12:00:00 +0000"),
	)
	agg := rss.NewAggregator([]string{srv.URL})
	since := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	articles, err := agg.FetchNewArticles(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Fresh news", articles[0].Headline)

	// Second cycle sees the same feed: the URL was already consumed
	articles, err = agg.FetchNewArticles(context.Background(), since)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFetchNewArticles_FailingFeedSkipped(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	healthy := feedServer(t, "Wire Service",
		item("Still arrives", "https://example.com/1", "Mon, 24 Aug 2026 12:00:00 +0000"),
	)

	agg := rss.NewAggregator([]string{broken.URL, healthy.URL})
	articles, err := agg.FetchNewArticles(context.Background(), time.Time{})
	require.NoError(t, err, "a dead feed must not sink the cycle")
	require.Len(t, articles, 1)
	assert.Equal(t, "Still arrives", articles[0].Headline)
}

func TestFetchNewArticles_DropsUndatedAndUntitledItems(t *testing.T) {
	srv := feedServer(t, "Wire Service",
		item("", "https://example.com/no-title", "Mon, 24 Aug 2026 12:00:00 +0000"),
		item("No date", "https://example.com/no-date", "not a date"),
		item("Keeper", "https://example.com/keep", "2026-08-24T12:00:00Z"),
	)
	agg := rss.NewAggregator([]string{srv.URL})

	articles, err := agg.FetchNewArticles(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Keeper", articles[0].Headline)
}
