// Package rss aggregates news from a set of RSS/Atom feeds into the
// NewsSource port.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	fetchTimeout = 15 * time.Second
	maxBodyBytes = 4 << 20 // a feed larger than 4MB is broken, not big
	maxSeenURLs  = 10_000
)

// rssDoc covers RSS 2.0; the fields Atom shares are mapped separately.
type rssDoc struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Category    string `xml:"category"`
}

// Aggregator fetches multiple feeds concurrently and emits a de-duplicated,
// time-ordered article stream. Dedup is by URL across the process lifetime.
type Aggregator struct {
	http  *http.Client
	feeds []string

	mu   sync.Mutex
	seen map[string]bool
}

func NewAggregator(feeds []string) *Aggregator {
	return &Aggregator{
		http:  &http.Client{Timeout: fetchTimeout},
		feeds: feeds,
		seen:  make(map[string]bool),
	}
}

// FetchNewArticles returns articles published after since, oldest first.
// A failing feed is logged and skipped — partial news beats no news.
func (a *Aggregator) FetchNewArticles(ctx context.Context, since time.Time) ([]domain.Article, error) {
	type result struct {
		feed     string
		articles []domain.Article
		err      error
	}

	results := make(chan result, len(a.feeds))
	for _, feed := range a.feeds {
		go func(feed string) {
			articles, err := a.fetchFeed(ctx, feed)
			results <- result{feed: feed, articles: articles, err: err}
		}(feed)
	}

	var all []domain.Article
	for range a.feeds {
		r := <-results
		if r.err != nil {
			slog.Warn("feed fetch failed", "feed", r.feed, "err", r.err)
			continue
		}
		all = append(all, r.articles...)
	}

	fresh := a.dedupe(all, since)
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].PublishedAt.Before(fresh[j].PublishedAt) })
	return fresh, nil
}

func (a *Aggregator) fetchFeed(ctx context.Context, feed string) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return parseRSS(body, feed)
}

// parseRSS maps an RSS 2.0 document to articles. Items with no title or no
// parseable date are dropped.
func parseRSS(body []byte, feed string) ([]domain.Article, error) {
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := doc.Channel.Title
	if source == "" {
		source = feed
	}

	articles := make([]domain.Article, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		published, ok := parsePubDate(item.PubDate)
		if !ok {
			continue
		}
		articles = append(articles, domain.Article{
			Headline:    title,
			Summary:     strings.TrimSpace(item.Description),
			Source:      source,
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: published,
			Category:    strings.TrimSpace(item.Category),
		})
	}
	return articles, nil
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// dedupe drops articles at or before the watermark and URLs already seen.
func (a *Aggregator) dedupe(articles []domain.Article, since time.Time) []domain.Article {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Crude pressure valve; the dedup window only needs to outlive the
	// watermark by one cycle.
	if len(a.seen) > maxSeenURLs {
		a.seen = make(map[string]bool)
	}

	var fresh []domain.Article
	for _, art := range articles {
		if !art.PublishedAt.After(since) {
			continue
		}
		key := art.URL
		if key == "" {
			key = art.Source + "|" + art.Headline
		}
		if a.seen[key] {
			continue
		}
		a.seen[key] = true
		fresh = append(fresh, art)
	}
	return fresh
}
