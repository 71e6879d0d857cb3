// Package history stores and serves day-keyed JSON snapshots. The layout is
// one file per day per kind:
//
//	{base}/news/2026-08-28.json
//	{base}/markets/2026-08-28.json
//	{base}/resolutions/2026-08-28.json
//
// Live runs write snapshots through SnapshotWriter; backtests read the same
// files back through HistoryProvider, so a paper run today is replayable
// tomorrow.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	newsDir        = "news"
	marketsDir     = "markets"
	resolutionsDir = "resolutions"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Files implements ports.HistoryProvider and ports.SnapshotWriter on a
// local directory tree.
type Files struct {
	base string
}

func NewFiles(base string) *Files {
	return &Files{base: base}
}

// --- HistoryProvider ---

// NewsFor returns the day's articles; a missing file is an empty day.
func (f *Files) NewsFor(_ context.Context, day time.Time) ([]domain.Article, error) {
	var articles []domain.Article
	if err := f.readDay(newsDir, day, &articles); err != nil {
		return nil, fmt.Errorf("history.NewsFor: %w", err)
	}
	return articles, nil
}

// MarketsFor returns the day's market quotes; a missing file is an empty day.
func (f *Files) MarketsFor(_ context.Context, day time.Time) ([]domain.MarketQuote, error) {
	var markets []domain.MarketQuote
	if err := f.readDay(marketsDir, day, &markets); err != nil {
		return nil, fmt.Errorf("history.MarketsFor: %w", err)
	}
	return markets, nil
}

// ResolutionsFor returns the day's resolutions; a missing file is an empty day.
func (f *Files) ResolutionsFor(_ context.Context, day time.Time) ([]domain.Resolution, error) {
	var resolutions []domain.Resolution
	if err := f.readDay(resolutionsDir, day, &resolutions); err != nil {
		return nil, fmt.Errorf("history.ResolutionsFor: %w", err)
	}
	return resolutions, nil
}

// --- SnapshotWriter ---

// WriteMarketSnapshot replaces the day's market file with the given quotes.
func (f *Files) WriteMarketSnapshot(_ context.Context, day time.Time, markets []domain.MarketQuote) error {
	if err := f.writeDay(marketsDir, day, markets); err != nil {
		return fmt.Errorf("history.WriteMarketSnapshot: %w", err)
	}
	return nil
}

// WriteNewsSnapshot appends articles to the day's news file, de-duplicated
// by URL so re-runs within a day don't double up.
func (f *Files) WriteNewsSnapshot(ctx context.Context, day time.Time, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}
	existing, err := f.NewsFor(ctx, day)
	if err != nil {
		return fmt.Errorf("history.WriteNewsSnapshot: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[articleKey(a)] = true
	}
	for _, a := range articles {
		if seen[articleKey(a)] {
			continue
		}
		seen[articleKey(a)] = true
		existing = append(existing, a)
	}

	if err := f.writeDay(newsDir, day, existing); err != nil {
		return fmt.Errorf("history.WriteNewsSnapshot: %w", err)
	}
	return nil
}

// WriteResolutions appends resolutions to the day's file, one per market.
func (f *Files) WriteResolutions(ctx context.Context, day time.Time, resolutions []domain.Resolution) error {
	if len(resolutions) == 0 {
		return nil
	}
	existing, err := f.ResolutionsFor(ctx, day)
	if err != nil {
		return fmt.Errorf("history.WriteResolutions: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.MarketID] = true
	}
	for _, r := range resolutions {
		if seen[r.MarketID] {
			continue
		}
		seen[r.MarketID] = true
		existing = append(existing, r)
	}

	if err := f.writeDay(resolutionsDir, day, existing); err != nil {
		return fmt.Errorf("history.WriteResolutions: %w", err)
	}
	return nil
}

// --- helpers ---

func (f *Files) path(kind string, day time.Time) string {
	return filepath.Join(f.base, kind, day.UTC().Format(time.DateOnly)+".json")
}

func (f *Files) readDay(kind string, day time.Time, out any) error {
	data, err := os.ReadFile(f.path(kind, day))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", f.path(kind, day), err)
	}
	return nil
}

// writeDay writes via a temp file and rename so a crash mid-write never
// leaves a truncated snapshot.
func (f *Files) writeDay(kind string, day time.Time, v any) error {
	path := f.path(kind, day)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func articleKey(a domain.Article) string {
	if a.URL != "" {
		return a.URL
	}
	return a.Source + "|" + a.Headline
}
