package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// NewsSource produces a finite, de-duplicated sequence of articles newer
// than the given watermark. Re-fetching with the same watermark must not
// yield already-seen articles.
type NewsSource interface {
	FetchNewArticles(ctx context.Context, since time.Time) ([]domain.Article, error)
}
