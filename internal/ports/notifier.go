package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Notifier presents agent state to the user.
type Notifier interface {
	// NotifyStatus renders open positions and current metrics.
	NotifyStatus(ctx context.Context, positions []domain.Position, metrics domain.PerformanceMetrics, bankroll float64) error
}
