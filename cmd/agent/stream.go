package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/edgebot/internal/application/agent"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// resubscribeInterval bounds how stale a websocket subscription's market
// list can get as positions open and close.
const resubscribeInterval = 5 * time.Minute

// watchResolutions keeps a resolution stream subscribed to the currently
// open positions and hands every event to the loop. The track phase still
// polls as a fallback, so a dropped stream only adds latency.
func watchResolutions(ctx context.Context, stream ports.ResolutionStream, loop *agent.Loop) {
	for ctx.Err() == nil {
		ids := openMarketIDs(loop)
		if len(ids) == 0 {
			if !sleepCtx(ctx, resubscribeInterval) {
				return
			}
			continue
		}

		subCtx, cancel := context.WithTimeout(ctx, resubscribeInterval)
		ch, err := stream.StreamResolutions(subCtx, ids)
		if err != nil {
			cancel()
			slog.Warn("resolution stream unavailable", "err", err)
			if !sleepCtx(ctx, resubscribeInterval) {
				return
			}
			continue
		}
		for res := range ch {
			loop.Deliver(res)
		}
		cancel()
	}
}

func openMarketIDs(loop *agent.Loop) []string {
	positions := loop.Status().OpenPositions
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.MarketID)
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
