package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

const (
	wsMarketChannel = "/market"
	wsPingInterval  = 10 * time.Second
	wsReconnectWait = 5 * time.Second
)

// wsSubscription is the subscribe frame for the CLOB market channel.
type wsSubscription struct {
	Type    string   `json:"type"`
	Markets []string `json:"markets"`
}

// wsEvent is the envelope of a market channel message. Only resolution
// events are acted on; book and trade updates are ignored.
type wsEvent struct {
	EventType string `json:"event_type"`
	Market    string `json:"market"`
	Outcome   string `json:"outcome"`
	Timestamp string `json:"timestamp"`
}

// StreamResolutions subscribes to the market channel and forwards resolution
// events until the context is cancelled. The connection reconnects on error;
// the channel is closed only on context exit. Implements
// ports.ResolutionStream.
func (c *Client) StreamResolutions(ctx context.Context, marketIDs []string) (<-chan domain.Resolution, error) {
	if len(marketIDs) == 0 {
		return nil, fmt.Errorf("polymarket.StreamResolutions: no markets to watch")
	}

	out := make(chan domain.Resolution)
	go func() {
		defer close(out)
		for {
			if err := c.streamOnce(ctx, marketIDs, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("resolution stream dropped, reconnecting", "err", err)
			}
			select {
			case <-time.After(wsReconnectWait):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// streamOnce holds one websocket session: subscribe, ping, forward.
func (c *Client) streamOnce(ctx context.Context, marketIDs []string, out chan<- domain.Resolution) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsBase+wsMarketChannel, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsSubscription{Type: "market", Markets: marketIDs}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// The server drops idle connections; ping on a side goroutine tied to
	// this session's lifetime.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var events []wsEvent
		if err := json.Unmarshal(msg, &events); err != nil {
			var single wsEvent
			if err := json.Unmarshal(msg, &single); err != nil {
				continue
			}
			events = []wsEvent{single}
		}

		for _, ev := range events {
			if !strings.EqualFold(ev.EventType, "market_resolved") {
				continue
			}
			outcome, ok := domain.ParseDirection(ev.Outcome)
			if !ok {
				slog.Warn("resolution with unknown outcome", "market_id", ev.Market, "outcome", ev.Outcome)
				continue
			}
			res := domain.Resolution{
				MarketID:   ev.Market,
				Outcome:    outcome,
				ResolvedAt: parseWSTimestamp(ev.Timestamp),
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func parseWSTimestamp(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
