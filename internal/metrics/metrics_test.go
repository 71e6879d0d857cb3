package metrics_test

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/metrics"
)

// freeAddr reserves a loopback port and releases it for the server to take.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_ExposesRegisteredMetrics(t *testing.T) {
	addr := freeAddr(t)
	srv := metrics.Serve(addr)
	defer srv.Close()

	metrics.TicksTotal.Inc()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, string(body), "edgebot_ticks_total")
	assert.Contains(t, string(body), "edgebot_bankroll_usd")
}

// syncBuffer guards the log buffer against the server goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServe_LogsWhenPortIsTaken(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	var logged syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logged, nil)))
	defer slog.SetDefault(prev)

	srv := metrics.Serve(l.Addr().String())
	defer srv.Close()

	require.Eventually(t, func() bool {
		return logged.String() != ""
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, logged.String(), "metrics server failed")
	assert.Contains(t, logged.String(), "address already in use")
}

func TestServe_CleanCloseDoesNotLog(t *testing.T) {
	var logged syncBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logged, nil)))
	defer slog.SetDefault(prev)

	addr := freeAddr(t)
	srv := metrics.Serve(addr)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, srv.Close())
	time.Sleep(50 * time.Millisecond)
	assert.NotContains(t, logged.String(), "metrics server failed")
}
