// Package metrics exposes the agent's Prometheus instrumentation.
package metrics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "edgebot_ticks_total", Help: "Sense-think-act-track cycles started"},
	)
	TickErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "edgebot_tick_errors_total", Help: "Ticks aborted by an error"},
	)
	SignalsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "edgebot_signals_total", Help: "Signals that passed evaluation"},
	)
	SignalsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "edgebot_signals_rejected_total", Help: "Signals rejected by evaluator or risk gate"},
	)
	BetsPlaced = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "edgebot_bets_total", Help: "Bets committed to the simulator"},
	)
	BankrollGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "edgebot_bankroll_usd", Help: "Available bankroll"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, TickErrors, SignalsGenerated, SignalsRejected, BetsPlaced, BankrollGauge)
}

// Serve exposes /metrics on addr in a background goroutine.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err, "addr", addr)
		}
	}()
	return srv
}
