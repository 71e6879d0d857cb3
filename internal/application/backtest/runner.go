// Package backtest replays the live pipeline over a bounded historical
// timeline. Only the data source and the clock differ from paper trading:
// the evaluator, risk gate, sizer and simulator are the same code, so a
// validated backtest transfers to live behavior.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/application/edge"
	"github.com/alejandrodnm/edgebot/internal/application/perf"
	"github.com/alejandrodnm/edgebot/internal/application/risk"
	"github.com/alejandrodnm/edgebot/internal/application/sim"
	"github.com/alejandrodnm/edgebot/internal/application/sizing"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

// Config bounds the replay.
type Config struct {
	Start           time.Time // inclusive, truncated to UTC day
	End             time.Time // exclusive
	InitialBankroll float64
	KellyFraction   float64
	MaxBetPct       float64
}

// Runner drives one synchronous, deterministic replay.
type Runner struct {
	cfg        Config
	history    ports.HistoryProvider
	strategies []strategy.Strategy
	evaluator  *edge.Evaluator
	risk       *risk.Manager
}

func New(cfg Config, history ports.HistoryProvider, strategies []strategy.Strategy, evaluator *edge.Evaluator, riskMgr *risk.Manager) *Runner {
	return &Runner{
		cfg:        cfg,
		history:    history,
		strategies: strategies,
		evaluator:  evaluator,
		risk:       riskMgr,
	}
}

// Run iterates days in [Start, End): feed the day's articles and quotes
// through the pipeline in the same order as live, apply the day's
// resolutions, then append one equity sample.
func (r *Runner) Run(ctx context.Context) (domain.BacktestResult, error) {
	if !r.cfg.End.After(r.cfg.Start) {
		return domain.BacktestResult{}, fmt.Errorf("backtest.Run: end %s not after start %s",
			r.cfg.End.Format(time.DateOnly), r.cfg.Start.Format(time.DateOnly))
	}

	simulator := sim.New(r.cfg.InitialBankroll, nil)
	startOfDay := r.cfg.InitialBankroll
	dailyPnL := 0.0

	equity := []domain.EquitySample{{
		Date:     r.cfg.Start.UTC().Truncate(24 * time.Hour),
		Bankroll: r.cfg.InitialBankroll,
	}}
	var trades []domain.BetResult

	for day := r.cfg.Start.UTC().Truncate(24 * time.Hour); day.Before(r.cfg.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest.Run: %w", err)
		}

		articles, err := r.history.NewsFor(ctx, day)
		if err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest.Run: news %s: %w", day.Format(time.DateOnly), err)
		}
		markets, err := r.history.MarketsFor(ctx, day)
		if err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest.Run: markets %s: %w", day.Format(time.DateOnly), err)
		}

		quotes := make(map[string]domain.MarketQuote, len(markets))
		for _, m := range markets {
			m.FetchedAt = day
			quotes[m.MarketID] = m
		}

		if err := r.runDay(ctx, day, simulator, articles, markets, quotes, startOfDay, dailyPnL); err != nil {
			return domain.BacktestResult{}, err
		}

		resolutions, err := r.history.ResolutionsFor(ctx, day)
		if err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest.Run: resolutions %s: %w", day.Format(time.DateOnly), err)
		}
		for _, res := range resolutions {
			if res.ResolvedAt.IsZero() {
				res.ResolvedAt = day
			}
			pnl, applied, err := simulator.Resolve(ctx, res)
			if err != nil {
				return domain.BacktestResult{}, fmt.Errorf("backtest.Run: resolve %s: %w", res.MarketID, err)
			}
			if applied {
				dailyPnL += pnl
				trades = append(trades, tradeFor(res, pnl))
			}
		}

		equity = append(equity, domain.EquitySample{Date: day.AddDate(0, 0, 1), Bankroll: simulator.Bankroll()})
		startOfDay = simulator.Bankroll()
		dailyPnL = 0
	}

	return r.results(simulator.Bankroll(), trades, equity), nil
}

// runDay is the think+act slice of a tick, driven by historical data.
func (r *Runner) runDay(
	ctx context.Context,
	day time.Time,
	simulator *sim.Simulator,
	articles []domain.Article,
	markets []domain.MarketQuote,
	quotes map[string]domain.MarketQuote,
	startOfDay, dailyPnL float64,
) error {
	for _, strat := range r.strategies {
		raw, err := strat.GenerateSignals(ctx, articles, markets)
		if err != nil {
			return fmt.Errorf("backtest.runDay: strategy %s: %w", strat.Name(), err)
		}

		stakeHint := r.cfg.MaxBetPct * simulator.Bankroll()
		for _, candidate := range raw {
			sig, err := r.evaluator.Evaluate(candidate, quotes[candidate.MarketID], stakeHint, day)
			if err != nil {
				continue
			}

			stake := sizing.StakeAmount(
				simulator.Bankroll(), sig.EstimatedProb, sig.EffectivePrice,
				r.cfg.KellyFraction, r.cfg.MaxBetPct,
			)
			if stake <= 0 {
				continue
			}

			ok, reason := r.risk.Approve(risk.Check{
				Signal: sig,
				Stake:  stake,
				State: domain.RiskState{
					Bankroll:           simulator.Bankroll(),
					StartOfDayBankroll: startOfDay,
					DailyPnL:           dailyPnL,
					OpenPositions:      simulator.OpenPositionCount(),
				},
				MarketVolume24h:  quotes[sig.MarketID].Volume24h,
				ExistingExposure: simulator.Exposure(sig.MarketID),
			})
			if !ok {
				slog.Debug("backtest: signal rejected", "market_id", sig.MarketID, "reason", reason)
				continue
			}

			bet := domain.Bet{
				ID:             uuid.NewString(),
				SignalID:       sig.ID,
				Timestamp:      day,
				MarketID:       sig.MarketID,
				Direction:      sig.Direction,
				Stake:          stake,
				ExecutionPrice: sig.EffectivePrice,
				EstimatedProb:  sig.EstimatedProb,
				EdgeAtEntry:    sig.Edge,
				KellyFraction:  r.cfg.KellyFraction,
				Mode:           domain.ModeBacktest,
			}
			if err := simulator.PlaceBet(ctx, bet); err != nil {
				slog.Debug("backtest: bet not placed", "market_id", sig.MarketID, "err", err)
			}
		}
	}
	return nil
}

func (r *Runner) results(finalBankroll float64, trades []domain.BetResult, samples []domain.EquitySample) domain.BacktestResult {
	curve := make([]float64, len(samples))
	for i, s := range samples {
		curve[i] = s.Bankroll
	}

	return domain.BacktestResult{
		StartBankroll: r.cfg.InitialBankroll,
		FinalBankroll: finalBankroll,
		TotalPnL:      finalBankroll - r.cfg.InitialBankroll,
		NumTrades:     len(trades),
		WinRate:       perf.WinRate(trades),
		Sharpe:        perf.SharpeRatio(perf.DailyReturns(samples)),
		MaxDrawdown:   perf.MaxDrawdown(curve),
		Trades:        trades,
		Equity:        equityCopy(samples),
	}
}

// tradeFor records a position-level result. Individual bet results live
// inside the simulator's ledger path; backtests settle whole positions.
func tradeFor(res domain.Resolution, pnl float64) domain.BetResult {
	outcome := "lose"
	if pnl > 0 {
		outcome = "win"
	}
	return domain.BetResult{
		MarketID:   res.MarketID,
		Direction:  res.Outcome,
		PnL:        pnl,
		Outcome:    outcome,
		ResolvedAt: res.ResolvedAt,
	}
}

func equityCopy(samples []domain.EquitySample) []domain.EquitySample {
	out := make([]domain.EquitySample, len(samples))
	copy(out, samples)
	return out
}
