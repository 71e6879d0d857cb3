// Package agent runs the sense-think-act-track cycle. One tick at a time,
// failures isolated at the tick boundary, committed bets never rolled back.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/application/edge"
	"github.com/alejandrodnm/edgebot/internal/application/perf"
	"github.com/alejandrodnm/edgebot/internal/application/risk"
	"github.com/alejandrodnm/edgebot/internal/application/sim"
	"github.com/alejandrodnm/edgebot/internal/application/sizing"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

// Phase is the loop's current state within a tick.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSensing  Phase = "sensing"
	PhaseThinking Phase = "thinking"
	PhaseActing   Phase = "acting"
	PhaseTracking Phase = "tracking"
	PhaseSleeping Phase = "sleeping"
)

// Config tunes the loop.
type Config struct {
	Mode          domain.Mode
	TickInterval  time.Duration
	KellyFraction float64
	MaxBetPct     float64
	// KillDrawdown suspends new bets once max drawdown crosses it.
	// Open positions keep being tracked. Zero disables the switch.
	KillDrawdown float64
}

// Status is the read-only view exposed by the loop.
type Status struct {
	Phase         Phase
	LastTick      time.Time
	LastError     string
	OpenPositions []domain.Position
	DailyPnL      float64
	Bankroll      float64
	Suspended     bool
}

// Loop wires the pipeline: news/markets in, evaluated signals through the
// risk gate and sizer, accepted bets into the simulator.
type Loop struct {
	cfg        Config
	news       ports.NewsSource
	markets    ports.MarketProvider
	strategies []strategy.Strategy
	evaluator  *edge.Evaluator
	risk       *risk.Manager
	sim        *sim.Simulator
	accountant *perf.Accountant
	ledger     ports.Ledger
	snapshots  ports.SnapshotWriter // optional
	notifier   ports.Notifier       // optional
	clock      Clock

	mu        sync.Mutex
	status    Status
	suspended bool
	delivered []domain.Resolution

	watermark          time.Time
	day                string
	startOfDayBankroll float64
	dailyPnL           float64
}

// New assembles a loop. snapshots and notifier may be nil.
func New(
	cfg Config,
	news ports.NewsSource,
	markets ports.MarketProvider,
	strategies []strategy.Strategy,
	evaluator *edge.Evaluator,
	riskMgr *risk.Manager,
	simulator *sim.Simulator,
	accountant *perf.Accountant,
	ledger ports.Ledger,
	snapshots ports.SnapshotWriter,
	notifier ports.Notifier,
	clock Clock,
) *Loop {
	if clock == nil {
		clock = RealClock()
	}
	return &Loop{
		cfg:        cfg,
		news:       news,
		markets:    markets,
		strategies: strategies,
		evaluator:  evaluator,
		risk:       riskMgr,
		sim:        simulator,
		accountant: accountant,
		ledger:     ledger,
		snapshots:  snapshots,
		notifier:   notifier,
		clock:      clock,
		status:     Status{Phase: PhaseIdle},
	}
}

// Run ticks at the configured interval until the context is cancelled.
// The current tick always finishes before shutdown; an overrunning tick
// causes the next fire to be skipped, never queued.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("agent loop starting",
		"mode", l.cfg.Mode,
		"interval", l.cfg.TickInterval,
	)

	l.RunTick(ctx)

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("agent loop stopped")
			return nil
		case <-ticker.C:
			l.RunTick(ctx)
			// Drop any fire that queued while the tick ran.
			select {
			case <-ticker.C:
				slog.Warn("tick overran interval, skipping next tick")
			default:
			}
		}
	}
}

// RunTick executes one full sense-think-act-track cycle. Any failure is
// absorbed here: the tick transitions to sleeping with the error recorded,
// bets committed before the failure stay committed, and the process lives
// on to the next tick.
func (l *Loop) RunTick(ctx context.Context) {
	started := l.clock.Now()
	metrics.TicksTotal.Inc()

	defer func() {
		if r := recover(); r != nil {
			metrics.TickErrors.Inc()
			slog.Error("tick panicked", "panic", r)
			l.setError(fmt.Sprintf("panic: %v", r))
		}
		l.setPhase(PhaseSleeping)
		l.refreshStatus(started)
	}()

	if err := l.tick(ctx, started); err != nil {
		metrics.TickErrors.Inc()
		slog.Error("tick failed", "err", err)
		l.setError(err.Error())
		return
	}
	l.setError("")
}

func (l *Loop) tick(ctx context.Context, now time.Time) error {
	l.rollDay(ctx, now)

	l.setPhase(PhaseSensing)
	articles, quotes, err := l.sense(ctx, now)
	if err != nil {
		return fmt.Errorf("agent.tick: sense: %w", err)
	}

	l.setPhase(PhaseThinking)
	signals, err := l.think(ctx, now, articles, quotes)
	if err != nil {
		return fmt.Errorf("agent.tick: think: %w", err)
	}

	l.setPhase(PhaseActing)
	if err := l.act(ctx, now, signals, quotes); err != nil {
		return fmt.Errorf("agent.tick: act: %w", err)
	}

	l.setPhase(PhaseTracking)
	if err := l.track(ctx, now); err != nil {
		return fmt.Errorf("agent.tick: track: %w", err)
	}
	return nil
}

// sense fetches new articles and the market universe. Adapter-level
// retries already happened; an error here is a soft failure for the tick.
func (l *Loop) sense(ctx context.Context, now time.Time) ([]domain.Article, map[string]domain.MarketQuote, error) {
	articles, err := l.news.FetchNewArticles(ctx, l.watermark)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch articles: %w", err)
	}
	for _, a := range articles {
		if a.PublishedAt.After(l.watermark) {
			l.watermark = a.PublishedAt
		}
	}

	markets, err := l.markets.FetchMarkets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch markets: %w", err)
	}

	quotes := make(map[string]domain.MarketQuote, len(markets))
	for _, m := range markets {
		quotes[m.MarketID] = m
	}

	l.writeSnapshots(ctx, now, articles, markets)

	slog.Debug("sensed", "articles", len(articles), "markets", len(markets))
	return articles, quotes, nil
}

// think runs the strategies and evaluates every raw candidate. Rejected
// signals are recorded with their reason; they are control flow, not errors.
func (l *Loop) think(ctx context.Context, now time.Time, articles []domain.Article, quotes map[string]domain.MarketQuote) ([]domain.Signal, error) {
	universe := make([]domain.MarketQuote, 0, len(quotes))
	for _, q := range quotes {
		universe = append(universe, q)
	}

	stakeHint := l.cfg.MaxBetPct * l.sim.Bankroll()

	var signals []domain.Signal
	for _, strat := range l.strategies {
		raw, err := strat.GenerateSignals(ctx, articles, universe)
		if err != nil {
			return nil, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}

		for _, candidate := range raw {
			sig, err := l.evaluator.Evaluate(candidate, quotes[candidate.MarketID], stakeHint, now)
			if err != nil {
				metrics.SignalsRejected.Inc()
				slog.Debug("signal rejected by evaluator",
					"market_id", candidate.MarketID, "reason", err)
				continue
			}
			metrics.SignalsGenerated.Inc()
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

// act sizes and places approved bets. A single rejected or failed bet does
// not stop the rest of the batch; bets already placed stay placed.
func (l *Loop) act(ctx context.Context, now time.Time, signals []domain.Signal, quotes map[string]domain.MarketQuote) error {
	if l.isSuspended() && len(signals) > 0 {
		slog.Warn("new bets suspended by kill switch", "dropped_signals", len(signals))
		return nil
	}

	for _, sig := range signals {
		stake := sizing.StakeAmount(
			l.sim.Bankroll(), sig.EstimatedProb, sig.EffectivePrice,
			l.cfg.KellyFraction, l.cfg.MaxBetPct,
		)
		if stake <= 0 {
			l.logSignal(ctx, sig, "bet sizing returned 0")
			continue
		}

		ok, reason := l.risk.Approve(risk.Check{
			Signal: sig,
			Stake:  stake,
			State: domain.RiskState{
				Bankroll:           l.sim.Bankroll(),
				StartOfDayBankroll: l.startOfDayBankroll,
				DailyPnL:           l.dailyPnL,
				OpenPositions:      l.sim.OpenPositionCount(),
			},
			MarketVolume24h:  quotes[sig.MarketID].Volume24h,
			ExistingExposure: l.sim.Exposure(sig.MarketID),
		})
		if !ok {
			metrics.SignalsRejected.Inc()
			l.logSignal(ctx, sig, reason)
			slog.Info("signal rejected by risk gate", "market_id", sig.MarketID, "reason", reason)
			continue
		}
		l.logSignal(ctx, sig, "")

		bet := domain.Bet{
			ID:             uuid.NewString(),
			SignalID:       sig.ID,
			Timestamp:      now,
			MarketID:       sig.MarketID,
			Direction:      sig.Direction,
			Stake:          stake,
			ExecutionPrice: sig.EffectivePrice,
			EstimatedProb:  sig.EstimatedProb,
			EdgeAtEntry:    sig.Edge,
			KellyFraction:  l.cfg.KellyFraction,
			Mode:           l.cfg.Mode,
		}
		if err := l.sim.PlaceBet(ctx, bet); err != nil {
			slog.Warn("bet not placed", "market_id", sig.MarketID, "err", err)
			continue
		}
		metrics.BetsPlaced.Inc()
		slog.Info("bet placed",
			"market_id", bet.MarketID,
			"direction", bet.Direction,
			"stake", fmt.Sprintf("$%.2f", bet.Stake),
			"price", fmt.Sprintf("%.3f", bet.ExecutionPrice),
			"edge", fmt.Sprintf("%.3f", bet.EdgeAtEntry),
		)
	}
	return nil
}

// Deliver hands the loop a resolution from an external stream. It is applied
// on the next tick's track phase, never mid-tick.
func (l *Loop) Deliver(res domain.Resolution) {
	l.mu.Lock()
	l.delivered = append(l.delivered, res)
	l.mu.Unlock()
}

func (l *Loop) drainDelivered() []domain.Resolution {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.delivered
	l.delivered = nil
	return out
}

// track settles streamed resolutions, polls the remaining open positions,
// and re-checks the kill criteria against recomputed metrics.
func (l *Loop) track(ctx context.Context, now time.Time) error {
	var resolutions []domain.Resolution
	for _, res := range l.drainDelivered() {
		pnl, applied, err := l.sim.Resolve(ctx, res)
		if err != nil {
			slog.Warn("streamed resolution failed", "market_id", res.MarketID, "err", err)
			continue
		}
		if applied {
			l.dailyPnL += pnl
			resolutions = append(resolutions, res)
		}
	}

	for _, pos := range l.sim.OpenPositions() {
		quote, err := l.markets.FetchMarket(ctx, pos.MarketID)
		if err != nil {
			slog.Warn("resolution poll failed", "market_id", pos.MarketID, "err", err)
			continue
		}
		if !quote.Resolved {
			continue
		}

		res := domain.Resolution{MarketID: pos.MarketID, Outcome: quote.Outcome, ResolvedAt: now}
		pnl, applied, err := l.sim.Resolve(ctx, res)
		if err != nil {
			slog.Warn("resolution failed", "market_id", pos.MarketID, "err", err)
			continue
		}
		if applied {
			l.dailyPnL += pnl
			resolutions = append(resolutions, res)
		}
	}

	if l.snapshots != nil && len(resolutions) > 0 {
		if err := l.snapshots.WriteResolutions(ctx, now, resolutions); err != nil {
			slog.Warn("resolution snapshot failed", "err", err)
		}
	}

	m, err := l.accountant.Metrics(ctx)
	if err != nil {
		return fmt.Errorf("recompute metrics: %w", err)
	}
	l.applyKillCriteria(m)

	if l.notifier != nil {
		if err := l.notifier.NotifyStatus(ctx, l.sim.OpenPositions(), m, l.sim.Bankroll()); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	return nil
}

// rollDay appends an equity sample and resets the daily counters on the
// first tick of each UTC day.
func (l *Loop) rollDay(ctx context.Context, now time.Time) {
	day := now.Format(time.DateOnly)
	if day == l.day {
		return
	}

	if l.day != "" {
		sample := domain.EquitySample{Date: now.Truncate(24 * time.Hour), Bankroll: l.sim.Bankroll()}
		if err := l.ledger.SaveEquitySample(ctx, sample); err != nil {
			slog.Warn("equity sample not saved", "err", err)
		}
	}

	l.day = day
	l.startOfDayBankroll = l.sim.Bankroll()
	l.dailyPnL = 0
}

// applyKillCriteria flips the suspend switch when drawdown crosses the
// configured threshold. Policy only suspends new bets; tracking continues.
func (l *Loop) applyKillCriteria(m domain.PerformanceMetrics) {
	if l.cfg.KillDrawdown <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.suspended && m.MaxDrawdown >= l.cfg.KillDrawdown {
		l.suspended = true
		slog.Error("kill switch engaged: suspending new bets",
			"max_drawdown", fmt.Sprintf("%.1f%%", m.MaxDrawdown*100),
			"threshold", fmt.Sprintf("%.1f%%", l.cfg.KillDrawdown*100),
		)
	}
}

func (l *Loop) writeSnapshots(ctx context.Context, now time.Time, articles []domain.Article, markets []domain.MarketQuote) {
	if l.snapshots == nil {
		return
	}
	if err := l.snapshots.WriteMarketSnapshot(ctx, now, markets); err != nil {
		slog.Warn("market snapshot failed", "err", err)
	}
	if len(articles) > 0 {
		if err := l.snapshots.WriteNewsSnapshot(ctx, now, articles); err != nil {
			slog.Warn("news snapshot failed", "err", err)
		}
	}
}

func (l *Loop) logSignal(ctx context.Context, sig domain.Signal, rejected string) {
	if err := l.ledger.SaveSignal(ctx, sig, rejected); err != nil {
		slog.Warn("signal not recorded", "market_id", sig.MarketID, "err", err)
	}
}

// Status returns a read-only snapshot of the loop.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Loop) isSuspended() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.suspended
}

func (l *Loop) setPhase(p Phase) {
	l.mu.Lock()
	l.status.Phase = p
	l.mu.Unlock()
}

func (l *Loop) setError(msg string) {
	l.mu.Lock()
	l.status.LastError = msg
	l.mu.Unlock()
}

func (l *Loop) refreshStatus(tickStart time.Time) {
	positions := l.sim.OpenPositions()
	bankroll := l.sim.Bankroll()
	metrics.BankrollGauge.Set(bankroll)

	l.mu.Lock()
	l.status.LastTick = tickStart
	l.status.OpenPositions = positions
	l.status.DailyPnL = l.dailyPnL
	l.status.Bankroll = bankroll
	l.status.Suspended = l.suspended
	l.mu.Unlock()
}
