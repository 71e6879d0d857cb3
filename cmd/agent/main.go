package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/extractor"
	"github.com/alejandrodnm/edgebot/internal/adapters/history"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/edgebot/internal/adapters/rss"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/agent"
	"github.com/alejandrodnm/edgebot/internal/application/edge"
	"github.com/alejandrodnm/edgebot/internal/application/perf"
	"github.com/alejandrodnm/edgebot/internal/application/risk"
	"github.com/alejandrodnm/edgebot/internal/application/sim"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one tick and exit")
	backtest := flag.Bool("backtest", false, "replay historical snapshots instead of trading")
	start := flag.String("start", "", "backtest start date (YYYY-MM-DD, inclusive)")
	end := flag.String("end", "", "backtest end date (YYYY-MM-DD, exclusive)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full status tables (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	evaluator := edge.New(edge.Config{
		TakerFeeRate:  cfg.Trading.TakerFeeRate,
		MinEdge:       cfg.Trading.MinEdge,
		MinConfidence: cfg.Trading.MinConfidence,
		MaxQuoteAge:   cfg.MaxQuoteAge(),
	}, nil)

	riskMgr := risk.New(risk.Limits{
		MinEdge:         cfg.Trading.MinEdge,
		MaxPositions:    cfg.Trading.MaxPositions,
		MaxDailyLossPct: cfg.Trading.MaxDailyLossPct,
		MaxVolumePct:    cfg.Trading.MaxVolumePct,
		MaxBetPct:       cfg.Trading.MaxBetPct,
	})

	llm := extractor.NewOpenAI(extractor.Config{
		BaseURL: cfg.API.OpenAIBase,
		APIKey:  cfg.API.OpenAIKey,
		Model:   cfg.API.OpenAIModel,
	})
	strategies := []strategy.Strategy{
		strategy.NewNewsSpeed(llm, strategy.NewsSpeedConfig{
			MinConfidence:      cfg.Trading.MinConfidence,
			MaxMarketsPerCycle: cfg.Trading.MaxMarketsPerLLM,
		}),
	}

	if *backtest {
		runBacktest(ctx, cfg, strategies, evaluator, riskMgr, *start, *end, *table)
		return
	}

	slog.Info("edgebot starting",
		"config", *configPath,
		"mode", cfg.Trading.Mode,
		"interval", cfg.TickInterval(),
		"bankroll", cfg.Trading.InitialBankroll,
		"once", *once,
	)

	ledger, err := storage.NewSQLiteLedger(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer ledger.Close()

	simulator := sim.New(cfg.Trading.InitialBankroll, ledger)
	if err := simulator.Restore(ctx); err != nil {
		slog.Error("failed to restore state", "err", err)
		os.Exit(1)
	}

	client := polymarket.NewClient(cfg.API.GammaBase, cfg.API.WSBase)
	news := rss.NewAggregator(cfg.News.Feeds)
	snapshots := history.NewFiles(cfg.Storage.HistoryDir)
	notifier := notify.NewConsole(*table)

	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		slog.Info("metrics endpoint up", "addr", cfg.Metrics.Addr)
	}

	loop := agent.New(
		agent.Config{
			Mode:          domain.Mode(cfg.Trading.Mode),
			TickInterval:  cfg.TickInterval(),
			KellyFraction: cfg.Trading.KellyFraction,
			MaxBetPct:     cfg.Trading.MaxBetPct,
			KillDrawdown:  cfg.Trading.KillDrawdownPct,
		},
		news, client, strategies, evaluator, riskMgr,
		simulator, perf.New(ledger), ledger, snapshots, notifier, nil,
	)

	if cfg.API.UseResolution {
		go watchResolutions(ctx, client, loop)
		slog.Info("resolution stream enabled", "ws_base", cfg.API.WSBase)
	}

	if *once {
		loop.RunTick(ctx)
		slog.Info("single tick complete")
		return
	}

	if err := loop.Run(ctx); err != nil {
		slog.Error("agent exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("edgebot stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
