package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/history"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/application/backtest"
	"github.com/alejandrodnm/edgebot/internal/application/edge"
	"github.com/alejandrodnm/edgebot/internal/application/risk"
	"github.com/alejandrodnm/edgebot/internal/strategy"
)

func runBacktest(
	ctx context.Context,
	cfg *config.Config,
	strategies []strategy.Strategy,
	evaluator *edge.Evaluator,
	riskMgr *risk.Manager,
	startStr, endStr string,
	table bool,
) {
	start, err := time.Parse(time.DateOnly, startStr)
	if err != nil {
		slog.Error("invalid -start date, expected YYYY-MM-DD", "start", startStr)
		os.Exit(1)
	}
	end, err := time.Parse(time.DateOnly, endStr)
	if err != nil {
		slog.Error("invalid -end date, expected YYYY-MM-DD", "end", endStr)
		os.Exit(1)
	}

	slog.Info("backtest starting",
		"start", startStr,
		"end", endStr,
		"bankroll", cfg.Trading.InitialBankroll,
		"history_dir", cfg.Storage.HistoryDir,
	)

	runner := backtest.New(backtest.Config{
		Start:           start,
		End:             end,
		InitialBankroll: cfg.Trading.InitialBankroll,
		KellyFraction:   cfg.Trading.KellyFraction,
		MaxBetPct:       cfg.Trading.MaxBetPct,
	}, history.NewFiles(cfg.Storage.HistoryDir), strategies, evaluator, riskMgr)

	result, err := runner.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	notify.NewConsole(table).PrintBacktest(result)
	slog.Info("backtest complete",
		"trades", result.NumTrades,
		"final_bankroll", result.FinalBankroll,
	)
}
