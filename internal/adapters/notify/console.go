// Package notify renders agent state to the terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Console implements ports.Notifier on stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout. table selects the
// full table render over the compact one-liner.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyStatus prints the open book and running performance.
func (c *Console) NotifyStatus(_ context.Context, positions []domain.Position, metrics domain.PerformanceMetrics, bankroll float64) error {
	if c.table {
		c.printFull(positions, metrics, bankroll)
	} else {
		c.printCompact(positions, metrics, bankroll)
	}
	return nil
}

// printCompact is the per-tick one-liner.
func (c *Console) printCompact(positions []domain.Position, m domain.PerformanceMetrics, bankroll float64) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] bank $%.2f | %d open | pnl $%.2f | win %.0f%% | bets %d",
		now, bankroll, len(positions), m.TotalPnL, m.WinRate*100, m.NumBets)

	shown := 0
	for _, pos := range positions {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s %.1f@%.2f",
			pos.Direction, compactName(pos.MarketID, 16), pos.Shares, pos.AvgPrice)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull renders the position table plus the metrics block.
func (c *Console) printFull(positions []domain.Position, m domain.PerformanceMetrics, bankroll float64) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] bankroll $%.2f — %d open positions\n", now, bankroll, len(positions))

	if len(positions) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Market", "Side", "Shares", "AvgPx", "Cost$", "Opened")
		for i, pos := range positions {
			table.Append(
				fmt.Sprintf("%d", i+1),
				truncate(pos.MarketID, 38),
				string(pos.Direction),
				fmt.Sprintf("%.2f", pos.Shares),
				fmt.Sprintf("%.3f", pos.AvgPrice),
				fmt.Sprintf("$%.2f", pos.CostBasis()),
				pos.OpenedAt.Format("01-02 15:04"),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "  PnL $%.2f | win rate %.1f%% (%d bets) | avg edge %.3f | sharpe %.2f | max DD %.1f%%\n",
		m.TotalPnL, m.WinRate*100, m.NumBets, m.AvgEdge, m.Sharpe, m.MaxDrawdown*100)
}

// PrintBacktest renders a finished replay: trade table, equity endpoints and
// the aggregate block.
func (c *Console) PrintBacktest(r domain.BacktestResult) {
	fmt.Fprintf(c.out, "\n========================================================\n")
	fmt.Fprintf(c.out, "  BACKTEST REPORT\n")
	fmt.Fprintf(c.out, "========================================================\n\n")

	if len(r.Trades) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("#", "Market", "Side", "PnL", "Result", "Resolved")
		for i, t := range r.Trades {
			table.Append(
				fmt.Sprintf("%d", i+1),
				truncate(t.MarketID, 38),
				string(t.Direction),
				fmt.Sprintf("$%.2f", t.PnL),
				strings.ToUpper(t.Outcome),
				t.ResolvedAt.Format("2006-01-02"),
			)
		}
		table.Render()
	} else {
		fmt.Fprintln(c.out, "  No trades executed in the window.")
	}

	ret := 0.0
	if r.StartBankroll > 0 {
		ret = (r.FinalBankroll - r.StartBankroll) / r.StartBankroll * 100
	}

	fmt.Fprintf(c.out, "\n  Bankroll:     $%.2f -> $%.2f (%+.1f%%)\n", r.StartBankroll, r.FinalBankroll, ret)
	fmt.Fprintf(c.out, "  Total PnL:    $%.2f over %d trades\n", r.TotalPnL, r.NumTrades)
	fmt.Fprintf(c.out, "  Win rate:     %.1f%%\n", r.WinRate*100)
	fmt.Fprintf(c.out, "  Sharpe:       %.2f (annualized)\n", r.Sharpe)
	fmt.Fprintf(c.out, "  Max drawdown: %.1f%%\n", r.MaxDrawdown*100)
	fmt.Fprintln(c.out)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
