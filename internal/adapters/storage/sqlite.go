// Package storage persists the trading ledger in SQLite (pure Go, no CGo).
//
// Layout:
//   - `bankroll`: single-row current balance (id = 1).
//   - `signals`: every evaluated signal, passed or rejected, for audit.
//   - `bets`: one row per placed bet; settled flips on resolution.
//   - `positions`: one row per market, merged in place on repeat bets.
//   - `resolutions` / `bet_results`: terminal records, written once.
//   - `equity`: one bankroll sample per day for the equity curve.
//
// ApplyBet and ApplyResolution run in a single transaction each, so a crash
// can never leave the bankroll and the position set disagreeing.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bankroll (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    amount     REAL     NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
    id              TEXT PRIMARY KEY,
    ts              DATETIME NOT NULL,
    market_id       TEXT     NOT NULL,
    question        TEXT,
    direction       TEXT     NOT NULL,
    quoted_price    REAL     NOT NULL,
    effective_price REAL     NOT NULL,
    estimated_prob  REAL     NOT NULL,
    edge            REAL     NOT NULL,
    confidence      INTEGER  NOT NULL,
    reasoning       TEXT,
    headline        TEXT,
    rejected        TEXT     NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS bets (
    id              TEXT PRIMARY KEY,
    signal_id       TEXT,
    ts              DATETIME NOT NULL,
    market_id       TEXT     NOT NULL,
    direction       TEXT     NOT NULL,
    stake           REAL     NOT NULL,
    execution_price REAL     NOT NULL,
    shares          REAL     NOT NULL,
    estimated_prob  REAL     NOT NULL,
    edge_at_entry   REAL     NOT NULL,
    kelly_fraction  REAL     NOT NULL,
    mode            TEXT     NOT NULL,
    settled         INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS positions (
    market_id TEXT PRIMARY KEY,
    direction TEXT     NOT NULL,
    shares    REAL     NOT NULL,
    avg_price REAL     NOT NULL,
    opened_at DATETIME NOT NULL,
    status    TEXT     NOT NULL
);

CREATE TABLE IF NOT EXISTS resolutions (
    market_id   TEXT PRIMARY KEY,
    outcome     TEXT     NOT NULL,
    resolved_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bet_results (
    bet_id        TEXT PRIMARY KEY,
    market_id     TEXT     NOT NULL,
    direction     TEXT     NOT NULL,
    stake         REAL     NOT NULL,
    price         REAL     NOT NULL,
    outcome       TEXT     NOT NULL,
    pnl           REAL     NOT NULL,
    edge_at_entry REAL     NOT NULL,
    resolved_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
    date     TEXT PRIMARY KEY,
    bankroll REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_market ON signals(market_id);
CREATE INDEX IF NOT EXISTS idx_bets_market    ON bets(market_id, settled);
CREATE INDEX IF NOT EXISTS idx_results_at     ON bet_results(resolved_at);
`

// SQLiteLedger implements ports.Ledger on a local SQLite file.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the database at path and applies the
// schema.
func NewSQLiteLedger(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteLedger: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteLedger: apply schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

// SaveSignal records an evaluated signal; rejected is "" for signals that
// went on to the sizing stage.
func (s *SQLiteLedger) SaveSignal(ctx context.Context, sig domain.Signal, rejected string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(id, ts, market_id, question, direction, quoted_price,
			 effective_price, estimated_prob, edge, confidence, reasoning,
			 headline, rejected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		sig.ID, fmtTime(sig.Timestamp), sig.MarketID, sig.MarketQuestion,
		string(sig.Direction), sig.QuotedPrice, sig.EffectivePrice,
		sig.EstimatedProb, sig.Edge, sig.Confidence, sig.Reasoning,
		sig.NewsHeadline, rejected,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSignal: insert %s: %w", sig.ID, err)
	}
	return nil
}

// ApplyBet records the bet, upserts the merged position and sets the new
// bankroll in one transaction.
func (s *SQLiteLedger) ApplyBet(ctx context.Context, bet domain.Bet, pos domain.Position, bankroll float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ApplyBet: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets
			(id, signal_id, ts, market_id, direction, stake, execution_price,
			 shares, estimated_prob, edge_at_entry, kelly_fraction, mode, settled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		bet.ID, bet.SignalID, fmtTime(bet.Timestamp), bet.MarketID,
		string(bet.Direction), bet.Stake, bet.ExecutionPrice, bet.Shares,
		bet.EstimatedProb, bet.EdgeAtEntry, bet.KellyFraction, string(bet.Mode),
	); err != nil {
		return fmt.Errorf("storage.ApplyBet: insert bet %s: %w", bet.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO positions (market_id, direction, shares, avg_price, opened_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id) DO UPDATE SET
			direction = excluded.direction,
			shares    = excluded.shares,
			avg_price = excluded.avg_price,
			status    = excluded.status`,
		pos.MarketID, string(pos.Direction), pos.Shares, pos.AvgPrice,
		fmtTime(pos.OpenedAt), string(pos.Status),
	); err != nil {
		return fmt.Errorf("storage.ApplyBet: upsert position %s: %w", pos.MarketID, err)
	}

	if err := setBankrollTx(ctx, tx, bankroll); err != nil {
		return fmt.Errorf("storage.ApplyBet: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ApplyBet: commit: %w", err)
	}
	return nil
}

// ApplyResolution records the resolution, finalizes the market's open bets,
// closes the position and sets the new bankroll in one transaction.
func (s *SQLiteLedger) ApplyResolution(ctx context.Context, res domain.Resolution, results []domain.BetResult, bankroll float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.ApplyResolution: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO resolutions (market_id, outcome, resolved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(market_id) DO NOTHING`,
		res.MarketID, string(res.Outcome), fmtTime(res.ResolvedAt),
	); err != nil {
		return fmt.Errorf("storage.ApplyResolution: insert resolution %s: %w", res.MarketID, err)
	}

	for _, r := range results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bet_results
				(bet_id, market_id, direction, stake, price, outcome, pnl,
				 edge_at_entry, resolved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(bet_id) DO NOTHING`,
			r.BetID, r.MarketID, string(r.Direction), r.Stake, r.Price,
			r.Outcome, r.PnL, r.EdgeAtEntry, fmtTime(r.ResolvedAt),
		); err != nil {
			return fmt.Errorf("storage.ApplyResolution: insert result %s: %w", r.BetID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bets SET settled = 1 WHERE market_id = ?`, res.MarketID,
	); err != nil {
		return fmt.Errorf("storage.ApplyResolution: settle bets %s: %w", res.MarketID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET status = ? WHERE market_id = ?`,
		string(domain.PositionResolved), res.MarketID,
	); err != nil {
		return fmt.Errorf("storage.ApplyResolution: close position %s: %w", res.MarketID, err)
	}

	if err := setBankrollTx(ctx, tx, bankroll); err != nil {
		return fmt.Errorf("storage.ApplyResolution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.ApplyResolution: commit: %w", err)
	}
	return nil
}

// SaveEquitySample upserts the bankroll sample for its day.
func (s *SQLiteLedger) SaveEquitySample(ctx context.Context, sample domain.EquitySample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO equity (date, bankroll) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET bankroll = excluded.bankroll`,
		sample.Date.UTC().Format(time.DateOnly), sample.Bankroll,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveEquitySample: %w", err)
	}
	return nil
}

// Bankroll returns the stored balance; ok is false on a fresh database.
func (s *SQLiteLedger) Bankroll(ctx context.Context) (float64, bool, error) {
	var amount float64
	err := s.db.QueryRowContext(ctx, `SELECT amount FROM bankroll WHERE id = 1`).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("storage.Bankroll: %w", err)
	}
	return amount, true, nil
}

func (s *SQLiteLedger) SetBankroll(ctx context.Context, amount float64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO bankroll (id, amount, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
		amount, fmtTime(time.Now()),
	); err != nil {
		return fmt.Errorf("storage.SetBankroll: %w", err)
	}
	return nil
}

// OpenPositions returns every position still awaiting resolution.
func (s *SQLiteLedger) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, direction, shares, avg_price, opened_at, status
		FROM positions WHERE status = ?
		ORDER BY opened_at`,
		string(domain.PositionOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenPositions: query: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		var dir, status, openedAt string
		if err := rows.Scan(&p.MarketID, &dir, &p.Shares, &p.AvgPrice, &openedAt, &status); err != nil {
			return nil, fmt.Errorf("storage.OpenPositions: scan: %w", err)
		}
		p.Direction = domain.Direction(dir)
		p.Status = domain.PositionStatus(status)
		p.OpenedAt = parseTime(openedAt)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// OpenBets returns bets not yet settled by a resolution, oldest first.
func (s *SQLiteLedger) OpenBets(ctx context.Context) ([]domain.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signal_id, ts, market_id, direction, stake, execution_price,
		       shares, estimated_prob, edge_at_entry, kelly_fraction, mode
		FROM bets WHERE settled = 0
		ORDER BY ts`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenBets: query: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var dir, mode, placedAt string
		if err := rows.Scan(
			&b.ID, &b.SignalID, &placedAt, &b.MarketID, &dir, &b.Stake,
			&b.ExecutionPrice, &b.Shares, &b.EstimatedProb, &b.EdgeAtEntry,
			&b.KellyFraction, &mode,
		); err != nil {
			return nil, fmt.Errorf("storage.OpenBets: scan: %w", err)
		}
		b.Direction = domain.Direction(dir)
		b.Mode = domain.Mode(mode)
		b.Timestamp = parseTime(placedAt)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// ResolvedMarkets returns every recorded resolution.
func (s *SQLiteLedger) ResolvedMarkets(ctx context.Context) ([]domain.Resolution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market_id, outcome, resolved_at FROM resolutions ORDER BY resolved_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ResolvedMarkets: query: %w", err)
	}
	defer rows.Close()

	var resolutions []domain.Resolution
	for rows.Next() {
		var r domain.Resolution
		var outcome, resolvedAt string
		if err := rows.Scan(&r.MarketID, &outcome, &resolvedAt); err != nil {
			return nil, fmt.Errorf("storage.ResolvedMarkets: scan: %w", err)
		}
		r.Outcome = domain.Direction(outcome)
		r.ResolvedAt = parseTime(resolvedAt)
		resolutions = append(resolutions, r)
	}
	return resolutions, rows.Err()
}

// BetResults returns every settled bet, oldest first.
func (s *SQLiteLedger) BetResults(ctx context.Context) ([]domain.BetResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bet_id, market_id, direction, stake, price, outcome, pnl,
		       edge_at_entry, resolved_at
		FROM bet_results ORDER BY resolved_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.BetResults: query: %w", err)
	}
	defer rows.Close()

	var results []domain.BetResult
	for rows.Next() {
		var r domain.BetResult
		var dir, resolvedAt string
		if err := rows.Scan(
			&r.BetID, &r.MarketID, &dir, &r.Stake, &r.Price, &r.Outcome,
			&r.PnL, &r.EdgeAtEntry, &resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.BetResults: scan: %w", err)
		}
		r.Direction = domain.Direction(dir)
		r.ResolvedAt = parseTime(resolvedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// EquitySeries returns the daily equity curve in date order.
func (s *SQLiteLedger) EquitySeries(ctx context.Context) ([]domain.EquitySample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, bankroll FROM equity ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("storage.EquitySeries: query: %w", err)
	}
	defer rows.Close()

	var samples []domain.EquitySample
	for rows.Next() {
		var dateStr string
		var s domain.EquitySample
		if err := rows.Scan(&dateStr, &s.Bankroll); err != nil {
			return nil, fmt.Errorf("storage.EquitySeries: scan: %w", err)
		}
		d, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return nil, fmt.Errorf("storage.EquitySeries: parse date %q: %w", dateStr, err)
		}
		s.Date = d
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}

func setBankrollTx(ctx context.Context, tx *sql.Tx, amount float64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bankroll (id, amount, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
		amount, fmtTime(time.Now()),
	); err != nil {
		return fmt.Errorf("set bankroll: %w", err)
	}
	return nil
}

// Timestamps travel as RFC3339 text — explicit both ways, no driver
// conversion involved.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
