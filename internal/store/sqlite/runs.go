package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"trading-signalsv1/internal/model"
)

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("backtest run not found")

// SaveRun stores the run summary and its trades atomically.
func (s *Store) SaveRun(ctx context.Context, run model.BacktestRun, trades []model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sum := run.Summary
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, provider, period, interval, symbols, failed, started_at, finished_at,
			total_trades, winning_trades, win_rate, total_pnl, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Provider, run.Period, run.Interval,
		strings.Join(run.Symbols, ","), strings.Join(run.Failed, ","),
		run.StartedAt.Unix(), run.FinishedAt.Unix(),
		sum.TotalTrades, sum.WinningTrades, sum.WinRate, sum.TotalPnL, sum.MaxDrawdown,
	); err != nil {
		return fmt.Errorf("insert backtest_runs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades (run_id, seq, symbol, direction, entry, exit, pnl, entry_time, exit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx, run.ID, i, t.Symbol, string(t.Direction), t.Entry, t.Exit, t.PnL,
			t.EntryTime.Unix(), t.ExitTime.Unix()); err != nil {
			return fmt.Errorf("insert backtest_trades #%d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Run loads a stored run and its trades in emission order.
func (s *Store) Run(ctx context.Context, id string) (model.BacktestRun, []model.Trade, error) {
	var run model.BacktestRun
	var symbols, failed string
	var started, finished int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, provider, period, interval, symbols, failed, started_at, finished_at,
			total_trades, winning_trades, win_rate, total_pnl, max_drawdown
		FROM backtest_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.Provider, &run.Period, &run.Interval, &symbols, &failed, &started, &finished,
		&run.Summary.TotalTrades, &run.Summary.WinningTrades, &run.Summary.WinRate,
		&run.Summary.TotalPnL, &run.Summary.MaxDrawdown,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, nil, ErrRunNotFound
	}
	if err != nil {
		return run, nil, fmt.Errorf("sqlite query backtest_runs: %w", err)
	}
	run.Symbols = splitList(symbols)
	run.Failed = splitList(failed)
	run.StartedAt = time.Unix(started, 0).UTC()
	run.FinishedAt = time.Unix(finished, 0).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, direction, entry, exit, pnl, entry_time, exit_time
		FROM backtest_trades WHERE run_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return run, nil, fmt.Errorf("sqlite query backtest_trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var dir string
		var et, xt int64
		if err := rows.Scan(&t.Symbol, &dir, &t.Entry, &t.Exit, &t.PnL, &et, &xt); err != nil {
			return run, nil, fmt.Errorf("sqlite scan backtest_trades: %w", err)
		}
		t.Direction = model.Direction(dir)
		t.EntryTime = time.Unix(et, 0).UTC()
		t.ExitTime = time.Unix(xt, 0).UTC()
		t.Duration = t.ExitTime.Sub(t.EntryTime)
		trades = append(trades, t)
	}
	return run, trades, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
