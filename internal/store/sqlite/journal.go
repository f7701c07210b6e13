package sqlite

import (
	"context"
	"fmt"
	"time"

	"trading-signalsv1/internal/model"
)

// Append writes one live signal row. Rows are never updated by this package.
func (s *Store) Append(ctx context.Context, e model.TradeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trade_log (id, symbol, direction, entry, stop_loss, target, result, entry_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Symbol, string(e.Direction), e.Entry, e.StopLoss, e.Target, e.Result, e.EntryTime.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert trade_log %s: %w", e.Symbol, err)
	}
	return nil
}

// TradeLog returns the newest rows first. Empty symbol matches every symbol.
func (s *Store) TradeLog(ctx context.Context, symbol string, limit int) ([]model.TradeLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, direction, entry, stop_loss, target, result, entry_time
		FROM trade_log
		WHERE (? = '' OR symbol = ?)
		ORDER BY entry_time DESC, rowid DESC
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trade_log: %w", err)
	}
	defer rows.Close()

	var out []model.TradeLogEntry
	for rows.Next() {
		var e model.TradeLogEntry
		var dir string
		var ts int64
		if err := rows.Scan(&e.ID, &e.Symbol, &dir, &e.Entry, &e.StopLoss, &e.Target, &e.Result, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan trade_log: %w", err)
		}
		e.Direction = model.Direction(dir)
		e.EntryTime = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
