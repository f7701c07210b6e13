// Package sqlite persists bars, the live trade log and backtest runs in a
// single SQLite database opened in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store is safe for concurrent use. Writes are serialized by mu; the
// connection pool is kept small so WAL readers do not starve the writer.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open creates (or opens) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db, path: path}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error {
	log.Printf("[sqlite] closing %s", s.path)
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL    NOT NULL,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS trade_log (
			id         TEXT    PRIMARY KEY,
			symbol     TEXT    NOT NULL,
			direction  TEXT    NOT NULL,
			entry      REAL    NOT NULL,
			stop_loss  REAL    NOT NULL,
			target     REAL    NOT NULL,
			result     TEXT    NOT NULL DEFAULT '',
			entry_time INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_trade_log_symbol ON trade_log(symbol, entry_time);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id             TEXT    PRIMARY KEY,
			provider       TEXT    NOT NULL,
			period         TEXT    NOT NULL,
			interval       TEXT    NOT NULL,
			symbols        TEXT    NOT NULL,
			failed         TEXT    NOT NULL DEFAULT '',
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER NOT NULL,
			total_trades   INTEGER NOT NULL,
			winning_trades INTEGER NOT NULL,
			win_rate       REAL    NOT NULL,
			total_pnl      REAL    NOT NULL,
			max_drawdown   REAL    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backtest_trades (
			run_id     TEXT    NOT NULL REFERENCES backtest_runs(id),
			seq        INTEGER NOT NULL,
			symbol     TEXT    NOT NULL,
			direction  TEXT    NOT NULL,
			entry      REAL    NOT NULL,
			exit       REAL    NOT NULL,
			pnl        REAL    NOT NULL,
			entry_time INTEGER NOT NULL,
			exit_time  INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}
