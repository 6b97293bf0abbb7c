// Package store persists positions, the signal log, daily metrics and run records in SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persisted store.
type Store struct {
	db  *sqlx.DB
	mu  sync.Mutex // serializes write transactions within the process
	log zerolog.Logger
}

// dsn builds the modernc connection string. Writes use BEGIN IMMEDIATE so a run
// takes the write lock up front instead of failing on upgrade.
func dsn(path string) string {
	return path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(FULL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_txlock=immediate"
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL readers (status API) share the file with the daily writer.
	db.SetMaxOpenConns(4)

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info().Str("path", path).Msg("sqlite store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS positions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			signal_name       TEXT    NOT NULL,
			ticker            TEXT    NOT NULL,
			entry_date        TEXT    NOT NULL,
			entry_price       REAL    NOT NULL,
			shares            INTEGER NOT NULL,
			position_size_pct REAL    NOT NULL,
			is_boosted        INTEGER NOT NULL DEFAULT 0,
			regime_at_entry   TEXT    NOT NULL,
			target_exit_date  TEXT    NOT NULL,
			status            TEXT    NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
			exit_date         TEXT,
			exit_price        REAL,
			pnl               REAL,
			pnl_pct           REAL,
			UNIQUE (entry_date, signal_name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,

		`CREATE TABLE IF NOT EXISTS signals_log (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			date              TEXT    NOT NULL,
			signal_name       TEXT    NOT NULL,
			trigger_ticker    TEXT    NOT NULL,
			target_ticker     TEXT    NOT NULL,
			trigger_momentum  REAL    NOT NULL,
			is_killed         INTEGER NOT NULL DEFAULT 0,
			kill_reason       TEXT,
			is_boosted        INTEGER NOT NULL DEFAULT 0,
			position_size_pct REAL    NOT NULL,
			regime            TEXT,
			action            TEXT    NOT NULL,
			UNIQUE (date, signal_name)
		)`,

		`CREATE TABLE IF NOT EXISTS daily_metrics (
			date              TEXT PRIMARY KEY,
			total_trades      INTEGER NOT NULL,
			wins              INTEGER NOT NULL,
			losses            INTEGER NOT NULL,
			win_rate          REAL    NOT NULL,
			avg_return        REAL    NOT NULL,
			avg_win           REAL    NOT NULL,
			avg_loss          REAL    NOT NULL,
			total_pnl         REAL    NOT NULL,
			open_positions    INTEGER NOT NULL,
			regime            TEXT,
			regime_confidence REAL
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			date        TEXT    NOT NULL,
			started_at  TEXT    NOT NULL,
			finished_at TEXT    NOT NULL,
			regime      TEXT,
			confidence  REAL,
			entered     INTEGER NOT NULL,
			killed      INTEGER NOT NULL,
			closed      INTEGER NOT NULL,
			missing     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_date ON runs(date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// InTx runs fn inside one write transaction. fn's error, or a panic, rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				s.log.Error().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	if err = fn(&Tx{q: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

// Tx is one open write transaction. It implements lifecycle.Ledger.
type Tx struct {
	q sqlx.ExtContext
}
