package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store is the embedded relational state of the pipeline: raw event tables,
// derived analytics tables, and the persistent caches that survive analyze
// runs. It is single-writer, many-reader within one process; every write
// method serializes on mu. The database is one file under the data dir,
// running in WAL mode so a crash loses at most the un-checkpointed tail.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open creates the data directory if needed, opens (or initializes) the
// database file and applies the schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, "analytics.db")

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// database/sql pooling would defeat the single-writer model; one
	// connection keeps all statements on the same WAL session.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens a throwaway in-memory store. Used by tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: ":memory:"}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save flushes the WAL into the main database file. The ingester calls it
// between batches and at teardown so a partial run loses at most one batch.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == ":memory:" {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close checkpoints and closes the database.
func (s *Store) Close() error {
	_ = s.Save()
	return s.db.Close()
}

var derivedTables = []string{
	"buyers", "buyer_balance_start", "purchases", "creators", "mints",
	"listings", "offer_accepts", "resales", "daily_metrics",
	"marketplace_stats", "daily_marketplace_fees", "buyer_cex_flow",
	"creator_fund_flow", "wallet_xtz_summary",
}

var rawTables = []string{
	"raw_transactions", "raw_token_transfers", "raw_balances",
	"raw_xtz_transfers", "all_transactions", "xtz_flows",
	"sync_metadata", "sync_progress",
}

var cacheTables = []string{"contract_metadata", "address_registry"}

// ClearDerived truncates only the derived tables. Analyze runs call this
// first so derivation stays a pure function of raw tables plus config.
func (s *Store) ClearDerived(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncate(ctx, derivedTables)
}

// ClearAll truncates everything, including raw data and persistent caches.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append(append(append([]string{}, derivedTables...), rawTables...), cacheTables...)
	return s.truncate(ctx, all)
}

func (s *Store) truncate(ctx context.Context, tables []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// Counts returns row counts for the status command. Missing tables are a
// fatal schema error, so any failure propagates.
func (s *Store) Counts(ctx context.Context, tables ...string) (map[string]int64, error) {
	if len(tables) == 0 {
		tables = append(append(append([]string{}, rawTables...), derivedTables...), cacheTables...)
	}
	out := make(map[string]int64, len(tables))
	for _, t := range tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		out[t] = n
	}
	return out, nil
}
