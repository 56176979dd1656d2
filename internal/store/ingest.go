package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullI64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.Unix()
}

func scanNullI64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func scanNullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// InsertRawTransactions upserts a batch keyed by indexer id. Duplicate ids
// are silently ignored, which is what makes re-ingest idempotent. Returns
// the number of rows actually inserted.
func (s *Store) InsertRawTransactions(ctx context.Context, txs []models.RawTransaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO raw_transactions
			(id, hash, level, timestamp, sender, target, amount, entrypoint, parameters, status, has_internals)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range txs {
		var params any
		if len(t.Parameters) > 0 {
			params = string(t.Parameters)
		}
		res, err := stmt.ExecContext(ctx, t.ID, t.Hash, t.Level, t.Timestamp.Unix(),
			t.Sender, t.Target, t.Amount, nullStr(t.Entrypoint), params, t.Status, t.HasInternals)
		if err != nil {
			return 0, fmt.Errorf("insert raw tx %d: %w", t.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, dbtx.Commit()
}

// InsertRawTokenTransfers upserts a batch of token transfers keyed by id.
func (s *Store) InsertRawTokenTransfers(ctx context.Context, tts []models.RawTokenTransfer) (int64, error) {
	if len(tts) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO raw_token_transfers
			(id, level, timestamp, token_contract, token_id, token_standard, from_address, to_address, amount, transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range tts {
		var txID any
		if t.TransactionID != 0 {
			txID = t.TransactionID
		}
		res, err := stmt.ExecContext(ctx, t.ID, t.Level, t.Timestamp.Unix(), t.TokenContract,
			t.TokenID, t.TokenStandard, nullStr(t.FromAddress), nullStr(t.ToAddress), t.Amount, txID)
		if err != nil {
			return 0, fmt.Errorf("insert token transfer %d: %w", t.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, dbtx.Commit()
}

// UpsertRawBalance overwrites the snapshot row for one address. A nil
// balance records that the snapshot fetch failed, so we do not retry it
// within the same run.
func (s *Store) UpsertRawBalance(ctx context.Context, b models.RawBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_balances (address, balance, snapshot_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET balance = excluded.balance, snapshot_ts = excluded.snapshot_ts`,
		b.Address, nullI64(b.Balance), b.SnapshotTS.Unix())
	return err
}

// InsertRawXtzTransfers upserts a batch of tagged value transfers.
func (s *Store) InsertRawXtzTransfers(ctx context.Context, xs []models.RawXtzTransfer) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO raw_xtz_transfers (id, hash, timestamp, sender, target, amount, is_from_cex, is_to_cex)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, x := range xs {
		res, err := stmt.ExecContext(ctx, x.ID, x.Hash, x.Timestamp.Unix(), x.Sender, x.Target,
			x.Amount, x.IsFromCex, x.IsToCex)
		if err != nil {
			return 0, fmt.Errorf("insert xtz transfer %d: %w", x.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, dbtx.Commit()
}

// InsertAllTransactions upserts comprehensive-mode transaction mirrors.
func (s *Store) InsertAllTransactions(ctx context.Context, txs []models.AllTransaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO all_transactions (id, hash, level, timestamp, sender, target, amount, entrypoint, tx_category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range txs {
		res, err := stmt.ExecContext(ctx, t.ID, t.Hash, t.Level, t.Timestamp.Unix(), t.Sender,
			nullStr(t.Target), t.Amount, nullStr(t.Entrypoint), nullStr(t.TxCategory))
		if err != nil {
			return 0, fmt.Errorf("insert all_transaction %d: %w", t.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, dbtx.Commit()
}

// InsertXtzFlows upserts classified value flows.
func (s *Store) InsertXtzFlows(ctx context.Context, fs []models.XtzFlow) (int64, error) {
	if len(fs) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO xtz_flows (id, hash, timestamp, sender, target, amount, flow_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, f := range fs {
		res, err := stmt.ExecContext(ctx, f.ID, f.Hash, f.Timestamp.Unix(), f.Sender, f.Target, f.Amount, f.FlowType)
		if err != nil {
			return 0, fmt.Errorf("insert xtz flow %d: %w", f.ID, err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	return inserted, dbtx.Commit()
}

// MaxID returns the highest stored indexer id in table, 0 when empty.
// The ingester resumes each iterator from here (id.gt cursor).
func (s *Store) MaxID(ctx context.Context, table string) (int64, error) {
	switch table {
	case "raw_transactions", "raw_token_transfers", "raw_xtz_transfers", "all_transactions", "xtz_flows":
	default:
		return 0, fmt.Errorf("max id: unsupported table %q", table)
	}
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM "+table).Scan(&max); err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// MaxIDInWindow returns the highest stored id in table whose timestamp
// falls in [start, end). Weekly resume uses this so an interrupted week
// continues exactly where it stopped.
func (s *Store) MaxIDInWindow(ctx context.Context, table string, start, end time.Time) (int64, error) {
	switch table {
	case "all_transactions", "xtz_flows":
	default:
		return 0, fmt.Errorf("max id in window: unsupported table %q", table)
	}
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(id) FROM "+table+" WHERE timestamp >= ? AND timestamp < ?",
		start.Unix(), end.Unix()).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// CountInWindow counts rows of table in [start, end).
func (s *Store) CountInWindow(ctx context.Context, table string, start, end time.Time) (int64, error) {
	switch table {
	case "all_transactions", "xtz_flows":
	default:
		return 0, fmt.Errorf("count in window: unsupported table %q", table)
	}
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE timestamp >= ? AND timestamp < ?",
		start.Unix(), end.Unix()).Scan(&n)
	return n, err
}

// SetMeta stores one key in sync_metadata.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// GetMeta reads one key from sync_metadata; empty string when absent.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM sync_metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
