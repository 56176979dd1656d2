package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// ContractMetadata returns the cached classification for a token contract,
// nil when never checked.
func (s *Store) ContractMetadata(ctx context.Context, addr string) (*models.ContractMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT address, is_fungible, token_type, alias, checked_at FROM contract_metadata WHERE address = ?", addr)
	var m models.ContractMetadata
	var alias sql.NullString
	var checked int64
	err := row.Scan(&m.Address, &m.IsFungible, &m.TokenType, &alias, &checked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Alias = alias.String
	m.CheckedAt = time.Unix(checked, 0).UTC()
	return &m, nil
}

// ListContractMetadata returns every cached classification.
func (s *Store) ListContractMetadata(ctx context.Context) ([]models.ContractMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT address, is_fungible, token_type, alias, checked_at FROM contract_metadata ORDER BY address")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ContractMetadata
	for rows.Next() {
		var m models.ContractMetadata
		var alias sql.NullString
		var checked int64
		if err := rows.Scan(&m.Address, &m.IsFungible, &m.TokenType, &alias, &checked); err != nil {
			return nil, err
		}
		m.Alias = alias.String
		m.CheckedAt = time.Unix(checked, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertContractMetadata writes classification decisions. The cache is
// authoritative after first write, but re-writes with the same decision are
// harmless (classification is deterministic over the same inputs).
func (s *Store) UpsertContractMetadata(ctx context.Context, ms []models.ContractMetadata) error {
	if len(ms) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO contract_metadata (address, is_fungible, token_type, alias, checked_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			is_fungible = excluded.is_fungible,
			token_type = excluded.token_type,
			alias = excluded.alias,
			checked_at = excluded.checked_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, m := range ms {
		if _, err := stmt.ExecContext(ctx, m.Address, m.IsFungible, m.TokenType,
			nullStr(m.Alias), m.CheckedAt.Unix()); err != nil {
			return fmt.Errorf("upsert contract metadata %s: %w", m.Address, err)
		}
	}
	return dbtx.Commit()
}

// UpsertRegistryEntries writes address-registry rows. tx_count and type are
// always refreshed; identity fields only overwrite when non-empty so a
// failed re-resolution never erases a prior answer.
func (s *Store) UpsertRegistryEntries(ctx context.Context, es []models.AddressRegistry) error {
	if len(es) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO address_registry (address, address_type, alias, tezos_domain, owned_domains, category, tx_count, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			address_type = excluded.address_type,
			alias = COALESCE(excluded.alias, address_registry.alias),
			tezos_domain = COALESCE(excluded.tezos_domain, address_registry.tezos_domain),
			owned_domains = COALESCE(excluded.owned_domains, address_registry.owned_domains),
			category = COALESCE(excluded.category, address_registry.category),
			tx_count = excluded.tx_count,
			resolved_at = COALESCE(excluded.resolved_at, address_registry.resolved_at)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range es {
		var owned any
		if len(e.OwnedDomains) > 0 {
			b, err := json.Marshal(e.OwnedDomains)
			if err != nil {
				return fmt.Errorf("marshal owned domains for %s: %w", e.Address, err)
			}
			owned = string(b)
		}
		if _, err := stmt.ExecContext(ctx, e.Address, e.AddressType, nullStr(e.Alias),
			nullStr(e.TezosDomain), owned, nullStr(e.Category), e.TxCount, nullTime(e.ResolvedAt)); err != nil {
			return fmt.Errorf("upsert registry %s: %w", e.Address, err)
		}
	}
	return dbtx.Commit()
}

func scanRegistryRows(rows *sql.Rows) ([]models.AddressRegistry, error) {
	defer rows.Close()
	var out []models.AddressRegistry
	for rows.Next() {
		var e models.AddressRegistry
		var alias, domain, owned, category sql.NullString
		var resolved sql.NullInt64
		if err := rows.Scan(&e.Address, &e.AddressType, &alias, &domain, &owned, &category, &e.TxCount, &resolved); err != nil {
			return nil, err
		}
		e.Alias = alias.String
		e.TezosDomain = domain.String
		e.Category = category.String
		e.ResolvedAt = scanNullTime(resolved)
		if owned.Valid && owned.String != "" {
			// Malformed cache rows are skipped, not fatal.
			_ = json.Unmarshal([]byte(owned.String), &e.OwnedDomains)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const registryCols = "address, address_type, alias, tezos_domain, owned_domains, category, tx_count, resolved_at"

// ListRegistry returns all registry rows ordered by tx_count descending.
func (s *Store) ListRegistry(ctx context.Context) ([]models.AddressRegistry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+registryCols+" FROM address_registry ORDER BY tx_count DESC")
	if err != nil {
		return nil, err
	}
	return scanRegistryRows(rows)
}

// ListUnresolvedWallets returns wallet rows without a resolved_at stamp,
// busiest first, capped at limit.
func (s *Store) ListUnresolvedWallets(ctx context.Context, limit int) ([]models.AddressRegistry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+registryCols+" FROM address_registry WHERE resolved_at IS NULL AND address_type = ? ORDER BY tx_count DESC LIMIT ?",
		models.AddrWallet, limit)
	if err != nil {
		return nil, err
	}
	return scanRegistryRows(rows)
}

// RegistryCategories returns address -> category for every categorized row.
// The flow engine's classification cascade consults this map.
func (s *Store) RegistryCategories(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT address, category FROM address_registry WHERE category IS NOT NULL AND category != ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var addr, cat string
		if err := rows.Scan(&addr, &cat); err != nil {
			return nil, err
		}
		out[addr] = cat
	}
	return out, rows.Err()
}

// AddressActivity returns address -> raw tx count for discovery, covering
// senders and targets of raw transactions.
func (s *Store) AddressActivity(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a, SUM(n) FROM (
			SELECT sender AS a, COUNT(*) AS n FROM raw_transactions GROUP BY sender
			UNION ALL
			SELECT target AS a, COUNT(*) AS n FROM raw_transactions GROUP BY target
		) GROUP BY a`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var a string
		var n int64
		if err := rows.Scan(&a, &n); err != nil {
			return nil, err
		}
		out[a] = n
	}
	return out, rows.Err()
}
