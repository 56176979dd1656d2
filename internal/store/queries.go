package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func scanRawTransactions(rows *sql.Rows) ([]models.RawTransaction, error) {
	defer rows.Close()
	var out []models.RawTransaction
	for rows.Next() {
		var t models.RawTransaction
		var ts int64
		var ep, params sql.NullString
		if err := rows.Scan(&t.ID, &t.Hash, &t.Level, &ts, &t.Sender, &t.Target,
			&t.Amount, &ep, &params, &t.Status, &t.HasInternals); err != nil {
			return nil, err
		}
		t.Timestamp = time.Unix(ts, 0).UTC()
		t.Entrypoint = ep.String
		if params.Valid {
			t.Parameters = json.RawMessage(params.String)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const rawTxCols = "id, hash, level, timestamp, sender, target, amount, entrypoint, parameters, status, has_internals"

// ListRawTransactions returns every raw transaction in ascending id order.
// The reconciler depends on this ordering for deterministic first-match
// resolution of timestamp-second collisions.
func (s *Store) ListRawTransactions(ctx context.Context) ([]models.RawTransaction, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+rawTxCols+" FROM raw_transactions ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return scanRawTransactions(rows)
}

// TransactionsByTargetEntrypoints returns applied transactions matching
// target in targets and entrypoint in entrypoints, ascending id.
func (s *Store) TransactionsByTargetEntrypoints(ctx context.Context, targets, entrypoints []string) ([]models.RawTransaction, error) {
	if len(targets) == 0 || len(entrypoints) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(targets)+len(entrypoints))
	for _, t := range targets {
		args = append(args, t)
	}
	for _, e := range entrypoints {
		args = append(args, e)
	}
	q := fmt.Sprintf("SELECT "+rawTxCols+" FROM raw_transactions WHERE target IN (%s) AND entrypoint IN (%s) ORDER BY id ASC",
		placeholders(len(targets)), placeholders(len(entrypoints)))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRawTransactions(rows)
}

// TransactionByID returns one raw transaction, or nil when absent.
func (s *Store) TransactionByID(ctx context.Context, id int64) (*models.RawTransaction, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+rawTxCols+" FROM raw_transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	txs, err := scanRawTransactions(rows)
	if err != nil || len(txs) == 0 {
		return nil, err
	}
	return &txs[0], nil
}

func scanTokenTransfers(rows *sql.Rows) ([]models.RawTokenTransfer, error) {
	defer rows.Close()
	var out []models.RawTokenTransfer
	for rows.Next() {
		var t models.RawTokenTransfer
		var ts int64
		var from, to sql.NullString
		var txID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Level, &ts, &t.TokenContract, &t.TokenID,
			&t.TokenStandard, &from, &to, &t.Amount, &txID); err != nil {
			return nil, err
		}
		t.Timestamp = time.Unix(ts, 0).UTC()
		t.FromAddress = from.String
		t.ToAddress = to.String
		t.TransactionID = txID.Int64
		out = append(out, t)
	}
	return out, rows.Err()
}

const tokenTransferCols = "id, level, timestamp, token_contract, token_id, token_standard, from_address, to_address, amount, transaction_id"

// ListRawTokenTransfers returns every token transfer in ascending id order.
func (s *Store) ListRawTokenTransfers(ctx context.Context) ([]models.RawTokenTransfer, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+tokenTransferCols+" FROM raw_token_transfers ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return scanTokenTransfers(rows)
}

// ListMintTransfers returns FA2 transfers with a null from address
// (mints), ascending id.
func (s *Store) ListMintTransfers(ctx context.Context) ([]models.RawTokenTransfer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tokenTransferCols+" FROM raw_token_transfers WHERE from_address IS NULL AND token_standard = 'fa2' ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	return scanTokenTransfers(rows)
}

// TransfersByTransactionID returns the token transfers attached to one
// owning transaction, ascending id.
func (s *Store) TransfersByTransactionID(ctx context.Context, txID int64) ([]models.RawTokenTransfer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tokenTransferCols+" FROM raw_token_transfers WHERE transaction_id = ? ORDER BY id ASC", txID)
	if err != nil {
		return nil, err
	}
	return scanTokenTransfers(rows)
}

// LatestListingPriceBefore returns the list price of the most recent
// listing by seller for (contract, tokenID) with ts <= before. Nil when no
// prior listing (or it had no price).
func (s *Store) LatestListingPriceBefore(ctx context.Context, seller, contract, tokenID string, before time.Time) (*int64, error) {
	var price sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT list_price FROM listings
		WHERE seller = ? AND token_contract = ? AND token_id = ? AND ts <= ?
		ORDER BY ts DESC, id DESC LIMIT 1`,
		seller, contract, tokenID, before.Unix()).Scan(&price)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return scanNullI64(price), nil
}

// WalletAddressesWithoutBalance returns wallet (tz-prefixed) addresses that
// appear anywhere in raw data and have no balance snapshot yet.
func (s *Store) WalletAddressesWithoutBalance(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT a FROM (
			SELECT sender AS a FROM raw_transactions
			UNION SELECT target FROM raw_transactions
			UNION SELECT from_address FROM raw_token_transfers WHERE from_address IS NOT NULL
			UNION SELECT to_address FROM raw_token_transfers WHERE to_address IS NOT NULL
		)
		WHERE a LIKE 'tz%' AND a NOT IN (SELECT address FROM raw_balances)
		ORDER BY a`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Balance returns the snapshot balance for addr. The bool reports whether a
// snapshot row exists at all; a nil balance with ok=true means the fetch
// failed and was recorded as null.
func (s *Store) Balance(ctx context.Context, addr string) (*int64, bool, error) {
	var bal sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT balance FROM raw_balances WHERE address = ?", addr).Scan(&bal)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return scanNullI64(bal), true, nil
}

// BalanceSnapshot returns the snapshot balance and its timestamp for addr.
// ok is false when no snapshot row exists.
func (s *Store) BalanceSnapshot(ctx context.Context, addr string) (*int64, time.Time, bool, error) {
	var bal sql.NullInt64
	var ts int64
	err := s.db.QueryRowContext(ctx, "SELECT balance, snapshot_ts FROM raw_balances WHERE address = ?", addr).Scan(&bal, &ts)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	return scanNullI64(bal), time.Unix(ts, 0).UTC(), true, nil
}

// ListBuyers returns the derived buyer set.
func (s *Store) ListBuyers(ctx context.Context) ([]string, error) {
	return s.listAddresses(ctx, "buyers")
}

// ListCreators returns the derived creator set.
func (s *Store) ListCreators(ctx context.Context) ([]string, error) {
	return s.listAddresses(ctx, "creators")
}

func (s *Store) listAddresses(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT address FROM "+table+" ORDER BY address")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAllTransactions returns comprehensive-mode transactions, ascending id.
func (s *Store) ListAllTransactions(ctx context.Context) ([]models.AllTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hash, level, timestamp, sender, target, amount, entrypoint, tx_category FROM all_transactions ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AllTransaction
	for rows.Next() {
		var t models.AllTransaction
		var ts int64
		var target, ep, cat sql.NullString
		if err := rows.Scan(&t.ID, &t.Hash, &t.Level, &ts, &t.Sender, &target, &t.Amount, &ep, &cat); err != nil {
			return nil, err
		}
		t.Timestamp = time.Unix(ts, 0).UTC()
		t.Target = target.String
		t.Entrypoint = ep.String
		t.TxCategory = cat.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTxCategories writes categories for the given ids. The flow engine
// only includes rows whose category actually changed, to minimize churn.
func (s *Store) UpdateTxCategories(ctx context.Context, categories map[int64]string) error {
	if len(categories) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, "UPDATE all_transactions SET tx_category = ? WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for id, cat := range categories {
		if _, err := stmt.ExecContext(ctx, cat, id); err != nil {
			return fmt.Errorf("update tx_category %d: %w", id, err)
		}
	}
	return dbtx.Commit()
}

// CountUnclassified reports how many all_transactions rows still lack a
// category. Used by the status command and the classification invariant.
func (s *Store) CountUnclassified(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM all_transactions WHERE tx_category IS NULL").Scan(&n)
	return n, err
}

// ListXtzFlows returns classified flows, ascending id.
func (s *Store) ListXtzFlows(ctx context.Context) ([]models.XtzFlow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hash, timestamp, sender, target, amount, flow_type FROM xtz_flows ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.XtzFlow
	for rows.Next() {
		var f models.XtzFlow
		var ts int64
		if err := rows.Scan(&f.ID, &f.Hash, &ts, &f.Sender, &f.Target, &f.Amount, &f.FlowType); err != nil {
			return nil, err
		}
		f.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListRawXtzTransfers returns narrow-scope transfers, ascending id.
func (s *Store) ListRawXtzTransfers(ctx context.Context) ([]models.RawXtzTransfer, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, hash, timestamp, sender, target, amount, is_from_cex, is_to_cex FROM raw_xtz_transfers ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.RawXtzTransfer
	for rows.Next() {
		var x models.RawXtzTransfer
		var ts int64
		if err := rows.Scan(&x.ID, &x.Hash, &ts, &x.Sender, &x.Target, &x.Amount, &x.IsFromCex, &x.IsToCex); err != nil {
			return nil, err
		}
		x.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, x)
	}
	return out, rows.Err()
}

// ListPurchases returns purchases ordered by ts then id. limit <= 0 means all.
func (s *Store) ListPurchases(ctx context.Context, limit int) ([]models.Purchase, error) {
	q := "SELECT id, op_hash, ts, buyer, seller, marketplace, token_contract, token_id, qty, spend, kind FROM purchases ORDER BY ts ASC, id ASC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Purchase
	for rows.Next() {
		var p models.Purchase
		var ts int64
		var seller sql.NullString
		var spend sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OpHash, &ts, &p.Buyer, &seller, &p.Marketplace,
			&p.TokenContract, &p.TokenID, &p.Qty, &spend, &p.Kind); err != nil {
			return nil, err
		}
		p.Timestamp = time.Unix(ts, 0).UTC()
		p.Seller = seller.String
		p.Spend = scanNullI64(spend)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListResales returns resales ordered by ts then id. limit <= 0 means all.
func (s *Store) ListResales(ctx context.Context, limit int) ([]models.Resale, error) {
	q := "SELECT id, op_hash, ts, seller_collector, buyer, marketplace, token_contract, token_id, proceeds FROM resales ORDER BY ts ASC, id ASC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Resale
	for rows.Next() {
		var r models.Resale
		var ts int64
		var buyer sql.NullString
		var proceeds sql.NullInt64
		if err := rows.Scan(&r.ID, &r.OpHash, &ts, &r.SellerCollector, &buyer, &r.Marketplace,
			&r.TokenContract, &r.TokenID, &proceeds); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		r.Buyer = buyer.String
		r.Proceeds = scanNullI64(proceeds)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListListings returns listings ordered by ts then id.
func (s *Store) ListListings(ctx context.Context) ([]models.Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, op_hash, ts, seller, marketplace, token_contract, token_id, editions, list_price FROM listings ORDER BY ts ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Listing
	for rows.Next() {
		var l models.Listing
		var ts int64
		var price sql.NullInt64
		if err := rows.Scan(&l.ID, &l.OpHash, &ts, &l.Seller, &l.Marketplace,
			&l.TokenContract, &l.TokenID, &l.Editions, &price); err != nil {
			return nil, err
		}
		l.Timestamp = time.Unix(ts, 0).UTC()
		l.ListPrice = scanNullI64(price)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListOfferAccepts returns offer-accepts ordered by ts then id.
func (s *Store) ListOfferAccepts(ctx context.Context) ([]models.OfferAccept, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, op_hash, ts, seller, marketplace, token_contract, token_id, accepted_price, reference_list_price, under_list FROM offer_accepts ORDER BY ts ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OfferAccept
	for rows.Next() {
		var o models.OfferAccept
		var ts int64
		var accepted, ref, under sql.NullInt64
		if err := rows.Scan(&o.ID, &o.OpHash, &ts, &o.Seller, &o.Marketplace,
			&o.TokenContract, &o.TokenID, &accepted, &ref, &under); err != nil {
			return nil, err
		}
		o.Timestamp = time.Unix(ts, 0).UTC()
		o.AcceptedPrice = scanNullI64(accepted)
		o.ReferenceListPrice = scanNullI64(ref)
		if under.Valid {
			b := under.Int64 != 0
			o.UnderList = &b
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListMints returns mints ordered by ts then id.
func (s *Store) ListMints(ctx context.Context) ([]models.Mint, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, op_hash, ts, creator, token_contract, token_id, editions FROM mints ORDER BY ts ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Mint
	for rows.Next() {
		var m models.Mint
		var ts int64
		if err := rows.Scan(&m.ID, &m.OpHash, &ts, &m.Creator, &m.TokenContract, &m.TokenID, &m.Editions); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListDailyMetrics returns daily metrics ordered by date.
func (s *Store) ListDailyMetrics(ctx context.Context) ([]models.DailyMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, total_volume, avg_price, sale_count, unique_buyers, unique_sellers FROM daily_metrics ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DailyMetrics
	for rows.Next() {
		var d models.DailyMetrics
		if err := rows.Scan(&d.Date, &d.TotalVolume, &d.AvgPrice, &d.SaleCount, &d.UniqueBuyers, &d.UniqueSellers); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListMarketplaceStats returns marketplace stats ordered by volume desc.
func (s *Store) ListMarketplaceStats(ctx context.Context) ([]models.MarketplaceStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT marketplace, sale_count, volume, share_pct, estimated_fees FROM marketplace_stats ORDER BY volume DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MarketplaceStats
	for rows.Next() {
		var m models.MarketplaceStats
		if err := rows.Scan(&m.Marketplace, &m.SaleCount, &m.Volume, &m.SharePct, &m.EstimatedFees); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListDailyMarketplaceFees returns fee rows ordered by date, marketplace.
func (s *Store) ListDailyMarketplaceFees(ctx context.Context) ([]models.DailyMarketplaceFees, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT date, marketplace, volume, sale_count, fees FROM daily_marketplace_fees ORDER BY date ASC, marketplace ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DailyMarketplaceFees
	for rows.Next() {
		var f models.DailyMarketplaceFees
		if err := rows.Scan(&f.Date, &f.Marketplace, &f.Volume, &f.SaleCount, &f.Fees); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// WalletSummary returns one wallet's XTZ summary, or nil when absent.
func (s *Store) WalletSummary(ctx context.Context, addr string) (*models.WalletXtzSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, total_sent, total_received, sent_to_cex, received_from_cex,
			bridged_to_l2, bridged_from_l2, spent_on_nfts, received_from_sales,
			p2p_sent, p2p_received, balance_start, balance_end
		FROM wallet_xtz_summary WHERE address = ?`, addr)
	var w models.WalletXtzSummary
	var start, end sql.NullInt64
	err := row.Scan(&w.Address, &w.TotalSent, &w.TotalReceived, &w.SentToCex, &w.ReceivedFromCex,
		&w.BridgedToL2, &w.BridgedFromL2, &w.SpentOnNfts, &w.ReceivedFromSales,
		&w.P2PSent, &w.P2PReceived, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.BalanceStart = scanNullI64(start)
	w.BalanceEnd = scanNullI64(end)
	return &w, nil
}
