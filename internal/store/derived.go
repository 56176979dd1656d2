package store

import (
	"context"
	"fmt"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// ReplaceBuyers rewrites the buyer set.
func (s *Store) ReplaceBuyers(ctx context.Context, addrs []string) error {
	return s.replaceAddresses(ctx, "buyers", addrs)
}

// ReplaceCreators rewrites the creator set.
func (s *Store) ReplaceCreators(ctx context.Context, addrs []string) error {
	return s.replaceAddresses(ctx, "creators", addrs)
}

func (s *Store) replaceAddresses(ctx context.Context, table string, addrs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	if _, err := dbtx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return err
	}
	stmt, err := dbtx.PrepareContext(ctx, "INSERT INTO "+table+" (address) VALUES (?) ON CONFLICT DO NOTHING")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range addrs {
		if _, err := stmt.ExecContext(ctx, a); err != nil {
			return fmt.Errorf("insert %s %s: %w", table, a, err)
		}
	}
	return dbtx.Commit()
}

// InsertPurchases inserts verified sales; duplicates on the natural key are
// silently ignored.
func (s *Store) InsertPurchases(ctx context.Context, ps []models.Purchase) error {
	if len(ps) == 0 {
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
		INSERT INTO purchases (op_hash, ts, buyer, seller, marketplace, token_contract, token_id, qty, spend, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (op_hash, buyer, token_contract, token_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range ps {
		if _, err := stmt.ExecContext(ctx, p.OpHash, p.Timestamp.Unix(), p.Buyer, nullStr(p.Seller),
			p.Marketplace, p.TokenContract, p.TokenID, p.Qty, nullI64(p.Spend), p.Kind); err != nil {
			return fmt.Errorf("insert purchase %s/%s: %w", p.OpHash, p.TokenID, err)
		}
	}
	return dbtx.Commit()
}

// InsertListings inserts listing rows, ignoring natural-key duplicates.
func (s *Store) InsertListings(ctx context.Context, ls []models.Listing) error {
	if len(ls) == 0 {
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
		INSERT INTO listings (op_hash, ts, seller, marketplace, token_contract, token_id, editions, list_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (op_hash, token_contract, token_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, l := range ls {
		if _, err := stmt.ExecContext(ctx, l.OpHash, l.Timestamp.Unix(), l.Seller, l.Marketplace,
			l.TokenContract, l.TokenID, l.Editions, nullI64(l.ListPrice)); err != nil {
			return fmt.Errorf("insert listing %s/%s: %w", l.OpHash, l.TokenID, err)
		}
	}
	return dbtx.Commit()
}

// InsertOfferAccepts inserts offer-accept rows, ignoring duplicates.
func (s *Store) InsertOfferAccepts(ctx context.Context, os []models.OfferAccept) error {
	if len(os) == 0 {
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
		INSERT INTO offer_accepts (op_hash, ts, seller, marketplace, token_contract, token_id, accepted_price, reference_list_price, under_list)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (op_hash, token_contract, token_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, o := range os {
		var under any
		if o.UnderList != nil {
			under = *o.UnderList
		}
		if _, err := stmt.ExecContext(ctx, o.OpHash, o.Timestamp.Unix(), o.Seller, o.Marketplace,
			o.TokenContract, o.TokenID, nullI64(o.AcceptedPrice), nullI64(o.ReferenceListPrice), under); err != nil {
			return fmt.Errorf("insert offer accept %s/%s: %w", o.OpHash, o.TokenID, err)
		}
	}
	return dbtx.Commit()
}

// InsertResales inserts resale rows, ignoring duplicates.
func (s *Store) InsertResales(ctx context.Context, rs []models.Resale) error {
	if len(rs) == 0 {
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
		INSERT INTO resales (op_hash, ts, seller_collector, buyer, marketplace, token_contract, token_id, proceeds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (op_hash, seller_collector, token_contract, token_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rs {
		if _, err := stmt.ExecContext(ctx, r.OpHash, r.Timestamp.Unix(), r.SellerCollector, nullStr(r.Buyer),
			r.Marketplace, r.TokenContract, r.TokenID, nullI64(r.Proceeds)); err != nil {
			return fmt.Errorf("insert resale %s/%s: %w", r.OpHash, r.TokenID, err)
		}
	}
	return dbtx.Commit()
}

// InsertMints inserts mint rows, ignoring duplicates.
func (s *Store) InsertMints(ctx context.Context, ms []models.Mint) error {
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
		INSERT INTO mints (op_hash, ts, creator, token_contract, token_id, editions)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (op_hash, token_contract, token_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, m := range ms {
		if _, err := stmt.ExecContext(ctx, m.OpHash, m.Timestamp.Unix(), m.Creator,
			m.TokenContract, m.TokenID, m.Editions); err != nil {
			return fmt.Errorf("insert mint %s/%s: %w", m.OpHash, m.TokenID, err)
		}
	}
	return dbtx.Commit()
}

// UpsertDailyMetrics rewrites daily aggregate rows.
func (s *Store) UpsertDailyMetrics(ctx context.Context, ds []models.DailyMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO daily_metrics (date, total_volume, avg_price, sale_count, unique_buyers, unique_sellers)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			total_volume = excluded.total_volume,
			avg_price = excluded.avg_price,
			sale_count = excluded.sale_count,
			unique_buyers = excluded.unique_buyers,
			unique_sellers = excluded.unique_sellers`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, d := range ds {
		if _, err := stmt.ExecContext(ctx, d.Date, d.TotalVolume, d.AvgPrice, d.SaleCount, d.UniqueBuyers, d.UniqueSellers); err != nil {
			return fmt.Errorf("upsert daily metrics %s: %w", d.Date, err)
		}
	}
	return dbtx.Commit()
}

// UpsertMarketplaceStats rewrites marketplace aggregate rows.
func (s *Store) UpsertMarketplaceStats(ctx context.Context, ms []models.MarketplaceStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO marketplace_stats (marketplace, sale_count, volume, share_pct, estimated_fees)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (marketplace) DO UPDATE SET
			sale_count = excluded.sale_count,
			volume = excluded.volume,
			share_pct = excluded.share_pct,
			estimated_fees = excluded.estimated_fees`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, m := range ms {
		if _, err := stmt.ExecContext(ctx, m.Marketplace, m.SaleCount, m.Volume, m.SharePct, m.EstimatedFees); err != nil {
			return fmt.Errorf("upsert marketplace stats %s: %w", m.Marketplace, err)
		}
	}
	return dbtx.Commit()
}

// UpsertDailyMarketplaceFees rewrites the (date, marketplace) fee rows.
func (s *Store) UpsertDailyMarketplaceFees(ctx context.Context, fs []models.DailyMarketplaceFees) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO daily_marketplace_fees (date, marketplace, volume, sale_count, fees)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date, marketplace) DO UPDATE SET
			volume = excluded.volume,
			sale_count = excluded.sale_count,
			fees = excluded.fees`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, f := range fs {
		if _, err := stmt.ExecContext(ctx, f.Date, f.Marketplace, f.Volume, f.SaleCount, f.Fees); err != nil {
			return fmt.Errorf("upsert daily fees %s/%s: %w", f.Date, f.Marketplace, err)
		}
	}
	return dbtx.Commit()
}

// UpsertBuyerBalanceStart records each buyer's window-start balance.
func (s *Store) UpsertBuyerBalanceStart(ctx context.Context, addr string, balance *int64, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO buyer_balance_start (address, balance, ts) VALUES (?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET balance = excluded.balance, ts = excluded.ts`,
		addr, nullI64(balance), ts)
	return err
}

// UpsertBuyerCexFlows rewrites buyer CEX-flow summaries.
func (s *Store) UpsertBuyerCexFlows(ctx context.Context, bs []models.BuyerCexFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO buyer_cex_flow (address, cex_inflow, cex_outflow, inflow_count, outflow_count, total_spend, purchase_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			cex_inflow = excluded.cex_inflow,
			cex_outflow = excluded.cex_outflow,
			inflow_count = excluded.inflow_count,
			outflow_count = excluded.outflow_count,
			total_spend = excluded.total_spend,
			purchase_count = excluded.purchase_count`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range bs {
		if _, err := stmt.ExecContext(ctx, b.Address, b.CexInflow, b.CexOutflow, b.InflowCount,
			b.OutflowCount, b.TotalSpend, b.PurchaseCount); err != nil {
			return fmt.Errorf("upsert buyer cex flow %s: %w", b.Address, err)
		}
	}
	return dbtx.Commit()
}

// UpsertCreatorFundFlows rewrites creator fund-flow summaries.
func (s *Store) UpsertCreatorFundFlows(ctx context.Context, cs []models.CreatorFundFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO creator_fund_flow (address, sale_proceeds, to_cex, to_wallets, outflow_count, mint_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			sale_proceeds = excluded.sale_proceeds,
			to_cex = excluded.to_cex,
			to_wallets = excluded.to_wallets,
			outflow_count = excluded.outflow_count,
			mint_count = excluded.mint_count`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range cs {
		if _, err := stmt.ExecContext(ctx, c.Address, c.SaleProceeds, c.ToCex, c.ToWallets,
			c.OutflowCount, c.MintCount); err != nil {
			return fmt.Errorf("upsert creator fund flow %s: %w", c.Address, err)
		}
	}
	return dbtx.Commit()
}

// UpsertWalletSummaries rewrites per-wallet XTZ summaries.
func (s *Store) UpsertWalletSummaries(ctx context.Context, ws []models.WalletXtzSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()
	stmt, err := dbtx.PrepareContext(ctx, `
		INSERT INTO wallet_xtz_summary (address, total_sent, total_received, sent_to_cex, received_from_cex,
			bridged_to_l2, bridged_from_l2, spent_on_nfts, received_from_sales, p2p_sent, p2p_received,
			balance_start, balance_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			total_sent = excluded.total_sent,
			total_received = excluded.total_received,
			sent_to_cex = excluded.sent_to_cex,
			received_from_cex = excluded.received_from_cex,
			bridged_to_l2 = excluded.bridged_to_l2,
			bridged_from_l2 = excluded.bridged_from_l2,
			spent_on_nfts = excluded.spent_on_nfts,
			received_from_sales = excluded.received_from_sales,
			p2p_sent = excluded.p2p_sent,
			p2p_received = excluded.p2p_received,
			balance_start = excluded.balance_start,
			balance_end = excluded.balance_end`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, w := range ws {
		if _, err := stmt.ExecContext(ctx, w.Address, w.TotalSent, w.TotalReceived, w.SentToCex,
			w.ReceivedFromCex, w.BridgedToL2, w.BridgedFromL2, w.SpentOnNfts, w.ReceivedFromSales,
			w.P2PSent, w.P2PReceived, nullI64(w.BalanceStart), nullI64(w.BalanceEnd)); err != nil {
			return fmt.Errorf("upsert wallet summary %s: %w", w.Address, err)
		}
	}
	return dbtx.Commit()
}
