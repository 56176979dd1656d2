package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTxs(base int64, ts time.Time) []models.RawTransaction {
	return []models.RawTransaction{
		{ID: base, Hash: "op1", Level: 100, Timestamp: ts, Sender: "tz1aaa", Target: "KT1mkt", Amount: 1_000_000, Entrypoint: "collect", Status: "applied"},
		{ID: base + 1, Hash: "op2", Level: 101, Timestamp: ts.Add(time.Minute), Sender: "tz1bbb", Target: "KT1mkt", Amount: 2_000_000, Entrypoint: "collect", Status: "applied"},
	}
}

func TestInsertRawTransactionsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC)

	n, err := s.InsertRawTransactions(ctx, sampleTxs(1, ts))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Re-ingest of the same rows changes nothing.
	n, err = s.InsertRawTransactions(ctx, sampleTxs(1, ts))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	txs, err := s.ListRawTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(1), txs[0].ID)
	assert.Equal(t, ts, txs[0].Timestamp)
}

func TestMaxIDAndWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	max, err := s.MaxID(ctx, "all_transactions")
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)

	week1 := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)
	_, err = s.InsertAllTransactions(ctx, []models.AllTransaction{
		{ID: 10, Hash: "a", Timestamp: week1, Sender: "tz1aaa"},
		{ID: 20, Hash: "b", Timestamp: week2, Sender: "tz1bbb"},
	})
	require.NoError(t, err)

	max, err = s.MaxID(ctx, "all_transactions")
	require.NoError(t, err)
	assert.Equal(t, int64(20), max)

	// Window-scoped max only sees week 1.
	max, err = s.MaxIDInWindow(ctx, "all_transactions", week1.Add(-time.Hour), week1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(10), max)

	n, err := s.CountInWindow(ctx, "all_transactions", week1.Add(-time.Hour), week1.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.MaxID(ctx, "purchases")
	assert.Error(t, err)
}

func TestClearDerivedLeavesRaw(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC)

	_, err := s.InsertRawTransactions(ctx, sampleTxs(1, ts))
	require.NoError(t, err)
	spend := int64(1_000_000)
	require.NoError(t, s.InsertPurchases(ctx, []models.Purchase{{
		OpHash: "op1", Timestamp: ts, Buyer: "tz1aaa", Seller: "KT1cst",
		Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "5", Qty: 1,
		Spend: &spend, Kind: models.KindListingPurchase,
	}}))

	require.NoError(t, s.ClearDerived(ctx))

	counts, err := s.Counts(ctx, "raw_transactions", "purchases")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["raw_transactions"])
	assert.Equal(t, int64(0), counts["purchases"])
}

func TestPurchaseNaturalKeyDedup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC)

	p := models.Purchase{
		OpHash: "op1", Timestamp: ts, Buyer: "tz1aaa",
		Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "5", Qty: 1,
		Kind: models.KindListingPurchase,
	}
	require.NoError(t, s.InsertPurchases(ctx, []models.Purchase{p, p}))

	rows, err := s.ListPurchases(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Nil(t, rows[0].Spend)
}

func TestWeekStateMachine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	wk, err := s.Week(ctx, "2026-W08")
	require.NoError(t, err)
	assert.Nil(t, wk)

	require.NoError(t, s.EnsureWeek(ctx, "2026-W08", start, end))
	// A second ensure does not reset an existing row.
	require.NoError(t, s.EnsureWeek(ctx, "2026-W08", start, end))

	wk, err = s.Week(ctx, "2026-W08")
	require.NoError(t, err)
	require.NotNil(t, wk)
	assert.Equal(t, models.WeekPending, wk.Status)

	now := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkWeekInProgress(ctx, "2026-W08", now))
	wk, err = s.Week(ctx, "2026-W08")
	require.NoError(t, err)
	assert.Equal(t, models.WeekInProgress, wk.Status)
	require.NotNil(t, wk.StartedAt)
	assert.Equal(t, now, *wk.StartedAt)

	require.NoError(t, s.MarkWeekError(ctx, "2026-W08", "indexer returned 500"))
	wk, _ = s.Week(ctx, "2026-W08")
	assert.Equal(t, models.WeekError, wk.Status)
	assert.Equal(t, "indexer returned 500", wk.ErrorMessage)

	// Re-entry clears the error and completes.
	require.NoError(t, s.MarkWeekInProgress(ctx, "2026-W08", now.Add(time.Hour)))
	wk, _ = s.Week(ctx, "2026-W08")
	assert.Empty(t, wk.ErrorMessage)

	require.NoError(t, s.MarkWeekComplete(ctx, "2026-W08", 1500, 300, now.Add(2*time.Hour)))
	wk, _ = s.Week(ctx, "2026-W08")
	assert.Equal(t, models.WeekComplete, wk.Status)
	assert.Equal(t, int64(1500), wk.AllTxCount)
	assert.Equal(t, int64(300), wk.XtzFlowCount)
	require.NotNil(t, wk.CompletedAt)
}

func TestLatestListingPriceBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p1, p2 := int64(10_000_000), int64(8_000_000)
	require.NoError(t, s.InsertListings(ctx, []models.Listing{
		{OpHash: "l1", Timestamp: base.Add(-2 * time.Hour), Seller: "tz1sss", Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "7", Editions: 1, ListPrice: &p1},
		{OpHash: "l2", Timestamp: base.Add(-time.Hour), Seller: "tz1sss", Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "7", Editions: 1, ListPrice: &p2},
		{OpHash: "l3", Timestamp: base.Add(time.Hour), Seller: "tz1sss", Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "7", Editions: 1, ListPrice: &p1},
	}))

	price, err := s.LatestListingPriceBefore(ctx, "tz1sss", "KT1tok", "7", base)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, int64(8_000_000), *price)

	price, err = s.LatestListingPriceBefore(ctx, "tz1other", "KT1tok", "7", base)
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestRegistryUpsertPreservesIdentity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertRegistryEntries(ctx, []models.AddressRegistry{{
		Address: "tz1aaa", AddressType: models.AddrWallet, TezosDomain: "alice.tez",
		TxCount: 5, ResolvedAt: &now,
	}}))

	// A later discovery pass without identity fields must not erase them.
	require.NoError(t, s.UpsertRegistryEntries(ctx, []models.AddressRegistry{{
		Address: "tz1aaa", AddressType: models.AddrWallet, TxCount: 9,
	}}))

	rows, err := s.ListRegistry(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice.tez", rows[0].TezosDomain)
	assert.Equal(t, int64(9), rows[0].TxCount)
	require.NotNil(t, rows[0].ResolvedAt)
}

func TestWalletAddressesWithoutBalance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC)

	_, err := s.InsertRawTransactions(ctx, sampleTxs(1, ts))
	require.NoError(t, err)

	bal := int64(42)
	require.NoError(t, s.UpsertRawBalance(ctx, models.RawBalance{Address: "tz1aaa", Balance: &bal, SnapshotTS: ts}))

	addrs, err := s.WalletAddressesWithoutBalance(ctx)
	require.NoError(t, err)
	// tz1bbb has no snapshot; KT1mkt is not a wallet.
	assert.Equal(t, []string{"tz1bbb"}, addrs)
}
