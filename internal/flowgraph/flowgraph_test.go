package flowgraph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewEngine(cfg, st), st
}

func allTx(id int64, sender, target, entrypoint string, amount int64) models.AllTransaction {
	return models.AllTransaction{
		ID: id, Hash: "op", Level: 100 + id,
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Sender:    sender, Target: target, Amount: amount, Entrypoint: entrypoint,
	}
}

func TestClassifyTransactions(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()

	objkt := "KT1WvzYHCNBvDSdwafTHv7nJ1dWmZ8GCYuuC"
	bridge := "KT1Wj8SUGmnEPFqyahHAcjcNQwe6YGhEXJb5"
	cex := "tz1Uhfi3Bay9NcQp9vKFtHrKhYmjgMiM2k2p"

	txs := []models.AllTransaction{
		allTx(1, "tz1a", objkt, "fulfill_ask", 1_000_000),
		allTx(2, "tz1a", objkt, "retract_ask", 0),
		allTx(3, "tz1a", objkt, "set_admin", 0),
		allTx(4, "tz1a", "KT1col", "mint", 0),
		allTx(5, "tz1a", bridge, "deposit", 2_000_000),
		allTx(6, "tz1a", cex, "", 3_000_000),
		allTx(7, cex, "tz1b", "", 4_000_000),
		allTx(8, "tz1a", "KT1amm", "stake", 0),
		allTx(9, "tz1a", "KT1bkr", "delegate", 0),
		allTx(10, "tz1a", "tz1b", "", 5_000_000),
		allTx(11, "tz1a", "", "", 0),
		allTx(12, "tz1a", "KT1misc", "update_config", 0),
	}
	_, err := st.InsertAllTransactions(ctx, txs)
	require.NoError(t, err)
	require.NoError(t, st.UpsertRegistryEntries(ctx, []models.AddressRegistry{
		{Address: "KT1col", AddressType: models.AddrContract, Category: "nft_contract"},
	}))

	n, err := e.ClassifyTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(txs), n)

	unclassified, err := st.CountUnclassified(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unclassified, "every row lands in a category")

	rows, err := st.ListAllTransactions(ctx)
	require.NoError(t, err)
	got := map[int64]string{}
	for _, r := range rows {
		got[r.ID] = r.TxCategory
	}
	assert.Equal(t, CatNftSale, got[1])
	assert.Equal(t, CatNftActivity, got[2])
	assert.Equal(t, CatNftMarketplace, got[3])
	assert.Equal(t, CatNftActivity, got[4])
	assert.Equal(t, CatBridge, got[5])
	assert.Equal(t, CatCexDeposit, got[6])
	assert.Equal(t, CatCexWithdrawal, got[7])
	assert.Equal(t, CatDefi, got[8])
	assert.Equal(t, CatDelegation, got[9])
	assert.Equal(t, CatXtzTransfer, got[10])
	assert.Equal(t, CatOrigination, got[11])
	assert.Equal(t, CatOther, got[12])

	// Second pass is a no-op: nothing changed, nothing written.
	n, err = e.ClassifyTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBuildWalletSummaries(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	flows := []models.XtzFlow{
		{ID: 1, Hash: "f1", Timestamp: ts, Sender: "tz1wallet", Target: "tz1cex", Amount: 2_000_000, FlowType: models.FlowCexDeposit},
		{ID: 2, Hash: "f2", Timestamp: ts.Add(time.Minute), Sender: "tz1cex", Target: "tz1wallet", Amount: 5_000_000, FlowType: models.FlowCexWithdrawal},
		{ID: 3, Hash: "f3", Timestamp: ts.Add(2 * time.Minute), Sender: "tz1wallet", Target: "KT1mkt", Amount: 1_000_000, FlowType: models.FlowContract},
		{ID: 4, Hash: "f4", Timestamp: ts.Add(3 * time.Minute), Sender: "KT1mkt", Target: "tz1seller", Amount: 900_000, FlowType: models.FlowContract},
		{ID: 5, Hash: "f5", Timestamp: ts.Add(4 * time.Minute), Sender: "tz1wallet", Target: "tz1friend", Amount: 500_000, FlowType: models.FlowP2P},
	}
	_, err := st.InsertXtzFlows(ctx, flows)
	require.NoError(t, err)

	// The purchase joins flow 3 by (buyer, second) and flow 4 by
	// (seller, second).
	spend := int64(1_000_000)
	require.NoError(t, st.InsertPurchases(ctx, []models.Purchase{{
		OpHash: "f3", Timestamp: ts.Add(2 * time.Minute), Buyer: "tz1wallet", Seller: "tz1seller",
		Marketplace: "objkt", TokenContract: "KT1tok", TokenID: "1", Qty: 1,
		Spend: &spend, Kind: models.KindListingPurchase,
	}}))
	bal := int64(10_000_000)
	require.NoError(t, st.UpsertRawBalance(ctx, models.RawBalance{Address: "tz1wallet", Balance: &bal, SnapshotTS: ts}))

	n, err := e.BuildWalletSummaries(ctx)
	require.NoError(t, err)
	// tz1wallet, tz1cex, tz1seller, tz1friend; KT1mkt is not a wallet.
	assert.Equal(t, 4, n)

	w, err := st.WalletSummary(ctx, "tz1wallet")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(3_500_000), w.TotalSent)
	assert.Equal(t, int64(5_000_000), w.TotalReceived)
	assert.Equal(t, int64(2_000_000), w.SentToCex)
	assert.Equal(t, int64(5_000_000), w.ReceivedFromCex)
	assert.Equal(t, int64(1_000_000), w.SpentOnNfts)
	assert.Equal(t, int64(500_000), w.P2PSent)
	require.NotNil(t, w.BalanceStart)
	require.NotNil(t, w.BalanceEnd)
	assert.Equal(t, int64(10_000_000+5_000_000-3_500_000), *w.BalanceEnd)

	sel, err := st.WalletSummary(ctx, "tz1seller")
	require.NoError(t, err)
	require.NotNil(t, sel)
	// Flow 4 lands a minute after the purchase second, so it does not
	// count as sale proceeds.
	assert.Equal(t, int64(900_000), sel.TotalReceived)
	assert.Equal(t, int64(0), sel.ReceivedFromSales)
	assert.Nil(t, sel.BalanceStart)
	assert.Nil(t, sel.BalanceEnd)

	missing, err := st.WalletSummary(ctx, "KT1mkt")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBuildGraphNodeCap(t *testing.T) {
	e, st := newTestEngine(t)
	ctx := context.Background()
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// A hub with three spokes plus one isolated pair. Capping at 3 keeps
	// the hub and its two busiest spokes; the pair drops entirely.
	flows := []models.XtzFlow{
		{ID: 1, Hash: "f1", Timestamp: ts, Sender: "tz1hub", Target: "tz1aa", Amount: 100, FlowType: models.FlowP2P},
		{ID: 2, Hash: "f2", Timestamp: ts, Sender: "tz1hub", Target: "tz1aa", Amount: 300, FlowType: models.FlowP2P},
		{ID: 3, Hash: "f3", Timestamp: ts, Sender: "tz1hub", Target: "tz1bb", Amount: 200, FlowType: models.FlowP2P},
		{ID: 4, Hash: "f4", Timestamp: ts, Sender: "tz1hub", Target: "tz1bb", Amount: 100, FlowType: models.FlowP2P},
		{ID: 5, Hash: "f5", Timestamp: ts, Sender: "tz1hub", Target: "tz1cc", Amount: 50, FlowType: models.FlowP2P},
		{ID: 6, Hash: "f6", Timestamp: ts, Sender: "tz1dd", Target: "tz1ee", Amount: 999, FlowType: models.FlowP2P},
	}
	_, err := st.InsertXtzFlows(ctx, flows)
	require.NoError(t, err)
	require.NoError(t, st.UpsertRegistryEntries(ctx, []models.AddressRegistry{
		{Address: "tz1hub", AddressType: models.AddrWallet, Alias: "Hub", Category: "wallet"},
	}))

	g, err := e.BuildGraph(ctx, 3)
	require.NoError(t, err)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "tz1aa", g.Edges[0].To)
	assert.Equal(t, int64(400), g.Edges[0].TotalValue)
	assert.Equal(t, int64(2), g.Edges[0].Count)
	assert.Equal(t, float64(200), g.Edges[0].AvgValue)

	// Endpoints of kept edges and the node set coincide.
	present := map[string]bool{}
	for _, ed := range g.Edges {
		present[ed.From] = true
		present[ed.To] = true
	}
	require.Len(t, g.Nodes, len(present))
	for _, n := range g.Nodes {
		assert.True(t, present[n.Address], "node %s has no edge", n.Address)
		assert.Greater(t, n.Size, 5.0)
	}

	byAddr := map[string]models.GraphNode{}
	for _, n := range g.Nodes {
		byAddr[n.Address] = n
	}
	hub := byAddr["tz1hub"]
	assert.Equal(t, "Hub", hub.Label)
	assert.Equal(t, "wallet", hub.Category)
	assert.Equal(t, int64(5), hub.Activity)

	// The heaviest edge sits at the red end of the gradient.
	assert.Equal(t, "#ff0000", g.Edges[0].Color)
	assert.Equal(t, "#0000ff", g.Edges[1].Color)
}

func TestBuildGraphEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	g, err := e.BuildGraph(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}
