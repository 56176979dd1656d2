package analyzer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/classifier"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

const (
	objktAddr  = "KT1WvzYHCNBvDSdwafTHv7nJ1dWmZ8GCYuuC"
	henAddr    = "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn"
	teiaAddr   = "KT1PHubm9HtyQEJ4BBpMTVomq6mhbfNZ9z5w"
	fxhashAddr = "KT1GbyoDi7H1sfXmimXpptZJuCdHMh66WS9u"
	kusdAddr   = "KT1K9gCRgaLRFKTErYt1wVxA3Frb9FjasjTV"
)

// nilFetcher never resolves anything remotely. The scenarios below only
// touch contracts covered by the hardcoded known sets, so the classifier
// must never reach it.
type nilFetcher struct{}

func (nilFetcher) Contract(context.Context, string) (*tzkt.Contract, error) { return nil, nil }
func (nilFetcher) Token(context.Context, string, string) (*tzkt.Token, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	cls := classifier.New(nilFetcher{}, st)
	return NewService(cfg, st, cls), st
}

func tx(id int64, ts time.Time, sender, target, entrypoint string, amount int64, hash string) models.RawTransaction {
	return models.RawTransaction{
		ID: id, Hash: hash, Level: 100 + id, Timestamp: ts,
		Sender: sender, Target: target, Amount: amount,
		Entrypoint: entrypoint, Status: "applied",
	}
}

func xfer(id int64, ts time.Time, contract, tokenID, from, to, amount string, txID int64) models.RawTokenTransfer {
	return models.RawTokenTransfer{
		ID: id, Level: 100 + id, Timestamp: ts,
		TokenContract: contract, TokenID: tokenID, TokenStandard: "fa2",
		FromAddress: from, ToAddress: to, Amount: amount, TransactionID: txID,
	}
}

func TestAnalyzeReconciliation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	askParams := json.RawMessage(`{"token_contract":"KT1art","token_id":"7","price":"10000000"}`)
	listTx := tx(3, base.Add(-time.Hour), "tz1sellerC", objktAddr, "ask", 0, "op_list")
	listTx.Parameters = askParams

	txs := []models.RawTransaction{
		// Custody sale: buyer pays objkt in the same second the escrow
		// releases the token.
		tx(1, base, "tz1buyerA", objktAddr, "fulfill_ask", 5_000_000, "op_custody"),
		// Timestamp-join sale on hen.
		tx(2, base.Add(10*time.Second), "tz1buyerB", henAddr, "collect", 2_000_000, "op_hen"),
		listTx,
		// Seller executes a standing offer below the list price.
		tx(4, base.Add(30*time.Second), "tz1sellerC", objktAddr, "fulfill_offer", 7_000_000, "op_accept"),
		// Free claims: fxhash open edition vs an ordinary zero-price sale.
		tx(5, base.Add(60*time.Second), "tz1buyerD", fxhashAddr, "collect", 0, "op_fx"),
		tx(6, base.Add(70*time.Second), "tz1buyerE", henAddr, "collect", 0, "op_free"),
		// Secondary sale by a prior buyer.
		tx(7, base.Add(2*time.Hour), "tz1buyerF", teiaAddr, "collect", 3_000_000, "op_resale"),
		// Same key as tx 1 but a higher id; must not win the custody join.
		tx(8, base, "tz1buyerA", "tz1zzz", "", 9_000_000, "op_later"),
	}
	_, err := st.InsertRawTransactions(ctx, txs)
	require.NoError(t, err)

	xfers := []models.RawTokenTransfer{
		xfer(99, base.Add(-2*time.Hour), "KT1art", "5", "", "tz1creator", "1", 0), // mint
		xfer(100, base, "KT1art", "5", objktAddr, "tz1buyerA", "1", 0),
		xfer(101, base.Add(10*time.Second), "KT1art", "6", "tz1sellerB", "tz1buyerB", "1", 0),
		xfer(102, base.Add(20*time.Second), "KT1art", "8", "tz1xxx", "tz1yyy", "1", 0), // P2P
		xfer(103, base.Add(30*time.Second), "KT1art", "7", "tz1sellerC", "tz1buyerC", "1", 4),
		xfer(104, base.Add(40*time.Second), kusdAddr, "0", "tz1ppp", "tz1qqq", "3", 0),   // fungible
		xfer(105, base.Add(50*time.Second), "KT1art", "9", "tz1rrr", "tz1sss", "10000", 0), // oversize
		xfer(106, base.Add(60*time.Second), "KT1gen", "9", fxhashAddr, "tz1buyerD", "1", 0),
		xfer(107, base.Add(70*time.Second), "KT1art", "10", henAddr, "tz1buyerE", "1", 0),
		xfer(108, base.Add(2*time.Hour), "KT1art", "5", "tz1buyerA", "tz1buyerF", "1", 0),
	}
	_, err = st.InsertRawTokenTransfers(ctx, xfers)
	require.NoError(t, err)

	stats, err := svc.Analyze(ctx)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Reconcile.Purchases)
	assert.Equal(t, 1, stats.Reconcile.Resales)
	assert.Equal(t, 1, stats.Reconcile.P2PSkipped)
	assert.Equal(t, 1, stats.Reconcile.FungibleSkipped)
	assert.Equal(t, 1, stats.Reconcile.OversizeSkipped)
	assert.Equal(t, 1, stats.Activity.Mints)
	assert.Equal(t, 1, stats.Activity.Listings)
	assert.Equal(t, 1, stats.Activity.OfferAccepts)

	purchases, err := st.ListPurchases(ctx, 0)
	require.NoError(t, err)
	byHash := map[string]models.Purchase{}
	for _, p := range purchases {
		byHash[p.OpHash] = p
	}

	custody := byHash["op_custody"]
	assert.Equal(t, "objkt", custody.Marketplace)
	assert.Equal(t, "tz1buyerA", custody.Buyer)
	assert.Equal(t, objktAddr, custody.Seller)
	require.NotNil(t, custody.Spend)
	assert.Equal(t, int64(5_000_000), *custody.Spend, "lowest-id tx at the key wins")
	assert.Equal(t, models.KindListingPurchase, custody.Kind)

	hen := byHash["op_hen"]
	assert.Equal(t, "hen", hen.Marketplace)
	assert.Equal(t, "tz1sellerB", hen.Seller)
	require.NotNil(t, hen.Spend)
	assert.Equal(t, int64(2_000_000), *hen.Spend)

	accept := byHash["op_accept"]
	assert.Equal(t, "tz1buyerC", accept.Buyer)
	assert.Equal(t, "tz1sellerC", accept.Seller)
	require.NotNil(t, accept.Spend)
	assert.Equal(t, int64(7_000_000), *accept.Spend)

	// Zero spend is an open edition only inside the open-edition set.
	assert.Equal(t, models.KindOpenEdition, byHash["op_fx"].Kind)
	assert.Equal(t, models.KindListingPurchase, byHash["op_free"].Kind)

	resales, err := st.ListResales(ctx, 0)
	require.NoError(t, err)
	require.Len(t, resales, 1)
	assert.Equal(t, "tz1buyerA", resales[0].SellerCollector)
	assert.Equal(t, "tz1buyerF", resales[0].Buyer)
	require.NotNil(t, resales[0].Proceeds)
	assert.Equal(t, int64(3_000_000), *resales[0].Proceeds)

	accepts, err := st.ListOfferAccepts(ctx)
	require.NoError(t, err)
	require.Len(t, accepts, 1)
	oa := accepts[0]
	assert.Equal(t, "tz1sellerC", oa.Seller)
	assert.Equal(t, "KT1art", oa.TokenContract)
	assert.Equal(t, "7", oa.TokenID)
	require.NotNil(t, oa.AcceptedPrice)
	assert.Equal(t, int64(7_000_000), *oa.AcceptedPrice)
	require.NotNil(t, oa.ReferenceListPrice)
	assert.Equal(t, int64(10_000_000), *oa.ReferenceListPrice)
	require.NotNil(t, oa.UnderList)
	assert.True(t, *oa.UnderList)

	mints, err := st.ListMints(ctx)
	require.NoError(t, err)
	require.Len(t, mints, 1)
	assert.Equal(t, "tz1creator", mints[0].Creator)
	assert.Equal(t, "mint_99", mints[0].OpHash)

	daily, err := st.ListDailyMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2026-05-01", daily[0].Date)
	assert.Equal(t, int64(17_000_000), daily[0].TotalVolume)
	assert.Equal(t, int64(6), daily[0].SaleCount)
	// Average over priced, nonzero sales only.
	assert.Equal(t, float64(4_250_000), daily[0].AvgPrice)
}

func TestAnalyzeIdempotent(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := st.InsertRawTransactions(ctx, []models.RawTransaction{
		tx(1, base, "tz1buyerA", henAddr, "collect", 1_000_000, "op1"),
	})
	require.NoError(t, err)
	_, err = st.InsertRawTokenTransfers(ctx, []models.RawTokenTransfer{
		xfer(100, base, "KT1art", "5", "tz1sellerA", "tz1buyerA", "1", 0),
	})
	require.NoError(t, err)

	first, err := svc.Analyze(ctx)
	require.NoError(t, err)
	second, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Reconcile, second.Reconcile)

	purchases, err := st.ListPurchases(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
}
