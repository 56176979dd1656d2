package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

func purchase(day int, buyer, seller, market string, spend *int64) models.Purchase {
	return models.Purchase{
		OpHash:        "op",
		Timestamp:     time.Date(2026, 1, day, 12, 0, 0, 0, time.UTC),
		Buyer:         buyer,
		Seller:        seller,
		Marketplace:   market,
		TokenContract: "KT1tok",
		TokenID:       "1",
		Qty:           1,
		Spend:         spend,
		Kind:          models.KindListingPurchase,
	}
}

func TestBuildDailyMetrics(t *testing.T) {
	ps := []models.Purchase{
		purchase(1, "tz1a", "tz1x", "objkt", i64p(1_000_000)),
		purchase(1, "tz1b", "tz1x", "objkt", i64p(3_000_000)),
		purchase(1, "tz1a", "tz1y", "hen", nil),     // unpriced, counts as a sale only
		purchase(2, "tz1c", "", "objkt", i64p(0)),   // zero spend is volume but not avg
		purchase(2, "tz1c", "tz1z", "hen", i64p(2_000_000)),
	}

	days := BuildDailyMetrics(ps)
	require.Len(t, days, 2)

	d1 := days[0]
	assert.Equal(t, "2026-01-01", d1.Date)
	assert.Equal(t, int64(4_000_000), d1.TotalVolume)
	assert.Equal(t, float64(2_000_000), d1.AvgPrice)
	assert.Equal(t, int64(3), d1.SaleCount)
	assert.Equal(t, int64(2), d1.UniqueBuyers)
	assert.Equal(t, int64(2), d1.UniqueSellers)

	d2 := days[1]
	assert.Equal(t, "2026-01-02", d2.Date)
	assert.Equal(t, int64(2_000_000), d2.TotalVolume)
	assert.Equal(t, float64(2_000_000), d2.AvgPrice)
	assert.Equal(t, int64(1), d2.UniqueBuyers)
}

func TestBuildMarketplaceStats(t *testing.T) {
	ps := []models.Purchase{
		purchase(1, "tz1a", "tz1x", "objkt", i64p(3_000_000)),
		purchase(1, "tz1b", "tz1x", "hen", i64p(1_000_000)),
		purchase(2, "tz1c", "tz1y", "hen", i64p(999)),
	}
	rates := func(name string) float64 {
		if name == "hen" {
			return 0.025
		}
		return 0.05
	}

	stats := BuildMarketplaceStats(ps, rates)
	require.Len(t, stats, 2)

	var totalShare float64
	var totalVolume int64
	byName := map[string]models.MarketplaceStats{}
	for _, s := range stats {
		byName[s.Marketplace] = s
		totalShare += s.SharePct
		totalVolume += s.Volume
	}
	assert.InDelta(t, 100.0, totalShare, 1e-9)
	assert.Equal(t, int64(4_000_999), totalVolume)

	hen := byName["hen"]
	assert.Equal(t, int64(2), hen.SaleCount)
	assert.Equal(t, int64(1_000_999), hen.Volume)
	// floor(1000999 * 0.025) = floor(25024.975)
	assert.Equal(t, int64(25024), hen.EstimatedFees)
}

func TestBuildDailyMarketplaceFees(t *testing.T) {
	ps := []models.Purchase{
		purchase(1, "tz1a", "tz1x", "objkt", i64p(999)),
		purchase(1, "tz1b", "tz1x", "hen", i64p(1_000_000)),
		purchase(2, "tz1c", "tz1y", "objkt", i64p(2_000_000)),
	}
	rate := func(string) float64 { return 0.025 }

	fees := BuildDailyMarketplaceFees(ps, rate)
	require.Len(t, fees, 3)
	assert.Equal(t, "2026-01-01", fees[0].Date)
	assert.Equal(t, "hen", fees[0].Marketplace)
	assert.Equal(t, "objkt", fees[1].Marketplace)
	// floor(999 * 0.025) = floor(24.975)
	assert.Equal(t, int64(24), fees[1].Fees)
	assert.Equal(t, "2026-01-02", fees[2].Date)
}

func TestVolumeTrend(t *testing.T) {
	day := func(volume int64) models.DailyMetrics {
		return models.DailyMetrics{TotalVolume: volume}
	}

	tests := []struct {
		name string
		days []models.DailyMetrics
		want string
	}{
		{"rising", []models.DailyMetrics{day(100), day(100), day(200), day(200)}, TrendUp},
		{"falling", []models.DailyMetrics{day(200), day(200), day(100), day(100)}, TrendDown},
		{"steady", []models.DailyMetrics{day(100), day(100), day(102), day(103)}, TrendFlat},
		{"just above threshold", []models.DailyMetrics{day(100), day(100), day(106), day(106)}, TrendUp},
		{"single day", []models.DailyMetrics{day(100)}, TrendFlat},
		{"empty", nil, TrendFlat},
		{"from zero", []models.DailyMetrics{day(0), day(0), day(50), day(50)}, TrendUp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := VolumeTrend(tc.days)
			assert.Equal(t, tc.want, got)
		})
	}

	_, pct := VolumeTrend([]models.DailyMetrics{day(100), day(100), day(150), day(150)})
	assert.InDelta(t, 50.0, pct, 1e-9)
}

func TestBuildBuyerCexFlows(t *testing.T) {
	xfers := []models.RawXtzTransfer{
		{ID: 1, Sender: "tz1cex", Target: "tz1buyer", Amount: 10_000_000, IsFromCex: true},
		{ID: 2, Sender: "tz1buyer", Target: "tz1cex", Amount: 4_000_000, IsToCex: true},
		{ID: 3, Sender: "tz1buyer", Target: "tz1other", Amount: 1_000_000},
	}
	ps := []models.Purchase{
		purchase(1, "tz1buyer", "tz1x", "objkt", i64p(2_000_000)),
		purchase(2, "tz1buyer", "tz1x", "objkt", nil),
	}

	flows := buildBuyerCexFlows([]string{"tz1buyer"}, xfers, ps)
	require.Len(t, flows, 1)
	f := flows[0]
	assert.Equal(t, int64(10_000_000), f.CexInflow)
	assert.Equal(t, int64(4_000_000), f.CexOutflow)
	assert.Equal(t, int64(1), f.InflowCount)
	assert.Equal(t, int64(1), f.OutflowCount)
	assert.Equal(t, int64(2_000_000), f.TotalSpend)
	assert.Equal(t, int64(2), f.PurchaseCount)
}

func TestBuildCreatorFundFlows(t *testing.T) {
	xfers := []models.RawXtzTransfer{
		{ID: 1, Sender: "tz1creator", Target: "tz1cex", Amount: 3_000_000, IsToCex: true},
		{ID: 2, Sender: "tz1creator", Target: "tz1friend", Amount: 1_000_000},
		{ID: 3, Sender: "tz1creator", Target: "KT1pool", Amount: 500_000},
	}
	ps := []models.Purchase{
		purchase(1, "tz1buyer", "tz1creator", "objkt", i64p(5_000_000)),
	}
	mints := []models.Mint{
		{OpHash: "m1", Creator: "tz1creator", TokenContract: "KT1tok", TokenID: "1", Editions: 1},
		{OpHash: "m2", Creator: "tz1creator", TokenContract: "KT1tok", TokenID: "2", Editions: 1},
	}

	flows := buildCreatorFundFlows([]string{"tz1creator"}, xfers, ps, mints)
	require.Len(t, flows, 1)
	f := flows[0]
	assert.Equal(t, int64(5_000_000), f.SaleProceeds)
	assert.Equal(t, int64(3_000_000), f.ToCex)
	assert.Equal(t, int64(1_000_000), f.ToWallets)
	assert.Equal(t, int64(3), f.OutflowCount)
	assert.Equal(t, int64(2), f.MintCount)
}
