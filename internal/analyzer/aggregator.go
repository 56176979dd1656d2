package analyzer

import (
	"math"
	"sort"
	"strings"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// BuildDailyMetrics groups purchases by ISO date. Average price counts only
// rows with a known positive spend; volume sums every known spend.
func BuildDailyMetrics(purchases []models.Purchase) []models.DailyMetrics {
	type acc struct {
		volume    int64
		priced    int64
		pricedSum int64
		sales     int64
		buyers    map[string]bool
		sellers   map[string]bool
	}
	byDate := map[string]*acc{}
	for _, p := range purchases {
		date := p.Timestamp.UTC().Format("2006-01-02")
		a := byDate[date]
		if a == nil {
			a = &acc{buyers: map[string]bool{}, sellers: map[string]bool{}}
			byDate[date] = a
		}
		a.sales++
		a.buyers[p.Buyer] = true
		if p.Seller != "" {
			a.sellers[p.Seller] = true
		}
		if p.Spend != nil {
			a.volume += *p.Spend
			if *p.Spend > 0 {
				a.priced++
				a.pricedSum += *p.Spend
			}
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]models.DailyMetrics, 0, len(dates))
	for _, d := range dates {
		a := byDate[d]
		avg := 0.0
		if a.priced > 0 {
			avg = float64(a.pricedSum) / float64(a.priced)
		}
		out = append(out, models.DailyMetrics{
			Date:          d,
			TotalVolume:   a.volume,
			AvgPrice:      avg,
			SaleCount:     a.sales,
			UniqueBuyers:  int64(len(a.buyers)),
			UniqueSellers: int64(len(a.sellers)),
		})
	}
	return out
}

// BuildMarketplaceStats groups purchases by marketplace. Share is volume
// over total volume; estimated fees are floored at the configured rate.
func BuildMarketplaceStats(purchases []models.Purchase, feeRate func(string) float64) []models.MarketplaceStats {
	type acc struct {
		sales  int64
		volume int64
	}
	byMarket := map[string]*acc{}
	var total int64
	for _, p := range purchases {
		a := byMarket[p.Marketplace]
		if a == nil {
			a = &acc{}
			byMarket[p.Marketplace] = a
		}
		a.sales++
		if p.Spend != nil {
			a.volume += *p.Spend
			total += *p.Spend
		}
	}

	names := make([]string, 0, len(byMarket))
	for n := range byMarket {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]models.MarketplaceStats, 0, len(names))
	for _, n := range names {
		a := byMarket[n]
		share := 0.0
		if total > 0 {
			share = float64(a.volume) / float64(total) * 100
		}
		out = append(out, models.MarketplaceStats{
			Marketplace:   n,
			SaleCount:     a.sales,
			Volume:        a.volume,
			SharePct:      share,
			EstimatedFees: int64(math.Floor(float64(a.volume) * feeRate(n))),
		})
	}
	return out
}

// BuildDailyMarketplaceFees crosses (date, marketplace) pairs present in
// purchases.
func BuildDailyMarketplaceFees(purchases []models.Purchase, feeRate func(string) float64) []models.DailyMarketplaceFees {
	type key struct{ date, market string }
	type acc struct {
		sales  int64
		volume int64
	}
	byKey := map[key]*acc{}
	for _, p := range purchases {
		k := key{date: p.Timestamp.UTC().Format("2006-01-02"), market: p.Marketplace}
		a := byKey[k]
		if a == nil {
			a = &acc{}
			byKey[k] = a
		}
		a.sales++
		if p.Spend != nil {
			a.volume += *p.Spend
		}
	}

	keys := make([]key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].market < keys[j].market
	})

	out := make([]models.DailyMarketplaceFees, 0, len(keys))
	for _, k := range keys {
		a := byKey[k]
		out = append(out, models.DailyMarketplaceFees{
			Date:        k.date,
			Marketplace: k.market,
			Volume:      a.volume,
			SaleCount:   a.sales,
			Fees:        int64(math.Floor(float64(a.volume) * feeRate(k.market))),
		})
	}
	return out
}

// Trend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// VolumeTrend splits the daily series at its midpoint and compares mean
// daily volume across the halves. Changes within five percent are flat.
func VolumeTrend(days []models.DailyMetrics) (string, float64) {
	if len(days) < 2 {
		return TrendFlat, 0
	}
	mid := len(days) / 2
	first := meanVolume(days[:mid])
	second := meanVolume(days[mid:])
	if first == 0 {
		if second == 0 {
			return TrendFlat, 0
		}
		return TrendUp, 100
	}
	change := (second - first) / first * 100
	switch {
	case change > 5:
		return TrendUp, change
	case change < -5:
		return TrendDown, change
	default:
		return TrendFlat, change
	}
}

func meanVolume(days []models.DailyMetrics) float64 {
	if len(days) == 0 {
		return 0
	}
	var sum int64
	for _, d := range days {
		sum += d.TotalVolume
	}
	return float64(sum) / float64(len(days))
}

// buildBuyerCexFlows summarizes CEX-tagged transfers around each buyer,
// joined with their purchase totals.
func buildBuyerCexFlows(buyers []string, xfers []models.RawXtzTransfer, purchases []models.Purchase) []models.BuyerCexFlow {
	byAddr := map[string]*models.BuyerCexFlow{}
	for _, b := range buyers {
		byAddr[b] = &models.BuyerCexFlow{Address: b}
	}
	for _, x := range xfers {
		if f, ok := byAddr[x.Target]; ok && x.IsFromCex {
			f.CexInflow += x.Amount
			f.InflowCount++
		}
		if f, ok := byAddr[x.Sender]; ok && x.IsToCex {
			f.CexOutflow += x.Amount
			f.OutflowCount++
		}
	}
	for _, p := range purchases {
		if f, ok := byAddr[p.Buyer]; ok {
			f.PurchaseCount++
			if p.Spend != nil {
				f.TotalSpend += *p.Spend
			}
		}
	}

	out := make([]models.BuyerCexFlow, 0, len(buyers))
	for _, b := range buyers {
		out = append(out, *byAddr[b])
	}
	return out
}

// buildCreatorFundFlows summarizes where each creator's proceeds went.
func buildCreatorFundFlows(creators []string, xfers []models.RawXtzTransfer, purchases []models.Purchase, mints []models.Mint) []models.CreatorFundFlow {
	byAddr := map[string]*models.CreatorFundFlow{}
	for _, c := range creators {
		byAddr[c] = &models.CreatorFundFlow{Address: c}
	}
	for _, p := range purchases {
		if f, ok := byAddr[p.Seller]; ok && p.Spend != nil {
			f.SaleProceeds += *p.Spend
		}
	}
	for _, x := range xfers {
		f, ok := byAddr[x.Sender]
		if !ok {
			continue
		}
		f.OutflowCount++
		if x.IsToCex {
			f.ToCex += x.Amount
		} else if strings.HasPrefix(x.Target, "tz") {
			f.ToWallets += x.Amount
		}
	}
	for _, m := range mints {
		if f, ok := byAddr[m.Creator]; ok {
			f.MintCount++
		}
	}

	out := make([]models.CreatorFundFlow, 0, len(creators))
	for _, c := range creators {
		out = append(out, *byAddr[c])
	}
	return out
}
