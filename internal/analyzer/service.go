package analyzer

import (
	"context"
	"log"
	"sort"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/classifier"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
)

// Service rebuilds every derived table from the raw tables. The whole phase
// is pure over the store plus configuration: it never touches the network
// except through the classifier's cache-miss path.
type Service struct {
	cfg   *config.Config
	store *store.Store
	cls   *classifier.Classifier
}

// NewService wires the analyzer.
func NewService(cfg *config.Config, st *store.Store, cls *classifier.Classifier) *Service {
	return &Service{cfg: cfg, store: st, cls: cls}
}

// Stats summarizes one analyze run.
type Stats struct {
	Reconcile      ReconcileStats
	Activity       ActivityStats
	Trend          string
	TrendChangePct float64
}

// Analyze truncates the derived tables and rebuilds them. Running it twice
// over the same raw data yields identical tables.
func (s *Service) Analyze(ctx context.Context) (*Stats, error) {
	if err := s.store.ClearDerived(ctx); err != nil {
		return nil, err
	}

	txs, err := s.store.ListRawTransactions(ctx)
	if err != nil {
		return nil, err
	}
	xfers, err := s.store.ListRawTokenTransfers(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[analyzer] analyzing %d transactions, %d token transfers", len(txs), len(xfers))

	txByID := make(map[int64]*models.RawTransaction, len(txs))
	for i := range txs {
		txByID[txs[i].ID] = &txs[i]
	}
	xfersByTx := make(map[int64][]*models.RawTokenTransfer)
	for i := range xfers {
		if xfers[i].TransactionID != 0 {
			xfersByTx[xfers[i].TransactionID] = append(xfersByTx[xfers[i].TransactionID], &xfers[i])
		}
	}

	stats := &Stats{}

	mints, creators, err := s.deriveMints(ctx, txByID, &stats.Activity)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertMints(ctx, mints); err != nil {
		return nil, err
	}
	if err := s.store.ReplaceCreators(ctx, creators); err != nil {
		return nil, err
	}

	listings, err := s.deriveListings(ctx, &stats.Activity)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertListings(ctx, listings); err != nil {
		return nil, err
	}

	// Offer-accepts read listings back for reference prices, so they run
	// after the listings insert.
	accepts, err := s.deriveOfferAccepts(ctx, xfersByTx, &stats.Activity)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertOfferAccepts(ctx, accepts); err != nil {
		return nil, err
	}

	rec := newReconciler(s.cfg, s.cls, txs, xfers)
	purchases, rstats, err := rec.reconcile(ctx, xfers)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertPurchases(ctx, purchases); err != nil {
		return nil, err
	}

	buyers := buyerSet(purchases)
	if err := s.store.ReplaceBuyers(ctx, buyers); err != nil {
		return nil, err
	}
	if err := s.recordBuyerBalances(ctx, buyers); err != nil {
		return nil, err
	}

	resales := rec.deriveResales(purchases, txs, rstats)
	if err := s.store.InsertResales(ctx, resales); err != nil {
		return nil, err
	}
	stats.Reconcile = *rstats

	if err := s.cls.Flush(ctx); err != nil {
		return nil, err
	}

	daily := BuildDailyMetrics(purchases)
	if err := s.store.UpsertDailyMetrics(ctx, daily); err != nil {
		return nil, err
	}
	if err := s.store.UpsertMarketplaceStats(ctx, BuildMarketplaceStats(purchases, s.cfg.FeeRate)); err != nil {
		return nil, err
	}
	if err := s.store.UpsertDailyMarketplaceFees(ctx, BuildDailyMarketplaceFees(purchases, s.cfg.FeeRate)); err != nil {
		return nil, err
	}
	stats.Trend, stats.TrendChangePct = VolumeTrend(daily)

	rawXtz, err := s.store.ListRawXtzTransfers(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertBuyerCexFlows(ctx, buildBuyerCexFlows(buyers, rawXtz, purchases)); err != nil {
		return nil, err
	}
	if err := s.store.UpsertCreatorFundFlows(ctx, buildCreatorFundFlows(creators, rawXtz, purchases, mints)); err != nil {
		return nil, err
	}

	if err := s.store.Save(); err != nil {
		return nil, err
	}

	log.Printf("[analyzer] done: %d purchases, %d resales, %d mints, %d listings, %d offer accepts (skipped: %d p2p, %d fungible, %d oversize, %d unparseable)",
		stats.Reconcile.Purchases, stats.Reconcile.Resales, stats.Activity.Mints,
		stats.Activity.Listings, stats.Activity.OfferAccepts,
		stats.Reconcile.P2PSkipped, stats.Reconcile.FungibleSkipped,
		stats.Reconcile.OversizeSkipped, stats.Activity.ListingsSkipped)
	log.Printf("[analyzer] volume trend: %s (%.1f%%)", stats.Trend, stats.TrendChangePct)
	return stats, nil
}

func buyerSet(purchases []models.Purchase) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range purchases {
		if !seen[p.Buyer] {
			seen[p.Buyer] = true
			out = append(out, p.Buyer)
		}
	}
	sort.Strings(out)
	return out
}

// recordBuyerBalances copies each buyer's raw snapshot into
// buyer_balance_start.
func (s *Service) recordBuyerBalances(ctx context.Context, buyers []string) error {
	for _, b := range buyers {
		bal, ts, ok, err := s.store.BalanceSnapshot(ctx, b)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := s.store.UpsertBuyerBalanceStart(ctx, b, bal, ts.Unix()); err != nil {
			return err
		}
	}
	return nil
}
