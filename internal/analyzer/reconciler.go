package analyzer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/classifier"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// maxEditionSize is the ceiling above which a token transfer is treated as
// fungible volume rather than an NFT edition.
const maxEditionSize = 5555

// ReconcileStats counts what the sale reconciler did and, more importantly,
// what it skipped. Skips are a feature: P2P transfers and fungible volume
// are meant to fall out of sale metrics.
type ReconcileStats struct {
	Purchases       int
	Resales         int
	P2PSkipped      int
	FungibleSkipped int
	OversizeSkipped int
}

// txKey joins transactions and transfers at second resolution. Multiple
// operations can share a key; first match in ascending id order wins.
type txKey struct {
	sec    int64
	sender string
}

type reconciler struct {
	cfg *config.Config
	cls *classifier.Classifier

	txsByKey  map[txKey][]*models.RawTransaction
	txByID    map[int64]*models.RawTransaction
	xfersByTx map[int64][]*models.RawTokenTransfer
	accepts   map[string]bool
}

func newReconciler(cfg *config.Config, cls *classifier.Classifier, txs []models.RawTransaction, xfers []models.RawTokenTransfer) *reconciler {
	r := &reconciler{
		cfg:       cfg,
		cls:       cls,
		txsByKey:  make(map[txKey][]*models.RawTransaction),
		txByID:    make(map[int64]*models.RawTransaction, len(txs)),
		xfersByTx: make(map[int64][]*models.RawTokenTransfer),
		accepts:   make(map[string]bool),
	}
	for i := range txs {
		t := &txs[i]
		key := txKey{sec: t.Timestamp.Unix(), sender: t.Sender}
		r.txsByKey[key] = append(r.txsByKey[key], t)
		r.txByID[t.ID] = t
	}
	for i := range xfers {
		x := &xfers[i]
		if x.TransactionID != 0 {
			r.xfersByTx[x.TransactionID] = append(r.xfersByTx[x.TransactionID], x)
		}
	}
	for _, ep := range cfg.Entrypoints(config.AcceptEntrypoints) {
		r.accepts[ep] = true
	}
	return r
}

// reconcile walks every NFT transfer in ascending id order and resolves it
// through the three verification routes. Transfers matching none are P2P
// and dropped.
func (r *reconciler) reconcile(ctx context.Context, xfers []models.RawTokenTransfer) ([]models.Purchase, *ReconcileStats, error) {
	stats := &ReconcileStats{}
	var purchases []models.Purchase
	seen := map[string]bool{}

	for i := range xfers {
		x := &xfers[i]
		if x.FromAddress == "" || !strings.HasPrefix(x.ToAddress, "tz") {
			continue
		}

		qty, ok := r.nftQty(ctx, x, stats)
		if !ok {
			continue
		}

		p, matched := r.resolve(x, qty)
		if !matched {
			stats.P2PSkipped++
			continue
		}

		key := p.OpHash + "|" + p.Buyer + "|" + p.TokenContract + "|" + p.TokenID
		if seen[key] {
			continue
		}
		seen[key] = true
		purchases = append(purchases, p)
		stats.Purchases++
	}
	return purchases, stats, nil
}

// nftQty applies the NFT-transfer filter and returns the edition count.
func (r *reconciler) nftQty(ctx context.Context, x *models.RawTokenTransfer, stats *ReconcileStats) (int64, bool) {
	qty, err := strconv.ParseInt(x.Amount, 10, 64)
	if err != nil || qty > maxEditionSize {
		stats.OversizeSkipped++
		return 0, false
	}
	if x.TokenID == "0" {
		fungible, err := r.cls.IsFungible(ctx, x.TokenContract)
		if err == nil && fungible {
			stats.FungibleSkipped++
			return 0, false
		}
	}
	return qty, true
}

// resolve runs the three verification routes in precedence order.
func (r *reconciler) resolve(x *models.RawTokenTransfer, qty int64) (models.Purchase, bool) {
	sec := x.Timestamp.Unix()
	buyer := x.ToAddress
	seller := x.FromAddress

	// Custody route: the token left a marketplace escrow contract.
	if marketName, ok := config.CustodyMarketplace(seller); ok {
		p := models.Purchase{
			Timestamp:     x.Timestamp,
			Buyer:         buyer,
			Seller:        seller,
			Marketplace:   marketName,
			TokenContract: x.TokenContract,
			TokenID:       x.TokenID,
			Qty:           qty,
		}
		if tx := r.firstTx(sec, buyer, nil); tx != nil {
			spend := tx.Amount
			p.Spend = &spend
			p.OpHash = tx.Hash
		}
		if p.OpHash == "" {
			p.OpHash = r.opHashFor(x)
		}
		p.Kind = r.kind(p.Spend, marketName, x.TokenContract)
		return p, true
	}

	// Timestamp-plus-buyer route: the buyer called a marketplace in the
	// same second.
	if tx := r.firstTx(sec, buyer, r.isMarketplaceTarget); tx != nil {
		m, _ := r.cfg.MarketplaceByAddress(tx.Target)
		spend := tx.Amount
		p := models.Purchase{
			OpHash:        tx.Hash,
			Timestamp:     x.Timestamp,
			Buyer:         buyer,
			Seller:        seller,
			Marketplace:   m.Name,
			TokenContract: x.TokenContract,
			TokenID:       x.TokenID,
			Qty:           qty,
			Spend:         &spend,
		}
		p.Kind = r.kind(p.Spend, m.Name, x.TokenContract)
		return p, true
	}

	// Timestamp-plus-seller route: the seller accepted a standing offer.
	if tx := r.firstTx(sec, seller, r.isAcceptCall); tx != nil {
		m, _ := r.cfg.MarketplaceByAddress(tx.Target)
		spend := tx.Amount
		p := models.Purchase{
			OpHash:        tx.Hash,
			Timestamp:     x.Timestamp,
			Buyer:         buyer,
			Seller:        seller,
			Marketplace:   m.Name,
			TokenContract: x.TokenContract,
			TokenID:       x.TokenID,
			Qty:           qty,
			Spend:         &spend,
		}
		p.Kind = r.kind(p.Spend, m.Name, x.TokenContract)
		return p, true
	}

	return models.Purchase{}, false
}

// firstTx returns the lowest-id transaction at (sec, sender) passing the
// filter, or nil. A nil filter matches anything.
func (r *reconciler) firstTx(sec int64, sender string, filter func(*models.RawTransaction) bool) *models.RawTransaction {
	for _, tx := range r.txsByKey[txKey{sec: sec, sender: sender}] {
		if filter == nil || filter(tx) {
			return tx
		}
	}
	return nil
}

func (r *reconciler) isMarketplaceTarget(tx *models.RawTransaction) bool {
	_, ok := r.cfg.MarketplaceByAddress(tx.Target)
	return ok
}

func (r *reconciler) isAcceptCall(tx *models.RawTransaction) bool {
	return r.isMarketplaceTarget(tx) && r.accepts[tx.Entrypoint]
}

// kind labels a verified sale. Zero spend is an open edition only when the
// marketplace or contract participates in open editions; any other
// zero-price sale stays a listing purchase.
func (r *reconciler) kind(spend *int64, marketName, tokenContract string) string {
	if spend != nil && *spend == 0 &&
		(r.cfg.IsOpenEdition(marketName) || r.cfg.IsOpenEdition(tokenContract)) {
		return models.KindOpenEdition
	}
	return models.KindListingPurchase
}

// opHashFor falls back to the owning transaction's hash, then a synthetic
// transfer-scoped hash.
func (r *reconciler) opHashFor(x *models.RawTokenTransfer) string {
	if x.TransactionID != 0 {
		if tx, ok := r.txByID[x.TransactionID]; ok {
			return tx.Hash
		}
	}
	return "xfer_" + strconv.FormatInt(x.ID, 10)
}

// deriveResales finds secondary sales: verified sales whose seller bought
// something strictly earlier, plus offer-accepts sent by such sellers.
func (r *reconciler) deriveResales(purchases []models.Purchase, txs []models.RawTransaction, stats *ReconcileStats) []models.Resale {
	firstBuy := map[string]time.Time{}
	for _, p := range purchases {
		if t, ok := firstBuy[p.Buyer]; !ok || p.Timestamp.Before(t) {
			firstBuy[p.Buyer] = p.Timestamp
		}
	}
	wasBuyerBefore := func(addr string, ts time.Time) bool {
		t, ok := firstBuy[addr]
		return ok && t.Before(ts)
	}

	var resales []models.Resale
	seen := map[string]bool{}
	add := func(res models.Resale) {
		key := res.OpHash + "|" + res.SellerCollector + "|" + res.TokenContract + "|" + res.TokenID
		if seen[key] {
			return
		}
		seen[key] = true
		resales = append(resales, res)
		stats.Resales++
	}

	for _, p := range purchases {
		if !wasBuyerBefore(p.Seller, p.Timestamp) {
			continue
		}
		add(models.Resale{
			OpHash:          p.OpHash,
			Timestamp:       p.Timestamp,
			SellerCollector: p.Seller,
			Buyer:           p.Buyer,
			Marketplace:     p.Marketplace,
			TokenContract:   p.TokenContract,
			TokenID:         p.TokenID,
			Proceeds:        p.Spend,
		})
	}

	// Offer-accepts by known buyers: the FA2 transfer leaving the seller
	// within the same operation is the resold token.
	for i := range txs {
		tx := &txs[i]
		m, ok := r.cfg.MarketplaceByAddress(tx.Target)
		if !ok || !r.accepts[tx.Entrypoint] || !wasBuyerBefore(tx.Sender, tx.Timestamp) {
			continue
		}
		for _, x := range r.xfersByTx[tx.ID] {
			if x.FromAddress != tx.Sender {
				continue
			}
			proceeds := tx.Amount
			add(models.Resale{
				OpHash:          tx.Hash,
				Timestamp:       tx.Timestamp,
				SellerCollector: tx.Sender,
				Buyer:           x.ToAddress,
				Marketplace:     m.Name,
				TokenContract:   x.TokenContract,
				TokenID:         x.TokenID,
				Proceeds:        &proceeds,
			})
			break
		}
	}
	return resales
}
