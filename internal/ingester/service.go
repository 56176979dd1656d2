package ingester

import (
	"context"
	"log"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// batchSize is the persistence cadence: rows are buffered up to this size,
// then upserted and checkpointed. A crash loses at most one batch, and the
// id-idempotent upserts make the re-run heal it.
const batchSize = 500

// Service pulls raw events from the indexer into the store. All four sync
// modes are resumable: every iterator starts from the highest id already
// persisted for its table.
type Service struct {
	client *tzkt.Client
	store  *store.Store
	cfg    *config.Config
}

// NewService wires the ingester.
func NewService(client *tzkt.Client, st *store.Store, cfg *config.Config) *Service {
	return &Service{client: client, store: st, cfg: cfg}
}

// SyncMarketplace runs the marketplace-scope ingest: transactions targeting
// any configured marketplace, all FA2 token transfers in the window, and a
// balance snapshot for every wallet seen in raw data without one.
func (s *Service) SyncMarketplace(ctx context.Context, start, end time.Time) error {
	afterID, err := s.store.MaxID(ctx, "raw_transactions")
	if err != nil {
		return err
	}
	log.Printf("[ingester] marketplace sync %s -> %s (resume id.gt=%d)",
		start.Format("2006-01-02"), end.Format("2006-01-02"), afterID)

	var txTotal int64
	batch := make([]models.RawTransaction, 0, batchSize)
	flushTxs := func() error {
		n, err := s.store.InsertRawTransactions(ctx, batch)
		if err != nil {
			return err
		}
		txTotal += n
		batch = batch[:0]
		return s.store.Save()
	}

	q := tzkt.TxQuery{Start: start, End: end, Targets: s.cfg.MarketplaceAddresses(), AfterID: afterID}
	err = s.client.Transactions(ctx, q, func(page []tzkt.Transaction) error {
		for _, t := range page {
			batch = append(batch, t.ToRaw())
			if len(batch) >= batchSize {
				if err := flushTxs(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flushTxs(); err != nil {
		return err
	}
	log.Printf("[ingester] marketplace transactions: %d new", txTotal)

	ttAfter, err := s.store.MaxID(ctx, "raw_token_transfers")
	if err != nil {
		return err
	}
	var ttTotal int64
	ttBatch := make([]models.RawTokenTransfer, 0, batchSize)
	flushTTs := func() error {
		n, err := s.store.InsertRawTokenTransfers(ctx, ttBatch)
		if err != nil {
			return err
		}
		ttTotal += n
		ttBatch = ttBatch[:0]
		return s.store.Save()
	}

	err = s.client.TokenTransfers(ctx, tzkt.TransferQuery{Start: start, End: end, AfterID: ttAfter}, func(page []tzkt.TokenTransfer) error {
		for _, t := range page {
			ttBatch = append(ttBatch, t.ToRaw())
			if len(ttBatch) >= batchSize {
				if err := flushTTs(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flushTTs(); err != nil {
		return err
	}
	log.Printf("[ingester] token transfers: %d new", ttTotal)

	if err := s.snapshotBalances(ctx, start); err != nil {
		return err
	}
	return s.store.SetMeta(ctx, "last_sync_marketplace", time.Now().UTC().Format(time.RFC3339))
}

// classifyFlow tags a value transfer using only the configured sender and
// target address sets.
func (s *Service) classifyFlow(sender, target string) string {
	switch {
	case s.cfg.IsCex(target):
		return models.FlowCexDeposit
	case s.cfg.IsCex(sender):
		return models.FlowCexWithdrawal
	case s.cfg.IsBridge(target):
		return models.FlowBridgeToL2
	case s.cfg.IsBridge(sender):
		return models.FlowBridgeFromL2
	case len(target) > 2 && target[:2] == "KT":
		return models.FlowContract
	default:
		return models.FlowP2P
	}
}
