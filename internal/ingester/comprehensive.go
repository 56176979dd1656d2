package ingester

import (
	"context"
	"log"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// compCounts reports how many rows a comprehensive run persisted.
type compCounts struct {
	AllTx    int64
	XtzFlows int64
}

// SyncComprehensive runs the comprehensive scope: every applied transaction
// in the window into all_transactions, and every value-bearing transfer
// into xtz_flows with its flow_type classified from the configured address
// sets.
func (s *Service) SyncComprehensive(ctx context.Context, start, end time.Time) error {
	if _, err := s.syncComprehensiveWindow(ctx, start, end, false); err != nil {
		return err
	}
	return s.store.SetMeta(ctx, "last_sync_comprehensive", time.Now().UTC().Format(time.RFC3339))
}

// syncComprehensiveWindow is the shared implementation. windowScoped
// controls the resume cursor: weekly syncs resume from the highest id
// already stored inside the window, a plain comprehensive sync resumes
// from the table-global maximum.
func (s *Service) syncComprehensiveWindow(ctx context.Context, start, end time.Time, windowScoped bool) (compCounts, error) {
	var counts compCounts

	afterID, err := s.resumeID(ctx, "all_transactions", start, end, windowScoped)
	if err != nil {
		return counts, err
	}
	log.Printf("[ingester] comprehensive sync %s -> %s (resume id.gt=%d)",
		start.Format("2006-01-02"), end.Format("2006-01-02"), afterID)

	batch := make([]models.AllTransaction, 0, batchSize)
	flush := func() error {
		n, err := s.store.InsertAllTransactions(ctx, batch)
		if err != nil {
			return err
		}
		counts.AllTx += n
		batch = batch[:0]
		return s.store.Save()
	}

	err = s.client.Transactions(ctx, tzkt.TxQuery{Start: start, End: end, AfterID: afterID}, func(page []tzkt.Transaction) error {
		for _, t := range page {
			raw := t.ToRaw()
			batch = append(batch, models.AllTransaction{
				ID:         raw.ID,
				Hash:       raw.Hash,
				Level:      raw.Level,
				Timestamp:  raw.Timestamp,
				Sender:     raw.Sender,
				Target:     raw.Target,
				Amount:     raw.Amount,
				Entrypoint: raw.Entrypoint,
			})
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	if err := flush(); err != nil {
		return counts, err
	}

	flowAfter, err := s.resumeID(ctx, "xtz_flows", start, end, windowScoped)
	if err != nil {
		return counts, err
	}

	flowBatch := make([]models.XtzFlow, 0, batchSize)
	flushFlows := func() error {
		n, err := s.store.InsertXtzFlows(ctx, flowBatch)
		if err != nil {
			return err
		}
		counts.XtzFlows += n
		flowBatch = flowBatch[:0]
		return s.store.Save()
	}

	err = s.client.Transactions(ctx, tzkt.TxQuery{Start: start, End: end, OnlyValue: true, AfterID: flowAfter}, func(page []tzkt.Transaction) error {
		for _, t := range page {
			raw := t.ToRaw()
			flowBatch = append(flowBatch, models.XtzFlow{
				ID:        raw.ID,
				Hash:      raw.Hash,
				Timestamp: raw.Timestamp,
				Sender:    raw.Sender,
				Target:    raw.Target,
				Amount:    raw.Amount,
				FlowType:  s.classifyFlow(raw.Sender, raw.Target),
			})
			if len(flowBatch) >= batchSize {
				if err := flushFlows(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return counts, err
	}
	if err := flushFlows(); err != nil {
		return counts, err
	}

	log.Printf("[ingester] comprehensive sync done: %d transactions, %d flows", counts.AllTx, counts.XtzFlows)
	return counts, nil
}

func (s *Service) resumeID(ctx context.Context, table string, start, end time.Time, windowScoped bool) (int64, error) {
	if windowScoped {
		return s.store.MaxIDInWindow(ctx, table, start, end)
	}
	return s.store.MaxID(ctx, table)
}
