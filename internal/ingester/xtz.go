package ingester

import (
	"context"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// SyncXtz runs the narrow XTZ scope: for every already-derived buyer and
// creator, fetch incoming and outgoing value transfers in the window with
// CEX-direction flags precomputed. Per-address fetches fan out under the
// concurrency limit; a single writer persists the rows.
func (s *Service) SyncXtz(ctx context.Context, start, end time.Time) error {
	buyers, err := s.store.ListBuyers(ctx)
	if err != nil {
		return err
	}
	creators, err := s.store.ListCreators(ctx)
	if err != nil {
		return err
	}

	seen := map[string]bool{}
	var addrs []string
	for _, a := range append(buyers, creators...) {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	sort.Strings(addrs)
	if len(addrs) == 0 {
		log.Printf("[ingester] xtz sync: no derived buyers or creators yet, run analyze first")
		return nil
	}

	afterID, err := s.store.MaxID(ctx, "raw_xtz_transfers")
	if err != nil {
		return err
	}
	log.Printf("[ingester] xtz sync for %d addresses (resume id.gt=%d)", len(addrs), afterID)

	results := make(chan []models.RawXtzTransfer, s.cfg.MaxConcurrency)
	writerDone := make(chan error, 1)
	go func() {
		var total int64
		buf := make([]models.RawXtzTransfer, 0, batchSize)
		flush := func() error {
			n, err := s.store.InsertRawXtzTransfers(ctx, buf)
			if err != nil {
				return err
			}
			total += n
			buf = buf[:0]
			return s.store.Save()
		}
		for rows := range results {
			buf = append(buf, rows...)
			if len(buf) >= batchSize {
				if err := flush(); err != nil {
					writerDone <- err
					for range results {
					}
					return
				}
			}
		}
		if err := flush(); err != nil {
			writerDone <- err
			return
		}
		log.Printf("[ingester] xtz transfers: %d new", total)
		writerDone <- nil
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			return s.fetchXtzForAddress(gctx, addr, start, end, afterID, results)
		})
	}

	gErr := g.Wait()
	close(results)
	wErr := <-writerDone
	if wErr != nil {
		return wErr
	}
	if gErr != nil {
		return gErr
	}
	return s.store.SetMeta(ctx, "last_sync_xtz", time.Now().UTC().Format(time.RFC3339))
}

// fetchXtzForAddress pulls one address's outgoing then incoming value
// transfers and tags CEX directions.
func (s *Service) fetchXtzForAddress(ctx context.Context, addr string, start, end time.Time, afterID int64, out chan<- []models.RawXtzTransfer) error {
	convert := func(page []tzkt.Transaction) []models.RawXtzTransfer {
		rows := make([]models.RawXtzTransfer, 0, len(page))
		for _, t := range page {
			raw := t.ToRaw()
			rows = append(rows, models.RawXtzTransfer{
				ID:        raw.ID,
				Hash:      raw.Hash,
				Timestamp: raw.Timestamp,
				Sender:    raw.Sender,
				Target:    raw.Target,
				Amount:    raw.Amount,
				IsFromCex: s.cfg.IsCex(raw.Sender),
				IsToCex:   s.cfg.IsCex(raw.Target),
			})
		}
		return rows
	}
	send := func(rows []models.RawXtzTransfer) error {
		if len(rows) == 0 {
			return nil
		}
		select {
		case out <- rows:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	outQ := tzkt.TxQuery{Start: start, End: end, Sender: addr, OnlyValue: true, AfterID: afterID}
	if err := s.client.Transactions(ctx, outQ, func(page []tzkt.Transaction) error {
		return send(convert(page))
	}); err != nil {
		return err
	}

	inQ := tzkt.TxQuery{Start: start, End: end, Targets: []string{addr}, OnlyValue: true, AfterID: afterID}
	return s.client.Transactions(ctx, inQ, func(page []tzkt.Transaction) error {
		return send(convert(page))
	})
}
