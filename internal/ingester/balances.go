package ingester

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// snapshotBalances fetches a window-start balance for every wallet seen in
// raw data without one. Fetches fan out up to the configured concurrency;
// a single writer goroutine keeps the store single-writer. A failed fetch
// records a null balance and never aborts the run.
func (s *Service) snapshotBalances(ctx context.Context, at time.Time) error {
	addrs, err := s.store.WalletAddressesWithoutBalance(ctx)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return nil
	}
	log.Printf("[ingester] snapshotting %d wallet balances at %s", len(addrs), at.Format(time.RFC3339))

	results := make(chan models.RawBalance, s.cfg.MaxConcurrency)

	writerDone := make(chan error, 1)
	go func() {
		n := 0
		for b := range results {
			if err := s.store.UpsertRawBalance(ctx, b); err != nil {
				writerDone <- err
				// Drain so producers never block on a dead writer.
				for range results {
				}
				return
			}
			n++
			if n%batchSize == 0 {
				if err := s.store.Save(); err != nil {
					writerDone <- err
					for range results {
					}
					return
				}
			}
		}
		writerDone <- s.store.Save()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, addr := range addrs {
		addr := addr
		g.Go(func() error {
			bal, err := s.client.BalanceAt(gctx, addr, at)
			if err != nil {
				// Null balance marks the miss so we do not retry it
				// within this run.
				log.Printf("[ingester] balance snapshot failed for %s: %v", addr, err)
				bal = nil
			}
			select {
			case results <- models.RawBalance{Address: addr, Balance: bal, SnapshotTS: at}:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	gErr := g.Wait()
	close(results)
	wErr := <-writerDone
	if wErr != nil {
		return wErr
	}
	return gErr
}
