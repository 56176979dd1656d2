package flowgraph

import (
	"context"
	"log"
	"sort"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// flowKey joins flows against purchases at second resolution, the same
// trick the sale reconciler uses against raw transactions.
type flowKey struct {
	addr string
	sec  int64
}

// BuildWalletSummaries aggregates classified flows per wallet into
// wallet_xtz_summary. NFT attribution joins (address, second) against the
// purchases table; the ending balance is start plus received minus sent,
// with no rebaseline against live chain state.
func (e *Engine) BuildWalletSummaries(ctx context.Context) (int, error) {
	flows, err := e.store.ListXtzFlows(ctx)
	if err != nil {
		return 0, err
	}
	purchases, err := e.store.ListPurchases(ctx, 0)
	if err != nil {
		return 0, err
	}

	buyKeys := map[flowKey]bool{}
	sellKeys := map[flowKey]bool{}
	for _, p := range purchases {
		sec := p.Timestamp.Unix()
		buyKeys[flowKey{addr: p.Buyer, sec: sec}] = true
		if p.Seller != "" {
			sellKeys[flowKey{addr: p.Seller, sec: sec}] = true
		}
	}

	byAddr := map[string]*models.WalletXtzSummary{}
	get := func(addr string) *models.WalletXtzSummary {
		w := byAddr[addr]
		if w == nil {
			w = &models.WalletXtzSummary{Address: addr}
			byAddr[addr] = w
		}
		return w
	}

	for _, f := range flows {
		sec := f.Timestamp.Unix()
		if isWallet(f.Sender) {
			w := get(f.Sender)
			w.TotalSent += f.Amount
			switch f.FlowType {
			case models.FlowCexDeposit:
				w.SentToCex += f.Amount
			case models.FlowBridgeToL2:
				w.BridgedToL2 += f.Amount
			case models.FlowP2P:
				w.P2PSent += f.Amount
			}
			if buyKeys[flowKey{addr: f.Sender, sec: sec}] {
				w.SpentOnNfts += f.Amount
			}
		}
		if isWallet(f.Target) {
			w := get(f.Target)
			w.TotalReceived += f.Amount
			switch f.FlowType {
			case models.FlowCexWithdrawal:
				w.ReceivedFromCex += f.Amount
			case models.FlowBridgeFromL2:
				w.BridgedFromL2 += f.Amount
			case models.FlowP2P:
				w.P2PReceived += f.Amount
			}
			if sellKeys[flowKey{addr: f.Target, sec: sec}] {
				w.ReceivedFromSales += f.Amount
			}
		}
	}

	addrs := make([]string, 0, len(byAddr))
	for a := range byAddr {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	summaries := make([]models.WalletXtzSummary, 0, len(addrs))
	for _, a := range addrs {
		w := byAddr[a]
		start, _, err := e.store.Balance(ctx, a)
		if err != nil {
			return 0, err
		}
		w.BalanceStart = start
		if start != nil {
			end := *start + w.TotalReceived - w.TotalSent
			w.BalanceEnd = &end
		}
		summaries = append(summaries, *w)
	}

	if err := e.store.UpsertWalletSummaries(ctx, summaries); err != nil {
		return 0, err
	}
	if err := e.store.Save(); err != nil {
		return 0, err
	}
	log.Printf("[flowgraph] built %d wallet summaries from %d flows", len(summaries), len(flows))
	return len(summaries), nil
}
