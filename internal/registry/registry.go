package registry

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/domains"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// resolveBatch caps how many wallets one resolve run looks up; the identity
// adapter is slow and best-effort, so we work busiest-first in slices.
const resolveBatch = 200

// Service maintains the address registry: discovery types every address
// seen in raw data, resolution attaches best-effort identities.
type Service struct {
	cfg     *config.Config
	store   *store.Store
	client  *tzkt.Client
	domains *domains.Client
}

// NewService wires the registry service.
func NewService(cfg *config.Config, st *store.Store, client *tzkt.Client, dom *domains.Client) *Service {
	return &Service{cfg: cfg, store: st, client: client, domains: dom}
}

// Discover types every address appearing in raw transactions and upserts a
// registry row with its activity count. Known configured addresses get
// their category stamped immediately; everything else is typed by prefix.
func (s *Service) Discover(ctx context.Context) (int, error) {
	activity, err := s.store.AddressActivity(ctx)
	if err != nil {
		return 0, err
	}

	entries := make([]models.AddressRegistry, 0, len(activity))
	for addr, count := range activity {
		if addr == "" {
			continue
		}
		e := models.AddressRegistry{Address: addr, TxCount: count}
		switch {
		case s.cfg.IsCex(addr):
			e.AddressType = models.AddrCex
			e.Category = "cex"
		case s.cfg.IsBridge(addr):
			e.AddressType = models.AddrBridge
			e.Category = "bridge"
		default:
			if m, ok := s.cfg.MarketplaceByAddress(addr); ok {
				e.AddressType = models.AddrMarketplace
				e.Category = "nft_marketplace"
				e.Alias = m.Name
			} else if strings.HasPrefix(addr, "KT") {
				e.AddressType = models.AddrContract
			} else {
				e.AddressType = models.AddrWallet
			}
		}
		entries = append(entries, e)
	}

	if err := s.store.UpsertRegistryEntries(ctx, entries); err != nil {
		return 0, err
	}
	if err := s.store.Save(); err != nil {
		return 0, err
	}
	log.Printf("[registry] discovered %d addresses", len(entries))
	return len(entries), nil
}

// Resolve attaches identities to unresolved wallets, busiest first: the
// indexer alias, the reverse domain, and owned domains. Every wallet gets
// a resolved_at stamp even when all lookups come back empty, so the next
// run moves on to the rest of the backlog.
func (s *Service) Resolve(ctx context.Context) (int, error) {
	wallets, err := s.store.ListUnresolvedWallets(ctx, resolveBatch)
	if err != nil {
		return 0, err
	}
	if len(wallets) == 0 {
		log.Printf("[registry] no unresolved wallets")
		return 0, nil
	}

	now := time.Now().UTC()
	resolved := make([]models.AddressRegistry, 0, len(wallets))
	for _, w := range wallets {
		if err := ctx.Err(); err != nil {
			return len(resolved), err
		}

		if acct, err := s.client.Account(ctx, w.Address); err == nil && acct != nil {
			w.Alias = acct.Alias
		}
		w.TezosDomain = s.domains.ReverseName(ctx, w.Address)
		w.OwnedDomains = s.domains.OwnedNames(ctx, w.Address)
		w.ResolvedAt = &now
		resolved = append(resolved, w)
	}

	if err := s.store.UpsertRegistryEntries(ctx, resolved); err != nil {
		return 0, err
	}
	if err := s.store.Save(); err != nil {
		return 0, err
	}
	log.Printf("[registry] resolved %d wallets", len(resolved))
	return len(resolved), nil
}
