package flowgraph

import (
	"context"
	"log"
	"strings"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
)

// Transaction categories, from most to least specific.
const (
	CatNftSale        = "nft_sale"
	CatNftActivity    = "nft_activity"
	CatNftMarketplace = "nft_marketplace"
	CatBridge         = "bridge"
	CatCexDeposit     = "cex_deposit"
	CatCexWithdrawal  = "cex_withdrawal"
	CatDefi           = "defi"
	CatDelegation     = "delegation"
	CatXtzTransfer    = "xtz_transfer"
	CatOrigination    = "origination"
	CatOther          = "other"
)

// Engine classifies comprehensive-scope transactions and builds the wallet
// summaries and flow graph on top of the classified rows.
type Engine struct {
	cfg   *config.Config
	store *store.Store
}

// NewEngine wires the flow engine.
func NewEngine(cfg *config.Config, st *store.Store) *Engine {
	return &Engine{cfg: cfg, store: st}
}

// ClassifyTransactions assigns a category to every all_transactions row.
// Only rows whose category actually changes are written back. Returns the
// number of updated rows.
func (e *Engine) ClassifyTransactions(ctx context.Context) (int, error) {
	txs, err := e.store.ListAllTransactions(ctx)
	if err != nil {
		return 0, err
	}
	regCats, err := e.store.RegistryCategories(ctx)
	if err != nil {
		return 0, err
	}

	buyOrAccept := map[string]bool{}
	for _, ep := range e.cfg.Entrypoints(config.BuyEntrypoints) {
		buyOrAccept[ep] = true
	}
	for _, ep := range e.cfg.Entrypoints(config.AcceptEntrypoints) {
		buyOrAccept[ep] = true
	}

	updates := map[int64]string{}
	for _, t := range txs {
		cat := e.categorize(t, regCats, buyOrAccept)
		if cat != t.TxCategory {
			updates[t.ID] = cat
		}
	}
	if err := e.store.UpdateTxCategories(ctx, updates); err != nil {
		return 0, err
	}
	if err := e.store.Save(); err != nil {
		return 0, err
	}
	log.Printf("[flowgraph] classified %d transactions (%d updated)", len(txs), len(updates))
	return len(updates), nil
}

// categorize runs the ordered cascade. Every transaction lands somewhere;
// "other" is the floor, not an error.
func (e *Engine) categorize(t models.AllTransaction, regCats map[string]string, buyOrAccept map[string]bool) string {
	if _, isMarket := e.cfg.MarketplaceByAddress(t.Target); isMarket {
		switch {
		case buyOrAccept[t.Entrypoint]:
			return CatNftSale
		case config.IsNFTEntrypoint(t.Entrypoint):
			return CatNftActivity
		default:
			return CatNftMarketplace
		}
	}
	switch regCats[t.Target] {
	case "nft_contract", "nft_marketplace":
		return CatNftActivity
	}
	if e.cfg.IsBridge(t.Target) {
		return CatBridge
	}
	if e.cfg.IsCex(t.Target) {
		return CatCexDeposit
	}
	if e.cfg.IsCex(t.Sender) {
		return CatCexWithdrawal
	}
	if regCats[t.Target] == "defi" {
		return CatDefi
	}
	if config.IsDefiEntrypoint(t.Entrypoint) && !config.IsNFTEntrypoint(t.Entrypoint) {
		return CatDefi
	}
	if t.Entrypoint == "setDelegate" || t.Entrypoint == "delegate" {
		return CatDelegation
	}
	if t.Entrypoint == "" && t.Amount > 0 {
		return CatXtzTransfer
	}
	if t.Target == "" {
		return CatOrigination
	}
	return CatOther
}

func isWallet(addr string) bool {
	return strings.HasPrefix(addr, "tz")
}
