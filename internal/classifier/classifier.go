package classifier

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// Fetcher is the slice of the indexer client the classifier needs.
type Fetcher interface {
	Contract(ctx context.Context, address string) (*tzkt.Contract, error)
	Token(ctx context.Context, contract, tokenID string) (*tzkt.Token, error)
}

// flushEvery bounds how many freshly resolved contracts can sit unpersisted.
const flushEvery = 10

const cacheSize = 4096

// Classifier decides whether a token contract is fungible. Lookups walk a
// cascade of cheap layers before touching the network: the hardcoded known
// sets, an in-process LRU, then the persisted contract_metadata cache.
// Remote resolutions are written back so later runs never re-fetch.
type Classifier struct {
	fetcher Fetcher
	store   *store.Store
	cache   *lru.Cache[string, bool]
	pending []models.ContractMetadata
}

// New builds a classifier backed by the given fetcher and store.
func New(fetcher Fetcher, st *store.Store) *Classifier {
	cache, _ := lru.New[string, bool](cacheSize)
	return &Classifier{fetcher: fetcher, store: st, cache: cache}
}

// IsFungible reports whether the contract holds fungible tokens. Unresolvable
// contracts classify as NFT and are not cached, so a later run retries them.
func (c *Classifier) IsFungible(ctx context.Context, contract string) (bool, error) {
	if config.KnownFungibleContracts[contract] {
		return true, nil
	}
	if config.KnownNFTContracts[contract] {
		return false, nil
	}
	if fungible, ok := c.cache.Get(contract); ok {
		return fungible, nil
	}

	meta, err := c.store.ContractMetadata(ctx, contract)
	if err != nil {
		return false, err
	}
	if meta != nil {
		c.cache.Add(contract, meta.IsFungible)
		return meta.IsFungible, nil
	}

	fungible, tokenType, alias, resolved := c.resolve(ctx, contract)
	if !resolved {
		return fungible, nil
	}
	c.cache.Add(contract, fungible)
	c.pending = append(c.pending, models.ContractMetadata{
		Address:    contract,
		IsFungible: fungible,
		TokenType:  tokenType,
		Alias:      alias,
		CheckedAt:  time.Now().UTC(),
	})
	if len(c.pending) >= flushEvery {
		if err := c.Flush(ctx); err != nil {
			return fungible, err
		}
	}
	return fungible, nil
}

// Flush persists any unwritten contract resolutions.
func (c *Classifier) Flush(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}
	if err := c.store.UpsertContractMetadata(ctx, c.pending); err != nil {
		return err
	}
	c.pending = c.pending[:0]
	return c.store.Save()
}

// resolve consults the indexer. The probes run cheapest-signal-first: the
// contract's declared standards, then token 0's metadata shape, then its
// supply. Anything ambiguous lands on NFT, the common case in this corpus.
func (c *Classifier) resolve(ctx context.Context, contract string) (fungible bool, tokenType, alias string, resolved bool) {
	ct, err := c.fetcher.Contract(ctx, contract)
	if err != nil {
		log.Printf("[classifier] contract lookup failed for %s: %v", contract, err)
		return false, "", "", false
	}
	if ct == nil {
		return false, "unknown", "", true
	}
	if ct.HasTzip("fa12") {
		return true, "fa1.2", ct.Alias, true
	}

	token, err := c.fetcher.Token(ctx, contract, "0")
	if err != nil {
		log.Printf("[classifier] token lookup failed for %s: %v", contract, err)
		return false, "", "", false
	}
	if token == nil {
		// FA2 NFT collections rarely start numbering at zero.
		return false, "fa2-nft", ct.Alias, true
	}

	var md struct {
		Decimals     string `json:"decimals"`
		ArtifactURI  string `json:"artifactUri"`
		DisplayURI   string `json:"displayUri"`
		ThumbnailURI string `json:"thumbnailUri"`
	}
	if len(token.Metadata) > 0 && json.Unmarshal(token.Metadata, &md) == nil {
		if d, err := strconv.Atoi(md.Decimals); err == nil && d > 0 {
			return true, "fa2-fungible", ct.Alias, true
		}
		if md.ArtifactURI != "" || md.DisplayURI != "" || md.ThumbnailURI != "" {
			return false, "fa2-nft", ct.Alias, true
		}
	}
	if supply, err := strconv.ParseFloat(token.TotalSupply, 64); err == nil && supply > 1e9 {
		return true, "fa2-fungible", ct.Alias, true
	}
	return false, "fa2-nft", ct.Alias, true
}
