package analyzer

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/config"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// ActivityStats counts derived activity rows and parameter-walk misses.
type ActivityStats struct {
	Creators        int
	Mints           int
	Listings        int
	ListingsSkipped int
	OfferAccepts    int
	AcceptsSkipped  int
}

// deriveMints turns null-from FA2 transfers into Mint rows and collects the
// creator set. Transfers without an owning transaction get a synthetic
// op hash so the natural key stays unique.
func (s *Service) deriveMints(ctx context.Context, txByID map[int64]*models.RawTransaction, stats *ActivityStats) ([]models.Mint, []string, error) {
	xfers, err := s.store.ListMintTransfers(ctx)
	if err != nil {
		return nil, nil, err
	}

	var mints []models.Mint
	creators := map[string]bool{}
	for _, x := range xfers {
		editions, err := strconv.ParseInt(x.Amount, 10, 64)
		if err != nil || editions < 1 {
			editions = 1
		}
		opHash := "mint_" + strconv.FormatInt(x.ID, 10)
		if x.TransactionID != 0 {
			if tx, ok := txByID[x.TransactionID]; ok {
				opHash = tx.Hash
			}
		}
		creator := ""
		if strings.HasPrefix(x.ToAddress, "tz") {
			creator = x.ToAddress
			creators[creator] = true
		}
		mints = append(mints, models.Mint{
			OpHash:        opHash,
			Timestamp:     x.Timestamp,
			Creator:       creator,
			TokenContract: x.TokenContract,
			TokenID:       x.TokenID,
			Editions:      editions,
		})
	}

	addrs := make([]string, 0, len(creators))
	for a := range creators {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	stats.Mints = len(mints)
	stats.Creators = len(addrs)
	return mints, addrs, nil
}

// deriveListings extracts declared offers-to-sell from list-entrypoint
// calls. Payloads the walkers cannot read are counted and dropped.
func (s *Service) deriveListings(ctx context.Context, stats *ActivityStats) ([]models.Listing, error) {
	txs, err := s.store.TransactionsByTargetEntrypoints(ctx,
		s.cfg.MarketplaceAddresses(), s.cfg.Entrypoints(config.ListEntrypoints))
	if err != nil {
		return nil, err
	}

	var listings []models.Listing
	for _, tx := range txs {
		tp, ok := ExtractTokenParams(tx.Parameters)
		if !ok {
			stats.ListingsSkipped++
			continue
		}
		m, _ := s.cfg.MarketplaceByAddress(tx.Target)
		listings = append(listings, models.Listing{
			OpHash:        tx.Hash,
			Timestamp:     tx.Timestamp,
			Seller:        tx.Sender,
			Marketplace:   m.Name,
			TokenContract: tp.Contract,
			TokenID:       tp.TokenID,
			Editions:      tp.Qty,
			ListPrice:     tp.Price,
		})
	}
	stats.Listings = len(listings)
	return listings, nil
}

// deriveOfferAccepts turns accept-entrypoint calls into OfferAccept rows.
// Token identity comes from the FA2 transfer attached to the call; the
// reference price is the seller's latest prior listing of that token.
// Listings must already be persisted when this runs.
func (s *Service) deriveOfferAccepts(ctx context.Context, xfersByTx map[int64][]*models.RawTokenTransfer, stats *ActivityStats) ([]models.OfferAccept, error) {
	txs, err := s.store.TransactionsByTargetEntrypoints(ctx,
		s.cfg.MarketplaceAddresses(), s.cfg.Entrypoints(config.AcceptEntrypoints))
	if err != nil {
		return nil, err
	}

	var accepts []models.OfferAccept
	for _, tx := range txs {
		var token *models.RawTokenTransfer
		for _, x := range xfersByTx[tx.ID] {
			if x.FromAddress == tx.Sender {
				token = x
				break
			}
		}
		if token == nil {
			stats.AcceptsSkipped++
			continue
		}

		accepted := tx.Amount
		ref, err := s.store.LatestListingPriceBefore(ctx, tx.Sender, token.TokenContract, token.TokenID, tx.Timestamp)
		if err != nil {
			return nil, err
		}
		var under *bool
		if ref != nil {
			b := accepted < *ref
			under = &b
		}

		m, _ := s.cfg.MarketplaceByAddress(tx.Target)
		accepts = append(accepts, models.OfferAccept{
			OpHash:             tx.Hash,
			Timestamp:          tx.Timestamp,
			Seller:             tx.Sender,
			Marketplace:        m.Name,
			TokenContract:      token.TokenContract,
			TokenID:            token.TokenID,
			AcceptedPrice:      &accepted,
			ReferenceListPrice: ref,
			UnderList:          under,
		})
	}
	stats.OfferAccepts = len(accepts)
	return accepts, nil
}
