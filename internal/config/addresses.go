package config

// Static mainnet address tables. These are configuration inputs, not part
// of the core algorithms: a YAML config replaces any of them wholesale.

// DefaultMarketplaces returns the built-in marketplace table.
func DefaultMarketplaces() []Marketplace {
	return []Marketplace{
		{
			Name:              "objkt",
			Address:           "KT1WvzYHCNBvDSdwafTHv7nJ1dWmZ8GCYuuC",
			BuyEntrypoints:    []string{"fulfill_ask", "fulfill_offer"},
			ListEntrypoints:   []string{"ask"},
			AcceptEntrypoints: []string{"fulfill_offer"},
			FeeRate:           0.025,
		},
		{
			Name:              "objkt_v1",
			Address:           "KT1FvqJwEDWb1Gwc55Jd1jjTHRVWbYKUUpyq",
			BuyEntrypoints:    []string{"collect"},
			ListEntrypoints:   []string{"swap"},
			AcceptEntrypoints: []string{"accept_offer"},
			FeeRate:           0.025,
		},
		{
			Name:              "hen",
			Address:           "KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn",
			BuyEntrypoints:    []string{"collect"},
			ListEntrypoints:   []string{"swap"},
			AcceptEntrypoints: nil,
			FeeRate:           0.025,
		},
		{
			Name:              "teia",
			Address:           "KT1PHubm9HtyQEJ4BBpMTVomq6mhbfNZ9z5w",
			BuyEntrypoints:    []string{"collect"},
			ListEntrypoints:   []string{"swap"},
			AcceptEntrypoints: nil,
			FeeRate:           0.025,
		},
		{
			Name:              "fxhash",
			Address:           "KT1GbyoDi7H1sfXmimXpptZJuCdHMh66WS9u",
			BuyEntrypoints:    []string{"collect", "listing_accept"},
			ListEntrypoints:   []string{"listing"},
			AcceptEntrypoints: []string{"offer_accept"},
			FeeRate:           0.05,
		},
		{
			Name:              "versum",
			Address:           "KT1GyRAJNdizF1nojQz62uGYkx8WFRUJm9X5",
			BuyEntrypoints:    []string{"collect_swap"},
			ListEntrypoints:   []string{"create_swap"},
			AcceptEntrypoints: []string{"accept_offer"},
			FeeRate:           0.025,
		},
	}
}

// custodyContracts maps marketplace-escrow contracts to the marketplace
// name they belong to. A token transfer whose 'from' is one of these is a
// verified sale by construction.
var custodyContracts = map[string]string{
	"KT1WvzYHCNBvDSdwafTHv7nJ1dWmZ8GCYuuC": "objkt",
	"KT1FvqJwEDWb1Gwc55Jd1jjTHRVWbYKUUpyq": "objkt_v1",
	"KT1HbQepzV1nVGg8QVznG7z4RcHseD5kwqBn": "hen",
	"KT1PHubm9HtyQEJ4BBpMTVomq6mhbfNZ9z5w": "teia",
	"KT1GbyoDi7H1sfXmimXpptZJuCdHMh66WS9u": "fxhash",
	"KT1GyRAJNdizF1nojQz62uGYkx8WFRUJm9X5": "versum",
}

// CustodyMarketplace returns the marketplace name escrowing tokens at addr.
func CustodyMarketplace(addr string) (string, bool) {
	name, ok := custodyContracts[addr]
	return name, ok
}

// DefaultCexAddresses returns known centralized-exchange deposit wallets.
func DefaultCexAddresses() []string {
	return []string{
		"tz1Uhfi3Bay9NcQp9vKFtHrKhYmjgMiM2k2p", // binance
		"tz1WDKZCGdqvZ8VMRyqkSFpMAGHqvDS8tQTf", // binance 2
		"tz1Kr8fFRYu9cqJ7tfccVqTDTbRCcGDXhnWk", // kraken
		"tz1hq1SGDD3362zmfmDBQDqXHmAI4dYIXjqs", // kucoin
		"tz1a5fMLLY5WCarCzH7RKTJHX9mJFN8eaaWG", // coinbase
		"tz1NortRftucvAkD1J58L32EhSVrQEWJCEnB", // gate.io
	}
}

// DefaultBridges returns known Tezos-L2 bridge contracts (Etherlink).
func DefaultBridges() []string {
	return []string{
		"KT1Wj8SUGmnEPFqyahHAcjcNQwe6YGhEXJb5",
		"KT1CeFqjJRJPNVvhvznQrWfHad2jCiDZ6Lyj",
	}
}

// DefaultOpenEditions returns marketplace names and token contracts whose
// zero-price verified sales are open editions rather than free listings.
func DefaultOpenEditions() []string {
	return []string{
		"fxhash",
		"KT1U6EHmNxJTkvaWJ4ThczG4FSDaHC21ssvi", // fxhash gentk
	}
}

// KnownFungibleContracts are FA2/FA1.2 contracts that are always fungible
// regardless of what their metadata claims.
var KnownFungibleContracts = map[string]bool{
	"KT1K9gCRgaLRFKTErYt1wVxA3Frb9FjasjTV": true, // kUSD
	"KT1XnTn74bUtxHfDtBmm2bGZAQfhPbvKWR8o": true, // uUSD/youves
	"KT1GRSvLoikDsXujKgZPsGLX8k8VvR2Tq95b": true, // wXTZ (plenty)
	"KT1PWx2mnDueood7fEmfbBDKx1D9BAnnXitn": true, // tzBTC
	"KT19at7rQUvyjxnZ2fBv7D9zc8rkyG7gAoU8": true, // wrap governance
	"KT1UsSfaXyqcjSVPeiD7U1bWgKy3taYN7NWY": true, // plenty
}

// KnownNFTContracts are contracts that are always NFT collections even
// though they start at token id 0.
var KnownNFTContracts = map[string]bool{
	"KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton": true, // hicetnunc objkts
	"KT1U6EHmNxJTkvaWJ4ThczG4FSDaHC21ssvi": true, // fxhash gentk v1
	"KT1KEa8z6vWXDJrVqtMrAeDVzsvxat3kHaCE": true, // fxhash gentk v2
	"KT1LjmAdYQCLBjwv4S2oFkEzyHVkomAf5MrW": true, // versum items
	"KT1MxDwChiDwd6WBVs24g1NjERUoK622ZEFp": true, // rarible
}

// nftEntrypoints are marketplace-shaped entrypoint names used by the flow
// engine to tag NFT activity on contracts we have not configured.
var nftEntrypoints = map[string]bool{
	"mint":           true,
	"mint_OBJKT":     true,
	"collect":        true,
	"swap":           true,
	"cancel_swap":    true,
	"ask":            true,
	"retract_ask":    true,
	"offer":          true,
	"retract_offer":  true,
	"fulfill_ask":    true,
	"fulfill_offer":  true,
	"listing":        true,
	"listing_cancel": true,
	"listing_accept": true,
	"transfer":       true,
	"burn":           true,
}

// defiEntrypoints are AMM/lending-shaped entrypoint names.
var defiEntrypoints = map[string]bool{
	"tokenToTezPayment": true,
	"tezToTokenPayment": true,
	"addLiquidity":      true,
	"removeLiquidity":   true,
	"investLiquidity":   true,
	"divestLiquidity":   true,
	"swap":              true, // also an NFT name; NFT check wins first
	"deposit":           true,
	"withdraw":          true,
	"redeem":            true,
	"borrow":            true,
	"repay":             true,
	"stake":             true,
	"unstake":           true,
	"harvest":           true,
}

// IsNFTEntrypoint reports whether ep looks like NFT marketplace activity.
func IsNFTEntrypoint(ep string) bool { return nftEntrypoints[ep] }

// IsDefiEntrypoint reports whether ep looks like a DeFi interaction.
func IsDefiEntrypoint(ep string) bool { return defiEntrypoints[ep] }
