package models

import (
	"encoding/json"
	"time"
)

// RawTransaction represents the 'raw_transactions' table.
// One row per applied contract call, keyed by the indexer-assigned id.
// The id is monotonic across the whole chain, which is what makes
// cursor-based resume (id.gt) precise.
type RawTransaction struct {
	ID           int64           `json:"id"`
	Hash         string          `json:"hash"`
	Level        int64           `json:"level"`
	Timestamp    time.Time       `json:"timestamp"`
	Sender       string          `json:"sender"`
	Target       string          `json:"target"`
	Amount       int64           `json:"amount"` // mutez
	Entrypoint   string          `json:"entrypoint,omitempty"`
	Parameters   json.RawMessage `json:"parameters,omitempty"`
	Status       string          `json:"status"`
	HasInternals bool            `json:"has_internals"`
}

// RawTokenTransfer represents the 'raw_token_transfers' table.
// Amount stays a string because FA2 balances can exceed 64 bits.
// FromAddress is empty for mints.
type RawTokenTransfer struct {
	ID            int64     `json:"id"`
	Level         int64     `json:"level"`
	Timestamp     time.Time `json:"timestamp"`
	TokenContract string    `json:"token_contract"`
	TokenID       string    `json:"token_id"`
	TokenStandard string    `json:"token_standard"` // "fa2" or "fa1.2"
	FromAddress   string    `json:"from_address,omitempty"`
	ToAddress     string    `json:"to_address,omitempty"`
	Amount        string    `json:"amount"`
	TransactionID int64     `json:"transaction_id,omitempty"` // 0 when the indexer attached no tx
}

// RawBalance is a per-address balance snapshot at the window start.
type RawBalance struct {
	Address    string    `json:"address"`
	Balance    *int64    `json:"balance"` // nil when the snapshot fetch failed
	SnapshotTS time.Time `json:"snapshot_ts"`
}

// RawXtzTransfer is a value-bearing simple transfer with precomputed
// CEX-direction flags. Written only by the narrow XTZ sync mode.
type RawXtzTransfer struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Target    string    `json:"target"`
	Amount    int64     `json:"amount"`
	IsFromCex bool      `json:"is_from_cex"`
	IsToCex   bool      `json:"is_to_cex"`
}

// AllTransaction mirrors every transaction in the window (comprehensive
// sync) and carries the flow-engine classification.
type AllTransaction struct {
	ID         int64     `json:"id"`
	Hash       string    `json:"hash"`
	Level      int64     `json:"level"`
	Timestamp  time.Time `json:"timestamp"`
	Sender     string    `json:"sender"`
	Target     string    `json:"target"`
	Amount     int64     `json:"amount"`
	Entrypoint string    `json:"entrypoint,omitempty"`
	TxCategory string    `json:"tx_category,omitempty"`
}

// XtzFlow is a classified value transfer from the comprehensive sync.
type XtzFlow struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Target    string    `json:"target"`
	Amount    int64     `json:"amount"`
	FlowType  string    `json:"flow_type"`
}

// Flow types assigned during comprehensive ingest.
const (
	FlowCexDeposit    = "cex_deposit"
	FlowCexWithdrawal = "cex_withdrawal"
	FlowBridgeToL2    = "bridge_to_l2"
	FlowBridgeFromL2  = "bridge_from_l2"
	FlowContract      = "contract"
	FlowP2P           = "p2p"
)

// Week sync states.
const (
	WeekPending    = "pending"
	WeekInProgress = "in_progress"
	WeekComplete   = "complete"
	WeekError      = "error"
)

// SyncProgress is the durable per-week FSM row of the weekly ingester.
type SyncProgress struct {
	WeekID       string     `json:"week_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      time.Time  `json:"end_date"`
	Status       string     `json:"status"`
	AllTxCount   int64      `json:"all_tx_count"`
	XtzFlowCount int64      `json:"xtz_flow_count"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ContractMetadata caches the fungible-vs-NFT decision per token contract.
// Authoritative after first write.
type ContractMetadata struct {
	Address    string    `json:"address"`
	IsFungible bool      `json:"is_fungible"`
	TokenType  string    `json:"token_type"` // "fa1.2", "fa2-fungible", "fa2-nft"
	Alias      string    `json:"alias,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Address registry types.
const (
	AddrWallet      = "wallet"
	AddrContract    = "contract"
	AddrCex         = "cex"
	AddrMarketplace = "marketplace"
	AddrBridge      = "bridge"
)

// AddressRegistry is the incrementally resolved address book.
type AddressRegistry struct {
	Address      string     `json:"address"`
	AddressType  string     `json:"address_type"`
	Alias        string     `json:"alias,omitempty"`
	TezosDomain  string     `json:"tezos_domain,omitempty"`
	OwnedDomains []string   `json:"owned_domains,omitempty"`
	Category     string     `json:"category,omitempty"`
	TxCount      int64      `json:"tx_count"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

// Purchase kinds. KindOfferAcceptPurchase is declared for schema
// compatibility but never written: seller-initiated executions live in
// the offer_accepts table instead.
const (
	KindListingPurchase     = "listing_purchase"
	KindOfferAcceptPurchase = "offer_accept_purchase"
	KindOpenEdition         = "open_edition"
)

// Purchase is a verified buyer-side sale.
// Unique on (op_hash, buyer, token_contract, token_id).
type Purchase struct {
	ID            int64     `json:"id,omitempty"`
	OpHash        string    `json:"op_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Buyer         string    `json:"buyer"`
	Seller        string    `json:"seller,omitempty"`
	Marketplace   string    `json:"marketplace"`
	TokenContract string    `json:"token_contract"`
	TokenID       string    `json:"token_id"`
	Qty           int64     `json:"qty"`
	Spend         *int64    `json:"spend,omitempty"` // nil when no priced tx matched
	Kind          string    `json:"kind"`
}

// Listing is a declared offer-to-sell. Unique on (op_hash, token).
type Listing struct {
	ID            int64     `json:"id,omitempty"`
	OpHash        string    `json:"op_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Seller        string    `json:"seller"`
	Marketplace   string    `json:"marketplace"`
	TokenContract string    `json:"token_contract"`
	TokenID       string    `json:"token_id"`
	Editions      int64     `json:"editions"`
	ListPrice     *int64    `json:"list_price,omitempty"`
}

// OfferAccept is a seller-initiated execution of a standing offer.
// UnderList stays nil unless both prices are known.
type OfferAccept struct {
	ID                 int64     `json:"id,omitempty"`
	OpHash             string    `json:"op_hash"`
	Timestamp          time.Time `json:"timestamp"`
	Seller             string    `json:"seller"`
	Marketplace        string    `json:"marketplace"`
	TokenContract      string    `json:"token_contract"`
	TokenID            string    `json:"token_id"`
	AcceptedPrice      *int64    `json:"accepted_price,omitempty"`
	ReferenceListPrice *int64    `json:"reference_list_price,omitempty"`
	UnderList          *bool     `json:"under_list,omitempty"`
}

// Resale is a verified sale whose seller was previously a buyer.
// Unique on (op_hash, seller_collector, token).
type Resale struct {
	ID              int64     `json:"id,omitempty"`
	OpHash          string    `json:"op_hash"`
	Timestamp       time.Time `json:"timestamp"`
	SellerCollector string    `json:"seller_collector"`
	Buyer           string    `json:"buyer,omitempty"`
	Marketplace     string    `json:"marketplace"`
	TokenContract   string    `json:"token_contract"`
	TokenID         string    `json:"token_id"`
	Proceeds        *int64    `json:"proceeds,omitempty"`
}

// Mint is the first appearance of a token. Unique on (op_hash, token).
type Mint struct {
	ID            int64     `json:"id,omitempty"`
	OpHash        string    `json:"op_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Creator       string    `json:"creator"`
	TokenContract string    `json:"token_contract"`
	TokenID       string    `json:"token_id"`
	Editions      int64     `json:"editions"`
}

// DailyMetrics aggregates purchases by ISO date.
type DailyMetrics struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	TotalVolume   int64   `json:"total_volume"`
	AvgPrice      float64 `json:"avg_price"`
	SaleCount     int64   `json:"sale_count"`
	UniqueBuyers  int64   `json:"unique_buyers"`
	UniqueSellers int64   `json:"unique_sellers"`
}

// MarketplaceStats aggregates purchases by marketplace.
type MarketplaceStats struct {
	Marketplace   string  `json:"marketplace"`
	SaleCount     int64   `json:"sale_count"`
	Volume        int64   `json:"volume"`
	SharePct      float64 `json:"share_pct"`
	EstimatedFees int64   `json:"estimated_fees"`
}

// DailyMarketplaceFees is one (date, marketplace) fee row.
type DailyMarketplaceFees struct {
	Date        string `json:"date"`
	Marketplace string `json:"marketplace"`
	Volume      int64  `json:"volume"`
	SaleCount   int64  `json:"sale_count"`
	Fees        int64  `json:"fees"`
}

// BuyerCexFlow summarizes CEX-tagged transfers around a buyer wallet.
type BuyerCexFlow struct {
	Address       string `json:"address"`
	CexInflow     int64  `json:"cex_inflow"`
	CexOutflow    int64  `json:"cex_outflow"`
	InflowCount   int64  `json:"inflow_count"`
	OutflowCount  int64  `json:"outflow_count"`
	TotalSpend    int64  `json:"total_spend"`
	PurchaseCount int64  `json:"purchase_count"`
}

// CreatorFundFlow summarizes where a creator's sale proceeds went.
type CreatorFundFlow struct {
	Address      string `json:"address"`
	SaleProceeds int64  `json:"sale_proceeds"`
	ToCex        int64  `json:"to_cex"`
	ToWallets    int64  `json:"to_wallets"`
	OutflowCount int64  `json:"outflow_count"`
	MintCount    int64  `json:"mint_count"`
}

// WalletXtzSummary aggregates classified flows per wallet.
// BalanceEnd = BalanceStart + TotalReceived - TotalSent when the start
// snapshot exists; there is no rebaseline.
type WalletXtzSummary struct {
	Address           string `json:"address"`
	TotalSent         int64  `json:"total_sent"`
	TotalReceived     int64  `json:"total_received"`
	SentToCex         int64  `json:"sent_to_cex"`
	ReceivedFromCex   int64  `json:"received_from_cex"`
	BridgedToL2       int64  `json:"bridged_to_l2"`
	BridgedFromL2     int64  `json:"bridged_from_l2"`
	SpentOnNfts       int64  `json:"spent_on_nfts"`
	ReceivedFromSales int64  `json:"received_from_sales"`
	P2PSent           int64  `json:"p2p_sent"`
	P2PReceived       int64  `json:"p2p_received"`
	BalanceStart      *int64 `json:"balance_start,omitempty"`
	BalanceEnd        *int64 `json:"balance_end,omitempty"`
}

// GraphEdge is a weighted directed edge of the flow graph.
type GraphEdge struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	TotalValue int64   `json:"total_value"`
	Count      int64   `json:"count"`
	AvgValue   float64 `json:"avg_value"`
	Color      string  `json:"color"`
}

// GraphNode is a node of the flow graph, sized by activity.
type GraphNode struct {
	Address  string  `json:"address"`
	Label    string  `json:"label,omitempty"`
	Category string  `json:"category,omitempty"`
	Activity int64   `json:"activity"`
	Size     float64 `json:"size"`
}

// FlowGraph is the presentation-ready network of XTZ flows.
type FlowGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
