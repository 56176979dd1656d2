package store

// Timestamps are stored as UTC unix seconds; the second resolution is also
// what the reconciler joins on. Dates are YYYY-MM-DD strings.
const schema = `
CREATE TABLE IF NOT EXISTS raw_transactions (
	id            INTEGER PRIMARY KEY,
	hash          TEXT NOT NULL,
	level         INTEGER NOT NULL,
	timestamp     INTEGER NOT NULL,
	sender        TEXT NOT NULL,
	target        TEXT NOT NULL,
	amount        INTEGER NOT NULL,
	entrypoint    TEXT,
	parameters    TEXT,
	status        TEXT NOT NULL,
	has_internals INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_raw_tx_target_ep ON raw_transactions (target, entrypoint);
CREATE INDEX IF NOT EXISTS idx_raw_tx_sender_ts ON raw_transactions (sender, timestamp);
CREATE INDEX IF NOT EXISTS idx_raw_tx_ts ON raw_transactions (timestamp);

CREATE TABLE IF NOT EXISTS raw_token_transfers (
	id             INTEGER PRIMARY KEY,
	level          INTEGER NOT NULL,
	timestamp      INTEGER NOT NULL,
	token_contract TEXT NOT NULL,
	token_id       TEXT NOT NULL,
	token_standard TEXT NOT NULL,
	from_address   TEXT,
	to_address     TEXT,
	amount         TEXT NOT NULL,
	transaction_id INTEGER
);
CREATE INDEX IF NOT EXISTS idx_raw_tt_txid ON raw_token_transfers (transaction_id);
CREATE INDEX IF NOT EXISTS idx_raw_tt_from ON raw_token_transfers (from_address);
CREATE INDEX IF NOT EXISTS idx_raw_tt_mint ON raw_token_transfers (token_standard) WHERE from_address IS NULL;

CREATE TABLE IF NOT EXISTS raw_balances (
	address     TEXT PRIMARY KEY,
	balance     INTEGER,
	snapshot_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_xtz_transfers (
	id          INTEGER PRIMARY KEY,
	hash        TEXT NOT NULL,
	timestamp   INTEGER NOT NULL,
	sender      TEXT NOT NULL,
	target      TEXT NOT NULL,
	amount      INTEGER NOT NULL,
	is_from_cex INTEGER NOT NULL DEFAULT 0,
	is_to_cex   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_raw_xtz_sender ON raw_xtz_transfers (sender);
CREATE INDEX IF NOT EXISTS idx_raw_xtz_target ON raw_xtz_transfers (target);

CREATE TABLE IF NOT EXISTS all_transactions (
	id          INTEGER PRIMARY KEY,
	hash        TEXT NOT NULL,
	level       INTEGER NOT NULL,
	timestamp   INTEGER NOT NULL,
	sender      TEXT NOT NULL,
	target      TEXT,
	amount      INTEGER NOT NULL,
	entrypoint  TEXT,
	tx_category TEXT
);
CREATE INDEX IF NOT EXISTS idx_all_tx_ts ON all_transactions (timestamp);

CREATE TABLE IF NOT EXISTS xtz_flows (
	id        INTEGER PRIMARY KEY,
	hash      TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	sender    TEXT NOT NULL,
	target    TEXT NOT NULL,
	amount    INTEGER NOT NULL,
	flow_type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_xtz_flows_sender ON xtz_flows (sender);
CREATE INDEX IF NOT EXISTS idx_xtz_flows_target ON xtz_flows (target);

CREATE TABLE IF NOT EXISTS sync_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_progress (
	week_id        TEXT PRIMARY KEY,
	start_date     INTEGER NOT NULL,
	end_date       INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	all_tx_count   INTEGER NOT NULL DEFAULT 0,
	xtz_flow_count INTEGER NOT NULL DEFAULT 0,
	started_at     INTEGER,
	completed_at   INTEGER,
	error_message  TEXT
);

CREATE TABLE IF NOT EXISTS buyers (
	address TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS buyer_balance_start (
	address TEXT PRIMARY KEY,
	balance INTEGER,
	ts      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS purchases (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	op_hash        TEXT NOT NULL,
	ts             INTEGER NOT NULL,
	buyer          TEXT NOT NULL,
	seller         TEXT,
	marketplace    TEXT NOT NULL,
	token_contract TEXT NOT NULL,
	token_id       TEXT NOT NULL,
	qty            INTEGER NOT NULL DEFAULT 1,
	spend          INTEGER,
	kind           TEXT NOT NULL CHECK (kind IN ('listing_purchase','offer_accept_purchase','open_edition')),
	UNIQUE (op_hash, buyer, token_contract, token_id)
);
CREATE INDEX IF NOT EXISTS idx_purchases_buyer_ts ON purchases (buyer, ts);
CREATE INDEX IF NOT EXISTS idx_purchases_seller_ts ON purchases (seller, ts);

CREATE TABLE IF NOT EXISTS creators (
	address TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS mints (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	op_hash        TEXT NOT NULL,
	ts             INTEGER NOT NULL,
	creator        TEXT NOT NULL,
	token_contract TEXT NOT NULL,
	token_id       TEXT NOT NULL,
	editions       INTEGER NOT NULL DEFAULT 1,
	UNIQUE (op_hash, token_contract, token_id)
);

CREATE TABLE IF NOT EXISTS listings (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	op_hash        TEXT NOT NULL,
	ts             INTEGER NOT NULL,
	seller         TEXT NOT NULL,
	marketplace    TEXT NOT NULL,
	token_contract TEXT NOT NULL,
	token_id       TEXT NOT NULL,
	editions       INTEGER NOT NULL DEFAULT 1,
	list_price     INTEGER,
	UNIQUE (op_hash, token_contract, token_id)
);
CREATE INDEX IF NOT EXISTS idx_listings_seller_token ON listings (seller, token_contract, token_id, ts);

CREATE TABLE IF NOT EXISTS offer_accepts (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	op_hash              TEXT NOT NULL,
	ts                   INTEGER NOT NULL,
	seller               TEXT NOT NULL,
	marketplace          TEXT NOT NULL,
	token_contract       TEXT NOT NULL,
	token_id             TEXT NOT NULL,
	accepted_price       INTEGER,
	reference_list_price INTEGER,
	under_list           INTEGER,
	UNIQUE (op_hash, token_contract, token_id)
);

CREATE TABLE IF NOT EXISTS resales (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	op_hash          TEXT NOT NULL,
	ts               INTEGER NOT NULL,
	seller_collector TEXT NOT NULL,
	buyer            TEXT,
	marketplace      TEXT NOT NULL,
	token_contract   TEXT NOT NULL,
	token_id         TEXT NOT NULL,
	proceeds         INTEGER,
	UNIQUE (op_hash, seller_collector, token_contract, token_id)
);

CREATE TABLE IF NOT EXISTS daily_metrics (
	date           TEXT PRIMARY KEY,
	total_volume   INTEGER NOT NULL DEFAULT 0,
	avg_price      REAL NOT NULL DEFAULT 0,
	sale_count     INTEGER NOT NULL DEFAULT 0,
	unique_buyers  INTEGER NOT NULL DEFAULT 0,
	unique_sellers INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS marketplace_stats (
	marketplace    TEXT PRIMARY KEY,
	sale_count     INTEGER NOT NULL DEFAULT 0,
	volume         INTEGER NOT NULL DEFAULT 0,
	share_pct      REAL NOT NULL DEFAULT 0,
	estimated_fees INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS daily_marketplace_fees (
	date        TEXT NOT NULL,
	marketplace TEXT NOT NULL,
	volume      INTEGER NOT NULL DEFAULT 0,
	sale_count  INTEGER NOT NULL DEFAULT 0,
	fees        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, marketplace)
);

CREATE TABLE IF NOT EXISTS buyer_cex_flow (
	address        TEXT PRIMARY KEY,
	cex_inflow     INTEGER NOT NULL DEFAULT 0,
	cex_outflow    INTEGER NOT NULL DEFAULT 0,
	inflow_count   INTEGER NOT NULL DEFAULT 0,
	outflow_count  INTEGER NOT NULL DEFAULT 0,
	total_spend    INTEGER NOT NULL DEFAULT 0,
	purchase_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS creator_fund_flow (
	address       TEXT PRIMARY KEY,
	sale_proceeds INTEGER NOT NULL DEFAULT 0,
	to_cex        INTEGER NOT NULL DEFAULT 0,
	to_wallets    INTEGER NOT NULL DEFAULT 0,
	outflow_count INTEGER NOT NULL DEFAULT 0,
	mint_count    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS wallet_xtz_summary (
	address             TEXT PRIMARY KEY,
	total_sent          INTEGER NOT NULL DEFAULT 0,
	total_received      INTEGER NOT NULL DEFAULT 0,
	sent_to_cex         INTEGER NOT NULL DEFAULT 0,
	received_from_cex   INTEGER NOT NULL DEFAULT 0,
	bridged_to_l2       INTEGER NOT NULL DEFAULT 0,
	bridged_from_l2     INTEGER NOT NULL DEFAULT 0,
	spent_on_nfts       INTEGER NOT NULL DEFAULT 0,
	received_from_sales INTEGER NOT NULL DEFAULT 0,
	p2p_sent            INTEGER NOT NULL DEFAULT 0,
	p2p_received        INTEGER NOT NULL DEFAULT 0,
	balance_start       INTEGER,
	balance_end         INTEGER
);

CREATE TABLE IF NOT EXISTS contract_metadata (
	address     TEXT PRIMARY KEY,
	is_fungible INTEGER NOT NULL,
	token_type  TEXT NOT NULL,
	alias       TEXT,
	checked_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS address_registry (
	address       TEXT PRIMARY KEY,
	address_type  TEXT NOT NULL,
	alias         TEXT,
	tezos_domain  TEXT,
	owned_domains TEXT,
	category      TEXT,
	tx_count      INTEGER NOT NULL DEFAULT 0,
	metadata      TEXT,
	resolved_at   INTEGER
);
`
