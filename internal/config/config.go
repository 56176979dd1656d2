package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Zero values are filled with
// defaults by Load so a missing config file still yields a working setup.
type Config struct {
	IndexerURL string `yaml:"indexer_url"`
	DomainsURL string `yaml:"domains_url"`
	DataDir    string `yaml:"data_dir"`
	OutDir     string `yaml:"out_dir"`
	APIPort    int    `yaml:"api_port"`

	WindowDays     int `yaml:"window_days"`
	PageSize       int `yaml:"page_size"`
	MaxConcurrency int `yaml:"max_concurrency"`

	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	MinRequestGap  time.Duration `yaml:"min_request_gap"`

	Marketplaces []Marketplace `yaml:"marketplaces"`
	CexAddresses []string      `yaml:"cex_addresses"`
	Bridges      []string      `yaml:"bridges"`
	OpenEditions []string      `yaml:"open_editions"` // marketplace names or token contracts
}

// Marketplace is one configured venue: its contract, the entrypoints that
// buy / list / accept offers, and its fee rate.
type Marketplace struct {
	Name              string   `yaml:"name"`
	Address           string   `yaml:"address"`
	BuyEntrypoints    []string `yaml:"buy_entrypoints"`
	ListEntrypoints   []string `yaml:"list_entrypoints"`
	AcceptEntrypoints []string `yaml:"accept_entrypoints"`
	FeeRate           float64  `yaml:"fee_rate"`
}

// Load reads the YAML config at path (optional) and applies env overrides
// and defaults. An empty path loads pure defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TZKT_URL"); v != "" {
		c.IndexerURL = v
	}
	if v := os.Getenv("TEZOS_DOMAINS_URL"); v != "" {
		c.DomainsURL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("OUT_DIR"); v != "" {
		c.OutDir = v
	}
}

func (c *Config) applyDefaults() {
	if c.IndexerURL == "" {
		c.IndexerURL = "https://api.tzkt.io"
	}
	if c.DomainsURL == "" {
		c.DomainsURL = "https://api.tezos.domains/graphql"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.OutDir == "" {
		c.OutDir = "out"
	}
	if c.APIPort == 0 {
		c.APIPort = 8080
	}
	if c.WindowDays == 0 {
		c.WindowDays = 30
	}
	if c.PageSize == 0 {
		c.PageSize = 1000
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 6
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 5
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = time.Second
	}
	if c.MinRequestGap == 0 {
		c.MinRequestGap = 100 * time.Millisecond
	}
	if len(c.Marketplaces) == 0 {
		c.Marketplaces = DefaultMarketplaces()
	}
	if len(c.CexAddresses) == 0 {
		c.CexAddresses = DefaultCexAddresses()
	}
	if len(c.Bridges) == 0 {
		c.Bridges = DefaultBridges()
	}
	if len(c.OpenEditions) == 0 {
		c.OpenEditions = DefaultOpenEditions()
	}
}

func (c *Config) validate() error {
	if c.PageSize < 1 || c.PageSize > 10000 {
		return fmt.Errorf("page_size out of range: %d", c.PageSize)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive: %d", c.MaxConcurrency)
	}
	seen := map[string]bool{}
	for _, m := range c.Marketplaces {
		if m.Name == "" || m.Address == "" {
			return fmt.Errorf("marketplace entry missing name or address")
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate marketplace name %q", m.Name)
		}
		seen[m.Name] = true
		if m.FeeRate < 0 || m.FeeRate >= 1 {
			return fmt.Errorf("marketplace %s: fee_rate out of range: %v", m.Name, m.FeeRate)
		}
	}
	return nil
}

// Window returns [now - WindowDays, now].
func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -c.WindowDays), now
}

// MarketplaceByAddress returns the marketplace configured at addr, if any.
func (c *Config) MarketplaceByAddress(addr string) (Marketplace, bool) {
	for _, m := range c.Marketplaces {
		if m.Address == addr {
			return m, true
		}
	}
	return Marketplace{}, false
}

// MarketplaceAddresses returns all configured marketplace contract addresses.
func (c *Config) MarketplaceAddresses() []string {
	out := make([]string, 0, len(c.Marketplaces))
	for _, m := range c.Marketplaces {
		out = append(out, m.Address)
	}
	return out
}

// FeeRate returns the configured fee rate for a marketplace name, 0 if unknown.
func (c *Config) FeeRate(name string) float64 {
	for _, m := range c.Marketplaces {
		if m.Name == name {
			return m.FeeRate
		}
	}
	return 0
}

// EntrypointSet collects one kind of entrypoint across all marketplaces.
type EntrypointKind int

const (
	BuyEntrypoints EntrypointKind = iota
	ListEntrypoints
	AcceptEntrypoints
)

// Entrypoints returns the union of one entrypoint kind across marketplaces.
func (c *Config) Entrypoints(kind EntrypointKind) []string {
	set := map[string]bool{}
	var out []string
	for _, m := range c.Marketplaces {
		var eps []string
		switch kind {
		case BuyEntrypoints:
			eps = m.BuyEntrypoints
		case ListEntrypoints:
			eps = m.ListEntrypoints
		case AcceptEntrypoints:
			eps = m.AcceptEntrypoints
		}
		for _, ep := range eps {
			if !set[ep] {
				set[ep] = true
				out = append(out, ep)
			}
		}
	}
	return out
}

// IsCex reports whether addr is a configured exchange address.
func (c *Config) IsCex(addr string) bool {
	for _, a := range c.CexAddresses {
		if a == addr {
			return true
		}
	}
	return false
}

// IsBridge reports whether addr is a configured L2 bridge contract.
func (c *Config) IsBridge(addr string) bool {
	for _, a := range c.Bridges {
		if a == addr {
			return true
		}
	}
	return false
}

// IsOpenEdition reports whether a marketplace name or token contract is in
// the open-edition set.
func (c *Config) IsOpenEdition(nameOrContract string) bool {
	for _, o := range c.OpenEditions {
		if o == nameOrContract {
			return true
		}
	}
	return false
}
