package tzkt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Client is a polite reader for a TzKT-shaped indexer API: a global rate
// limiter enforces minimum spacing between requests, and 429/5xx responses
// are retried with exponential backoff. Any other non-2xx status is a
// terminal error.
type Client struct {
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	pageSize       int
	retryAttempts  int
	retryBaseDelay time.Duration
}

// Options tune the client; zero values get the documented defaults
// (100 ms spacing, page size 1000, 5 attempts, 1 s base delay).
type Options struct {
	PageSize       int
	MinRequestGap  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.PageSize == 0 {
		opts.PageSize = 1000
	}
	if opts.MinRequestGap == 0 {
		opts.MinRequestGap = 100 * time.Millisecond
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 5
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		http:           &http.Client{Timeout: opts.Timeout},
		limiter:        rate.NewLimiter(rate.Every(opts.MinRequestGap), 1),
		pageSize:       opts.PageSize,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
	}
}

// get fetches path with params and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			// Transport errors are retried like 5xx.
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("indexer returned %d for %s", resp.StatusCode, path)
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return fmt.Errorf("indexer returned %d for %s", resp.StatusCode, path)
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("indexer request failed after %d attempts: %w", c.retryAttempts, lastErr)
}

// TxQuery selects transactions for one iterator run. Zero fields are
// omitted from the request.
type TxQuery struct {
	Start       time.Time
	End         time.Time
	Targets     []string // target.in
	Sender      string
	Entrypoints []string // entrypoint.in
	AfterID     int64    // id.gt cursor, resume point
	OnlyValue   bool     // amount.gt=0
}

func (q TxQuery) params(limit, offset int) url.Values {
	p := url.Values{}
	p.Set("status", "applied")
	p.Set("sort.asc", "id")
	p.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		p.Set("offset", strconv.Itoa(offset))
	}
	if !q.Start.IsZero() {
		p.Set("timestamp.ge", q.Start.UTC().Format(time.RFC3339))
	}
	if !q.End.IsZero() {
		p.Set("timestamp.lt", q.End.UTC().Format(time.RFC3339))
	}
	if len(q.Targets) > 0 {
		p.Set("target.in", joinAddrs(q.Targets))
	}
	if q.Sender != "" {
		p.Set("sender", q.Sender)
	}
	if len(q.Entrypoints) > 0 {
		p.Set("entrypoint.in", joinAddrs(q.Entrypoints))
	}
	if q.AfterID > 0 {
		p.Set("id.gt", strconv.FormatInt(q.AfterID, 10))
	}
	if q.OnlyValue {
		p.Set("amount.gt", "0")
	}
	return p
}

func joinAddrs(as []string) string {
	out := ""
	for i, a := range as {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}

// Transactions streams pages of transactions matching q, ascending id.
// fn is called once per page; returning an error stops the iteration.
// Iteration ends when a page comes back short.
func (c *Client) Transactions(ctx context.Context, q TxQuery, fn func([]Transaction) error) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var page []Transaction
		if err := c.get(ctx, "/v1/operations/transactions", q.params(c.pageSize, offset), &page); err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < c.pageSize {
			return nil
		}
		offset += c.pageSize
	}
}

// TransferQuery selects FA2 token transfers for one iterator run.
type TransferQuery struct {
	Start   time.Time
	End     time.Time
	AfterID int64
}

// TokenTransfers streams pages of FA2 token transfers in the window,
// ascending id.
func (c *Client) TokenTransfers(ctx context.Context, q TransferQuery, fn func([]TokenTransfer) error) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := url.Values{}
		p.Set("token.standard", "fa2")
		p.Set("sort.asc", "id")
		p.Set("limit", strconv.Itoa(c.pageSize))
		if offset > 0 {
			p.Set("offset", strconv.Itoa(offset))
		}
		if !q.Start.IsZero() {
			p.Set("timestamp.ge", q.Start.UTC().Format(time.RFC3339))
		}
		if !q.End.IsZero() {
			p.Set("timestamp.lt", q.End.UTC().Format(time.RFC3339))
		}
		if q.AfterID > 0 {
			p.Set("id.gt", strconv.FormatInt(q.AfterID, 10))
		}

		var page []TokenTransfer
		if err := c.get(ctx, "/v1/tokens/transfers", p, &page); err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
		}
		if len(page) < c.pageSize {
			return nil
		}
		offset += c.pageSize
	}
}

// BalanceAt returns the balance of address at or before ts, or nil when the
// account has no history that old.
func (c *Client) BalanceAt(ctx context.Context, address string, ts time.Time) (*int64, error) {
	p := url.Values{}
	p.Set("timestamp.le", ts.UTC().Format(time.RFC3339))
	p.Set("sort.desc", "level")
	p.Set("limit", "1")

	var rows []balanceRow
	if err := c.get(ctx, "/v1/accounts/"+address+"/balance_history", p, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	b := rows[0].Balance
	return &b, nil
}

// Contract returns contract-level metadata for the classifier, or nil when
// the indexer does not know the address.
func (c *Client) Contract(ctx context.Context, address string) (*Contract, error) {
	var out Contract
	err := c.get(ctx, "/v1/contracts/"+address, nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Address == "" {
		return nil, nil
	}
	return &out, nil
}

// Token returns token-level metadata for (contract, tokenID), or nil when
// the token does not exist.
func (c *Client) Token(ctx context.Context, contract, tokenID string) (*Token, error) {
	p := url.Values{}
	p.Set("contract", contract)
	p.Set("tokenId", tokenID)
	p.Set("limit", "1")

	var rows []Token
	if err := c.get(ctx, "/v1/tokens", p, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Account returns basic account info (alias, kind), or nil when unknown.
func (c *Client) Account(ctx context.Context, address string) (*Account, error) {
	var out Account
	if err := c.get(ctx, "/v1/accounts/"+address, nil, &out); err != nil {
		return nil, err
	}
	if out.Address == "" {
		return nil, nil
	}
	return &out, nil
}
