package domains

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Client is the Tezos Domains GraphQL identity adapter. It is best-effort
// by contract: every lookup failure degrades to "no answer" and is never
// retried within a run. A small fixed delay between calls keeps the
// GraphQL endpoint from throttling us.
type Client struct {
	url   string
	http  *http.Client
	delay time.Duration
}

// NewClient creates an adapter for the given GraphQL endpoint.
func NewClient(url string) *Client {
	return &Client{
		url:   url,
		http:  &http.Client{Timeout: 10 * time.Second},
		delay: 50 * time.Millisecond,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (c *Client) query(ctx context.Context, q string, vars map[string]any, out any) bool {
	time.Sleep(c.delay)

	body, err := json.Marshal(gqlRequest{Query: q, Variables: vars})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

const reverseRecordQuery = `query ($address: String!) {
	reverseRecord(address: $address) { domain { name } }
}`

// ReverseName returns the reverse-record domain for an address, or "" when
// none exists or the lookup failed.
func (c *Client) ReverseName(ctx context.Context, address string) string {
	var resp struct {
		Data struct {
			ReverseRecord *struct {
				Domain *struct {
					Name string `json:"name"`
				} `json:"domain"`
			} `json:"reverseRecord"`
		} `json:"data"`
	}
	if !c.query(ctx, reverseRecordQuery, map[string]any{"address": address}, &resp) {
		return ""
	}
	if resp.Data.ReverseRecord == nil || resp.Data.ReverseRecord.Domain == nil {
		return ""
	}
	return resp.Data.ReverseRecord.Domain.Name
}

const ownedDomainsQuery = `query ($owner: String!) {
	domains(where: { owner: { equalTo: $owner } }, first: 20) {
		items { name }
	}
}`

// OwnedNames returns up to 20 domains owned by the address; empty on any
// failure.
func (c *Client) OwnedNames(ctx context.Context, owner string) []string {
	var resp struct {
		Data struct {
			Domains struct {
				Items []struct {
					Name string `json:"name"`
				} `json:"items"`
			} `json:"domains"`
		} `json:"data"`
	}
	if !c.query(ctx, ownedDomainsQuery, map[string]any{"owner": owner}, &resp) {
		return nil
	}
	var out []string
	for _, it := range resp.Data.Domains.Items {
		if it.Name != "" {
			out = append(out, it.Name)
		}
	}
	return out
}
