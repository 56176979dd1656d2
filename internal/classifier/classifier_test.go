package classifier

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/store"
	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/tzkt"
)

// fakeFetcher serves canned contract and token rows and counts every call.
type fakeFetcher struct {
	contracts     map[string]*tzkt.Contract
	tokens        map[string]*tzkt.Token
	contractCalls int
	tokenCalls    int
}

func (f *fakeFetcher) Contract(_ context.Context, address string) (*tzkt.Contract, error) {
	f.contractCalls++
	return f.contracts[address], nil
}

func (f *fakeFetcher) Token(_ context.Context, contract, tokenID string) (*tzkt.Token, error) {
	f.tokenCalls++
	return f.tokens[contract+"/"+tokenID], nil
}

func fa2Contract(addr string) *tzkt.Contract {
	return &tzkt.Contract{Address: addr, Tzips: []string{"fa2"}}
}

func newTestClassifier(t *testing.T) (*Classifier, *fakeFetcher, *store.Store) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	f := &fakeFetcher{
		contracts: map[string]*tzkt.Contract{},
		tokens:    map[string]*tzkt.Token{},
	}
	return New(f, st), f, st
}

func TestKnownSetsShortCircuit(t *testing.T) {
	c, f, _ := newTestClassifier(t)
	ctx := context.Background()

	fungible, err := c.IsFungible(ctx, "KT1K9gCRgaLRFKTErYt1wVxA3Frb9FjasjTV") // kUSD
	require.NoError(t, err)
	assert.True(t, fungible)

	fungible, err = c.IsFungible(ctx, "KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton") // hicetnunc
	require.NoError(t, err)
	assert.False(t, fungible)

	assert.Zero(t, f.contractCalls)
	assert.Zero(t, f.tokenCalls)
}

func TestResolveHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		contract *tzkt.Contract
		token    *tzkt.Token
		fungible bool
	}{
		{
			name:     "fa12 standard",
			contract: &tzkt.Contract{Address: "KT1x", Tzips: []string{"fa12"}},
			fungible: true,
		},
		{
			name:     "positive decimals",
			contract: fa2Contract("KT1x"),
			token:    &tzkt.Token{TokenID: "0", TotalSupply: "1000", Metadata: json.RawMessage(`{"decimals":"6"}`)},
			fungible: true,
		},
		{
			name:     "artifact uri",
			contract: fa2Contract("KT1x"),
			token:    &tzkt.Token{TokenID: "0", TotalSupply: "1", Metadata: json.RawMessage(`{"decimals":"0","artifactUri":"ipfs://Qm"}`)},
			fungible: false,
		},
		{
			name:     "huge supply",
			contract: fa2Contract("KT1x"),
			token:    &tzkt.Token{TokenID: "0", TotalSupply: "2000000000"},
			fungible: true,
		},
		{
			name:     "no token zero",
			contract: fa2Contract("KT1x"),
			token:    nil,
			fungible: false,
		},
		{
			name:     "ambiguous metadata",
			contract: fa2Contract("KT1x"),
			token:    &tzkt.Token{TokenID: "0", TotalSupply: "100", Metadata: json.RawMessage(`{"name":"thing"}`)},
			fungible: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, f, _ := newTestClassifier(t)
			f.contracts["KT1x"] = tc.contract
			if tc.token != nil {
				f.tokens["KT1x/0"] = tc.token
			}

			fungible, err := c.IsFungible(context.Background(), "KT1x")
			require.NoError(t, err)
			assert.Equal(t, tc.fungible, fungible)
		})
	}
}

func TestLRUAvoidsRefetch(t *testing.T) {
	c, f, _ := newTestClassifier(t)
	ctx := context.Background()
	f.contracts["KT1x"] = fa2Contract("KT1x")

	_, err := c.IsFungible(ctx, "KT1x")
	require.NoError(t, err)
	assert.Equal(t, 1, f.contractCalls)

	_, err = c.IsFungible(ctx, "KT1x")
	require.NoError(t, err)
	assert.Equal(t, 1, f.contractCalls, "second lookup must hit the LRU")
}

func TestStoreCacheSurvivesRestart(t *testing.T) {
	c, f, st := newTestClassifier(t)
	ctx := context.Background()
	f.contracts["KT1x"] = &tzkt.Contract{Address: "KT1x", Alias: "Token X", Tzips: []string{"fa12"}}

	fungible, err := c.IsFungible(ctx, "KT1x")
	require.NoError(t, err)
	assert.True(t, fungible)
	require.NoError(t, c.Flush(ctx))

	meta, err := st.ContractMetadata(ctx, "KT1x")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.True(t, meta.IsFungible)
	assert.Equal(t, "fa1.2", meta.TokenType)
	assert.Equal(t, "Token X", meta.Alias)

	// A fresh classifier over the same store resolves from the persisted
	// cache without fetching.
	f2 := &fakeFetcher{contracts: map[string]*tzkt.Contract{}, tokens: map[string]*tzkt.Token{}}
	c2 := New(f2, st)
	fungible, err = c2.IsFungible(ctx, "KT1x")
	require.NoError(t, err)
	assert.True(t, fungible)
	assert.Zero(t, f2.contractCalls)
}

func TestUnresolvableNotCached(t *testing.T) {
	c, f, st := newTestClassifier(t)
	ctx := context.Background()
	// No contract row and no token row: the fetcher returns nil for both,
	// which resolves to an unknown non-fungible and is cached.
	fungible, err := c.IsFungible(ctx, "KT1gone")
	require.NoError(t, err)
	assert.False(t, fungible)
	require.NoError(t, c.Flush(ctx))

	meta, err := st.ContractMetadata(ctx, "KT1gone")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "unknown", meta.TokenType)
	assert.Equal(t, 1, f.contractCalls)
}

func TestAutoFlushAfterBatch(t *testing.T) {
	c, f, st := newTestClassifier(t)
	ctx := context.Background()

	for i := 0; i < flushEvery; i++ {
		addr := "KT1batch" + string(rune('a'+i))
		f.contracts[addr] = fa2Contract(addr)
		_, err := c.IsFungible(ctx, addr)
		require.NoError(t, err)
	}

	// The batch threshold flushed without an explicit Flush call.
	metas, err := st.ListContractMetadata(ctx)
	require.NoError(t, err)
	assert.Len(t, metas, flushEvery)
}
