package tzkt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(pageSize int) Options {
	return Options{
		PageSize:       pageSize,
		MinRequestGap:  time.Millisecond,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}
}

func txPage(ids ...int64) []Transaction {
	out := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, Transaction{
			ID:        id,
			Hash:      fmt.Sprintf("op%d", id),
			Timestamp: time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC),
			Sender:    &AccountRef{Address: "tz1aaa"},
			Target:    &AccountRef{Address: "KT1mkt"},
			Status:    "applied",
		})
	}
	return out
}

func TestTransactionsPagination(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "applied", q.Get("status"))
		assert.Equal(t, "id", q.Get("sort.asc"))
		offsets = append(offsets, q.Get("offset"))

		// Full page, then a short page that terminates the iterator.
		var page []Transaction
		if q.Get("offset") == "" {
			page = txPage(1, 2)
		} else {
			page = txPage(3)
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(2))
	var got []int64
	err := c.Transactions(context.Background(), TxQuery{}, func(page []Transaction) error {
		for _, tx := range page {
			got = append(got, tx.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)
	assert.Equal(t, []string{"", "2"}, offsets)
}

func TestTransactionsQueryParams(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(100))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := c.Transactions(context.Background(), TxQuery{
		Start:     start,
		End:       start.AddDate(0, 0, 7),
		Targets:   []string{"KT1a", "KT1b"},
		AfterID:   500,
		OnlyValue: true,
	}, func([]Transaction) error { return nil })
	require.NoError(t, err)

	assert.Contains(t, query, "target.in=KT1a%2CKT1b")
	assert.Contains(t, query, "id.gt=500")
	assert.Contains(t, query, "amount.gt=0")
	assert.Contains(t, query, "timestamp.ge=2026-01-01T00%3A00%3A00Z")
}

func TestRetryOnThrottleAndServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch calls {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("[]"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	err := c.Transactions(context.Background(), TxQuery{}, func([]Transaction) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustion(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	err := c.Transactions(context.Background(), TxQuery{}, func([]Transaction) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestTerminalClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	err := c.Transactions(context.Background(), TxQuery{}, func([]Transaction) error { return nil })
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx must not be retried")
}

func TestBalanceAt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/tz1aaa/balance_history", r.URL.Path)
		assert.Equal(t, "level", r.URL.Query().Get("sort.desc"))
		json.NewEncoder(w).Encode([]balanceRow{{Balance: 123456, Level: 900}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	bal, err := c.BalanceAt(context.Background(), "tz1aaa", time.Now())
	require.NoError(t, err)
	require.NotNil(t, bal)
	assert.Equal(t, int64(123456), *bal)
}

func TestBalanceAtNoHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	bal, err := c.BalanceAt(context.Background(), "tz1aaa", time.Now())
	require.NoError(t, err)
	assert.Nil(t, bal)
}

func TestTokenTransfersResumeCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fa2", q.Get("token.standard"))
		assert.Equal(t, strconv.Itoa(700), q.Get("id.gt"))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOptions(10))
	err := c.TokenTransfers(context.Background(), TransferQuery{AfterID: 700}, func([]TokenTransfer) error { return nil })
	require.NoError(t, err)
}

func TestTransactionToRaw(t *testing.T) {
	tx := Transaction{
		ID:        7,
		Hash:      "opx",
		Timestamp: time.Date(2026, 1, 10, 0, 0, 5, 0, time.UTC),
		Sender:    &AccountRef{Address: "tz1aaa"},
		Target:    &AccountRef{Address: "KT1mkt"},
		Amount:    5_000_000,
		Parameter: &Parameter{Entrypoint: "collect", Value: json.RawMessage(`{"objkt_id":"12"}`)},
		Status:    "applied",
	}
	raw := tx.ToRaw()
	assert.Equal(t, "tz1aaa", raw.Sender)
	assert.Equal(t, "KT1mkt", raw.Target)
	assert.Equal(t, "collect", raw.Entrypoint)
	assert.JSONEq(t, `{"objkt_id":"12"}`, string(raw.Parameters))

	// Nil sender and parameter stay empty, not panic.
	raw = Transaction{ID: 8, Hash: "opy", Timestamp: tx.Timestamp}.ToRaw()
	assert.Empty(t, raw.Sender)
	assert.Empty(t, raw.Entrypoint)
}
