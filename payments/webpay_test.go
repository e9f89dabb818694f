package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastWebpayClient(baseURL string) *WebpayClient {
	c := NewWebpayClient(baseURL, "key-id", "key-secret")
	c.backOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Millisecond
		return b
	}
	return c
}

func TestWebpayCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, "key-id", r.Header.Get("Tbk-Api-Key-Id"))
		assert.Equal(t, "key-secret", r.Header.Get("Tbk-Api-Key-Secret"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "order-1", body["buy_order"])
		assert.Equal(t, float64(5000), body["amount"])

		json.NewEncoder(w).Encode(WebpayTransaction{Token: "tok-abc", URL: "https://pay.example/init"})
	}))
	defer srv.Close()

	tx, err := fastWebpayClient(srv.URL).Create(context.Background(), "order-1", "session-1", 5000, "https://back.example/return")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tx.Token)
	assert.Equal(t, "https://pay.example/init", tx.URL)
}

func TestWebpayCommitRetriesWhileLocked(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/transactions/tok-abc", r.URL.Path)

		// the gateway answers locked right after the redirect
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusLocked)
		case 2:
			w.WriteHeader(http.StatusConflict)
		default:
			json.NewEncoder(w).Encode(WebpayResult{
				BuyOrder:          "order-1",
				Status:            "AUTHORIZED",
				AuthorizationCode: "1213",
				ResponseCode:      0,
			})
		}
	}))
	defer srv.Close()

	result, err := fastWebpayClient(srv.URL).Commit(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, result.Authorized())
	assert.Equal(t, "order-1", result.BuyOrder)
}

func TestWebpayCommitDoesNotRetryFatalErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fastWebpayClient(srv.URL).Commit(context.Background(), "tok-abc")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "auth failures are permanent")
}

func TestWebpayResultAuthorized(t *testing.T) {
	assert.True(t, WebpayResult{Status: "AUTHORIZED", ResponseCode: 0}.Authorized())
	assert.False(t, WebpayResult{Status: "AUTHORIZED", ResponseCode: -1}.Authorized())
	assert.False(t, WebpayResult{Status: "FAILED", ResponseCode: 0}.Authorized())
}
