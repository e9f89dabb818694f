package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req PreferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.Equal(t, "water wells", req.Items[0].Title)
		assert.Equal(t, "order-1", req.ExternalReference)

		json.NewEncoder(w).Encode(Preference{ID: "pref-1", InitPoint: "https://mp.example/init"})
	}))
	defer srv.Close()

	client := NewMercadoPagoClient(srv.URL, "test-token")
	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		Items: []PreferenceItem{{
			Title: "water wells", Quantity: 1, UnitPrice: 5000, CurrencyID: "CLP",
		}},
		ExternalReference: "order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp.example/init", pref.InitPoint)
}

func TestCreatePreferenceGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid access token"}`))
	}))
	defer srv.Close()

	client := NewMercadoPagoClient(srv.URL, "bad-token")
	_, err := client.CreatePreference(context.Background(), PreferenceRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
