// Package payments holds the HTTP clients for the two payment gateways the
// checkout flow delegates to: MercadoPago (hosted wallet widget keyed by a
// preference id) and Webpay (redirect to a hosted payment page, then a
// status poll with the transaction token).
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PreferenceItem is one line of a MercadoPago preference.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// PreferenceBackURLs tells the gateway where to send the payer afterwards.
type PreferenceBackURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem   `json:"items"`
	ExternalReference string             `json:"external_reference,omitempty"`
	PayerEmail        string             `json:"payer_email,omitempty"`
	BackURLs          PreferenceBackURLs `json:"back_urls,omitempty"`
}

// Preference is the gateway's handle for the hosted checkout widget.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type MercadoPagoClient struct {
	BaseURL     string
	AccessToken string
	client      *http.Client
}

func NewMercadoPagoClient(baseURL, accessToken string) *MercadoPagoClient {
	return &MercadoPagoClient{
		BaseURL:     baseURL,
		AccessToken: accessToken,
		client:      &http.Client{},
	}
}

// CreatePreference registers a checkout preference for one contribution.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, pref PreferenceRequest) (Preference, error) {
	body, err := json.Marshal(pref)
	if err != nil {
		return Preference{}, fmt.Errorf("failed to marshal preference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return Preference{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return Preference{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Preference{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Preference{}, fmt.Errorf("mercadopago API error: %d (%s)", resp.StatusCode, respBody)
	}

	var out Preference
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Preference{}, fmt.Errorf("failed to unmarshal preference: %w", err)
	}
	return out, nil
}
