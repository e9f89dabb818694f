package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// WebpayTransaction is the redirect handle returned when a transaction is
// created: the browser is sent to URL with the token as form data.
type WebpayTransaction struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// WebpayResult is the committed transaction detail.
type WebpayResult struct {
	BuyOrder          string  `json:"buy_order"`
	SessionID         string  `json:"session_id"`
	Amount            float64 `json:"amount"`
	Status            string  `json:"status"` // AUTHORIZED, FAILED
	AuthorizationCode string  `json:"authorization_code"`
	ResponseCode      int     `json:"response_code"`
	TransactionDate   string  `json:"transaction_date"`
	CardDetail        struct {
		CardNumber string `json:"card_number"`
	} `json:"card_detail"`
}

// Authorized reports whether the gateway approved the payment.
func (r WebpayResult) Authorized() bool {
	return r.Status == "AUTHORIZED" && r.ResponseCode == 0
}

type WebpayClient struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	client    *http.Client
	backOff   func() backoff.BackOff
}

func NewWebpayClient(baseURL, keyID, keySecret string) *WebpayClient {
	return &WebpayClient{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		client:    &http.Client{},
		backOff:   func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Create opens a transaction and returns the token plus the hosted payment
// page to redirect the payer to.
func (c *WebpayClient) Create(ctx context.Context, buyOrder, sessionID string, amount float64, returnURL string) (WebpayTransaction, error) {
	payload := map[string]any{
		"buy_order":  buyOrder,
		"session_id": sessionID,
		"amount":     amount,
		"return_url": returnURL,
	}
	var out WebpayTransaction
	if err := c.call(ctx, http.MethodPost, "/transactions", payload, &out); err != nil {
		return WebpayTransaction{}, err
	}
	return out, nil
}

// Commit polls the transaction status after the payer returns from the
// hosted page. Right after the redirect the gateway briefly answers that
// the transaction is still locked by the payment flow (HTTP 409/422), so
// the call retries under exponential backoff until a final answer arrives.
func (c *WebpayClient) Commit(ctx context.Context, token string) (WebpayResult, error) {
	operation := func() (WebpayResult, error) {
		var out WebpayResult
		err := c.call(ctx, http.MethodPut, "/transactions/"+token, nil, &out)
		if err != nil {
			if retriableStatus(err) {
				return WebpayResult{}, err
			}
			return WebpayResult{}, backoff.Permanent(err)
		}
		return out, nil
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(6),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webpay API error: %d (%s)", e.Code, e.Body)
}

func retriableStatus(err error) bool {
	se, ok := err.(*statusError)
	return ok && (se.Code == http.StatusConflict || se.Code == http.StatusUnprocessableEntity || se.Code == http.StatusLocked)
}

func (c *WebpayClient) call(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Tbk-Api-Key-Id", c.KeyID)
	req.Header.Set("Tbk-Api-Key-Secret", c.KeySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &statusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
