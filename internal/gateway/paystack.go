package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaystackClient talks to the Paystack transaction API
type PaystackClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	httpClient  *http.Client
}

// NewPaystackClient creates a client for the hosted-payment API
func NewPaystackClient(baseURL, secretKey, callbackURL string) *PaystackClient {
	return &PaystackClient{
		baseURL:     baseURL,
		secretKey:   secretKey,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// TxMetadata round-trips through the provider and comes back on the
// webhook; it is the join key for reconciliation.
type TxMetadata struct {
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	OrderNumber string `json:"orderNumber"`
}

// InitializeRequest describes one hosted-transaction attempt.
// Amount is in the provider's minor currency unit.
type InitializeRequest struct {
	Amount    int64      `json:"amount"`
	Email     string     `json:"email"`
	Reference string     `json:"reference"`
	Currency  string     `json:"currency"`
	Metadata  TxMetadata `json:"metadata"`
	Callback  string     `json:"callback_url,omitempty"`
}

// InitializeResult carries the hosted-payment page for the buyer
type InitializeResult struct {
	AuthorizationURL string
	Reference        string
}

type initializeResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction opens a hosted payment transaction
func (c *PaystackClient) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if req.Callback == "" {
		req.Callback = c.callbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build initialize request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment provider: %w", err)
	}
	defer resp.Body.Close()

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("provider rejected initialization: status=%d", resp.StatusCode)
	}

	return &InitializeResult{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		Reference:        parsed.Data.Reference,
	}, nil
}

// VerifySignature checks the webhook signature: an HMAC-SHA512 over the
// exact raw request body, hex encoded. Comparison is constant time.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignBody computes the webhook signature for a payload. Test helper
// and provider-simulation counterpart of VerifySignature.
func SignBody(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
