// Package gateway is the Payment Gateway adapter.
//
// Two one-way interactions live here:
//
//   - outbound: InitializeTransaction asks the gateway for a hosted payment
//     session and returns its redirect URL
//   - inbound: ParseEvent authenticates and decodes the asynchronous
//     notification the gateway sends when a session completes
//
// The inbound side is the trust boundary: the webhook endpoint is reachable
// by anyone on the internet, so nothing in a payload is believed until its
// HMAC signature has been checked against the shared secret.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
)

const defaultBaseURL = "https://api.paystack.co"

// Client talks to the payment gateway's REST API.
type Client struct {
	secret     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gateway client. baseURL may be empty to use the
// production API; tests point it at an httptest server.
func NewClient(secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		secret:  secret,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitializeTransaction creates a hosted payment session for the given payer
// email and amount (subunits) and returns the checkout redirect.
//
// The reference becomes the gateway's transaction reference and comes back
// in the confirmation webhook — it is how the reconciler correlates the
// notification with the pending recharge intent.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount int64, reference, callbackURL string) (*Checkout, error) {
	reqBody := initializeRequest{
		Email:       email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: callbackURL,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gateway: marshaling initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("gateway: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)
	// A fresh idempotency key per logical attempt — if the gateway receives
	// the same request twice it creates one session, not two.
	req.Header.Set("Idempotency-Key", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Upstream("payment gateway", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Upstream("payment gateway", fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, apperror.Upstream("payment gateway",
			fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}

	var initResp initializeResponse
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return nil, apperror.Upstream("payment gateway", fmt.Errorf("decoding response: %w", err))
	}
	if !initResp.Status || initResp.Data.AuthorizationURL == "" {
		return nil, apperror.Upstream("payment gateway",
			fmt.Errorf("initialization rejected: %s", initResp.Message))
	}

	return &Checkout{
		AuthorizationURL: initResp.Data.AuthorizationURL,
		Reference:        initResp.Data.Reference,
	}, nil
}

// ParseEvent verifies the webhook signature against the raw payload and only
// then decodes it. Callers never see an event whose signature did not check
// out — verification is not an optional step they could forget.
func (c *Client) ParseEvent(payload []byte, signature string) (*WebhookEvent, error) {
	if !ValidSignature(c.secret, payload, signature) {
		return nil, apperror.Unauthorized("invalid webhook signature")
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperror.ValidationFailed("payload", "malformed webhook payload")
	}
	if event.Event == "" {
		return nil, apperror.ValidationFailed("event", "webhook payload has no event type")
	}

	return &event, nil
}

func formatTransactionID(id int64) string {
	return strconv.FormatInt(id, 10)
}
