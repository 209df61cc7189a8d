package gateway

// EventChargeSuccess is the only event type that triggers a balance credit.
// The gateway sends many other event types; everything else is acknowledged
// and ignored.
const EventChargeSuccess = "charge.success"

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // subunits
	Reference   string `json:"reference,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Checkout is the result of initializing a payment session: where to send
// the payer, and the reference the confirmation webhook will carry back.
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

// WebhookEvent is a verified, parsed payment notification.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	Reference     string          `json:"reference"`
	TransactionID int64           `json:"id"`
	Amount        int64           `json:"amount"` // subunits
	Customer      WebhookCustomer `json:"customer"`
}

type WebhookCustomer struct {
	Email string `json:"email"`
}

// EventID returns the gateway's unique identifier for this event — the
// dedup key. The transaction reference is preferred; old-style payloads
// that only carry a numeric transaction id fall back to that.
func (e *WebhookEvent) EventID() string {
	if e.Data.Reference != "" {
		return e.Data.Reference
	}
	if e.Data.TransactionID != 0 {
		return formatTransactionID(e.Data.TransactionID)
	}
	return ""
}
