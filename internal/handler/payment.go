package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
)

// RechargeInitiator starts a payment session for a user.
type RechargeInitiator interface {
	Initiate(ctx context.Context, uid string, amount int64) (*gateway.Checkout, error)
}

// EventParser authenticates and decodes a raw webhook delivery.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*gateway.WebhookEvent, error)
}

// EventReconciler applies a verified notification to the ledger.
type EventReconciler interface {
	HandleEvent(ctx context.Context, event *gateway.WebhookEvent) error
}

// maxWebhookBody caps how much of an untrusted webhook body is read.
const maxWebhookBody = 1 << 20 // 1 MiB

// PaymentHandler serves recharge initiation and the gateway webhook.
type PaymentHandler struct {
	recharges  RechargeInitiator
	parser     EventParser
	reconciler EventReconciler
	logger     *slog.Logger
}

func NewPaymentHandler(recharges RechargeInitiator, parser EventParser, reconciler EventReconciler, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		recharges:  recharges,
		parser:     parser,
		reconciler: reconciler,
		logger:     logger,
	}
}

type rechargeRequest struct {
	UID    string `json:"uid"`
	Amount int64  `json:"amount"` // main currency units
}

// HandleRecharge handles POST /recharge.
func (h *PaymentHandler) HandleRecharge(w http.ResponseWriter, r *http.Request) {
	var req rechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	checkout, err := h.recharges.Initiate(r.Context(), req.UID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkout)
}

// HandleWebhook handles POST /paystack/webhook.
//
// The body is read raw before anything else: the HMAC covers the exact bytes
// the gateway sent, and nothing in the payload is trusted until ParseEvent
// has checked the signature.
//
// Response policy (what the gateway's retry machinery sees):
//   - bad signature → 401, NOT acknowledged — forged requests are refused
//     and a genuinely misconfigured sender keeps retrying until fixed
//   - malformed payload → 400 — retrying identical bytes cannot help,
//     but accepting garbage as processed would be worse
//   - everything else → 200, even when reconciliation parked the payment
//     for manual review; redelivery of those cases is either harmless
//     (dedup) or useless (unknown payer)
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "unreadable request body"))
		return
	}

	event, err := h.parser.ParseEvent(payload, r.Header.Get(gateway.SignatureHeader))
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Warn("webhook signature verification failed",
				slog.String("remoteAddr", r.RemoteAddr))
		}
		writeError(w, err)
		return
	}

	if err := h.reconciler.HandleEvent(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
