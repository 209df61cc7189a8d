package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/repository"
)

// ReconcileService turns a verified payment notification into at most one
// balance credit.
//
// By the time HandleEvent runs, the HTTP layer has already checked the
// webhook signature (gateway.ParseEvent refuses to parse without it). What
// remains is the reconciliation itself:
//
//	event type filter → dedup check → payer resolution → atomic credit
//
// The method returns an error only for payloads the gateway should NOT
// retry-ack normally (no usable event id). Every processing failure past
// that point is swallowed after writing a reconcile-failure record: the
// gateway redelivering an event that can never succeed locally would only
// produce a retry storm.
type ReconcileService struct {
	accounts repository.AccountRepository
	ledger   repository.LedgerRepository
	logger   *slog.Logger
}

func NewReconcileService(
	accounts repository.AccountRepository,
	ledger repository.LedgerRepository,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		accounts: accounts,
		ledger:   ledger,
		logger:   logger,
	}
}

// HandleEvent processes one webhook notification.
func (s *ReconcileService) HandleEvent(ctx context.Context, event *gateway.WebhookEvent) error {
	// Gateways emit many event types; only a successful charge moves money.
	if event.Event != gateway.EventChargeSuccess {
		s.logger.Debug("ignoring non-success webhook event",
			slog.String("event", event.Event))
		return nil
	}

	eventID := event.EventID()
	if eventID == "" {
		return apperror.ValidationFailed("reference", "success event has no transaction reference")
	}
	if event.Data.Amount <= 0 {
		return apperror.ValidationFailed("amount", "success event has no positive amount")
	}

	// Cheap dedup pre-check. Credit enforces the same uniqueness inside its
	// transaction, so a race between two deliveries here is still safe.
	processed, err := s.ledger.HasProcessed(ctx, eventID)
	if err != nil {
		s.logger.Error("dedup check failed", slog.String("eventID", eventID), slog.String("error", err.Error()))
	} else if processed {
		s.logger.Info("duplicate webhook delivery skipped", slog.String("eventID", eventID))
		return nil
	}

	uid, reference := s.resolvePayer(ctx, event, eventID)
	if uid == "" {
		// Unknown payer: acknowledged, but the payment is parked for a
		// human. Asking the gateway to retry cannot create the account.
		s.recordFailure(ctx, event, eventID, "no matching account for payer")
		return nil
	}

	applied, err := s.ledger.Credit(ctx, uid, event.Data.Amount, eventID, reference)
	if err != nil {
		s.recordFailure(ctx, event, eventID, "credit failed: "+err.Error())
		return nil
	}

	if !applied {
		s.logger.Info("duplicate webhook delivery skipped at credit",
			slog.String("eventID", eventID))
		return nil
	}

	s.logger.Info("balance credited",
		slog.String("uid", uid),
		slog.String("eventID", eventID),
		slog.Int64("amountSubunits", event.Data.Amount),
	)

	return nil
}

// resolvePayer picks the user to credit. A pending recharge intent matching
// the transaction reference wins — it was written by our own /recharge and
// doesn't depend on the notification's email field. Only when no intent
// exists does the payer email get resolved through the Account Directory.
func (s *ReconcileService) resolvePayer(ctx context.Context, event *gateway.WebhookEvent, eventID string) (uid, reference string) {
	intent, err := s.ledger.GetPendingRecharge(ctx, eventID)
	if err == nil {
		return intent.UID, intent.Reference
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		s.logger.Error("pending recharge lookup failed",
			slog.String("eventID", eventID), slog.String("error", err.Error()))
	}

	email := event.Data.Customer.Email
	if email == "" {
		return "", ""
	}
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("account lookup failed",
				slog.String("email", email), slog.String("error", err.Error()))
		}
		return "", ""
	}
	return account.ID, ""
}

func (s *ReconcileService) recordFailure(ctx context.Context, event *gateway.WebhookEvent, eventID, reason string) {
	failure := &model.ReconcileFailure{
		EventID: eventID,
		Email:   event.Data.Customer.Email,
		Amount:  event.Data.Amount,
		Reason:  reason,
	}
	if err := s.ledger.RecordFailure(ctx, failure); err != nil {
		// Last resort: the durable record could not be written, so the log
		// line is the only trace left of this payment.
		s.logger.Error("failed to record reconcile failure",
			slog.String("eventID", eventID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Warn("payment parked for manual reconciliation",
		slog.String("eventID", eventID),
		slog.String("email", failure.Email),
		slog.String("reason", reason),
	)
}
