package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/repository"
)

// PaymentInitiator is the outbound half of the gateway adapter, narrowed to
// what this service needs so tests can stub it.
type PaymentInitiator interface {
	InitializeTransaction(ctx context.Context, email string, amount int64, reference, callbackURL string) (*gateway.Checkout, error)
}

// RechargeService starts a balance top-up: it resolves the user's email in
// the Account Directory, records a pending recharge intent, and asks the
// gateway for a hosted checkout session.
//
// No retry logic on the outbound call — a failed initiation is reported to
// the caller, who simply retries the request. The pending intent left behind
// by a failed initiation is inert: no webhook will ever carry its reference.
type RechargeService struct {
	accounts    repository.AccountRepository
	ledger      repository.LedgerRepository
	initiator   PaymentInitiator
	callbackURL string
	logger      *slog.Logger
}

func NewRechargeService(
	accounts repository.AccountRepository,
	ledger repository.LedgerRepository,
	initiator PaymentInitiator,
	callbackURL string,
	logger *slog.Logger,
) *RechargeService {
	return &RechargeService{
		accounts:    accounts,
		ledger:      ledger,
		initiator:   initiator,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Initiate creates a payment session for amount main-currency units and
// returns the checkout redirect. The generated reference ties the eventual
// webhook confirmation back to this user.
func (s *RechargeService) Initiate(ctx context.Context, uid string, amount int64) (*gateway.Checkout, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperror.ValidationFailed("uid", "user ID is required")
	}
	if amount <= 0 {
		return nil, apperror.ValidationFailed("amount", "amount must be greater than zero")
	}

	account, err := s.accounts.GetAccountByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	subunits := amount * model.SubunitsPerUnit
	reference := "rc_" + xid.New().String()

	intent := &model.PendingRecharge{
		Reference: reference,
		UID:       uid,
		Amount:    subunits,
	}
	if err := s.ledger.CreatePendingRecharge(ctx, intent); err != nil {
		return nil, fmt.Errorf("service/recharge: recording intent %s: %w", reference, err)
	}

	checkout, err := s.initiator.InitializeTransaction(ctx, account.Email, subunits, reference, s.callbackURL)
	if err != nil {
		s.logger.Warn("payment initialization failed",
			slog.String("uid", uid),
			slog.String("reference", reference),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/recharge: initializing transaction: %w", err)
	}

	s.logger.Info("recharge initiated",
		slog.String("uid", uid),
		slog.String("reference", reference),
		slog.Int64("amountSubunits", subunits),
	)

	return checkout, nil
}
