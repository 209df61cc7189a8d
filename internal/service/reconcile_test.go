package service

import (
	"context"
	"errors"
	"testing"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
)

func newTestReconcileService(t *testing.T) (*ReconcileService, *mockAccountRepo, *mockLedgerRepo) {
	t.Helper()
	accounts := newMockAccountRepo()
	ledger := newMockLedgerRepo()
	svc := NewReconcileService(accounts, ledger, testLogger())
	return svc, accounts, ledger
}

func chargeSuccess(reference, email string, amount int64) *gateway.WebhookEvent {
	e := &gateway.WebhookEvent{Event: gateway.EventChargeSuccess}
	e.Data.Reference = reference
	e.Data.Amount = amount
	e.Data.Customer.Email = email
	return e
}

func TestHandleEvent_CreditsKnownPayer(t *testing.T) {
	svc, accounts, ledger := newTestReconcileService(t)
	seedAccount(t, accounts, "u1", "a@x.com")

	err := svc.HandleEvent(context.Background(), chargeSuccess("evt_1", "a@x.com", 50000))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if ledger.balances["u1"] != 50000 {
		t.Errorf("balance = %d, want 50000", ledger.balances["u1"])
	}
	if !ledger.processed["evt_1"] {
		t.Error("event was not marked processed")
	}
}

func TestHandleEvent_PrefersPendingIntentOverEmail(t *testing.T) {
	svc, accounts, ledger := newTestReconcileService(t)
	// The intent says the payer is u1; the email in the payload points at a
	// different existing account. The intent must win.
	seedAccount(t, accounts, "u2", "other@x.com")
	ledger.CreatePendingRecharge(context.Background(),
		&model.PendingRecharge{Reference: "rc_1", UID: "u1", Amount: 50000})

	err := svc.HandleEvent(context.Background(), chargeSuccess("rc_1", "other@x.com", 50000))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if ledger.balances["u1"] != 50000 {
		t.Errorf("intent owner balance = %d, want 50000", ledger.balances["u1"])
	}
	if ledger.balances["u2"] != 0 {
		t.Errorf("email-matched account balance = %d, want 0", ledger.balances["u2"])
	}
	intent, _ := ledger.GetPendingRecharge(context.Background(), "rc_1")
	if intent.Status != model.RechargeStatusCompleted {
		t.Errorf("intent Status = %q, want completed", intent.Status)
	}
}

func TestHandleEvent_NonSuccessEventIsIgnored(t *testing.T) {
	svc, accounts, ledger := newTestReconcileService(t)
	seedAccount(t, accounts, "u1", "a@x.com")

	event := chargeSuccess("evt_1", "a@x.com", 50000)
	event.Event = "charge.failed"

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil ack", err)
	}

	if ledger.balances["u1"] != 0 {
		t.Errorf("balance = %d after charge.failed, want 0", ledger.balances["u1"])
	}
	if ledger.processed["evt_1"] {
		t.Error("non-success event must not be marked processed")
	}
}

func TestHandleEvent_DuplicateDeliverySkipped(t *testing.T) {
	svc, accounts, ledger := newTestReconcileService(t)
	seedAccount(t, accounts, "u1", "a@x.com")
	ctx := context.Background()

	event := chargeSuccess("evt_1", "a@x.com", 50000)
	if err := svc.HandleEvent(ctx, event); err != nil {
		t.Fatalf("first HandleEvent() error = %v", err)
	}
	if err := svc.HandleEvent(ctx, event); err != nil {
		t.Fatalf("second HandleEvent() error = %v", err)
	}

	if ledger.balances["u1"] != 50000 {
		t.Errorf("balance after redelivery = %d, want 50000 (credited once)", ledger.balances["u1"])
	}
}

func TestHandleEvent_UnknownPayerAckedAndParked(t *testing.T) {
	svc, _, ledger := newTestReconcileService(t)

	err := svc.HandleEvent(context.Background(), chargeSuccess("evt_1", "ghost@x.com", 50000))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil ack", err)
	}

	if len(ledger.failures) != 1 {
		t.Fatalf("len(failures) = %d, want 1", len(ledger.failures))
	}
	failure := ledger.failures[0]
	if failure.EventID != "evt_1" || failure.Email != "ghost@x.com" || failure.Amount != 50000 {
		t.Errorf("failure record = %+v, want event/email/amount preserved", failure)
	}
	if ledger.processed["evt_1"] {
		t.Error("unapplied event must not be marked processed")
	}
}

func TestHandleEvent_CreditErrorAckedAndParked(t *testing.T) {
	svc, accounts, ledger := newTestReconcileService(t)
	seedAccount(t, accounts, "u1", "a@x.com")
	ledger.creditErr = errors.New("credit for u1 contended after 3 attempts")

	err := svc.HandleEvent(context.Background(), chargeSuccess("evt_1", "a@x.com", 50000))
	if err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil ack", err)
	}

	if len(ledger.failures) != 1 {
		t.Fatalf("len(failures) = %d, want 1 — the payment must not vanish", len(ledger.failures))
	}
}

func TestHandleEvent_MissingReferenceRejected(t *testing.T) {
	svc, _, _ := newTestReconcileService(t)

	event := &gateway.WebhookEvent{Event: gateway.EventChargeSuccess}
	event.Data.Amount = 50000

	err := svc.HandleEvent(context.Background(), event)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("HandleEvent() error = %v, want ErrValidation", err)
	}
}

func TestHandleEvent_NonPositiveAmountRejected(t *testing.T) {
	svc, _, _ := newTestReconcileService(t)

	err := svc.HandleEvent(context.Background(), chargeSuccess("evt_1", "a@x.com", 0))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("HandleEvent() error = %v, want ErrValidation", err)
	}
}
