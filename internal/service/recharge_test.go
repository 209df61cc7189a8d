package service

import (
	"context"
	"errors"
	"testing"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
)

func newTestRechargeService(t *testing.T) (*RechargeService, *mockAccountRepo, *mockLedgerRepo, *mockInitiator) {
	t.Helper()
	accounts := newMockAccountRepo()
	ledger := newMockLedgerRepo()
	initiator := &mockInitiator{}
	svc := NewRechargeService(accounts, ledger, initiator, "http://localhost:8080/callback", testLogger())
	return svc, accounts, ledger, initiator
}

func seedAccount(t *testing.T, accounts *mockAccountRepo, id, email string) {
	t.Helper()
	if err := accounts.CreateAccount(context.Background(), &model.Account{ID: id, Email: email, PasswordHash: "x"}); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
}

func TestInitiate_Success(t *testing.T) {
	svc, accounts, ledger, initiator := newTestRechargeService(t)
	seedAccount(t, accounts, "u1", "a@x.com")

	checkout, err := svc.Initiate(context.Background(), "u1", 500)
	if err != nil {
		t.Fatalf("Initiate() error = %v", err)
	}

	if checkout.AuthorizationURL == "" {
		t.Error("Initiate() returned empty authorization URL")
	}
	if initiator.capturedEmail != "a@x.com" {
		t.Errorf("gateway email = %q, want %q", initiator.capturedEmail, "a@x.com")
	}
	// 500 main units → 50000 subunits on the wire.
	if initiator.capturedAmount != 50000 {
		t.Errorf("gateway amount = %d subunits, want 50000", initiator.capturedAmount)
	}

	// A pending intent must exist for the reference sent to the gateway.
	intent, err := ledger.GetPendingRecharge(context.Background(), initiator.capturedRef)
	if err != nil {
		t.Fatalf("pending intent missing: %v", err)
	}
	if intent.UID != "u1" {
		t.Errorf("intent UID = %q, want %q", intent.UID, "u1")
	}
	if intent.Amount != 50000 {
		t.Errorf("intent Amount = %d, want 50000", intent.Amount)
	}
	if intent.Status != model.RechargeStatusPending {
		t.Errorf("intent Status = %q, want pending", intent.Status)
	}
}

func TestInitiate_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTestRechargeService(t)

	_, err := svc.Initiate(context.Background(), "ghost", 500)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Initiate() error = %v, want ErrNotFound", err)
	}
}

func TestInitiate_InvalidAmount(t *testing.T) {
	svc, accounts, _, _ := newTestRechargeService(t)
	seedAccount(t, accounts, "u1", "a@x.com")

	for _, amount := range []int64{0, -50} {
		_, err := svc.Initiate(context.Background(), "u1", amount)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Initiate(amount=%d) error = %v, want ErrValidation", amount, err)
		}
	}
}

func TestInitiate_GatewayFailurePropagates(t *testing.T) {
	svc, accounts, _, initiator := newTestRechargeService(t)
	seedAccount(t, accounts, "u1", "a@x.com")
	initiator.returnErr = apperror.Upstream("payment gateway", errors.New("timeout"))

	_, err := svc.Initiate(context.Background(), "u1", 500)
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Errorf("Initiate() error = %v, want ErrUpstream", err)
	}
}
