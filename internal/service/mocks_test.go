package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/auth"
	"github.com/TreasureWejeyan/My-backendNo1/internal/gateway"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
)

// Hand-written in-memory mocks for the repository interfaces. They store
// data in maps and let individual tests force errors — no database needed
// to exercise the business rules.

type mockAccountRepo struct {
	byEmail map[string]*model.Account
	byID    map[string]*model.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		byEmail: make(map[string]*model.Account),
		byID:    make(map[string]*model.Account),
	}
}

func (m *mockAccountRepo) CreateAccount(_ context.Context, account *model.Account) error {
	if _, ok := m.byEmail[account.Email]; ok {
		return apperror.Conflict("account", account.Email)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	stored := *account
	m.byEmail[account.Email] = &stored
	m.byID[account.ID] = &stored
	return nil
}

func (m *mockAccountRepo) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	account, ok := m.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("account", email)
	}
	result := *account
	return &result, nil
}

func (m *mockAccountRepo) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	account, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	result := *account
	return &result, nil
}

type mockUserRepo struct {
	users     map[string]*model.User
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	stored := *user
	m.users[user.UID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, uid string) (*model.User, error) {
	user, ok := m.users[uid]
	if !ok {
		return nil, apperror.NotFound("user", uid)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			result := *user
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) AppendActivity(_ context.Context, uid, activity string) (*model.Activity, error) {
	user, ok := m.users[uid]
	if !ok {
		return nil, apperror.NotFound("user", uid)
	}
	entry := model.Activity{Activity: activity, Timestamp: time.Now()}
	user.DailyActivities = append(user.DailyActivities, entry)
	return &entry, nil
}

func (m *mockUserRepo) IncrementTeamCount(_ context.Context, uid string) error {
	if user, ok := m.users[uid]; ok {
		user.TeamCount++
	}
	return nil
}

type mockLedgerRepo struct {
	intents   map[string]*model.PendingRecharge
	processed map[string]bool
	balances  map[string]int64
	failures  []*model.ReconcileFailure
	creditErr error
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{
		intents:   make(map[string]*model.PendingRecharge),
		processed: make(map[string]bool),
		balances:  make(map[string]int64),
	}
}

func (m *mockLedgerRepo) CreatePendingRecharge(_ context.Context, intent *model.PendingRecharge) error {
	if _, ok := m.intents[intent.Reference]; ok {
		return apperror.Conflict("pending recharge", intent.Reference)
	}
	if intent.Status == "" {
		intent.Status = model.RechargeStatusPending
	}
	stored := *intent
	m.intents[intent.Reference] = &stored
	return nil
}

func (m *mockLedgerRepo) GetPendingRecharge(_ context.Context, reference string) (*model.PendingRecharge, error) {
	intent, ok := m.intents[reference]
	if !ok {
		return nil, apperror.NotFound("pending recharge", reference)
	}
	result := *intent
	return &result, nil
}

func (m *mockLedgerRepo) HasProcessed(_ context.Context, eventID string) (bool, error) {
	return m.processed[eventID], nil
}

func (m *mockLedgerRepo) Credit(_ context.Context, uid string, amount int64, eventID, reference string) (bool, error) {
	if m.creditErr != nil {
		return false, m.creditErr
	}
	if m.processed[eventID] {
		return false, nil
	}
	m.processed[eventID] = true
	m.balances[uid] += amount
	if intent, ok := m.intents[reference]; ok {
		intent.Status = model.RechargeStatusCompleted
	}
	return true, nil
}

func (m *mockLedgerRepo) RecordFailure(_ context.Context, failure *model.ReconcileFailure) error {
	stored := *failure
	m.failures = append(m.failures, &stored)
	return nil
}

// mockInitiator stubs the gateway's outbound call.
type mockInitiator struct {
	capturedEmail  string
	capturedAmount int64
	capturedRef    string
	returnErr      error
}

func (m *mockInitiator) InitializeTransaction(_ context.Context, email string, amount int64, reference, _ string) (*gateway.Checkout, error) {
	m.capturedEmail = email
	m.capturedAmount = amount
	m.capturedRef = reference
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &gateway.Checkout{
		AuthorizationURL: fmt.Sprintf("https://checkout.example.com/%s", reference),
		Reference:        reference,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}
