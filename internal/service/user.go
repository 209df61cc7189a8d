// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate, enforce the
// business rules, and orchestrate the repositories; repositories talk to
// storage. Services receive repository interfaces, so tests inject in-memory
// mocks and the services never import the sqlite package.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/auth"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxActivityLength = 200
)

// UserService handles signup, signin, lookups, and the activity log.
//
// Signup spans two systems: the Account Directory (identity + credentials)
// and the Balance Ledger (the user record). There is no two-phase commit at
// this size — if the ledger insert fails after the directory insert
// succeeded, the directory record is orphaned and logged for cleanup.
type UserService struct {
	accounts  repository.AccountRepository
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	baseURL   string // referral links are derived from this
	logger    *slog.Logger
}

func NewUserService(
	accounts repository.AccountRepository,
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	baseURL string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		accounts:  accounts,
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// AuthResult bundles the user record with the issued session token.
type AuthResult struct {
	User  *model.User
	Token string
}

// Signup creates a directory account and a zero-balance ledger record.
//
// referredBy is stored as an opaque reference; if it names an existing user,
// that user's team counter is bumped, otherwise it is silently kept as-is.
func (s *UserService) Signup(ctx context.Context, email, password, referredBy string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	account := &model.Account{
		ID:           xid.New().String(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("service/user: creating account for %s: %w", email, err)
	}

	user := &model.User{
		UID:          account.ID,
		Email:        email,
		ReferralLink: fmt.Sprintf("%s/signup?ref=%s", s.baseURL, account.ID),
		ReferredBy:   strings.TrimSpace(referredBy),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The directory record now has no ledger record. Nothing references
		// it, so it is harmless until cleaned up — but it must be visible.
		s.logger.Error("ledger record creation failed, directory account orphaned",
			slog.String("accountID", account.ID),
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/user: creating ledger record for %s: %w", email, err)
	}

	if user.ReferredBy != "" {
		if err := s.users.IncrementTeamCount(ctx, user.ReferredBy); err != nil {
			// Best effort: the referral reference is opaque and unvalidated.
			s.logger.Warn("failed to bump referrer team count",
				slog.String("referredBy", user.ReferredBy),
				slog.String("error", err.Error()),
			)
		}
	}

	token, err := s.tokens.Generate(user.UID)
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for %s: %w", user.UID, err)
	}

	s.logger.Info("user signed up",
		slog.String("uid", user.UID),
		slog.String("email", email),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// Signin verifies credentials against the directory and returns the ledger
// record with a fresh session token. Wrong email and wrong password produce
// the same error so the endpoint doesn't confirm which emails exist.
func (s *UserService) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ValidationFailed("email", "invalid email or password")
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, apperror.ValidationFailed("password", "invalid email or password")
	}

	user, err := s.users.GetByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching ledger record for %s: %w", account.ID, err)
	}

	token, err := s.tokens.Generate(user.UID)
	if err != nil {
		return nil, fmt.Errorf("service/user: issuing token for %s: %w", user.UID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetByID returns the stored user record.
func (s *UserService) GetByID(ctx context.Context, uid string) (*model.User, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperror.ValidationFailed("uid", "user ID is required")
	}
	return s.users.GetByID(ctx, uid)
}

// LogActivity appends one labelled, timestamped entry to the user's daily
// activity log.
func (s *UserService) LogActivity(ctx context.Context, uid, activity string) (*model.Activity, error) {
	uid = strings.TrimSpace(uid)
	activity = strings.TrimSpace(activity)

	if uid == "" {
		return nil, apperror.ValidationFailed("uid", "user ID is required")
	}
	if activity == "" {
		return nil, apperror.ValidationFailed("activity", "activity label is required")
	}
	if len(activity) > MaxActivityLength {
		return nil, apperror.ValidationFailed("activity",
			fmt.Sprintf("activity label must be %d characters or less", MaxActivityLength))
	}

	entry, err := s.users.AppendActivity(ctx, uid, activity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("activity logged",
		slog.String("uid", uid),
		slog.String("activity", activity),
	)

	return entry, nil
}
