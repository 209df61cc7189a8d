// Package repository defines the storage contracts the services depend on.
//
// Services receive these interfaces, never a concrete *sqlite.DB — tests
// inject in-memory mocks, and the storage backend can change without
// touching business logic.
package repository

import (
	"context"

	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
)

// AccountRepository is the Account Directory: identity records with
// credentials, keyed by an opaque id with a unique email.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
}

// UserRepository is the Balance Ledger's user-record side: one record per
// user holding balance, referral data, and the activity log.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, uid string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// AppendActivity adds exactly one entry to the user's activity log and
	// returns it. Existing entries are never rewritten.
	AppendActivity(ctx context.Context, uid, activity string) (*model.Activity, error)
	// IncrementTeamCount bumps the referrer's team counter. A missing uid is
	// not an error — referredBy is an unvalidated opaque reference.
	IncrementTeamCount(ctx context.Context, uid string) error
}

// LedgerRepository is the reconciliation side of the Balance Ledger: pending
// recharge intents, the processed-event dedup set, and the atomic credit.
type LedgerRepository interface {
	CreatePendingRecharge(ctx context.Context, intent *model.PendingRecharge) error
	GetPendingRecharge(ctx context.Context, reference string) (*model.PendingRecharge, error)

	// HasProcessed reports whether the gateway event id is already in the
	// dedup set. A cheap pre-check; Credit re-enforces uniqueness atomically.
	HasProcessed(ctx context.Context, eventID string) (bool, error)

	// Credit applies amount (subunits) to the user's balance, records the
	// event id in the dedup set, and marks the matching pending recharge
	// completed — all in one transaction. Returns applied=false without
	// error when the event id was already processed (idempotent redelivery).
	Credit(ctx context.Context, uid string, amount int64, eventID, reference string) (applied bool, err error)

	// RecordFailure persists a manual-reconciliation record for a payment
	// that could not be applied.
	RecordFailure(ctx context.Context, failure *model.ReconcileFailure) error
}
