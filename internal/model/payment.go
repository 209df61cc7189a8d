package model

import "time"

// Recharge intent statuses.
const (
	RechargeStatusPending   = "pending"
	RechargeStatusCompleted = "completed"
)

// PendingRecharge correlates a gateway payment session with the user who
// started it. Created when /recharge initializes a transaction, marked
// completed when the matching webhook arrives.
//
// Without this record the reconciler could only trust the payer email inside
// the notification. With it, a notification whose reference matches a known
// intent credits the intent's user, no matter what the email field says.
type PendingRecharge struct {
	Reference string    `json:"reference"` // gateway transaction reference
	UID       string    `json:"uid"`
	Amount    int64     `json:"amount"` // expected amount, subunits
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentEvent is the dedup record for one processed gateway event.
//
// The EventID column carries a UNIQUE constraint and the row is inserted in
// the same transaction as the balance credit, which is what makes the
// webhook safe under at-least-once delivery: a redelivered event conflicts
// on insert and the whole transaction rolls back, leaving the balance as it
// was after the first delivery.
type PaymentEvent struct {
	EventID     string    `json:"eventId"`
	UID         string    `json:"uid"`
	Amount      int64     `json:"amount"` // subunits
	ProcessedAt time.Time `json:"processedAt"`
}

// ReconcileFailure is a durable record of a payment notification that could
// not be applied (unknown payer, or the credit transaction kept failing).
// The webhook still acknowledges these — the gateway retrying would not help
// — but the row survives for manual reconciliation so the payment is not
// silently lost.
type ReconcileFailure struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"eventId"`
	Email     string    `json:"email"`
	Amount    int64     `json:"amount"` // subunits
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
