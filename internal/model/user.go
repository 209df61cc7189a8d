// Package model defines the data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// SubunitsPerUnit is the conversion factor between the gateway's amounts
// (smallest currency unit, e.g. kobo) and the main display unit (e.g. naira).
//
// The ledger stores balances as int64 subunits so that money arithmetic is
// exact integer arithmetic. Floats only appear at the JSON boundary, where
// the API exposes the balance in the main unit.
const SubunitsPerUnit = 100

// User is the Balance Ledger record for one registered user.
//
// WHY Balance int64 (not float64)?
// Monetary amounts in floating point accumulate rounding error. The gateway
// reports amounts in subunits anyway, so the credit path is pure integer
// arithmetic — only MarshalJSON converts for display.
//
// Balance is only ever mutated by the webhook reconciler's credit
// transaction. Handlers never accept a client-supplied balance.
type User struct {
	UID             string     `json:"uid"`
	Email           string     `json:"email"`
	ReferralLink    string     `json:"referralLink"`
	ReferredBy      string     `json:"referredBy,omitempty"` // opaque reference, not validated
	Balance         int64      `json:"-"`                    // subunits; exposed in main units via MarshalJSON
	TeamCount       int        `json:"teamCount"`
	DailyActivities []Activity `json:"dailyActivities"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Activity is one append-only entry in a user's daily activity log.
type Activity struct {
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON renders the stored subunit balance in main currency units,
// matching the record layout the API promises (a webhook credit of 50000
// subunits shows up as balance 500).
func (u User) MarshalJSON() ([]byte, error) {
	type alias User // alias drops methods so Marshal doesn't recurse
	return json.Marshal(struct {
		alias
		Balance float64 `json:"balance"`
	}{
		alias:   alias(u),
		Balance: float64(u.Balance) / SubunitsPerUnit,
	})
}

// Account is an Account Directory entry — the identity-provider side of a
// user, holding credentials. It is deliberately separate from User: the
// directory answers "who is this email", the ledger holds the money.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
