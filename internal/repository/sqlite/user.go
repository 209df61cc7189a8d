package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/repository"
)

// compile-time checks that *DB implements the repository contracts
var (
	_ repository.UserRepository    = (*DB)(nil)
	_ repository.AccountRepository = (*DB)(nil)
)

// Create inserts a new ledger record. The caller supplies the uid (assigned
// by the Account Directory) and the derived referral link; balance starts at
// zero via the column default.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (uid, email, referral_link, referred_by, balance, team_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.UID,
		user.Email,
		user.ReferralLink,
		user.ReferredBy,
		user.Balance,
		user.TeamCount,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.UID, err)
	}

	return nil
}

// GetByID returns the full user record, activity log included.
func (db *DB) GetByID(ctx context.Context, uid string) (*model.User, error) {
	return db.getUser(ctx, `SELECT uid, email, referral_link, referred_by, balance, team_count, created_at
		FROM users WHERE uid = ?`, uid)
}

// GetByEmail returns the full user record for the given email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `SELECT uid, email, referral_link, referred_by, balance, team_count, created_at
		FROM users WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var user model.User
	err := db.conn.QueryRowContext(ctx, query, key).Scan(
		&user.UID,
		&user.Email,
		&user.ReferralLink,
		&user.ReferredBy,
		&user.Balance,
		&user.TeamCount,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching user %s: %w", key, err)
	}

	activities, err := db.listActivities(ctx, user.UID)
	if err != nil {
		return nil, err
	}
	user.DailyActivities = activities

	return &user, nil
}

// AppendActivity adds one entry to the user's activity log.
// Insertion order is preserved by the AUTOINCREMENT id, so the log reads
// back in the order it was written.
func (db *DB) AppendActivity(ctx context.Context, uid, activity string) (*model.Activity, error) {
	var exists int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE uid = ?`, uid).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking user %s: %w", uid, err)
	}
	if exists == 0 {
		return nil, apperror.NotFound("user", uid)
	}

	entry := &model.Activity{
		Activity:  activity,
		Timestamp: time.Now(),
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO activities (uid, activity, timestamp) VALUES (?, ?, ?)`,
		uid, entry.Activity, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: appending activity for %s: %w", uid, err)
	}

	return entry, nil
}

// IncrementTeamCount bumps a referrer's team counter. Zero rows affected is
// fine — referredBy is opaque and may not name a real user.
func (db *DB) IncrementTeamCount(ctx context.Context, uid string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET team_count = team_count + 1 WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing team count for %s: %w", uid, err)
	}
	return nil
}

func (db *DB) listActivities(ctx context.Context, uid string) ([]model.Activity, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT activity, timestamp FROM activities WHERE uid = ? ORDER BY id`, uid)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities for %s: %w", uid, err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.Activity, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activities: %w", err)
	}

	return activities, nil
}
