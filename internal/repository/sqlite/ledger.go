package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TreasureWejeyan/My-backendNo1/internal/apperror"
	"github.com/TreasureWejeyan/My-backendNo1/internal/model"
	"github.com/TreasureWejeyan/My-backendNo1/internal/repository"
)

var _ repository.LedgerRepository = (*DB)(nil)

// creditRetries bounds how often a credit transaction is retried when the
// database is busy. Past this the caller records a reconcile failure — the
// payment must not be silently dropped.
const creditRetries = 3

func (db *DB) CreatePendingRecharge(ctx context.Context, intent *model.PendingRecharge) error {
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now()
	}
	if intent.Status == "" {
		intent.Status = model.RechargeStatusPending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO pending_recharges (reference, uid, amount, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		intent.Reference, intent.UID, intent.Amount, intent.Status, intent.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("pending recharge", intent.Reference)
		}
		return fmt.Errorf("sqlite: inserting pending recharge %s: %w", intent.Reference, err)
	}

	return nil
}

func (db *DB) GetPendingRecharge(ctx context.Context, reference string) (*model.PendingRecharge, error) {
	var intent model.PendingRecharge
	err := db.conn.QueryRowContext(ctx,
		`SELECT reference, uid, amount, status, created_at FROM pending_recharges WHERE reference = ?`,
		reference,
	).Scan(&intent.Reference, &intent.UID, &intent.Amount, &intent.Status, &intent.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("pending recharge", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching pending recharge %s: %w", reference, err)
	}

	return &intent, nil
}

func (db *DB) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking event %s: %w", eventID, err)
	}
	return count > 0, nil
}

// Credit is the one write path that touches a balance.
//
// Everything happens inside a single transaction:
//
//  1. insert the dedup row — the UNIQUE event_id column is the idempotence
//     gate, so a redelivered event changes nothing and reports applied=false
//  2. re-read the current balance, add the amount, write it back
//  3. mark the matching pending recharge intent completed
//
// Either the whole set commits or none of it does — a crash between the
// balance write and the dedup mark cannot happen, which is what makes a
// later retry of the same event id safe.
//
// Busy errors (another writer holds the lock) retry up to creditRetries
// times; the write itself is never half-applied because the transaction
// rolled back.
func (db *DB) Credit(ctx context.Context, uid string, amount int64, eventID, reference string) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < creditRetries; attempt++ {
		applied, err := db.creditOnce(ctx, uid, amount, eventID, reference)
		if err == nil {
			return applied, nil
		}
		if !isBusy(err) {
			return false, err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return false, fmt.Errorf("sqlite: credit for %s contended after %d attempts: %w", uid, creditRetries, lastErr)
}

func (db *DB) creditOnce(ctx context.Context, uid string, amount int64, eventID, reference string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning credit tx: %w", err)
	}
	defer tx.Rollback()

	// Dedup gate first: if the event id is already there, this INSERT
	// affects zero rows and the whole credit is a no-op.
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payment_events (event_id, uid, amount, processed_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(event_id) DO NOTHING`,
		eventID, uid, amount, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: recording event %s: %w", eventID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("sqlite: checking event insert: %w", err)
	} else if n == 0 {
		return false, nil // already processed
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE uid = ?`, uid).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperror.NotFound("user", uid)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: reading balance for %s: %w", uid, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = ? WHERE uid = ?`, balance+amount, uid); err != nil {
		return false, fmt.Errorf("sqlite: writing balance for %s: %w", uid, err)
	}

	if reference != "" {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_recharges SET status = ? WHERE reference = ? AND status = ?`,
			model.RechargeStatusCompleted, reference, model.RechargeStatusPending); err != nil {
			return false, fmt.Errorf("sqlite: completing recharge %s: %w", reference, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing credit: %w", err)
	}

	return true, nil
}

func (db *DB) RecordFailure(ctx context.Context, failure *model.ReconcileFailure) error {
	if failure.CreatedAt.IsZero() {
		failure.CreatedAt = time.Now()
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO reconcile_failures (event_id, email, amount, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		failure.EventID, failure.Email, failure.Amount, failure.Reason, failure.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording reconcile failure for %s: %w", failure.EventID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		failure.ID = id
	}

	return nil
}

// isBusy reports whether err is SQLite's "database is locked" contention
// error. modernc.org/sqlite has no typed error for it.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
