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
)

// Account Directory methods. Accounts live in their own table, separate from
// the ledger's users table — the directory owns identity and credentials,
// the ledger owns money. The reconciler only ever asks the directory one
// question: which account does this email belong to.

func (db *DB) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("account", account.Email)
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", account.ID, err)
	}

	return nil
}

func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getAccount(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?`, email)
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getAccount(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts WHERE id = ?`, id)
}

func (db *DB) getAccount(ctx context.Context, query, key string) (*model.Account, error) {
	var account model.Account
	err := db.conn.QueryRowContext(ctx, query, key).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("account", key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: fetching account %s: %w", key, err)
	}

	return &account, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite exposes no typed error for this, so we match
// the canonical message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
