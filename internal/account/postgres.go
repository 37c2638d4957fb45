package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL. Unlike the
// key-value backend it writes the account and its lookup entry in one
// transaction.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account and lookup rows, rejecting duplicate identifiers.
func (r *PostgresRepository) Create(ctx context.Context, acct Account, idx Lookup) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("account: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `INSERT INTO accounts (user_id, password_hash, name_enc, email_enc, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO NOTHING`,
		acct.UserID, acct.PasswordHash, acct.Name, acct.Email, acct.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("account: insert record: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateID
	}

	if _, err := tx.Exec(ctx, `INSERT INTO account_lookup (name, email, user_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (name, email) DO NOTHING`,
		idx.Name, idx.Email, idx.UserID); err != nil {
		return fmt.Errorf("account: insert lookup entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("account: commit: %w", err)
	}
	return nil
}

// Get fetches an account row by identifier.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id, password_hash, name_enc, email_enc, created_at
        FROM accounts WHERE user_id = $1`, userID)

	var (
		acct      Account
		createdAt time.Time
	)
	if err := row.Scan(&acct.UserID, &acct.PasswordHash, &acct.Name, &acct.Email, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("account: fetch record: %w", err)
	}
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

// UpdatePassword overwrites the password hash of an existing account.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE user_id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("account: update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindID resolves (name, email) through the lookup table.
func (r *PostgresRepository) FindID(ctx context.Context, name, email string) (string, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id FROM account_lookup WHERE name = $1 AND email = $2`, name, email)

	var userID string
	if err := row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("account: fetch lookup entry: %w", err)
	}
	return userID, nil
}
