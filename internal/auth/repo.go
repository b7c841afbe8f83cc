package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voicebot/voicebot/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// Create stores a new account, failing with shared.ErrDuplicateEmail when
	// the email is taken.
	Create(ctx context.Context, acct *Account) error
}

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM accounts WHERE email = $1`
	var acct Account
	err := r.pool.QueryRow(ctx, query, email).Scan(&acct.ID, &acct.Name, &acct.Email, &acct.PasswordHash, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	return &acct, nil
}

// Create inserts a new account row.
func (r *PGRepository) Create(ctx context.Context, acct *Account) error {
	const query = `INSERT INTO accounts (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, acct.ID, acct.Name, acct.Email, acct.PasswordHash, acct.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
