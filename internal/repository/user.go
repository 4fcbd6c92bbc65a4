package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripmart/tripmart/internal/domain/user"
)

const (
	getUserByIDSQL   = `SELECT id, email, name FROM users WHERE id = $1`
	getUsersByIDsSQL = `SELECT id, email, name FROM users WHERE id = ANY($1)`

	upsertUserSQL = `INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns the minimal summary for one user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.Summary, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

// GetByIDs returns summaries for users matching any of the given IDs.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]user.Summary, error) {
	rows, err := r.pool.Query(ctx, getUsersByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting users by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanUser)
}

// Upsert inserts or replaces a user row. Used by the seed tooling.
func (r *UserRepository) Upsert(ctx context.Context, u user.Summary) error {
	_, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.Email, u.Name)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", u.ID, err)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.Summary, error) {
	var u user.Summary
	err := row.Scan(&u.ID, &u.Email, &u.Name)
	return u, err
}
