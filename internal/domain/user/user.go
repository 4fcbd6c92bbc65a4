package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Summary is the minimal user projection embedded in order responses.
type Summary struct {
	ID    string
	Email string
	Name  string
}

// Repository defines read operations over user accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Summary, error)
	GetByIDs(ctx context.Context, ids []string) ([]Summary, error)
}
