package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order represents a placed customer order. Orders and their items are
// immutable once created; every Item carries the catalog price captured at
// creation time.
type Order struct {
	ID        string
	UserID    string
	Delivery  Delivery
	Items     []Item
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Item is a single line item in an order. UnitPrice is a snapshot of the
// catalog price at the moment the order was placed; later catalog changes
// never affect it.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Filter restricts order queries.
type Filter struct {
	// UserID limits results to one user's orders when non-empty.
	UserID string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and all of its items as one atomic unit.
	Create(ctx context.Context, o *Order) error
	// GetByID returns one order with its items, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, error)
	// Query returns orders matching the filter, newest first, with items.
	Query(ctx context.Context, f Filter) ([]Order, error)
}
