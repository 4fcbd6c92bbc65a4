package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tripmart/tripmart/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, delivery_type, shipping_address, arrival_country, arrival_airport, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderByIDSQL = `SELECT id, user_id, delivery_type, shipping_address, arrival_country, arrival_airport, total_price, created_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, user_id, delivery_type, shipping_address, arrival_country, arrival_airport, total_price, created_at
		FROM orders ORDER BY created_at DESC, id`

	listOrdersByUserSQL = `SELECT id, user_id, delivery_type, shipping_address, arrival_country, arrival_airport, total_price, created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`

	listItemsByOrderIDsSQL = `SELECT order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its items in a single transaction.
// Either everything commits or nothing does; a failure partway leaves no
// orphan rows behind.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	shippingAddress, arrivalCountry, arrivalAirport := deliveryColumns(o.Delivery)

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, string(o.Delivery.Type()),
		shippingAddress, arrivalCountry, arrivalAirport,
		o.Total, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i, item := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			o.ID, i, item.ProductID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating order item %d for order %q: %w", i, o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns one order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// Query returns orders matching the filter, newest first, with their items.
func (r *OrderRepository) Query(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if f.UserID != "" {
		rows, err = r.pool.Query(ctx, listOrdersByUserSQL, f.UserID)
	} else {
		rows, err = r.pool.Query(ctx, listOrdersSQL)
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for all given orders in one batched query and
// assigns them in stored position order.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listItemsByOrderIDsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID   string
			item      order.Item
			unitPrice decimal.Decimal
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &unitPrice); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		item.UnitPrice = unitPrice

		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

// deliveryColumns flattens the delivery union into the nullable columns of
// the orders table. Exactly the active variant's fields are non-NULL, which
// the table CHECK constraint also enforces.
func deliveryColumns(d order.Delivery) (shippingAddress, arrivalCountry, arrivalAirport *string) {
	if addr, ok := d.ShippingAddress(); ok {
		shippingAddress = &addr
	}
	if country, airport, ok := d.Arrival(); ok {
		arrivalCountry = &country
		arrivalAirport = &airport
	}
	return shippingAddress, arrivalCountry, arrivalAirport
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o               order.Order
		deliveryType    string
		shippingAddress *string
		arrivalCountry  *string
		arrivalAirport  *string
		total           decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &deliveryType,
		&shippingAddress, &arrivalCountry, &arrivalAirport,
		&total, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.Total = total

	o.Delivery, err = order.NewDelivery(
		deliveryType,
		deref(shippingAddress),
		deref(arrivalCountry),
		deref(arrivalAirport),
	)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %q: %w", o.ID, err)
	}
	return o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
