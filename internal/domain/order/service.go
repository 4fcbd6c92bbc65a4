package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripmart/tripmart/internal/domain/product"
	"github.com/tripmart/tripmart/internal/domain/user"
)

// Sentinel errors for order validation.
var (
	ErrEmptyUserID = fmt.Errorf("userId required")
	ErrEmptyItems  = fmt.Errorf("items required")
)

// ProductNotFoundError indicates a requested product does not exist in the
// catalog. The whole order is rejected; no partial order is created.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has an explicit non-positive
// quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ItemRequest is one requested line item. Quantity is optional: nil defaults
// to 1, an explicit value must be positive.
type ItemRequest struct {
	ProductID string
	Quantity  *int
}

// CreateRequest holds the input for placing an order. Delivery must be built
// through the Delivery constructors.
type CreateRequest struct {
	UserID   string
	Delivery Delivery
	Items    []ItemRequest
}

// Detail is an order together with the resolved product catalog entries (one
// per item, in item order) and the minimal owner summary.
type Detail struct {
	Order    Order
	Products []product.Product
	User     user.Summary
}

// Service encapsulates the order workflow: validation, catalog price
// resolution, and atomic persistence.
type Service struct {
	products product.Repository
	users    user.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	users user.Repository,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		users:    users,
		orders:   orders,
	}
}

// Create validates the request, resolves catalog prices for every item in a
// single batched lookup, computes the total, and persists the order with all
// of its items atomically. Validation runs to completion before any write:
// the first failing item aborts the whole batch and the store sees nothing.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	if req.UserID == "" {
		return nil, ErrEmptyUserID
	}
	if !req.Delivery.Type().Valid() {
		return nil, &InvalidDeliveryTypeError{Value: string(req.Delivery.Type())}
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Resolve quantities and collect the distinct product ID set.
	quantities := make([]int, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for i, item := range req.Items {
		qty := 1
		if item.Quantity != nil {
			qty = *item.Quantity
		}
		if qty <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		quantities[i] = qty

		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	// One batched catalog lookup for all items, not N individual queries.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Resolve every item in input order, snapshotting the catalog price.
	items := make([]Item, len(req.Items))
	products := make([]product.Product, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products[i] = p
		items[i] = Item{
			ProductID: item.ProductID,
			Quantity:  quantities[i],
			UnitPrice: p.Price,
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(quantities[i]))))
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Delivery:  req.Delivery,
		Items:     items,
		Total:     total.Round(2),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &Detail{
		Order:    *o,
		Products: products,
		User:     s.userSummary(ctx, req.UserID),
	}, nil
}

// Get returns one order with resolved product details and the owner summary,
// or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details, err := s.resolveDetails(ctx, []Order{*o})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// List returns orders matching the filter, newest first, each with resolved
// product details and owner summaries.
func (s *Service) List(ctx context.Context, f Filter) ([]Detail, error) {
	orders, err := s.orders.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return s.resolveDetails(ctx, orders)
}

// resolveDetails batch-fetches the catalog entries and user summaries
// referenced by the given orders and composes Detail values. A product that
// has since left the catalog degrades to an ID-only entry; the recorded item
// prices are snapshots and unaffected.
func (s *Service) resolveDetails(ctx context.Context, orders []Order) ([]Detail, error) {
	productIDs := make([]string, 0, len(orders))
	userIDs := make([]string, 0, len(orders))
	seenProducts := make(map[string]struct{})
	seenUsers := make(map[string]struct{})
	for _, o := range orders {
		if _, ok := seenUsers[o.UserID]; !ok {
			seenUsers[o.UserID] = struct{}{}
			userIDs = append(userIDs, o.UserID)
		}
		for _, item := range o.Items {
			if _, ok := seenProducts[item.ProductID]; !ok {
				seenProducts[item.ProductID] = struct{}{}
				productIDs = append(productIDs, item.ProductID)
			}
		}
	}

	productMap := make(map[string]product.Product, len(productIDs))
	if len(productIDs) > 0 {
		fetched, err := s.products.GetByIDs(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("get products: %w", err)
		}
		for _, p := range fetched {
			productMap[p.ID] = p
		}
	}

	userMap := make(map[string]user.Summary, len(userIDs))
	if len(userIDs) > 0 {
		summaries, err := s.users.GetByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("get users: %w", err)
		}
		for _, u := range summaries {
			userMap[u.ID] = u
		}
	}

	details := make([]Detail, len(orders))
	for i, o := range orders {
		products := make([]product.Product, len(o.Items))
		for j, item := range o.Items {
			p, ok := productMap[item.ProductID]
			if !ok {
				p = product.Product{ID: item.ProductID}
			}
			products[j] = p
		}

		u, ok := userMap[o.UserID]
		if !ok {
			u = user.Summary{ID: o.UserID}
		}

		details[i] = Detail{
			Order:    o,
			Products: products,
			User:     u,
		}
	}
	return details, nil
}

// userSummary fetches the owner summary for a freshly created order. A
// missing row degrades to an ID-only summary rather than failing the order.
func (s *Service) userSummary(ctx context.Context, id string) user.Summary {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.Summary{ID: id}
	}
	return *u
}
