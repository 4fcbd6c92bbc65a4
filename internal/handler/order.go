package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/tripmart/tripmart/internal/domain/order"
	"github.com/tripmart/tripmart/internal/jwtauth"
)

// createOrderRequest is the wire shape of POST /orders.
type createOrderRequest struct {
	UserID          string             `json:"userId"`
	DeliveryType    string             `json:"deliveryType" validate:"required"`
	ShippingAddress string             `json:"shippingAddress"`
	ArrivalCountry  string             `json:"arrivalCountry"`
	ArrivalAirport  string             `json:"arrivalAirport"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity"`
}

// orderResponse is the wire shape of a created or fetched order.
type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	DeliveryType    string              `json:"deliveryType"`
	ShippingAddress *string             `json:"shippingAddress"`
	ArrivalCountry  *string             `json:"arrivalCountry"`
	ArrivalAirport  *string             `json:"arrivalAirport"`
	TotalPrice      float64             `json:"totalPrice"`
	CreatedAt       time.Time           `json:"createdAt"`
	Items           []orderItemResponse `json:"items"`
	User            userResponse        `json:"user"`
}

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     float64         `json:"price"`
	Product   productResponse `json:"product"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// CreateOrder handles POST /orders: it validates the request, delegates to
// the order workflow, and maps domain errors onto HTTP statuses.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	// The body may omit userId; the authenticated subject is the fallback.
	userID := req.UserID
	if userID == "" {
		userID = jwtauth.UserIDFromContext(r.Context())
	}

	delivery, err := order.NewDelivery(
		req.DeliveryType,
		req.ShippingAddress,
		req.ArrivalCountry,
		req.ArrivalAirport,
	)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	detail, err := h.orderService.Create(r.Context(), order.CreateRequest{
		UserID:   userID,
		Delivery: delivery,
		Items:    items,
	})
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusCreated, h.toOrderResponse(*detail))
}

// ListOrders handles GET /orders with an optional userId query filter.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, order.Filter{UserID: r.URL.Query().Get("userId")})
}

// ListUserOrders handles GET /orders/user/{userId}.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	h.listOrders(w, r, order.Filter{UserID: chi.URLParam(r, "userId")})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, f order.Filter) {
	details, err := h.orderService.List(r.Context(), f)
	if err != nil {
		respondInternalError(w, r, err)
		return
	}

	out := make([]orderResponse, len(details))
	for i, d := range details {
		out[i] = h.toOrderResponse(d)
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := h.orderService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternalError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, h.toOrderResponse(*detail))
}

// respondOrderError maps order workflow errors onto HTTP responses.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pnfErr *order.ProductNotFoundError
		iqErr  *order.InvalidQuantityError
		mfErr  *order.MissingFieldError
		dtErr  *order.InvalidDeliveryTypeError
	)
	switch {
	case errors.As(err, &pnfErr):
		respondError(w, r, http.StatusNotFound, pnfErr.Error())
	case errors.As(err, &iqErr),
		errors.As(err, &mfErr),
		errors.As(err, &dtErr),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrEmptyUserID):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		respondInternalError(w, r, err)
	}
}

// toOrderResponse flattens a service Detail into the wire shape.
func (h *Handler) toOrderResponse(d order.Detail) orderResponse {
	resp := orderResponse{
		ID:           d.Order.ID,
		UserID:       d.Order.UserID,
		DeliveryType: string(d.Order.Delivery.Type()),
		TotalPrice:   d.Order.Total.InexactFloat64(),
		CreatedAt:    d.Order.CreatedAt,
		User: userResponse{
			ID:    d.User.ID,
			Email: d.User.Email,
			Name:  d.User.Name,
		},
	}

	if addr, ok := d.Order.Delivery.ShippingAddress(); ok {
		resp.ShippingAddress = &addr
	}
	if country, airport, ok := d.Order.Delivery.Arrival(); ok {
		resp.ArrivalCountry = &country
		resp.ArrivalAirport = &airport
	}

	resp.Items = make([]orderItemResponse, len(d.Order.Items))
	for i, item := range d.Order.Items {
		resp.Items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice.InexactFloat64(),
			Product:   h.toProductResponse(d.Products[i]),
		}
	}
	return resp
}

// validationMessage renders the first field-level validation failure.
func validationMessage(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) && len(vErrs) > 0 {
		fe := vErrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "min":
			return fe.Field() + " must not be empty"
		default:
			return fe.Field() + " is invalid"
		}
	}
	return "invalid request"
}
