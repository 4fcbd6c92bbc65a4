//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestCreateOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items:           []orderItemRequest{{ProductID: "prd-espresso-set"}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items:           []orderItemRequest{},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items:           []orderItemRequest{{ProductID: "prd-nonexistent"}},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Error("error message is empty")
	}
}

func TestCreateOrder_MissingArrivalAirport(t *testing.T) {
	req := orderRequest{
		UserID:         "usr-demo",
		DeliveryType:   "ON_ARRIVAL",
		ArrivalCountry: "Japan",
		Items:          []orderItemRequest{{ProductID: "prd-espresso-set"}},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items:           []orderItemRequest{{ProductID: "prd-espresso-set", Quantity: intPtr(0)}},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_HomeDelivery(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items: []orderItemRequest{
			{ProductID: "prd-espresso-set", Quantity: intPtr(2)}, // 2x $49.90
			{ProductID: "prd-dark-chocolate"},                    // 1x $18.75
		},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)

	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.TotalPrice != 118.55 {
		t.Errorf("totalPrice: got %v, want 118.55", order.TotalPrice)
	}
	if order.ShippingAddress == nil || *order.ShippingAddress != "12 Quay St, Auckland" {
		t.Errorf("shippingAddress: got %v", order.ShippingAddress)
	}
	if order.ArrivalCountry != nil || order.ArrivalAirport != nil {
		t.Error("arrival fields must be null for HOME delivery")
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 || order.Items[0].Price != 49.90 {
		t.Errorf("item 0: got qty=%d price=%v", order.Items[0].Quantity, order.Items[0].Price)
	}
	if order.Items[1].Quantity != 1 {
		t.Errorf("item 1: omitted quantity should default to 1, got %d", order.Items[1].Quantity)
	}
	if order.Items[0].Product.Name == "" {
		t.Error("item 0 product detail is empty")
	}
	if order.User.Email != "demo@tripmart.dev" {
		t.Errorf("user email: got %q", order.User.Email)
	}
}

func TestCreateOrder_OnArrivalDelivery(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "ON_ARRIVAL",
		ShippingAddress: "must be dropped",
		ArrivalCountry:  "Japan",
		ArrivalAirport:  "HND",
		Items:           []orderItemRequest{{ProductID: "prd-single-malt"}},
	}
	resp := doPostWithAuth(t, "/api/orders", req, mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)

	if order.ShippingAddress != nil {
		t.Errorf("shippingAddress must be null for ON_ARRIVAL, got %q", *order.ShippingAddress)
	}
	if order.ArrivalCountry == nil || *order.ArrivalCountry != "Japan" {
		t.Errorf("arrivalCountry: got %v", order.ArrivalCountry)
	}
	if order.ArrivalAirport == nil || *order.ArrivalAirport != "HND" {
		t.Errorf("arrivalAirport: got %v", order.ArrivalAirport)
	}
}

func TestGetOrder_RoundTrip(t *testing.T) {
	req := orderRequest{
		UserID:          "usr-demo",
		DeliveryType:    "HOME",
		ShippingAddress: "12 Quay St, Auckland",
		Items:           []orderItemRequest{{ProductID: "prd-eau-de-parfum"}},
	}
	token := mintToken(t, "usr-demo")

	createResp := doPostWithAuth(t, "/api/orders", req, token)
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", createResp.StatusCode)
	}
	created := decodeJSON[orderResponse](t, createResp)

	getResp := doGetWithAuth(t, "/api/orders/"+created.ID, token)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", getResp.StatusCode)
	}
	fetched := decodeJSON[orderResponse](t, getResp)

	if fetched.ID != created.ID {
		t.Errorf("id: got %q, want %q", fetched.ID, created.ID)
	}
	if fetched.TotalPrice != created.TotalPrice {
		t.Errorf("totalPrice: got %v, want %v", fetched.TotalPrice, created.TotalPrice)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGetWithAuth(t, "/api/orders/00000000-0000-0000-0000-000000000000", mintToken(t, "usr-demo"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListUserOrders_NewestFirst(t *testing.T) {
	token := mintToken(t, "usr-ops")

	var ids []string
	for range 2 {
		req := orderRequest{
			UserID:          "usr-ops",
			DeliveryType:    "HOME",
			ShippingAddress: "1 Ops Lane",
			Items:           []orderItemRequest{{ProductID: "prd-dark-chocolate"}},
		}
		resp := doPostWithAuth(t, "/api/orders", req, token)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d", resp.StatusCode)
		}
		created := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		ids = append(ids, created.ID)
	}

	resp := doGetWithAuth(t, "/api/orders/user/usr-ops", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	if len(orders) < 2 {
		t.Fatalf("expected at least 2 orders, got %d", len(orders))
	}
	if orders[0].ID != ids[1] {
		t.Errorf("newest order first: got %q, want %q", orders[0].ID, ids[1])
	}
	for _, o := range orders {
		if o.UserID != "usr-ops" {
			t.Errorf("filter leak: order %q belongs to %q", o.ID, o.UserID)
		}
	}
}
