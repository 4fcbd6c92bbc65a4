package order

import "fmt"

// DeliveryType selects how an order reaches the customer.
type DeliveryType string

const (
	// DeliveryHome ships the order to a street address.
	DeliveryHome DeliveryType = "HOME"
	// DeliveryOnArrival holds the order for pickup at the destination airport.
	DeliveryOnArrival DeliveryType = "ON_ARRIVAL"
)

// Valid reports whether t is a known delivery type.
func (t DeliveryType) Valid() bool {
	return t == DeliveryHome || t == DeliveryOnArrival
}

// Delivery is a tagged union over DeliveryType. Exactly the fields of the
// active variant are populated; the constructors below are the only way to
// build a valid value, which makes inconsistent address combinations
// unrepresentable past the domain boundary.
type Delivery struct {
	typ             DeliveryType
	shippingAddress string
	arrivalCountry  string
	arrivalAirport  string
}

// MissingFieldError indicates a delivery field required by the chosen
// delivery type was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// InvalidDeliveryTypeError indicates an unknown delivery type value.
type InvalidDeliveryTypeError struct {
	Value string
}

func (e *InvalidDeliveryTypeError) Error() string {
	return fmt.Sprintf("invalid delivery type %q", e.Value)
}

// NewHomeDelivery builds the HOME variant. The shipping address must be
// non-empty.
func NewHomeDelivery(shippingAddress string) (Delivery, error) {
	if shippingAddress == "" {
		return Delivery{}, &MissingFieldError{Field: "shippingAddress"}
	}
	return Delivery{
		typ:             DeliveryHome,
		shippingAddress: shippingAddress,
	}, nil
}

// NewOnArrivalDelivery builds the ON_ARRIVAL variant. Both the arrival
// country and airport must be non-empty.
func NewOnArrivalDelivery(arrivalCountry, arrivalAirport string) (Delivery, error) {
	if arrivalCountry == "" {
		return Delivery{}, &MissingFieldError{Field: "arrivalCountry"}
	}
	if arrivalAirport == "" {
		return Delivery{}, &MissingFieldError{Field: "arrivalAirport"}
	}
	return Delivery{
		typ:            DeliveryOnArrival,
		arrivalCountry: arrivalCountry,
		arrivalAirport: arrivalAirport,
	}, nil
}

// NewDelivery dispatches on the raw delivery type string and builds the
// matching variant. Fields that do not belong to the chosen type are dropped,
// never persisted.
func NewDelivery(typ, shippingAddress, arrivalCountry, arrivalAirport string) (Delivery, error) {
	switch DeliveryType(typ) {
	case DeliveryHome:
		return NewHomeDelivery(shippingAddress)
	case DeliveryOnArrival:
		return NewOnArrivalDelivery(arrivalCountry, arrivalAirport)
	default:
		return Delivery{}, &InvalidDeliveryTypeError{Value: typ}
	}
}

// Type returns the active variant's delivery type.
func (d Delivery) Type() DeliveryType { return d.typ }

// ShippingAddress returns the street address and true for the HOME variant.
func (d Delivery) ShippingAddress() (string, bool) {
	return d.shippingAddress, d.typ == DeliveryHome
}

// Arrival returns the destination country and airport and true for the
// ON_ARRIVAL variant.
func (d Delivery) Arrival() (country, airport string, ok bool) {
	return d.arrivalCountry, d.arrivalAirport, d.typ == DeliveryOnArrival
}
