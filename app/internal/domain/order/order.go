package order

import "time"

type PaymentMethod string

const PaymentCOD PaymentMethod = "COD"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// ShippingAddress is copied onto the order at checkout time.
type ShippingAddress struct {
	FullName     string
	Phone        string
	AddressLine1 string
	City         string
	Notes        string
}

type Order struct {
	ID            int64
	Reference     string
	UserID        *int64
	Currency      string
	SubtotalCents int64
	DiscountCents int64
	ShippingCents int64
	TotalCents    int64
	Shipping      ShippingAddress
	Status        Status
	Payment       Payment
	Items         []OrderItem
	CreatedAt     time.Time
}

func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

type OrderItem struct {
	ID             int64
	OrderID        int64
	ProductID      int64
	Name           string
	UnitPriceCents int64
	Quantity       int64
	LineTotalCents int64
}

type Payment struct {
	ID          int64
	OrderID     int64
	Method      PaymentMethod
	Status      PaymentStatus
	AmountCents int64
}
