package outbox

import "time"

type OrderCreated struct {
	OrderID    int64     `json:"order_id"`
	Reference  string    `json:"reference"`
	UserID     *int64    `json:"user_id,omitempty"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Lines      []Line    `json:"lines"`
	CreatedAt  time.Time `json:"created_at"`
}

type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderStatusChanged struct {
	OrderID       int64  `json:"order_id"`
	Reference     string `json:"reference"`
	From          string `json:"from"`
	To            string `json:"to"`
	PaymentStatus string `json:"payment_status,omitempty"`
}
