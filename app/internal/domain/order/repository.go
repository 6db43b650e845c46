package order

import "context"

type Repository interface {
	List(ctx context.Context) ([]*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
}

// TxRepository is the write side of orders, bound to an open transaction.
type TxRepository interface {
	// Create persists the header, its items and its payment, filling in the
	// generated identifiers and creation time.
	Create(ctx context.Context, o *Order) error
	// GetForUpdate loads the order with items and payment and locks it until
	// the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status PaymentStatus) error
}
