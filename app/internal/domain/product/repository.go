package product

import "context"

type ListFilter struct {
	OnlyActive bool
	// Search matches product names case-insensitively.
	Search     string
	CategoryID *int64
}

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}

// Ledger is the only way stock changes. Implementations must be bound to an
// open transaction.
type Ledger interface {
	// Reserve decrements stock by qty only if the product is active and has
	// at least qty units left.
	Reserve(ctx context.Context, productID int64, qty int64) error
	// Release increments stock by qty. It reports false when the product no
	// longer exists.
	Release(ctx context.Context, productID int64, qty int64) (bool, error)
}
