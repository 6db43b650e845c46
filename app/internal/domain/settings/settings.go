package settings

import "context"

// StoreSettings is the storefront-wide pricing configuration. It is managed
// by admin tooling and only read during checkout.
type StoreSettings struct {
	ShippingFeeCents int64
	DiscountPercent  float64
}

type Repository interface {
	Get(ctx context.Context) (StoreSettings, error)
}
