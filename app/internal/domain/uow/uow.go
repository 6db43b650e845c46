// Package uow defines the transaction boundary used by checkout and order
// status changes. Everything reachable from a Scope runs inside the same
// database transaction.
package uow

import (
	"context"

	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	domproduct "example.com/storefront/app/internal/domain/product"
	domsettings "example.com/storefront/app/internal/domain/settings"
)

type CartClearer interface {
	Clear(ctx context.Context, userID int64) error
}

type Scope interface {
	Ledger() domproduct.Ledger
	Orders() domorder.TxRepository
	Settings() domsettings.Repository
	Carts() CartClearer
	Outbox() domoutbox.Writer
}

// Manager runs fn in a single transaction. A non-nil error from fn rolls
// everything back and is returned unchanged.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Scope) error) error
}
