package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	domsettings "example.com/storefront/app/internal/domain/settings"
)

type SettingsRepository struct {
	c conn
}

// Get reads the singleton settings row. A store without one charges no
// shipping and gives no discount.
func (r *SettingsRepository) Get(ctx context.Context) (domsettings.StoreSettings, error) {
	var st domsettings.StoreSettings
	err := r.c.queryRow(ctx, `
        SELECT shipping_fee_cents, discount_percent
        FROM store_settings WHERE id = 1
    `).Scan(&st.ShippingFeeCents, &st.DiscountPercent)
	if errors.Is(err, sql.ErrNoRows) {
		return domsettings.StoreSettings{}, nil
	}
	if err != nil {
		return domsettings.StoreSettings{}, wrap(err)
	}
	return st, nil
}
