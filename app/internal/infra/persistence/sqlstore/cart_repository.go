package sqlstore

import (
	"context"

	domcart "example.com/storefront/app/internal/domain/cart"
)

type CartRepository struct {
	c conn
}

func (r *CartRepository) AddOrUpdateItem(ctx context.Context, userID int64, productID int64, quantity int64) error {
	_, err := r.c.exec(ctx, r.c.d.cartUpsert, userID, productID, quantity)
	return wrap(err)
}

func (r *CartRepository) ListItems(ctx context.Context, userID int64) ([]domcart.Item, error) {
	rows, err := r.c.query(ctx, `
        SELECT product_id, quantity
        FROM cart_items
        WHERE user_id = ?
        ORDER BY id
    `, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var items []domcart.Item
	for rows.Next() {
		var item domcart.Item
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, wrap(err)
		}
		items = append(items, item)
	}
	return items, wrap(rows.Err())
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.c.exec(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return wrap(err)
}
