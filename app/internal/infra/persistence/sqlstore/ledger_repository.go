package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	domproduct "example.com/storefront/app/internal/domain/product"
)

// LedgerRepository is only handed out inside a transaction.
type LedgerRepository struct {
	c conn
}

func (r *LedgerRepository) Reserve(ctx context.Context, productID int64, qty int64) error {
	res, err := r.c.exec(ctx, `
        UPDATE products SET stock = stock - ?
        WHERE id = ? AND is_active = TRUE AND stock >= ?
    `, qty, productID, qty)
	if err != nil {
		return wrap(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if rows == 1 {
		return nil
	}

	var active bool
	err = r.c.queryRow(ctx, `SELECT is_active FROM products WHERE id = ?`, productID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return domproduct.ErrProductNotFound
	}
	if err != nil {
		return wrap(err)
	}
	if !active {
		return domproduct.ErrProductNotFound
	}
	return domproduct.ErrOutOfStock
}

func (r *LedgerRepository) Release(ctx context.Context, productID int64, qty int64) (bool, error) {
	res, err := r.c.exec(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, qty, productID)
	if err != nil {
		return false, wrap(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrap(err)
	}
	return rows > 0, nil
}
