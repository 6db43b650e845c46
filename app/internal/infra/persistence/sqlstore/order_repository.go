package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domorder "example.com/storefront/app/internal/domain/order"
)

type OrderRepository struct {
	c   conn
	now func() time.Time
}

const orderColumns = `id, reference, user_id, currency, subtotal_cents, discount_cents, shipping_cents, total_cents,
            ship_full_name, ship_phone, ship_address_line1, ship_city, ship_notes, status, created_at`

func (r *OrderRepository) Create(ctx context.Context, o *domorder.Order) error {
	o.CreatedAt = r.now().UTC()

	var userID sql.NullInt64
	if o.UserID != nil {
		userID = sql.NullInt64{Int64: *o.UserID, Valid: true}
	}

	id, err := r.c.insert(ctx, `
        INSERT INTO orders (reference, user_id, currency, subtotal_cents, discount_cents, shipping_cents, total_cents,
            ship_full_name, ship_phone, ship_address_line1, ship_city, ship_notes, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, o.Reference, userID, o.Currency, o.SubtotalCents, o.DiscountCents, o.ShippingCents, o.TotalCents,
		o.Shipping.FullName, o.Shipping.Phone, o.Shipping.AddressLine1, o.Shipping.City, o.Shipping.Notes,
		o.Status, o.CreatedAt)
	if err != nil {
		return wrap(err)
	}
	o.ID = id

	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		item.ID, err = r.c.insert(ctx, `
            INSERT INTO order_items (order_id, product_id, product_name, unit_price_cents, quantity, line_total_cents)
            VALUES (?, ?, ?, ?, ?, ?)
        `, item.OrderID, item.ProductID, item.Name, item.UnitPriceCents, item.Quantity, item.LineTotalCents)
		if err != nil {
			return wrap(err)
		}
	}

	o.Payment.OrderID = o.ID
	o.Payment.ID, err = r.c.insert(ctx, `
        INSERT INTO payments (order_id, method, status, amount_cents)
        VALUES (?, ?, ?, ?)
    `, o.Payment.OrderID, o.Payment.Method, o.Payment.Status, o.Payment.AmountCents)
	return wrap(err)
}

func (r *OrderRepository) GetForUpdate(ctx context.Context, id int64) (*domorder.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, id)
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domorder.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domorder.Status) error {
	res, err := r.c.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return wrap(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if rows == 0 {
		return domorder.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, orderID int64, status domorder.PaymentStatus) error {
	res, err := r.c.exec(ctx, `UPDATE payments SET status = ? WHERE order_id = ?`, status, orderID)
	if err != nil {
		return wrap(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrap(err)
	}
	if rows == 0 {
		return domorder.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domorder.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id DESC`)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*domorder.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY id DESC`, userID)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, id int64) (*domorder.Order, error) {
	o, err := scanOrder(r.c.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domorder.ErrOrderNotFound
		}
		return nil, wrap(err)
	}
	if err := r.loadChildren(ctx, []*domorder.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]*domorder.Order, error) {
	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err)
	}

	orders := []*domorder.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, wrap(err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrap(err)
	}
	rows.Close()

	if err := r.loadChildren(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row rowScanner) (*domorder.Order, error) {
	var (
		o      domorder.Order
		userID sql.NullInt64
		notes  sql.NullString
	)
	err := row.Scan(&o.ID, &o.Reference, &userID, &o.Currency, &o.SubtotalCents, &o.DiscountCents, &o.ShippingCents, &o.TotalCents,
		&o.Shipping.FullName, &o.Shipping.Phone, &o.Shipping.AddressLine1, &o.Shipping.City, &notes, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := userID.Int64
		o.UserID = &uid
	}
	o.Shipping.Notes = notes.String
	return &o, nil
}

// loadChildren fills items and payment for every order with one query per
// child table.
func (r *OrderRepository) loadChildren(ctx context.Context, orders []*domorder.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*domorder.Order, len(orders))
	args := make([]any, len(orders))
	for i, o := range orders {
		o.Items = []domorder.OrderItem{}
		byID[o.ID] = o
		args[i] = o.ID
	}
	in := placeholders(len(orders))

	rows, err := r.c.query(ctx, `
        SELECT id, order_id, product_id, product_name, unit_price_cents, quantity, line_total_cents
        FROM order_items WHERE order_id IN (`+in+`)
        ORDER BY order_id, id
    `, args...)
	if err != nil {
		return wrap(err)
	}
	for rows.Next() {
		var item domorder.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.UnitPriceCents, &item.Quantity, &item.LineTotalCents); err != nil {
			rows.Close()
			return wrap(err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrap(err)
	}
	rows.Close()

	rows, err = r.c.query(ctx, `
        SELECT id, order_id, method, status, amount_cents
        FROM payments WHERE order_id IN (`+in+`)
    `, args...)
	if err != nil {
		return wrap(err)
	}
	defer rows.Close()
	for rows.Next() {
		var p domorder.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.AmountCents); err != nil {
			return wrap(err)
		}
		if o, ok := byID[p.OrderID]; ok {
			o.Payment = p
		}
	}
	return wrap(rows.Err())
}
