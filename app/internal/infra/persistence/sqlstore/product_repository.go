package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domproduct "example.com/storefront/app/internal/domain/product"
)

type ProductRepository struct {
	c conn
}

const productColumns = `id, name, description, price_cents, stock, category_id, is_active, discount_type, discount_value`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domproduct.Product, error) {
	var (
		p         domproduct.Product
		category  sql.NullInt64
		discKind  sql.NullString
		discValue sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &category, &p.IsActive, &discKind, &discValue); err != nil {
		return nil, err
	}
	p.CategoryID = category.Int64
	if discKind.Valid && discValue.Valid {
		kind := domproduct.DiscountKind(discKind.String)
		if kind.IsValid() {
			p.Discount = &domproduct.Discount{Kind: kind, Value: discValue.Float64}
		}
	}
	return &p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domproduct.Product, error) {
	row := r.c.queryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domproduct.ErrProductNotFound
		}
		return nil, wrap(err)
	}
	return p, nil
}

// GetByIDs returns the products that exist, in id order. Missing ids are
// simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domproduct.Product, error) {
	if len(ids) == 0 {
		return []*domproduct.Product{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.c.query(ctx, `
        SELECT `+productColumns+`
        FROM products
        WHERE id IN (`+placeholders(len(ids))+`)
        ORDER BY id
    `, args...)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var products []*domproduct.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap(err)
		}
		products = append(products, p)
	}
	return products, wrap(rows.Err())
}

// List returns matching products, newest first. Search is a substring match on
// the name.
func (r *ProductRepository) List(ctx context.Context, filter domproduct.ListFilter) ([]*domproduct.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var clauses []string
	var args []any

	if filter.CategoryID != nil {
		clauses = append(clauses, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Search != "" {
		clauses = append(clauses, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.OnlyActive {
		clauses = append(clauses, "is_active = TRUE")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	products := []*domproduct.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap(err)
		}
		products = append(products, p)
	}
	return products, wrap(rows.Err())
}
