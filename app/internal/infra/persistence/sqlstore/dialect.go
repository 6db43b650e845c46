package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect holds the few places where MySQL and PostgreSQL disagree. Queries
// are written with ? placeholders and rebound for PostgreSQL.
type Dialect struct {
	Name string
	// DriverName is the database/sql driver registered for the dialect.
	DriverName string
	numbered   bool
	returning  bool
	cartUpsert string
}

var (
	MySQL = Dialect{
		Name:       "mysql",
		DriverName: "mysql",
		cartUpsert: `
        INSERT INTO cart_items (user_id, product_id, quantity)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)
    `,
	}
	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "pgx",
		numbered:   true,
		returning:  true,
		cartUpsert: `
        INSERT INTO cart_items (user_id, product_id, quantity)
        VALUES (?, ?, ?)
        ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
    `,
	}
)

func DialectFor(name string) (Dialect, error) {
	switch name {
	case MySQL.Name:
		return MySQL, nil
	case Postgres.Name:
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// Open opens and pings the database for the named dialect.
func Open(ctx context.Context, name, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(name)
	if err != nil {
		return nil, Dialect{}, err
	}
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, err
	}
	return db, d, nil
}

func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a *sql.DB or *sql.Tx to a dialect.
type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// insert runs an INSERT and returns the generated id.
func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	if c.d.returning {
		var id int64
		err := c.queryRow(ctx, strings.TrimSpace(query)+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func placeholders(n int) string {
	return "?" + strings.Repeat(",?", n-1)
}
