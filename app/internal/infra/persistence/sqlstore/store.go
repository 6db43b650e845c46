// Package sqlstore implements the storefront repositories and the
// transaction boundary on top of database/sql for MySQL and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	domproduct "example.com/storefront/app/internal/domain/product"
	domsettings "example.com/storefront/app/internal/domain/settings"
	"example.com/storefront/app/internal/domain/uow"
)

type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

func NewStore(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, d: d, now: time.Now}
}

func (s *Store) conn() conn { return conn{q: s.db, d: s.d} }

func (s *Store) Products() *ProductRepository { return &ProductRepository{c: s.conn()} }
func (s *Store) Carts() *CartRepository { return &CartRepository{c: s.conn()} }
func (s *Store) Orders() *OrderRepository { return &OrderRepository{c: s.conn(), now: s.now} }
func (s *Store) Settings() *SettingsRepository { return &SettingsRepository{c: s.conn()} }
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{c: s.conn(), now: s.now} }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return wrap(s.db.PingContext(ctx))
}

// Do runs fn in a read-committed transaction. Stock safety comes from the
// guarded UPDATE in Reserve, not from the isolation level.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, sc uow.Scope) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrap(err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	c := conn{q: tx, d: s.d}
	if err := fn(ctx, &txScope{c: c, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	return nil
}

type txScope struct {
	c   conn
	now func() time.Time
}

func (t *txScope) Ledger() domproduct.Ledger { return &LedgerRepository{c: t.c} }
func (t *txScope) Orders() domorder.TxRepository { return &OrderRepository{c: t.c, now: t.now} }
func (t *txScope) Settings() domsettings.Repository { return &SettingsRepository{c: t.c} }
func (t *txScope) Carts() uow.CartClearer { return &CartRepository{c: t.c} }
func (t *txScope) Outbox() domoutbox.Writer { return &OutboxRepository{c: t.c, now: t.now} }

// wrap marks driver failures as persistence errors. Domain errors and context
// cancellation pass through untouched.
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domorder.ErrPersistence),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domorder.ErrPersistence, err)
	}
}
