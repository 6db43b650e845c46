package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	domproduct "example.com/storefront/app/internal/domain/product"
	domsettings "example.com/storefront/app/internal/domain/settings"
	"example.com/storefront/app/internal/domain/uow"
)

func seededStore() *Store {
	s := NewStore()
	s.PutProduct(domproduct.Product{ID: 1, Name: "Mug", PriceCents: 500, Stock: 3, IsActive: true})
	s.PutProduct(domproduct.Product{ID: 2, Name: "Hidden", PriceCents: 500, Stock: 3, IsActive: false})
	return s
}

func stockOf(t *testing.T, s *Store, id int64) int64 {
	t.Helper()
	p, err := s.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestLedger_Reserve(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		return sc.Ledger().Reserve(ctx, 1, 2)
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), stockOf(t, s, 1))

	err = s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		return sc.Ledger().Reserve(ctx, 1, 2)
	})
	require.ErrorIs(t, err, domproduct.ErrOutOfStock)
	require.Equal(t, int64(1), stockOf(t, s, 1))

	err = s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		return sc.Ledger().Reserve(ctx, 2, 1)
	})
	require.ErrorIs(t, err, domproduct.ErrProductNotFound)

	err = s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		return sc.Ledger().Reserve(ctx, 99, 1)
	})
	require.ErrorIs(t, err, domproduct.ErrProductNotFound)
}

func TestLedger_ReleaseMissingProduct(t *testing.T) {
	s := seededStore()

	var released bool
	err := s.Do(context.Background(), func(ctx context.Context, sc uow.Scope) error {
		var err error
		released, err = sc.Ledger().Release(ctx, 99, 4)
		return err
	})
	require.NoError(t, err)
	require.False(t, released)
}

func TestDo_RollsBackEverything(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	require.NoError(t, s.Carts().AddOrUpdateItem(ctx, 7, 1, 1))

	boom := errors.New("boom")
	err := s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		if err := sc.Ledger().Reserve(ctx, 1, 3); err != nil {
			return err
		}
		o := &domorder.Order{Status: domorder.StatusPending, Items: []domorder.OrderItem{{ProductID: 1, Quantity: 3}}}
		if err := sc.Orders().Create(ctx, o); err != nil {
			return err
		}
		if err := sc.Carts().Clear(ctx, 7); err != nil {
			return err
		}
		if err := sc.Outbox().Append(ctx, domoutbox.Event{Topic: domoutbox.TopicOrderCreated}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.Equal(t, int64(3), stockOf(t, s, 1))
	require.Equal(t, 0, s.Orders().Count())
	items, err := s.Carts().ListItems(ctx, 7)
	require.NoError(t, err)
	require.Len(t, items, 1)
	pending, err := s.Outbox().FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestOrders_CreateAssignsIdentifiers(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	o := &domorder.Order{
		Status:  domorder.StatusPending,
		Items:   []domorder.OrderItem{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}},
		Payment: domorder.Payment{Method: domorder.PaymentCOD, Status: domorder.PaymentPending},
	}
	err := s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		return sc.Orders().Create(ctx, o)
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), o.ID)
	require.False(t, o.CreatedAt.IsZero())
	require.Equal(t, o.ID, o.Items[1].OrderID)
	require.Equal(t, o.ID, o.Payment.OrderID)

	got, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)

	got.Items[0].Quantity = 100
	again, err := s.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), again.Items[0].Quantity)
}

func TestOutbox_FetchAndMarkSent(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, sc uow.Scope) error {
		for i := 0; i < 3; i++ {
			if err := sc.Outbox().Append(ctx, domoutbox.Event{Topic: domoutbox.TopicOrderCreated}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	pending, err := s.Outbox().FetchPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, s.Outbox().MarkSent(ctx, pending[0].ID))
	pending, err = s.Outbox().FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, int64(2), pending[0].ID)
}

func TestDo_CanceledContext(t *testing.T) {
	s := seededStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(context.Context, uow.Scope) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestProducts_ListFilters(t *testing.T) {
	s := seededStore()
	s.PutProduct(domproduct.Product{ID: 3, Name: "Travel MUG", PriceCents: 900, Stock: 1, CategoryID: 7, IsActive: true})
	ctx := context.Background()

	all, err := s.Products().List(ctx, domproduct.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, int64(3), all[0].ID, "newest first")

	active, err := s.Products().List(ctx, domproduct.ListFilter{OnlyActive: true, Search: "mug"})
	require.NoError(t, err)
	require.Len(t, active, 2)

	category := int64(7)
	byCategory, err := s.Products().List(ctx, domproduct.ListFilter{CategoryID: &category})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, "Travel MUG", byCategory[0].Name)
}

func TestSettings_SnapshotInsideAndOutsideTx(t *testing.T) {
	s := NewStore()
	got, err := s.Settings().Get(context.Background())
	require.NoError(t, err)
	require.Zero(t, got, "unset settings read as zero values")

	s.SetSettings(domsettings.StoreSettings{ShippingFeeCents: 500, DiscountPercent: 10})

	got, err = s.Settings().Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(500), got.ShippingFeeCents)

	err = s.Do(context.Background(), func(ctx context.Context, sc uow.Scope) error {
		inTx, err := sc.Settings().Get(ctx)
		require.Equal(t, got, inTx)
		return err
	})
	require.NoError(t, err)
}
