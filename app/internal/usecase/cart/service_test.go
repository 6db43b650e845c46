package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domcart "example.com/storefront/app/internal/domain/cart"
	domproduct "example.com/storefront/app/internal/domain/product"
)

type fakeCarts struct {
	items   map[int64][]domcart.Item
	listErr error
	addErr  error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{items: make(map[int64][]domcart.Item)}
}

func (f *fakeCarts) AddOrUpdateItem(ctx context.Context, userID int64, productID int64, quantity int64) error {
	if f.addErr != nil {
		return f.addErr
	}
	for i, item := range f.items[userID] {
		if item.ProductID == productID {
			f.items[userID][i].Quantity += quantity
			return nil
		}
	}
	f.items[userID] = append(f.items[userID], domcart.Item{ProductID: productID, Quantity: quantity})
	return nil
}

func (f *fakeCarts) ListItems(ctx context.Context, userID int64) ([]domcart.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domcart.Item(nil), f.items[userID]...), nil
}

func (f *fakeCarts) quantity(userID, productID int64) int64 {
	for _, item := range f.items[userID] {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

type fakeProducts struct {
	products map[int64]domproduct.Product
	getErr   error
}

func (f *fakeProducts) GetByID(ctx context.Context, id int64) (*domproduct.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, domproduct.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetByIDs(ctx context.Context, ids []int64) ([]*domproduct.Product, error) {
	var out []*domproduct.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func shelf() *fakeProducts {
	return &fakeProducts{products: map[int64]domproduct.Product{
		1: {ID: 1, Name: "Mug", PriceCents: 799, Stock: 10, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountPercentage, Value: 10}},
		2: {ID: 2, Name: "Tee", PriceCents: 1000, Stock: 3, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountFixed, Value: 2}},
		3: {ID: 3, Name: "Retired", PriceCents: 500, Stock: 5, IsActive: false},
	}}
}

func TestAddToCart(t *testing.T) {
	tests := []struct {
		name      string
		productID int64
		quantity  int64
		inCart    int64
		wantErr   error
		wantQty   int64
	}{
		{name: "adds new line", productID: 1, quantity: 3, wantQty: 3},
		{name: "merges existing line", productID: 1, quantity: 2, inCart: 4, wantQty: 6},
		{name: "exact stock limit", productID: 2, quantity: 3, wantQty: 3},
		{name: "unknown product", productID: 99, quantity: 1, wantErr: domproduct.ErrProductNotFound},
		{name: "inactive product", productID: 3, quantity: 1, wantErr: domproduct.ErrProductNotFound},
		{name: "zero quantity", productID: 1, quantity: 0, wantErr: domcart.ErrInvalidQuantity},
		{name: "negative quantity", productID: 1, quantity: -2, wantErr: domcart.ErrInvalidQuantity},
		{name: "more than stock", productID: 2, quantity: 4, wantErr: domproduct.ErrOutOfStock},
		{name: "merged more than stock", productID: 2, quantity: 2, inCart: 2, wantErr: domproduct.ErrOutOfStock, wantQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			carts := newFakeCarts()
			if tt.inCart > 0 {
				carts.items[100] = []domcart.Item{{ProductID: tt.productID, Quantity: tt.inCart}}
			}
			svc := NewService(carts, shelf())

			err := svc.AddToCart(context.Background(), 100, tt.productID, tt.quantity)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantQty, carts.quantity(100, tt.productID))
		})
	}
}

func TestAddToCart_UsersAreIsolated(t *testing.T) {
	carts := newFakeCarts()
	svc := NewService(carts, shelf())

	require.NoError(t, svc.AddToCart(context.Background(), 100, 2, 3))
	require.NoError(t, svc.AddToCart(context.Background(), 101, 2, 3))

	require.Equal(t, int64(3), carts.quantity(100, 2))
	require.Equal(t, int64(3), carts.quantity(101, 2))
}

func TestAddToCart_RepositoryErrors(t *testing.T) {
	boom := errors.New("db down")

	products := shelf()
	products.getErr = boom
	err := NewService(newFakeCarts(), products).AddToCart(context.Background(), 100, 1, 1)
	require.ErrorIs(t, err, boom)

	carts := newFakeCarts()
	carts.listErr = boom
	err = NewService(carts, shelf()).AddToCart(context.Background(), 100, 1, 1)
	require.ErrorIs(t, err, boom)

	carts = newFakeCarts()
	carts.addErr = boom
	err = NewService(carts, shelf()).AddToCart(context.Background(), 100, 1, 1)
	require.ErrorIs(t, err, boom)
}

func TestGetCart_PricesLinesWithDiscounts(t *testing.T) {
	carts := newFakeCarts()
	carts.items[100] = []domcart.Item{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}}
	carts.items[101] = []domcart.Item{{ProductID: 1, Quantity: 9}}
	svc := NewService(carts, shelf())

	cart, err := svc.GetCart(context.Background(), 100)

	require.NoError(t, err)
	require.Equal(t, int64(100), cart.UserID)
	require.Len(t, cart.Items, 2)
	require.Equal(t, "Mug", cart.Items[0].ProductName)
	require.Equal(t, int64(719), cart.Items[0].UnitPriceCents)
	require.Equal(t, int64(1438), cart.Items[0].LineTotalCents)
	require.Equal(t, int64(800), cart.Items[1].UnitPriceCents)
	require.Equal(t, int64(2400), cart.Items[1].LineTotalCents)
	require.Equal(t, int64(3838), cart.SubtotalCents)
}

func TestGetCart_Empty(t *testing.T) {
	svc := NewService(newFakeCarts(), shelf())

	cart, err := svc.GetCart(context.Background(), 100)

	require.NoError(t, err)
	require.NotNil(t, cart.Items)
	require.Empty(t, cart.Items)
	require.Zero(t, cart.SubtotalCents)
}

func TestGetCart_SkipsDeletedProducts(t *testing.T) {
	carts := newFakeCarts()
	carts.items[100] = []domcart.Item{{ProductID: 42, Quantity: 1}, {ProductID: 2, Quantity: 1}}
	svc := NewService(carts, shelf())

	cart, err := svc.GetCart(context.Background(), 100)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, int64(2), cart.Items[0].ProductID)
	require.Equal(t, int64(800), cart.SubtotalCents)
}

func TestGetCart_ListError(t *testing.T) {
	carts := newFakeCarts()
	carts.listErr = errors.New("db down")

	_, err := NewService(carts, shelf()).GetCart(context.Background(), 100)

	require.ErrorIs(t, err, carts.listErr)
}
