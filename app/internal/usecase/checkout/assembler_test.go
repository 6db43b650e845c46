package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domorder "example.com/storefront/app/internal/domain/order"
	domproduct "example.com/storefront/app/internal/domain/product"
)

type mockProductRepository struct {
	products map[int64]*domproduct.Product
	err      error
	calls    int
}

func newMockProductRepository(products ...domproduct.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[int64]*domproduct.Product)}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
	}
	return m
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domproduct.Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var result []*domproduct.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cloned := *p
			result = append(result, &cloned)
		}
	}
	return result, nil
}

var testShipping = domorder.ShippingAddress{
	FullName:     "Jane Doe",
	Phone:        "+15550100",
	AddressLine1: "1 Main St",
	City:         "Springfield",
}

func TestAssemble_PricesEveryLine(t *testing.T) {
	repo := newMockProductRepository(
		domproduct.Product{ID: 1, Name: "Mug", PriceCents: 799, Stock: 10, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountPercentage, Value: 10}},
		domproduct.Product{ID: 2, Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountFixed, Value: 2}},
	)
	a := NewAssembler(repo)

	draft, err := a.Assemble(context.Background(), nil, testShipping, []LineRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	}, SourceItems)

	require.NoError(t, err)
	require.Equal(t, SourceItems, draft.Source)
	require.Nil(t, draft.UserID)
	require.Equal(t, testShipping, draft.Shipping)
	require.Len(t, draft.Lines, 2)
	require.Equal(t, DraftLine{ProductID: 1, Name: "Mug", UnitPriceCents: 719, Quantity: 2, LineTotalCents: 1438}, draft.Lines[0])
	require.Equal(t, DraftLine{ProductID: 2, Name: "Tee", UnitPriceCents: 800, Quantity: 3, LineTotalCents: 2400}, draft.Lines[1])
	require.Equal(t, int64(3838), draft.SubtotalCents)
	require.Equal(t, 1, repo.calls, "products should be resolved in one batch")
}

func TestAssemble_RepeatedProductKeepsSeparateLines(t *testing.T) {
	repo := newMockProductRepository(
		domproduct.Product{ID: 1, Name: "Mug", PriceCents: 500, Stock: 10, IsActive: true},
	)
	a := NewAssembler(repo)

	draft, err := a.Assemble(context.Background(), nil, testShipping, []LineRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 1, Quantity: 3},
	}, SourceItems)

	require.NoError(t, err)
	require.Len(t, draft.Lines, 2)
	require.Equal(t, int64(2500), draft.SubtotalCents)
}

func TestAssemble_Failures(t *testing.T) {
	tests := []struct {
		name    string
		lines   []LineRequest
		wantErr error
	}{
		{
			name:    "missing product",
			lines:   []LineRequest{{ProductID: 42, Quantity: 1}},
			wantErr: domproduct.ErrProductNotFound,
		},
		{
			name:    "inactive product",
			lines:   []LineRequest{{ProductID: 2, Quantity: 1}},
			wantErr: domproduct.ErrProductNotFound,
		},
		{
			name:    "quantity above stock",
			lines:   []LineRequest{{ProductID: 1, Quantity: 6}},
			wantErr: domproduct.ErrOutOfStock,
		},
		{
			name:    "second line fails",
			lines:   []LineRequest{{ProductID: 1, Quantity: 1}, {ProductID: 42, Quantity: 1}},
			wantErr: domproduct.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockProductRepository(
				domproduct.Product{ID: 1, Name: "Mug", PriceCents: 500, Stock: 5, IsActive: true},
				domproduct.Product{ID: 2, Name: "Old", PriceCents: 500, Stock: 5, IsActive: false},
			)
			draft, err := NewAssembler(repo).Assemble(context.Background(), nil, testShipping, tt.lines, SourceItems)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, draft)
		})
	}
}

func TestAssemble_RepositoryError(t *testing.T) {
	repo := newMockProductRepository()
	repo.err = errors.New("connection reset")

	_, err := NewAssembler(repo).Assemble(context.Background(), nil, testShipping, []LineRequest{{ProductID: 1, Quantity: 1}}, SourceCart)
	require.EqualError(t, err, "connection reset")
}
