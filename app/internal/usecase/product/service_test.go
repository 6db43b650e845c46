package product

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domproduct "example.com/storefront/app/internal/domain/product"
)

type mockProductRepository struct {
	products   map[int64]*domproduct.Product
	lastFilter domproduct.ListFilter
	listErr    error
}

func newMockProductRepository(products ...*domproduct.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[int64]*domproduct.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domproduct.Product, error) {
	if product, ok := m.products[id]; ok {
		cloned := *product
		return &cloned, nil
	}
	return nil, domproduct.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter domproduct.ListFilter) ([]*domproduct.Product, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*domproduct.Product
	for _, p := range m.products {
		if filter.OnlyActive && !p.IsActive {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cloned := *p
		result = append(result, &cloned)
	}
	return result, nil
}

func catalog() *mockProductRepository {
	return newMockProductRepository(
		&domproduct.Product{ID: 1, Name: "Mug", PriceCents: 799, Stock: 10, CategoryID: 1, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountPercentage, Value: 10}},
		&domproduct.Product{ID: 2, Name: "Tee", PriceCents: 1000, Stock: 5, CategoryID: 2, IsActive: true,
			Discount: &domproduct.Discount{Kind: domproduct.DiscountFixed, Value: 2}},
		&domproduct.Product{ID: 3, Name: "Old mug", PriceCents: 500, Stock: 0, CategoryID: 1, IsActive: false},
	)
}

func TestGetByID_PricesListing(t *testing.T) {
	svc := NewService(catalog())

	mug, err := svc.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(799), mug.PriceCents)
	require.Equal(t, int64(719), mug.UnitPriceCents)

	tee, err := svc.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(800), tee.UnitPriceCents)
}

func TestGetByID_HidesInactiveAndMissing(t *testing.T) {
	svc := NewService(catalog())

	_, err := svc.GetByID(context.Background(), 3)
	require.ErrorIs(t, err, domproduct.ErrProductNotFound)

	_, err = svc.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, domproduct.ErrProductNotFound)
}

func TestList_OnlyActive(t *testing.T) {
	repo := catalog()
	svc := NewService(repo)

	listings, err := svc.List(context.Background(), domproduct.ListFilter{Search: "  mug "})

	require.NoError(t, err)
	require.True(t, repo.lastFilter.OnlyActive, "catalog must never show inactive products")
	require.Equal(t, "mug", repo.lastFilter.Search)
	require.Len(t, listings, 1)
	require.Equal(t, int64(1), listings[0].ID)
	require.Equal(t, int64(719), listings[0].UnitPriceCents)
}

func TestList_ByCategory(t *testing.T) {
	svc := NewService(catalog())
	category := int64(2)

	listings, err := svc.List(context.Background(), domproduct.ListFilter{CategoryID: &category})

	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "Tee", listings[0].Name)
}

func TestList_RepositoryError(t *testing.T) {
	repo := catalog()
	repo.listErr = errors.New("db down")
	svc := NewService(repo)

	_, err := svc.List(context.Background(), domproduct.ListFilter{})
	require.ErrorIs(t, err, repo.listErr)
}
