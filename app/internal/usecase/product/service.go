package product

import (
	"context"
	"strings"

	"example.com/storefront/app/internal/domain/pricing"
	dom "example.com/storefront/app/internal/domain/product"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*dom.Product, error)
	List(ctx context.Context, filter dom.ListFilter) ([]*dom.Product, error)
}

// Listing is a product as shoppers see it, priced the way checkout will
// price it.
type Listing struct {
	*dom.Product
	UnitPriceCents int64
}

// Service is the read-only storefront catalog. Inactive products are hidden.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Listing, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, dom.ErrProductNotFound
	}
	return listing(p), nil
}

func (s *Service) List(ctx context.Context, filter dom.ListFilter) ([]*Listing, error) {
	filter.OnlyActive = true
	filter.Search = strings.TrimSpace(filter.Search)

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Listing, 0, len(products))
	for _, p := range products {
		out = append(out, listing(p))
	}
	return out, nil
}

func listing(p *dom.Product) *Listing {
	return &Listing{Product: p, UnitPriceCents: pricing.UnitPrice(*p)}
}
