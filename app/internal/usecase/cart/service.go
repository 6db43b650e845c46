package cart

import (
	"context"

	domcart "example.com/storefront/app/internal/domain/cart"
	"example.com/storefront/app/internal/domain/pricing"
	domproduct "example.com/storefront/app/internal/domain/product"
)

type CartRepository interface {
	AddOrUpdateItem(ctx context.Context, userID int64, productID int64, quantity int64) error
	ListItems(ctx context.Context, userID int64) ([]domcart.Item, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domproduct.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domproduct.Product, error)
}

type Service struct {
	cartRepo    CartRepository
	productRepo ProductRepository
}

func NewService(cartRepo CartRepository, productRepo ProductRepository) *Service {
	return &Service{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// AddToCart adds quantity units of a product, merging with an existing line.
// The merged quantity may not exceed current stock.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int64) error {
	if quantity <= 0 {
		return domcart.ErrInvalidQuantity
	}

	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return domproduct.ErrProductNotFound
	}

	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return err
	}
	total := quantity
	for _, item := range items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	if total > p.Stock {
		return domproduct.ErrOutOfStock
	}

	return s.cartRepo.AddOrUpdateItem(ctx, userID, productID, quantity)
}

// GetCart prices the cart with current product prices. Lines whose product is
// gone are left out.
func (s *Service) GetCart(ctx context.Context, userID int64) (*domcart.Cart, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &domcart.Cart{UserID: userID, Items: []domcart.DetailedItem{}}, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*domproduct.Product)
	for _, p := range products {
		productMap[p.ID] = p
	}

	cart := &domcart.Cart{
		UserID: userID,
		Items:  make([]domcart.DetailedItem, 0, len(items)),
	}

	for _, item := range items {
		p, ok := productMap[item.ProductID]
		if !ok {
			continue
		}
		unit := pricing.UnitPrice(*p)
		line := pricing.LineTotal(unit, item.Quantity)
		cart.Items = append(cart.Items, domcart.DetailedItem{
			Item:           item,
			ProductName:    p.Name,
			UnitPriceCents: unit,
			LineTotalCents: line,
		})
		cart.SubtotalCents += line
	}

	return cart, nil
}
