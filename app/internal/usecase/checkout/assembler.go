package checkout

import (
	"context"

	domorder "example.com/storefront/app/internal/domain/order"
	"example.com/storefront/app/internal/domain/pricing"
	domproduct "example.com/storefront/app/internal/domain/product"
)

type Source string

const (
	SourceCart  Source = "cart"
	SourceItems Source = "items"
)

type LineRequest struct {
	ProductID int64
	Quantity  int64
}

// Draft is a priced, not yet persisted order.
type Draft struct {
	Source        Source
	UserID        *int64
	Shipping      domorder.ShippingAddress
	Lines         []DraftLine
	SubtotalCents int64
}

type DraftLine struct {
	ProductID      int64
	Name           string
	UnitPriceCents int64
	Quantity       int64
	LineTotalCents int64
}

type Assembler struct {
	products ProductRepository
}

func NewAssembler(products ProductRepository) *Assembler {
	return &Assembler{products: products}
}

// Assemble resolves and prices every line. The stock check here is advisory;
// the reservation inside the checkout transaction is what counts. Repeated
// product ids are kept as separate lines.
func (a *Assembler) Assemble(ctx context.Context, userID *int64, shipping domorder.ShippingAddress, lines []LineRequest, source Source) (*Draft, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	products, err := a.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	productMap := make(map[int64]*domproduct.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	draft := &Draft{
		Source:   source,
		UserID:   userID,
		Shipping: shipping,
		Lines:    make([]DraftLine, 0, len(lines)),
	}
	for _, l := range lines {
		p, ok := productMap[l.ProductID]
		if !ok || !p.IsActive {
			return nil, domproduct.ErrProductNotFound
		}
		if l.Quantity > p.Stock {
			return nil, domproduct.ErrOutOfStock
		}

		unit := pricing.UnitPrice(*p)
		line := DraftLine{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: unit,
			Quantity:       l.Quantity,
			LineTotalCents: pricing.LineTotal(unit, l.Quantity),
		}
		draft.Lines = append(draft.Lines, line)
		draft.SubtotalCents += line.LineTotalCents
	}
	return draft, nil
}
