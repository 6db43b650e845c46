package product

type DiscountKind string

const (
	DiscountPercentage DiscountKind = "PERCENTAGE"
	DiscountFixed      DiscountKind = "FIXED"
)

func (k DiscountKind) IsValid() bool {
	switch k {
	case DiscountPercentage, DiscountFixed:
		return true
	default:
		return false
	}
}

// Discount is a product-level price reduction. For FIXED the value is in
// major currency units (2 means 200 cents); for PERCENTAGE it is a percent.
type Discount struct {
	Kind  DiscountKind
	Value float64
}

type Product struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Stock       int64
	CategoryID  int64
	IsActive    bool
	Discount    *Discount
}
