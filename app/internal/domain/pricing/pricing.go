// Package pricing computes checkout money amounts. Every amount is an integer
// number of minor currency units; floating point is only used for the
// intermediate percentage product, rounded half away from zero.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	domproduct "example.com/storefront/app/internal/domain/product"
)

const MaxDiscountPercent = 90

// UnitPrice returns the per-unit price of p after its product-level discount.
func UnitPrice(p domproduct.Product) int64 {
	base := p.PriceCents
	d := p.Discount
	if d == nil || !usable(d.Value) {
		return base
	}

	switch d.Kind {
	case domproduct.DiscountFixed:
		off := decimal.NewFromFloat(d.Value).Shift(2).Round(0)
		if off.GreaterThanOrEqual(decimal.NewFromInt(base)) {
			return 0
		}
		return nonNegative(base - off.IntPart())
	case domproduct.DiscountPercentage:
		return nonNegative(base - percentOf(base, ClampPercent(d.Value)))
	default:
		return base
	}
}

func LineTotal(unitPriceCents, quantity int64) int64 {
	return unitPriceCents * quantity
}

// OrderDiscount is the storefront-wide discount on subtotal. The configured
// percent is truncated to a whole number before clamping.
func OrderDiscount(subtotal int64, storePercent float64) int64 {
	if !usable(storePercent) {
		return 0
	}
	off := percentOf(subtotal, ClampPercent(math.Trunc(storePercent)))
	if off < 0 {
		return 0
	}
	if off > subtotal {
		return subtotal
	}
	return off
}

func OrderTotal(subtotal, discount, shipping int64) int64 {
	return nonNegative(subtotal - discount + shipping)
}

func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return v
}

func percentOf(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
