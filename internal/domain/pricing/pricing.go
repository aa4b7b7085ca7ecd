// Package pricing computes order totals from priced line items.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart is returned when there is nothing to price.
var ErrEmptyCart = errors.New("cart is empty")

var (
	// FreeShippingAbove is the items total above which shipping is free.
	FreeShippingAbove = decimal.NewFromInt(999)
	// ShippingFee is charged when the items total does not exceed FreeShippingAbove.
	ShippingFee = decimal.NewFromInt(50)
	// TaxRate is applied to the items total.
	TaxRate = decimal.RequireFromString("0.05")
)

// Line is a single priced entry.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the result of pricing a set of lines.
type Breakdown struct {
	Items    decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Compute prices lines. Tax is rounded to a whole amount, half away from zero.
func Compute(lines []Line) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, ErrEmptyCart
	}

	items := decimal.Zero
	for _, l := range lines {
		items = items.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := ShippingFee
	if items.GreaterThan(FreeShippingAbove) {
		shipping = decimal.Zero
	}
	tax := items.Mul(TaxRate).Round(0)

	return Breakdown{
		Items:    items,
		Shipping: shipping,
		Tax:      tax,
		Discount: decimal.Zero,
		Total:    items.Add(shipping).Add(tax),
	}, nil
}

// ApplyDiscount returns b with discount d taken off the total, floored at zero.
func (b Breakdown) ApplyDiscount(d decimal.Decimal) Breakdown {
	b.Discount = d
	b.Total = b.Items.Add(b.Shipping).Add(b.Tax).Sub(d)
	if b.Total.IsNegative() {
		b.Total = decimal.Zero
	}
	return b
}
