package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is the outcome of evaluating a coupon against an order amount.
type Discount struct {
	CouponID    string
	Code        string
	Amount      decimal.Decimal
	FinalAmount decimal.Decimal
}

// Evaluate checks c against orderAmount at now and computes the discount.
// Checks run in order: active, expiry, usage limit, minimum order value.
// Evaluate never changes c.
func Evaluate(c *Coupon, orderAmount decimal.Decimal, now time.Time) (Discount, error) {
	if c == nil || !c.Active {
		return Discount{}, ErrInvalidCoupon
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return Discount{}, ErrCouponExpired
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return Discount{}, ErrUsageLimitExceeded
	}
	if orderAmount.LessThan(c.MinOrderValue) {
		return Discount{}, &MinimumOrderError{Min: c.MinOrderValue}
	}

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = orderAmount.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixed:
		amount = c.DiscountValue
	default:
		return Discount{}, ErrInvalidCoupon
	}

	// A zero cap is treated as no cap.
	if c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsPositive() && amount.GreaterThan(c.MaxDiscount.Decimal) {
		amount = c.MaxDiscount.Decimal
	}
	amount = decimal.Min(amount, orderAmount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	amount = amount.Round(2)

	return Discount{
		CouponID:    c.ID,
		Code:        c.Code,
		Amount:      amount,
		FinalAmount: orderAmount.Sub(amount),
	}, nil
}
