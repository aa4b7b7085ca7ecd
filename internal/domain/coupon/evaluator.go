package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Evaluator computes what a coupon code is worth for an order amount without
// redeeming it.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, orderAmount decimal.Decimal) (Discount, error)
}

// RepoEvaluator implements Evaluator by looking coupons up in a Repository.
type RepoEvaluator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoEvaluator creates a RepoEvaluator backed by the given Repository.
func NewRepoEvaluator(repo Repository) *RepoEvaluator {
	return &RepoEvaluator{repo: repo, now: time.Now}
}

// Evaluate normalizes code, loads the coupon and applies Evaluate.
func (v *RepoEvaluator) Evaluate(ctx context.Context, code string, orderAmount decimal.Decimal) (Discount, error) {
	q, err := v.Quote(ctx, code)
	if err != nil {
		return Discount{}, err
	}
	return q(orderAmount)
}

// Quote is a coupon loaded ahead of time. Calling it does no I/O.
type Quote func(orderAmount decimal.Decimal) (Discount, error)

// Quoter loads a coupon code for later evaluation, so that a checkout
// transaction does not need a second connection to price its coupon.
type Quoter interface {
	Quote(ctx context.Context, code string) (Quote, error)
}

// Quote normalizes code and loads the coupon. An unknown code is not an
// error here: the returned Quote reports ErrInvalidCoupon, so cart errors
// found before pricing keep precedence. Only lookup failures are returned.
func (v *RepoEvaluator) Quote(ctx context.Context, code string) (Quote, error) {
	code = NormalizeCode(code)
	if code == "" {
		return invalidQuote, nil
	}

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return invalidQuote, nil
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	return func(orderAmount decimal.Decimal) (Discount, error) {
		return Evaluate(c, orderAmount, v.now())
	}, nil
}

func invalidQuote(decimal.Decimal) (Discount, error) {
	return Discount{}, ErrInvalidCoupon
}
