package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the order amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the order amount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCoupon is returned when a code is unknown or the coupon is inactive.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is past its expiry date.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitExceeded is returned when a coupon has no redemptions left.
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
	// ErrBelowMinimumOrder is matched by *MinimumOrderError.
	ErrBelowMinimumOrder = errors.New("order amount below coupon minimum")
	// ErrNotFound is returned when a coupon id does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrDuplicateCode is returned when creating a coupon whose code is taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrInvalidDefinition is returned when a coupon definition is malformed.
	ErrInvalidDefinition = errors.New("invalid coupon definition")
)

// MinimumOrderError reports the minimum order value the coupon requires.
type MinimumOrderError struct {
	Min decimal.Decimal
}

func (e *MinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order value is %s", e.Min.String())
}

// Is makes errors.Is(err, ErrBelowMinimumOrder) hold.
func (e *MinimumOrderError) Is(target error) bool {
	return target == ErrBelowMinimumOrder
}

// Coupon is a discount definition addressed by a unique code.
type Coupon struct {
	ID            string
	Title         string
	Description   string
	Image         string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	MinOrderValue decimal.Decimal
	// UsageLimit of zero means unlimited.
	UsageLimit int
	UsedCount  int
	ExpiresAt  *time.Time
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks a coupon definition before it is stored.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return errors.Wrap(ErrInvalidDefinition, "code is required")
	}
	if c.Title == "" {
		return errors.Wrap(ErrInvalidDefinition, "title is required")
	}
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return errors.Wrap(ErrInvalidDefinition, "percentage cannot exceed 100")
		}
	case DiscountFixed:
	default:
		return errors.Wrapf(ErrInvalidDefinition, "unsupported discount type %q", c.DiscountType)
	}
	if !c.DiscountValue.IsPositive() {
		return errors.Wrap(ErrInvalidDefinition, "discount value must be positive")
	}
	if c.MinOrderValue.IsNegative() {
		return errors.Wrap(ErrInvalidDefinition, "minimum order value cannot be negative")
	}
	if c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsNegative() {
		return errors.Wrap(ErrInvalidDefinition, "max discount cannot be negative")
	}
	if c.UsageLimit < 0 {
		return errors.Wrap(ErrInvalidDefinition, "usage limit cannot be negative")
	}
	return nil
}

// Patch holds the fields of a coupon update. Nil fields are left unchanged.
// A zero MaxDiscount removes the cap.
type Patch struct {
	Title         *string
	Description   *string
	Image         *string
	Code          *string
	DiscountType  *DiscountType
	DiscountValue *decimal.Decimal
	MaxDiscount   *decimal.Decimal
	MinOrderValue *decimal.Decimal
	UsageLimit    *int
	ExpiresAt     *time.Time
	Active        *bool
}

// Apply writes the set fields of p onto c. The usage counter is not part of
// a patch.
func (p Patch) Apply(c *Coupon) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Title, p.Title)
	set(&c.Description, p.Description)
	set(&c.Image, p.Image)
	if p.Code != nil {
		c.Code = NormalizeCode(*p.Code)
	}
	if p.DiscountType != nil {
		c.DiscountType = *p.DiscountType
	}
	if p.DiscountValue != nil {
		c.DiscountValue = *p.DiscountValue
	}
	if p.MaxDiscount != nil {
		c.MaxDiscount = decimal.NullDecimal{}
		if !p.MaxDiscount.IsZero() {
			c.MaxDiscount = decimal.NewNullDecimal(*p.MaxDiscount)
		}
	}
	if p.MinOrderValue != nil {
		c.MinOrderValue = *p.MinOrderValue
	}
	if p.UsageLimit != nil {
		c.UsageLimit = *p.UsageLimit
	}
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		c.ExpiresAt = &t
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
}

// Repository stores coupon definitions. Usage counters are only advanced by
// order placement, never through this interface.
type Repository interface {
	// FindByCode returns ErrInvalidCoupon when no coupon has the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Get(ctx context.Context, id string) (*Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	// ListActive returns active coupons that have not expired at now.
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
	Create(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id string) error
}
