package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an order does not exist or is not visible to the caller.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidPaymentMethod is returned for an unsupported payment method.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrOrderIDExhausted is returned when no unique public id could be generated.
	ErrOrderIDExhausted = errors.New("could not allocate a unique order id")
	// ErrInvalidFilter is returned when a listing filter cannot be parsed.
	ErrInvalidFilter = errors.New("invalid order filter")
)

// MaxPublicIDAttempts bounds how many public ids Repository.Place tries
// before giving up with ErrOrderIDExhausted.
const MaxPublicIDAttempts = 5

// ProductNotFoundError indicates a cart references a product that no longer exists.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentUPI    PaymentMethod = "UPI"
	PaymentWallet PaymentMethod = "WALLET"
)

// ParsePaymentMethod accepts the supported methods case-insensitively.
// An empty string selects cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case "":
		return PaymentCOD, nil
	case PaymentCOD, PaymentUPI, PaymentWallet:
		return m, nil
	default:
		return "", errors.Wrapf(ErrInvalidPaymentMethod, "%q", s)
	}
}

// Instant reports whether the method is confirmed at checkout, making the
// order paid on creation.
func (m PaymentMethod) Instant() bool {
	return m == PaymentUPI || m == PaymentWallet
}

// Item is an immutable snapshot of a purchased product.
type Item struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// ShippingAddress is the address snapshot an order ships to.
type ShippingAddress struct {
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	AddressID     string `json:"addressId,omitempty"`
	SuggestedName string `json:"suggestedName,omitempty"`
}

// Customer is the name and e-mail of the ordering user, filled on reads.
type Customer struct {
	Name  string
	Email string
}

// Order is a placed order.
type Order struct {
	ID              string
	PublicID        string
	UserID          string
	Customer        *Customer
	Items           []Item
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod

	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	Discount      decimal.Decimal
	TotalPrice    decimal.Decimal
	CouponCode    string
	// CouponID is redeemed when the order is stored.
	CouponID string

	IsPaid       bool
	PaidAt       *time.Time
	IsDelivered  bool
	DeliveredAt  *time.Time
	Status       Status
	CancelReason string
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Line is a cart line joined with the product's current data, as read
// inside the checkout critical section.
type Line struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int
	Size      string
	Color     string
}

// BuildFunc turns locked cart lines into an order ready to store.
type BuildFunc func(ctx context.Context, lines []Line) (*Order, error)

// Placement parameterizes Repository.Place.
type Placement struct {
	Build BuildFunc
	// NewPublicID is called for a fresh public id after a collision.
	NewPublicID func() string
}

// Filter narrows an admin order listing. Zero values do not filter.
type Filter struct {
	// Search matches public id, customer name or e-mail, case-insensitively.
	Search string
	From   time.Time
	To     time.Time
}

// ParseFilter builds a Filter from query values. date is YYYY-MM-DD, month
// is YYYY-MM; month wins when both are set. Both are UTC.
func ParseFilter(search, date, month string) (Filter, error) {
	f := Filter{Search: strings.TrimSpace(search)}
	if date != "" {
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return Filter{}, errors.Wrapf(ErrInvalidFilter, "date %q", date)
		}
		f.From, f.To = d, d.AddDate(0, 0, 1)
	}
	if month != "" {
		m, err := time.Parse("2006-01", month)
		if err != nil {
			return Filter{}, errors.Wrapf(ErrInvalidFilter, "month %q", month)
		}
		f.From, f.To = m, m.AddDate(0, 1, 0)
	}
	return f, nil
}

// Stats summarizes orders for the admin dashboard.
type Stats struct {
	TotalOrders int
	// Revenue sums the totals of paid orders.
	Revenue decimal.Decimal
}

// Repository persists orders.
type Repository interface {
	// Place locks the user's cart, builds the order from its lines, stores
	// it, redeems its coupon and deletes the cart, all atomically.
	Place(ctx context.Context, userID string, p Placement) (*Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	GetByPublicID(ctx context.Context, publicID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// Update runs fn on the order under a row lock and stores the result.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
	DeleteForUser(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
}
