package order

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// NewPublicID returns an id of the form ORD-YYYYMMDD-NNNN using the UTC date
// of now and a random four digit suffix.
func NewPublicID(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%d", now.UTC().Format("20060102"), 1000+rand.IntN(9000))
}

// Draft is everything needed to assemble an order.
type Draft struct {
	UserID        string
	PublicID      string
	Lines         []Line
	Address       address.Address
	PaymentMethod PaymentMethod
	Pricing       pricing.Breakdown
	// Discount is nil when no coupon was applied.
	Discount *coupon.Discount
	Now      time.Time
}

// Assemble builds a new order from d. Items and address are copied so later
// changes to products or saved addresses do not reach the order.
func Assemble(d Draft) *Order {
	items := make([]Item, len(d.Lines))
	for i, l := range d.Lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Size:      l.Size,
			Color:     l.Color,
			Image:     l.Image,
		}
	}

	line2 := d.Address.Locality
	if line2 == "" {
		line2 = d.Address.Landmark
	}

	b := d.Pricing
	o := &Order{
		ID:       uuid.New().String(),
		PublicID: d.PublicID,
		UserID:   d.UserID,
		Items:    items,
		ShippingAddress: ShippingAddress{
			FullName:      d.Address.FullName,
			Phone:         d.Address.Phone,
			AddressLine1:  d.Address.Line,
			AddressLine2:  line2,
			City:          d.Address.City,
			State:         d.Address.State,
			Pincode:       d.Address.Pincode,
			AddressID:     d.Address.ID,
			SuggestedName: d.Address.SuggestedName,
		},
		PaymentMethod: d.PaymentMethod,
		Status:        StatusPlaced,
		CreatedAt:     d.Now,
		UpdatedAt:     d.Now,
	}

	if d.Discount != nil {
		b = b.ApplyDiscount(d.Discount.Amount)
		o.CouponCode = d.Discount.Code
		o.CouponID = d.Discount.CouponID
	}
	o.ItemsPrice = b.Items
	o.ShippingPrice = b.Shipping
	o.TaxPrice = b.Tax
	o.Discount = b.Discount
	o.TotalPrice = b.Total

	if d.PaymentMethod.Instant() {
		now := d.Now
		o.IsPaid = true
		o.PaidAt = &now
	}
	return o
}

func priceLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = pricing.Line{UnitPrice: l.Price, Quantity: l.Quantity}
	}
	return out
}

// Tracking is the public view of an order looked up by its public id.
type Tracking struct {
	PublicID        string
	Status          Status
	IsPaid          bool
	IsDelivered     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
	Items           []Item
	ShippingAddress ShippingAddress
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TaxPrice        decimal.Decimal
	Discount        decimal.Decimal
	TotalPrice      decimal.Decimal
	Customer        *Customer
}

// Track projects o into its public tracking view. Product and address ids
// are cleared; the public id is the only identifier it carries.
func Track(o *Order) *Tracking {
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.ProductID = ""
		items[i] = it
	}
	addr := o.ShippingAddress
	addr.AddressID = ""

	return &Tracking{
		PublicID:        o.PublicID,
		Status:          o.Status,
		IsPaid:          o.IsPaid,
		IsDelivered:     o.IsDelivered,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		DeliveredAt:     o.DeliveredAt,
		Items:           items,
		ShippingAddress: addr,
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TaxPrice:        o.TaxPrice,
		Discount:        o.Discount,
		TotalPrice:      o.TotalPrice,
		Customer:        o.Customer,
	}
}
