package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// AddressLister returns a user's saved addresses.
type AddressLister interface {
	List(ctx context.Context, userID string) ([]address.Address, error)
}

// EventType names an order event.
type EventType string

const (
	EventPlaced        EventType = "order.placed"
	EventStatusChanged EventType = "order.status_changed"
	EventCancelled     EventType = "order.cancelled"
)

// Event is published after an order changes.
type Event struct {
	Type     EventType `json:"type"`
	OrderID  string    `json:"id"`
	PublicID string    `json:"orderId"`
	UserID   string    `json:"userId"`
	Status   Status    `json:"status"`
	IsPaid   bool      `json:"isPaid"`
	At       time.Time `json:"at"`
}

// Notifier receives order events. Publish must not block on slow consumers.
type Notifier interface {
	Publish(ctx context.Context, e Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, Event) {}

// CheckoutRequest holds the input for turning a cart into an order.
type CheckoutRequest struct {
	AddressID     string
	PaymentMethod string
	CouponCode    string
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Notifier       Notifier
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	Now            func() time.Time
}

func (o *Options) setDefaults() {
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Service encapsulates order placement and lifecycle logic.
type Service struct {
	orders    Repository
	addresses AddressLister
	coupons   coupon.Quoter
	notifier  Notifier
	now       func() time.Time
	tracer    trace.Tracer

	placed    metric.Int64Counter
	cancelled metric.Int64Counter
	redeemed  metric.Int64Counter
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	addresses AddressLister,
	coupons coupon.Quoter,
	opts Options,
) (*Service, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("storefront/order")
	placed, err := meter.Int64Counter("shop.orders.placed",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	cancelled, err := meter.Int64Counter("shop.orders.cancelled",
		metric.WithDescription("Orders cancelled"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders cancelled counter")
	}
	redeemed, err := meter.Int64Counter("shop.coupons.redeemed",
		metric.WithDescription("Coupons redeemed at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "coupons redeemed counter")
	}

	return &Service{
		orders:    orders,
		addresses: addresses,
		coupons:   coupons,
		notifier:  opts.Notifier,
		now:       opts.Now,
		tracer:    opts.TracerProvider.Tracer("storefront/order"),
		placed:    placed,
		cancelled: cancelled,
		redeemed:  redeemed,
	}, nil
}

// Checkout converts the user's cart into an order. The cart is read, priced
// and removed under the repository's per-user lock, so two concurrent
// checkouts for one user produce at most one order.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Checkout",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	addrs, err := s.addresses.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	addr, err := address.Resolve(addrs, req.AddressID)
	if err != nil {
		return nil, err
	}

	// The coupon is loaded before the cart lock is taken; build only prices it.
	var quote coupon.Quote
	if code := coupon.NormalizeCode(req.CouponCode); code != "" {
		quote, err = s.coupons.Quote(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "load coupon")
		}
	}

	build := func(_ context.Context, lines []Line) (*Order, error) {
		b, err := pricing.Compute(priceLines(lines))
		if err != nil {
			return nil, err
		}

		var discount *coupon.Discount
		if quote != nil {
			d, err := quote(b.Total)
			if err != nil {
				return nil, errors.Wrap(err, "evaluate coupon")
			}
			discount = &d
		}

		now := s.now()
		return Assemble(Draft{
			UserID:        userID,
			PublicID:      NewPublicID(now),
			Lines:         lines,
			Address:       addr,
			PaymentMethod: method,
			Pricing:       b,
			Discount:      discount,
			Now:           now,
		}), nil
	}

	o, err := s.orders.Place(ctx, userID, Placement{
		Build:       build,
		NewPublicID: func() string { return NewPublicID(s.now()) },
	})
	if err != nil {
		return nil, errors.Wrap(err, "place order")
	}

	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(o.PaymentMethod))))
	if o.CouponCode != "" {
		s.redeemed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", o.CouponCode)))
	}
	span.SetAttributes(attribute.String("order.id", o.PublicID))
	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.PublicID),
		zap.String("user_id", userID),
		zap.String("total", o.TotalPrice.String()),
		zap.String("coupon", o.CouponCode),
	)
	s.publish(ctx, EventPlaced, o)
	return o, nil
}

// Track returns the public tracking view for a public order id.
func (s *Service) Track(ctx context.Context, publicID string) (*Tracking, error) {
	o, err := s.orders.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return Track(o), nil
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor) ([]Order, error) {
	if actor.UserID == "" {
		return nil, auth.ErrUnauthorized
	}
	return s.orders.ListByUser(ctx, actor.UserID)
}

// List returns all orders matching f. Admin only.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter) ([]Order, error) {
	if !actor.Admin {
		return nil, auth.ErrForbidden
	}
	return s.orders.List(ctx, f)
}

// Cancel cancels an order on behalf of its owner or an admin.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id, reason string) (*Order, error) {
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		if !actor.CanAccess(o.UserID) {
			return auth.ErrForbidden
		}
		return o.Cancel(reason, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.cancelled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("by_admin", actor.Admin && actor.UserID != o.UserID)))
	zctx.From(ctx).Info("Order cancelled",
		zap.String("order_id", o.PublicID),
		zap.String("reason", reason),
	)
	s.publish(ctx, EventCancelled, o)
	return o, nil
}

// Update applies an administrative status, payment or delivery change.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, u Update) (*Order, error) {
	if !actor.Admin {
		return nil, auth.ErrForbidden
	}

	var before Status
	o, err := s.orders.Update(ctx, id, func(o *Order) error {
		before = o.Status
		return o.Apply(u, s.now())
	})
	if err != nil {
		return nil, err
	}

	if o.Status != before {
		zctx.From(ctx).Info("Order status changed",
			zap.String("order_id", o.PublicID),
			zap.String("from", string(before)),
			zap.String("to", string(o.Status)),
		)
		if o.Status == StatusCancelled {
			s.cancelled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("by_admin", true)))
		}
	}
	s.publish(ctx, EventStatusChanged, o)
	return o, nil
}

// DeleteMine removes one of the caller's orders from their history.
func (s *Service) DeleteMine(ctx context.Context, actor auth.Actor, id string) error {
	if actor.UserID == "" {
		return auth.ErrUnauthorized
	}
	return s.orders.DeleteForUser(ctx, actor.UserID, id)
}

// ClearHistory removes all of the caller's orders and reports how many.
func (s *Service) ClearHistory(ctx context.Context, actor auth.Actor) (int, error) {
	if actor.UserID == "" {
		return 0, auth.ErrUnauthorized
	}
	return s.orders.DeleteAllForUser(ctx, actor.UserID)
}

// Delete removes any order. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Admin {
		return auth.ErrForbidden
	}
	return s.orders.Delete(ctx, id)
}

// Stats summarizes orders. Admin only.
func (s *Service) Stats(ctx context.Context, actor auth.Actor) (Stats, error) {
	if !actor.Admin {
		return Stats{}, auth.ErrForbidden
	}
	return s.orders.Stats(ctx)
}

func (s *Service) publish(ctx context.Context, t EventType, o *Order) {
	s.notifier.Publish(ctx, Event{
		Type:     t,
		OrderID:  o.ID,
		PublicID: o.PublicID,
		UserID:   o.UserID,
		Status:   o.Status,
		IsPaid:   o.IsPaid,
		At:       s.now(),
	})
}
