package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	orderColumns = `o.id, o.public_id, o.user_id, u.name, u.email, o.items, o.shipping_address,
		o.payment_method, o.items_price, o.shipping_price, o.tax_price, o.discount, o.total_price,
		o.coupon_code, o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.status,
		o.cancel_reason, o.cancelled_at, o.created_at, o.updated_at`

	selectOrdersSQL = `SELECT ` + orderColumns + ` FROM orders o LEFT JOIN users u ON u.id = o.user_id`

	getOrderSQL           = selectOrdersSQL + ` WHERE o.id = $1`
	getOrderByPublicIDSQL = selectOrdersSQL + ` WHERE o.public_id = $1`
	lockOrderSQL          = getOrderSQL + ` FOR UPDATE OF o`
	listUserOrdersSQL     = selectOrdersSQL + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC`

	insertOrderSQL = `INSERT INTO orders (id, public_id, user_id, items, shipping_address, payment_method,
		items_price, shipping_price, tax_price, discount, total_price, coupon_code,
		is_paid, paid_at, is_delivered, delivered_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
		ON CONFLICT (public_id) DO NOTHING`

	updateOrderSQL = `UPDATE orders SET is_paid = $2, paid_at = $3, is_delivered = $4, delivered_at = $5,
		status = $6, cancel_reason = $7, cancelled_at = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	deleteUserOrderSQL  = `DELETE FROM orders WHERE id = $1 AND user_id = $2`
	deleteUserOrdersSQL = `DELETE FROM orders WHERE user_id = $1`
	deleteOrderSQL      = `DELETE FROM orders WHERE id = $1`

	orderStatsSQL = `SELECT count(*), COALESCE(sum(total_price) FILTER (WHERE is_paid), 0) FROM orders`

	lockCartItemsSQL = `SELECT items FROM carts WHERE user_id = $1 FOR UPDATE`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// items and the shipping address are stored as JSONB snapshots.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place runs checkout in one transaction. The cart row lock serializes
// concurrent checkouts of one user; the second sees the cart already gone.
func (r *OrderRepository) Place(ctx context.Context, userID string, p order.Placement) (*order.Order, error) {
	var placed *order.Order
	err := inTx(ctx, r.pool, "place order", func(tx pgx.Tx) error {
		var items []cart.Item
		err := tx.QueryRow(ctx, lockCartItemsSQL, userID).Scan(&items)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return persist.Wrap(err, "lock cart")
		}

		lines, err := cartLines(ctx, tx, items)
		if err != nil {
			return err
		}

		o, err := p.Build(ctx, lines)
		if err != nil {
			return err
		}
		if err := insertOrder(ctx, tx, o, p.NewPublicID); err != nil {
			return err
		}
		if o.CouponID != "" {
			if err := redeemCoupon(ctx, tx, o.CouponID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, deleteCartSQL, userID); err != nil {
			return persist.Wrap(err, "delete cart")
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// cartLines snapshots cart items with the current product name, price and image.
func cartLines(ctx context.Context, q querier, items []cart.Item) ([]order.Line, error) {
	if len(items) == 0 {
		return nil, nil
	}
	c := cart.Cart{Items: items}
	products, err := getProducts(ctx, q, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	lines := make([]order.Line, 0, len(items))
	for _, it := range items {
		i, ok := byID[it.ProductID]
		if !ok {
			return nil, &order.ProductNotFoundError{ProductID: it.ProductID}
		}
		p := products[i]
		lines = append(lines, order.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.FirstImage(),
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return lines, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order, newPublicID func() string) error {
	for attempt := 0; ; attempt++ {
		if attempt == order.MaxPublicIDAttempts {
			return order.ErrOrderIDExhausted
		}
		if attempt > 0 {
			o.PublicID = newPublicID()
		}
		tag, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.PublicID, o.UserID, o.Items, o.ShippingAddress, string(o.PaymentMethod),
			o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.Discount, o.TotalPrice, o.CouponCode,
			o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt, string(o.Status), o.CreatedAt,
		)
		if err != nil {
			return persist.Wrapf(err, "insert order %q", o.PublicID)
		}
		if tag.RowsAffected() == 1 {
			o.UpdatedAt = o.CreatedAt
			return nil
		}
	}
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return oneOrder(ctx, r.pool, "get order", getOrderSQL, id)
}

func (r *OrderRepository) GetByPublicID(ctx context.Context, publicID string) (*order.Order, error) {
	return oneOrder(ctx, r.pool, "get order by public id", getOrderByPublicIDSQL, publicID)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.many(ctx, "list user orders", listUserOrdersSQL, userID)
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf(
			"(o.public_id ILIKE $%[1]d OR u.name ILIKE $%[1]d OR u.email ILIKE $%[1]d)",
			arg(likePattern(f.Search)),
		))
	}
	if !f.From.IsZero() {
		where = append(where, fmt.Sprintf("o.created_at >= $%d", arg(f.From)))
	}
	if !f.To.IsZero() {
		where = append(where, fmt.Sprintf("o.created_at < $%d", arg(f.To)))
	}

	query := selectOrdersSQL
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY o.created_at DESC`
	return r.many(ctx, "list orders", query, args...)
}

func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	var updated *order.Order
	err := inTx(ctx, r.pool, "update order", func(tx pgx.Tx) error {
		o, err := oneOrder(ctx, tx, "lock order", lockOrderSQL, id)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		err = tx.QueryRow(ctx, updateOrderSQL,
			o.ID, o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt,
			string(o.Status), o.CancelReason, o.CancelledAt,
		).Scan(&o.UpdatedAt)
		if err != nil {
			return persist.Wrapf(err, "save order %q", id)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) DeleteForUser(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteUserOrderSQL, id, userID)
	if err != nil {
		return persist.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, deleteUserOrdersSQL, userID)
	if err != nil {
		return 0, persist.Wrapf(err, "delete orders of %q", userID)
	}
	return int(tag.RowsAffected()), nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return persist.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Stats(ctx context.Context) (order.Stats, error) {
	var s order.Stats
	if err := r.pool.QueryRow(ctx, orderStatsSQL).Scan(&s.TotalOrders, &s.Revenue); err != nil {
		return order.Stats{}, persist.Wrap(err, "order stats")
	}
	return s, nil
}

func (r *OrderRepository) many(ctx context.Context, op, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	return orders, nil
}

func oneOrder(ctx context.Context, q querier, op, sql string, args ...any) (*order.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, persist.Wrap(err, op)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o           order.Order
		name, email *string
		method      string
		status      string
	)
	err := row.Scan(
		&o.ID, &o.PublicID, &o.UserID, &name, &email, &o.Items, &o.ShippingAddress,
		&method, &o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.Discount, &o.TotalPrice,
		&o.CouponCode, &o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &status,
		&o.CancelReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	o.PaymentMethod = order.PaymentMethod(method)
	o.Status = order.Status(status)
	if name != nil {
		o.Customer = &order.Customer{Name: *name, Email: deref(email)}
	}
	return o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
