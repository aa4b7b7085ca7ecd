package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	getCartSQL = `SELECT items, updated_at FROM carts WHERE user_id = $1`

	ensureCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	lockCartSQL = `SELECT items, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`

	saveCartSQL = `UPDATE carts SET items = $2, updated_at = now() WHERE user_id = $1 RETURNING updated_at`

	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores each cart as one JSONB document per user and
// serializes writes with a row lock.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.Items, &c.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, persist.Wrapf(err, "get cart of %q", userID)
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return c, nil
}

func (r *CartRepository) Mutate(ctx context.Context, userID string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}
	err := inTx(ctx, r.pool, "mutate cart", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureCartSQL, userID); err != nil {
			return persist.Wrap(err, "create cart")
		}
		if err := tx.QueryRow(ctx, lockCartSQL, userID).Scan(&c.Items, &c.UpdatedAt); err != nil {
			return persist.Wrap(err, "lock cart")
		}
		if err := fn(c); err != nil {
			return err
		}
		if c.Items == nil {
			c.Items = []cart.Item{}
		}
		var updated time.Time
		if err := tx.QueryRow(ctx, saveCartSQL, userID, c.Items).Scan(&updated); err != nil {
			return persist.Wrap(err, "save cart")
		}
		c.UpdatedAt = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, userID); err != nil {
		return persist.Wrapf(err, "delete cart of %q", userID)
	}
	return nil
}
