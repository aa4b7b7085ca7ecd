package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	couponColumns = `id, title, description, image, code, discount_type, discount_value, max_discount,
		min_order_value, usage_limit, used_count, expires_at, is_active, created_at, updated_at`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	getCouponSQL       = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	listCouponsSQL     = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE is_active AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY created_at DESC`

	insertCouponSQL = `INSERT INTO coupons (id, title, description, image, code, discount_type,
		discount_value, max_discount, min_order_value, usage_limit, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING used_count, created_at, updated_at`

	updateCouponSQL = `UPDATE coupons SET title = $2, description = $3, image = $4, code = $5,
		discount_type = $6, discount_value = $7, max_discount = $8, min_order_value = $9,
		usage_limit = $10, expires_at = $11, is_active = $12, updated_at = now()
		WHERE id = $1
		RETURNING used_count, created_at, updated_at`

	// upsertCouponSQL is used by bulk imports; redemptions are preserved.
	upsertCouponSQL = `INSERT INTO coupons (id, title, description, image, code, discount_type,
		discount_value, max_discount, min_order_value, usage_limit, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (code) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description,
		image = EXCLUDED.image, discount_type = EXCLUDED.discount_type,
		discount_value = EXCLUDED.discount_value, max_discount = EXCLUDED.max_discount,
		min_order_value = EXCLUDED.min_order_value, usage_limit = EXCLUDED.usage_limit,
		expires_at = EXCLUDED.expires_at, is_active = EXCLUDED.is_active, updated_at = now()`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`

	// redeemCouponSQL re-checks applicability and increments in one statement,
	// so concurrent redemptions never exceed the usage limit.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND is_active
		AND (expires_at IS NULL OR expires_at > now())
		AND (usage_limit = 0 OR used_count < usage_limit)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, err := r.one(ctx, "find coupon by code", getCouponByCodeSQL, code)
	if errors.Is(err, coupon.ErrNotFound) {
		return nil, coupon.ErrInvalidCoupon
	}
	return c, err
}

func (r *CouponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.one(ctx, "get coupon", getCouponSQL, id)
}

func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	return r.many(ctx, "list coupons", listCouponsSQL)
}

func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	return r.many(ctx, "list active coupons", listActiveCouponsSQL, now)
}

func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, insertCouponSQL, couponArgs(c)...).Scan(&c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return coupon.ErrDuplicateCode
		}
		return persist.Wrapf(err, "create coupon %q", c.Code)
	}
	return nil
}

func (r *CouponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	err := r.pool.QueryRow(ctx, updateCouponSQL, couponArgs(c)...).Scan(&c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return coupon.ErrNotFound
		case isUniqueViolation(err):
			return coupon.ErrDuplicateCode
		}
		return persist.Wrapf(err, "update coupon %q", c.ID)
	}
	return nil
}

// Upsert creates or replaces coupons by code in one batch.
func (r *CouponRepository) Upsert(ctx context.Context, coupons []coupon.Coupon) error {
	batch := &pgx.Batch{}
	for i := range coupons {
		c := &coupons[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		batch.Queue(upsertCouponSQL, couponArgs(c)...)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return persist.Wrapf(err, "upsert %d coupons", len(coupons))
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return persist.Wrapf(err, "delete coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (r *CouponRepository) one(ctx context.Context, op, sql string, args ...any) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, persist.Wrap(err, op)
	}
	return &c, nil
}

func (r *CouponRepository) many(ctx context.Context, op, sql string, args ...any) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, persist.Wrap(err, op)
	}
	return coupons, nil
}

// redeemCoupon consumes one use of the coupon inside tx.
func redeemCoupon(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, redeemCouponSQL, id)
	if err != nil {
		return persist.Wrapf(err, "redeem coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrUsageLimitExceeded
	}
	return nil
}

func couponArgs(c *coupon.Coupon) []any {
	return []any{
		c.ID, c.Title, c.Description, c.Image, c.Code, string(c.DiscountType),
		c.DiscountValue, c.MaxDiscount, c.MinOrderValue, c.UsageLimit, c.ExpiresAt, c.Active,
	}
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c     coupon.Coupon
		dtype string
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Image, &c.Code, &dtype, &c.DiscountValue, &c.MaxDiscount,
		&c.MinOrderValue, &c.UsageLimit, &c.UsedCount, &c.ExpiresAt, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	c.DiscountType = coupon.DiscountType(dtype)
	return c, err
}
