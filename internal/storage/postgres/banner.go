package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	bannerColumns = `id, kind, title, subtitle, image, link, cta_primary_label, cta_primary_link,
		cta_secondary_label, cta_secondary_link, position, is_active`

	listBannersSQL = `SELECT ` + bannerColumns + ` FROM banners
		WHERE kind = $1 AND (is_active OR NOT $2) ORDER BY position, created_at`

	insertBannerSQL = `INSERT INTO banners (` + bannerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	updateBannerSQL = `UPDATE banners SET title = $3, subtitle = $4, image = $5, link = $6,
		cta_primary_label = $7, cta_primary_link = $8, cta_secondary_label = $9, cta_secondary_link = $10,
		position = $11, is_active = $12
		WHERE id = $1 AND kind = $2`

	toggleBannerSQL = `UPDATE banners SET is_active = NOT is_active
		WHERE id = $1 AND kind = $2 RETURNING ` + bannerColumns

	deleteBannerSQL = `DELETE FROM banners WHERE id = $1 AND kind = $2`
)

var _ catalog.BannerRepository = (*BannerRepository)(nil)

// BannerRepository implements catalog.BannerRepository backed by PostgreSQL.
type BannerRepository struct {
	pool *pgxpool.Pool
}

// NewBannerRepository returns a BannerRepository that uses the given pool.
func NewBannerRepository(pool *pgxpool.Pool) *BannerRepository {
	return &BannerRepository{pool: pool}
}

func (r *BannerRepository) List(ctx context.Context, kind catalog.BannerKind, activeOnly bool) ([]catalog.Banner, error) {
	rows, err := r.pool.Query(ctx, listBannersSQL, kind, activeOnly)
	if err != nil {
		return nil, persist.Wrapf(err, "list %s banners", kind)
	}
	banners, err := pgx.CollectRows(rows, scanBanner)
	if err != nil {
		return nil, persist.Wrapf(err, "list %s banners", kind)
	}
	return banners, nil
}

func (r *BannerRepository) Create(ctx context.Context, b *catalog.Banner) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, err := r.pool.Exec(ctx, insertBannerSQL, bannerArgs(b)...); err != nil {
		return persist.Wrapf(err, "create %s banner", b.Kind)
	}
	return nil
}

func (r *BannerRepository) Update(ctx context.Context, b *catalog.Banner) error {
	tag, err := r.pool.Exec(ctx, updateBannerSQL, bannerArgs(b)...)
	if err != nil {
		return persist.Wrapf(err, "update banner %q", b.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *BannerRepository) Toggle(ctx context.Context, kind catalog.BannerKind, id string) (*catalog.Banner, error) {
	rows, err := r.pool.Query(ctx, toggleBannerSQL, id, kind)
	if err != nil {
		return nil, persist.Wrapf(err, "toggle banner %q", id)
	}
	b, err := pgx.CollectExactlyOneRow(rows, scanBanner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, persist.Wrapf(err, "toggle banner %q", id)
	}
	return &b, nil
}

func (r *BannerRepository) Delete(ctx context.Context, kind catalog.BannerKind, id string) error {
	tag, err := r.pool.Exec(ctx, deleteBannerSQL, id, kind)
	if err != nil {
		return persist.Wrapf(err, "delete banner %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func bannerArgs(b *catalog.Banner) []any {
	return []any{
		b.ID, b.Kind, b.Title, b.Subtitle, b.Image, b.Link,
		b.Primary.Label, b.Primary.Link, b.Secondary.Label, b.Secondary.Link,
		b.Position, b.Active,
	}
}

func scanBanner(row pgx.CollectableRow) (catalog.Banner, error) {
	var (
		b    catalog.Banner
		kind string
	)
	err := row.Scan(
		&b.ID, &kind, &b.Title, &b.Subtitle, &b.Image, &b.Link,
		&b.Primary.Label, &b.Primary.Link, &b.Secondary.Label, &b.Secondary.Link,
		&b.Position, &b.Active,
	)
	b.Kind = catalog.BannerKind(kind)
	return b, err
}
