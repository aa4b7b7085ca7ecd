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
	listCategoriesSQL = `SELECT id, name, slug, description FROM categories ORDER BY name`
	getCategorySQL    = `SELECT id, name, slug, description FROM categories WHERE id = $1`
	insertCategorySQL = `INSERT INTO categories (id, name, slug, description) VALUES ($1, $2, $3, $4)`
	updateCategorySQL = `UPDATE categories SET name = $2, slug = $3, description = $4 WHERE id = $1`
	deleteCategorySQL = `DELETE FROM categories WHERE id = $1`
)

var _ catalog.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements catalog.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) List(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, persist.Wrap(err, "list categories")
	}
	cats, err := pgx.CollectRows(rows, pgx.RowToStructByPos[catalog.Category])
	if err != nil {
		return nil, persist.Wrap(err, "list categories")
	}
	return cats, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*catalog.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, id)
	if err != nil {
		return nil, persist.Wrapf(err, "get category %q", id)
	}
	c, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[catalog.Category])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, persist.Wrapf(err, "get category %q", id)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := r.pool.Exec(ctx, insertCategorySQL, c.ID, c.Name, c.Slug, c.Description); err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateSlug
		}
		return persist.Wrapf(err, "create category %q", c.Slug)
	}
	return nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *catalog.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name, c.Slug, c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateSlug
		}
		return persist.Wrapf(err, "update category %q", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return persist.Wrapf(err, "delete category %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}
