package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/persist"
)

const (
	productColumns = `p.id, p.name, p.slug, p.description, p.price, p.mrp, p.images,
		COALESCE(p.category_id, ''), p.sub_category, p.sizes, p.colors, p.tags, p.stock,
		p.is_trending, p.is_new_arrival, p.is_best_seller, p.created_at, p.updated_at`

	getProductSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	getProductsSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = ANY($1)`

	productExistsSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	insertProductSQL = `INSERT INTO products (id, name, slug, description, price, mrp, images,
		category_id, sub_category, sizes, colors, tags, stock, is_trending, is_new_arrival, is_best_seller)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products SET name = $2, slug = $3, description = $4, price = $5, mrp = $6,
		images = $7, category_id = NULLIF($8, ''), sub_category = $9, sizes = $10, colors = $11, tags = $12,
		stock = $13, is_trending = $14, is_new_arrival = $15, is_best_seller = $16, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ catalog.ProductRepository = (*ProductRepository)(nil)

// ProductRepository implements catalog.ProductRepository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns products matching f, newest first.
func (r *ProductRepository) List(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) int {
		args = append(args, v)
		return len(args)
	}

	query := `SELECT ` + productColumns + ` FROM products p`
	if f.CategorySlug != "" {
		query += ` JOIN categories c ON c.id = p.category_id`
		where = append(where, fmt.Sprintf("c.slug = $%d", arg(f.CategorySlug)))
	}
	if f.SubCategory != "" {
		where = append(where, fmt.Sprintf("p.sub_category ILIKE $%d", arg(f.SubCategory)))
	}
	if f.NewArrival {
		where = append(where, "p.is_new_arrival")
	}
	if f.BestSeller {
		where = append(where, "p.is_best_seller")
	}
	if f.Trending {
		where = append(where, "p.is_trending")
	}
	if f.Search != "" {
		where = append(where, fmt.Sprintf(
			"(p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d OR array_to_string(p.tags, ' ') ILIKE $%[1]d)",
			arg(likePattern(f.Search)),
		))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persist.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, persist.Wrap(err, "list products")
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
// It returns catalog.ErrNotFound when no matching product exists.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, persist.Wrapf(err, "get product %q", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, persist.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// GetByIDs returns the products among ids that exist, in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	return getProducts(ctx, r.pool, ids)
}

// Exists reports whether a product with id exists.
func (r *ProductRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, productExistsSQL, id).Scan(&ok); err != nil {
		return false, persist.Wrapf(err, "check product %q", id)
	}
	return ok, nil
}

// Create stores a new product.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, insertProductSQL, productArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateSlug
		}
		return persist.Wrapf(err, "create product %q", p.Name)
	}
	return nil
}

// Update replaces a product's fields.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	err := r.pool.QueryRow(ctx, updateProductSQL, productArgs(p)...).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return catalog.ErrNotFound
		case isUniqueViolation(err):
			return catalog.ErrDuplicateSlug
		}
		return persist.Wrapf(err, "update product %q", p.ID)
	}
	return nil
}

// Delete removes a product. Carts and orders keep their own copies.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return persist.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func getProducts(ctx context.Context, q querier, ids []string) ([]catalog.Product, error) {
	rows, err := q.Query(ctx, getProductsSQL, ids)
	if err != nil {
		return nil, persist.Wrap(err, "get products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, persist.Wrap(err, "get products")
	}
	return products, nil
}

func productArgs(p *catalog.Product) []any {
	return []any{
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.MRP, nonNil(p.Images),
		p.CategoryID, p.SubCategory, nonNil(p.Sizes), nonNil(p.Colors), nonNil(p.Tags), p.Stock,
		p.IsTrending, p.IsNewArrival, p.IsBestSeller,
	}
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.MRP, &p.Images,
		&p.CategoryID, &p.SubCategory, &p.Sizes, &p.Colors, &p.Tags, &p.Stock,
		&p.IsTrending, &p.IsNewArrival, &p.IsBestSeller, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
