// Package catalog holds the storefront's products, categories and banners.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a catalog entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSlug is returned when a slug is already taken.
	ErrDuplicateSlug = errors.New("slug already exists")
	// ErrInvalid is returned when a catalog entity is malformed.
	ErrInvalid = errors.New("invalid catalog entry")
)

// Product is a catalog item available for purchase.
type Product struct {
	ID           string
	Name         string
	Slug         string
	Description  string
	Price        decimal.Decimal
	MRP          decimal.NullDecimal
	Images       []string
	CategoryID   string
	SubCategory  string
	Sizes        []string
	Colors       []string
	Tags         []string
	Stock        int
	IsTrending   bool
	IsNewArrival bool
	IsBestSeller bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FirstImage returns the primary image, or "" when there is none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Validate checks the fields required to list a product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalid, "name is required")
	}
	if !p.Price.IsPositive() {
		return errors.Wrap(ErrInvalid, "price must be positive")
	}
	if p.Stock < 0 {
		return errors.Wrap(ErrInvalid, "stock cannot be negative")
	}
	return nil
}

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	CategorySlug string
	SubCategory  string
	NewArrival   bool
	BestSeller   bool
	Trending     bool
	// Search matches name, description and tags, case-insensitively.
	Search string
}

// ProductRepository stores products.
type ProductRepository interface {
	List(ctx context.Context, f ProductFilter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
