package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
)

// Category groups products under a URL-friendly slug.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
}

// CategoryPatch is a partial category update.
type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
}

// Apply writes the set fields of p onto c. A new name without a new slug
// regenerates the slug.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
		if p.Slug == nil {
			c.Slug = Slugify(*p.Name)
		}
	}
	if p.Slug != nil {
		c.Slug = Slugify(*p.Slug)
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
}

// Validate checks a category before it is stored.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(ErrInvalid, "name is required")
	}
	if c.Slug == "" {
		return errors.Wrap(ErrInvalid, "slug is required")
	}
	return nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and collapses everything but letters and digits
// into single dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// CategoryRepository stores categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}
