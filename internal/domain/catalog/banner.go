package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// BannerKind selects the storefront slot a banner is shown in.
type BannerKind string

const (
	BannerHero      BannerKind = "hero"
	BannerExclusive BannerKind = "exclusive"
)

// ParseBannerKind validates a kind from a URL segment.
func ParseBannerKind(s string) (BannerKind, error) {
	switch k := BannerKind(s); k {
	case BannerHero, BannerExclusive:
		return k, nil
	default:
		return "", errors.Wrapf(ErrInvalid, "unknown banner kind %q", s)
	}
}

// CTA is a call-to-action button on a banner.
type CTA struct {
	Label string
	Link  string
}

// Banner is a promotional slide.
type Banner struct {
	ID        string
	Kind      BannerKind
	Title     string
	Subtitle  string
	Image     string
	Link      string
	Primary   CTA
	Secondary CTA
	Position  int
	Active    bool
}

// Validate checks the fields the banner kind requires.
func (b *Banner) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return errors.Wrap(ErrInvalid, "title is required")
	}
	if b.Image == "" {
		return errors.Wrap(ErrInvalid, "image is required")
	}
	if b.Kind == BannerHero {
		if b.Primary.Label == "" || b.Primary.Link == "" {
			return errors.Wrap(ErrInvalid, "hero banner needs a primary call to action")
		}
		if b.Secondary.Label == "" || b.Secondary.Link == "" {
			return errors.Wrap(ErrInvalid, "hero banner needs a secondary call to action")
		}
	}
	return nil
}

// BannerRepository stores banners per kind.
type BannerRepository interface {
	List(ctx context.Context, kind BannerKind, activeOnly bool) ([]Banner, error)
	Create(ctx context.Context, b *Banner) error
	Update(ctx context.Context, b *Banner) error
	// Toggle flips the active flag and returns the updated banner.
	Toggle(ctx context.Context, kind BannerKind, id string) (*Banner, error)
	Delete(ctx context.Context, kind BannerKind, id string) error
}
