package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// ProductChecker reports whether a product can be added to a cart.
type ProductChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ErrProductNotFound is returned when adding an unknown product.
var ErrProductNotFound = errors.New("product not found")

// Service applies cart operations through a Repository.
type Service struct {
	carts    Repository
	products ProductChecker
}

// NewService creates a cart Service.
func NewService(carts Repository, products ProductChecker) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the user's cart, empty when none exists.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.carts.Get(ctx, userID)
}

// Add puts an item in the user's cart after checking the product exists.
func (s *Service) Add(ctx context.Context, userID string, it Item) (*Cart, error) {
	if it.ProductID == "" {
		return nil, ErrProductRequired
	}
	if it.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	ok, err := s.products.Exists(ctx, it.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "check product")
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	return s.carts.Mutate(ctx, userID, func(c *Cart) error {
		return c.Add(it)
	})
}

// Update sets the quantity of an existing line; qty <= 0 removes it.
func (s *Service) Update(ctx context.Context, userID string, k Key, qty int) (*Cart, error) {
	return s.carts.Mutate(ctx, userID, func(c *Cart) error {
		return c.SetQuantity(k, qty)
	})
}

// Remove drops a line from the cart.
func (s *Service) Remove(ctx context.Context, userID string, k Key) (*Cart, error) {
	return s.carts.Mutate(ctx, userID, func(c *Cart) error {
		return c.Remove(k)
	})
}

// Clear deletes the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.carts.Delete(ctx, userID)
}
