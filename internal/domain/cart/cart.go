// Package cart holds a user's pending line items before checkout.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidQuantity is returned when adding a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrItemNotFound is returned when a line with the given key is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrProductRequired is returned when an item has no product id.
	ErrProductRequired = errors.New("product id is required")
)

// Key identifies a cart line. Two additions with the same key merge.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

// Item is a cart line.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"qty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Key returns the dedup key of the item.
func (i Item) Key() Key {
	return Key{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// Cart belongs to exactly one user.
type Cart struct {
	UserID    string
	Items     []Item
	UpdatedAt time.Time
}

// Add merges it into the cart, incrementing the quantity of a matching line.
func (c *Cart) Add(it Item) error {
	if it.ProductID == "" {
		return ErrProductRequired
	}
	if it.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if i := c.index(it.Key()); i >= 0 {
		c.Items[i].Quantity += it.Quantity
		return nil
	}
	c.Items = append(c.Items, it)
	return nil
}

// SetQuantity sets the quantity of the line with key k. A quantity of zero or
// less removes the line.
func (c *Cart) SetQuantity(k Key, qty int) error {
	i := c.index(k)
	if i < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	c.Items[i].Quantity = qty
	return nil
}

// Remove drops the line with key k.
func (c *Cart) Remove(k Key) error {
	return c.SetQuantity(k, 0)
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// ProductIDs returns the distinct product ids in the cart, in line order.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (c *Cart) index(k Key) int {
	for i, it := range c.Items {
		if it.Key() == k {
			return i
		}
	}
	return -1
}

// Repository persists carts. Mutate runs fn on the current cart while holding
// a per-user lock, then stores the result; a missing cart is passed as empty.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Mutate(ctx context.Context, userID string, fn func(c *Cart) error) (*Cart, error)
	Delete(ctx context.Context, userID string) error
}
