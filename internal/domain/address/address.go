// Package address models a user's saved shipping addresses.
package address

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNoShippingAddress is returned when a user has no saved addresses.
	ErrNoShippingAddress = errors.New("no shipping address")
	// ErrNotFound is returned when an address id does not belong to the user.
	ErrNotFound = errors.New("address not found")
	// ErrInvalid is returned when a required field is missing.
	ErrInvalid = errors.New("invalid address")
)

// Address is a shipping address owned by a user.
type Address struct {
	ID            string
	FullName      string
	Phone         string
	AltPhone      string
	Line          string
	Pincode       string
	Landmark      string
	City          string
	Locality      string
	State         string
	SuggestedName string
	IsDefault     bool
}

// Validate checks that the fields needed to ship an order are present.
func (a Address) Validate() error {
	required := []struct {
		name, value string
	}{
		{"fullName", a.FullName},
		{"phone", a.Phone},
		{"address", a.Line},
		{"pincode", a.Pincode},
		{"city", a.City},
		{"state", a.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return errors.Wrapf(ErrInvalid, "%s is required", f.name)
		}
	}
	return nil
}

// Resolve picks the address an order ships to: the one matching id when id is
// set and present, else the default, else the first one.
func Resolve(list []Address, id string) (Address, error) {
	if len(list) == 0 {
		return Address{}, ErrNoShippingAddress
	}
	if id != "" {
		for _, a := range list {
			if a.ID == id {
				return a, nil
			}
		}
	}
	for _, a := range list {
		if a.IsDefault {
			return a, nil
		}
	}
	return list[0], nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	FullName      *string
	Phone         *string
	AltPhone      *string
	Line          *string
	Pincode       *string
	Landmark      *string
	City          *string
	Locality      *string
	State         *string
	SuggestedName *string
	IsDefault     *bool
}

// Apply writes the set fields of p onto a.
func (p Patch) Apply(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.FullName, p.FullName)
	set(&a.Phone, p.Phone)
	set(&a.AltPhone, p.AltPhone)
	set(&a.Line, p.Line)
	set(&a.Pincode, p.Pincode)
	set(&a.Landmark, p.Landmark)
	set(&a.City, p.City)
	set(&a.Locality, p.Locality)
	set(&a.State, p.State)
	set(&a.SuggestedName, p.SuggestedName)
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
}

// Repository stores addresses per user. At most one address per user is the
// default; implementations keep that invariant under concurrent writes.
// Mutating methods return the user's full list after the change.
type Repository interface {
	List(ctx context.Context, userID string) ([]Address, error)
	Create(ctx context.Context, userID string, a Address) ([]Address, error)
	Update(ctx context.Context, userID, id string, p Patch) ([]Address, error)
	Delete(ctx context.Context, userID, id string) ([]Address, error)
	SetDefault(ctx context.Context, userID, id string) ([]Address, error)
}
