// Package user models storefront accounts, profiles and wishlists.
package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidProfile is returned when a profile update is malformed.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrEmailTaken is returned when another account already uses the e-mail.
	ErrEmailTaken = errors.New("email already in use")
)

// Gender values accepted on a profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is a storefront account.
type User struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Mobile        string
	Avatar        string
	Gender        string
	DateOfBirth   *time.Time
	WhatsappOptIn bool
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProfilePatch is a partial profile update made by the account owner.
type ProfilePatch struct {
	Name          *string
	Email         *string
	Mobile        *string
	Avatar        *string
	Gender        *string
	DateOfBirth   *time.Time
	WhatsappOptIn *bool
}

// Apply validates p and writes its set fields onto u.
func (p ProfilePatch) Apply(u *User) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return errors.Wrap(ErrInvalidProfile, "name cannot be empty")
		}
		u.Name = name
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if email != "" && !strings.Contains(email, "@") {
			return errors.Wrap(ErrInvalidProfile, "email is malformed")
		}
		u.Email = email
	}
	if p.Gender != nil {
		switch *p.Gender {
		case GenderMale, GenderFemale, GenderOther, "":
			u.Gender = *p.Gender
		default:
			return errors.Wrapf(ErrInvalidProfile, "unknown gender %q", *p.Gender)
		}
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = p.DateOfBirth
	}
	if p.WhatsappOptIn != nil {
		u.WhatsappOptIn = *p.WhatsappOptIn
	}
	return nil
}

// Repository stores users and their wishlists.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	// FindOrCreateByPhone returns the account for a verified phone number,
	// creating one on first login.
	FindOrCreateByPhone(ctx context.Context, phone string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	SetAdmin(ctx context.Context, id string, admin bool) (*User, error)
	Delete(ctx context.Context, id string) error

	Wishlist(ctx context.Context, userID string) ([]string, error)
	AddToWishlist(ctx context.Context, userID, productID string) ([]string, error)
	RemoveFromWishlist(ctx context.Context, userID, productID string) ([]string, error)
}
