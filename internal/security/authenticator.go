package security

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/user"
)

// UserGetter loads the account behind a token.
type UserGetter interface {
	Get(ctx context.Context, id string) (*user.User, error)
}

// Authenticator turns request credentials into an auth.Actor.
type Authenticator struct {
	tokens *Tokens
	keys   *APIKeys
	users  UserGetter
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *Tokens, keys *APIKeys, users UserGetter) *Authenticator {
	return &Authenticator{tokens: tokens, keys: keys, users: users}
}

// FromToken verifies a session token and reloads its user, so revoked admin
// rights and deleted accounts take effect immediately.
func (a *Authenticator) FromToken(ctx context.Context, token string) (auth.Actor, error) {
	id, err := a.tokens.Parse(token)
	if err != nil {
		return auth.Actor{}, err
	}
	u, err := a.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return auth.Actor{}, errors.Wrap(auth.ErrUnauthorized, "user no longer exists")
		}
		return auth.Actor{}, errors.Wrap(err, "load user")
	}
	return auth.Actor{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Admin:  u.IsAdmin,
	}, nil
}

// FromAPIKey authenticates an API key. Keys carrying the admin scope act as admin.
func (a *Authenticator) FromAPIKey(ctx context.Context, key string) (auth.Actor, error) {
	info, err := a.keys.Authenticate(ctx, key)
	if err != nil {
		return auth.Actor{}, err
	}
	return auth.Actor{
		Name:    info.Name,
		Admin:   info.HasScope(auth.ScopeAdmin),
		KeyName: info.Name,
	}, nil
}

// Issue signs a session token for userID.
func (a *Authenticator) Issue(userID string) (string, error) {
	tok, _, err := a.tokens.Issue(userID)
	return tok, err
}
