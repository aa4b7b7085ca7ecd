package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/auth"
)

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper, the form
// API keys are stored in.
func HashAPIKey(pepper []byte, key string) string {
	return hex.EncodeToString(mac(pepper, key))
}

func mac(pepper []byte, key string) []byte {
	m := hmac.New(sha256.New, pepper)
	m.Write([]byte(key))
	return m.Sum(nil)
}

// APIKeys authenticates raw API keys against their stored hashes.
type APIKeys struct {
	repo   auth.Repository
	pepper []byte
}

// NewAPIKeys creates an APIKeys with the given repository and HMAC pepper.
func NewAPIKeys(repo auth.Repository, pepper []byte) *APIKeys {
	return &APIKeys{repo: repo, pepper: pepper}
}

// Authenticate looks up key and returns its record.
func (k *APIKeys) Authenticate(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	if key == "" {
		return nil, auth.ErrUnauthorized
	}
	sum := mac(k.pepper, key)

	info, err := k.repo.FindByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return nil, auth.ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The stored hash may still differ if the repository returned a stale row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}
