// Package redis implements short-lived state on Redis.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront/internal/domain/persist"
	"github.com/xenking/storefront/internal/otp"
)

// consumeScript deletes the key only if it holds the given code.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ otp.Store = (*OTPStore)(nil)

// OTPStore keeps login codes under expiring keys.
type OTPStore struct {
	client redis.UniversalClient
	prefix string
}

// NewOTPStore returns an OTPStore that namespaces its keys with prefix.
func NewOTPStore(client redis.UniversalClient, prefix string) *OTPStore {
	return &OTPStore{client: client, prefix: prefix}
}

func (s *OTPStore) key(phone string) string {
	return s.prefix + "otp:" + phone
}

// Save replaces any pending code for phone.
func (s *OTPStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(phone), code, ttl).Err(); err != nil {
		return persist.Wrap(err, "save otp")
	}
	return nil
}

// Consume deletes the pending code if it equals code and reports whether it did.
func (s *OTPStore) Consume(ctx context.Context, phone, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(phone)}, code).Int()
	if err != nil {
		return false, persist.Wrap(err, "consume otp")
	}
	return n == 1, nil
}
