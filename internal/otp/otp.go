// Package otp issues and verifies one-time login codes sent to phone numbers.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

var (
	// ErrInvalidCode is returned when a code is wrong, expired or already used.
	ErrInvalidCode = errors.New("invalid otp")
	// ErrPhoneRequired is returned when no phone number is given.
	ErrPhoneRequired = errors.New("phone is required")
)

// Store keeps pending codes. Consume must delete the code only when it
// matches, atomically, so a code logs in at most once.
type Store interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	Consume(ctx context.Context, phone, code string) (bool, error)
}

// Sender delivers a code to the phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the request logger instead of sending an SMS.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phone, code string) error {
	zctx.From(ctx).Info("OTP issued", zap.String("phone", phone), zap.String("code", code))
	return nil
}

// Config configures a Service.
type Config struct {
	TTL time.Duration
	// Expose returns the code to the caller, for development without an SMS gateway.
	Expose bool
}

// Service implements phone login codes.
type Service struct {
	store  Store
	sender Sender
	cfg    Config
}

// NewService creates an OTP Service.
func NewService(store Store, sender Sender, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Service{store: store, sender: sender, cfg: cfg}
}

// Request generates a six digit code for phone, stores and sends it. The code
// is returned only when the service is configured to expose it.
func (s *Service) Request(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrPhoneRequired
	}
	code, err := newCode()
	if err != nil {
		return "", errors.Wrap(err, "generate code")
	}
	if err := s.store.Save(ctx, phone, code, s.cfg.TTL); err != nil {
		return "", errors.Wrap(err, "save code")
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		return "", errors.Wrap(err, "send code")
	}
	if !s.cfg.Expose {
		return "", nil
	}
	return code, nil
}

// Verify consumes code for phone.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	phone, code = strings.TrimSpace(phone), strings.TrimSpace(code)
	if phone == "" {
		return ErrPhoneRequired
	}
	if code == "" {
		return ErrInvalidCode
	}
	ok, err := s.store.Consume(ctx, phone, code)
	if err != nil {
		return errors.Wrap(err, "consume code")
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}
