package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (m *memStore) Save(_ context.Context, phone, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.codes[phone] = code
	return nil
}

func (m *memStore) Consume(_ context.Context, phone, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.codes[phone] != code {
		return false, nil
	}
	delete(m.codes, phone)
	return true, nil
}

type captureSender struct {
	sent map[string]string
}

func (c *captureSender) Send(_ context.Context, phone, code string) error {
	c.sent[phone] = code
	return nil
}

func TestService_RequestVerify(t *testing.T) {
	store := &memStore{codes: map[string]string{}}
	sender := &captureSender{sent: map[string]string{}}
	svc := NewService(store, sender, Config{})

	code, err := svc.Request(context.Background(), " 9876543210 ")
	require.NoError(t, err)
	assert.Empty(t, code, "code is not exposed by default")

	sent := sender.sent["9876543210"]
	require.Len(t, sent, 6)
	assert.GreaterOrEqual(t, sent, "100000")

	require.ErrorIs(t, svc.Verify(context.Background(), "9876543210", "000000"), ErrInvalidCode)
	require.NoError(t, svc.Verify(context.Background(), "9876543210", sent))
	// A code works once.
	require.ErrorIs(t, svc.Verify(context.Background(), "9876543210", sent), ErrInvalidCode)
}

func TestService_Expose(t *testing.T) {
	store := &memStore{codes: map[string]string{}}
	svc := NewService(store, LogSender{}, Config{Expose: true})

	code, err := svc.Request(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, store.codes["9876543210"], code)
}

func TestService_Errors(t *testing.T) {
	svc := NewService(&memStore{codes: map[string]string{}}, LogSender{}, Config{})
	_, err := svc.Request(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrPhoneRequired)
	assert.ErrorIs(t, svc.Verify(context.Background(), "", "123456"), ErrPhoneRequired)
	assert.ErrorIs(t, svc.Verify(context.Background(), "1", ""), ErrInvalidCode)

	boom := errors.New("redis down")
	failing := NewService(&memStore{codes: map[string]string{}, err: boom}, LogSender{}, Config{})
	_, err = failing.Request(context.Background(), "1")
	assert.ErrorIs(t, err, boom)
}
