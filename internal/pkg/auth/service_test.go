package auth

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/config"
)

var errCacheMiss = errors.New("cache miss")

type fakeCodeStore struct {
	values map[string]string
	setErr error
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{values: map[string]string{}}
}

func (s *fakeCodeStore) Set(key, value string, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

func (s *fakeCodeStore) Get(key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", errCacheMiss
}

func (s *fakeCodeStore) Incr(key string, ttl time.Duration) (int64, error) {
	n, _ := strconv.ParseInt(s.values[key], 10, 64)
	n++
	s.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *fakeCodeStore) Delete(key string) error {
	delete(s.values, key)
	return nil
}

func (s *fakeCodeStore) IsMiss(err error) bool {
	return errors.Is(err, errCacheMiss)
}

type fakeMailer struct {
	sent    []string
	bodies  []string
	sendErr error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, to)
	m.bodies = append(m.bodies, body)
	return nil
}

func TestRequestVerificationCode_StoresAndMails(t *testing.T) {
	store := newFakeCodeStore()
	mailer := &fakeMailer{}
	svc := NewService(nil, store, mailer, config.RateLimitRule{})

	err := svc.RequestVerificationCode(context.Background(), "  User@Example.COM ")
	require.NoError(t, err)

	// Email is normalized before it becomes a key or a recipient.
	code, ok := store.values["verify:code:user@example.com"]
	require.True(t, ok)
	assert.Len(t, code, 6)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "user@example.com", mailer.sent[0])
	assert.Contains(t, mailer.bodies[0], code)
}

func TestRequestVerificationCode_EmptyEmail(t *testing.T) {
	svc := NewService(nil, newFakeCodeStore(), &fakeMailer{}, config.RateLimitRule{})
	err := svc.RequestVerificationCode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequestVerificationCode_MailFailurePropagates(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("smtp down")}
	svc := NewService(nil, newFakeCodeStore(), mailer, config.RateLimitRule{})
	err := svc.RequestVerificationCode(context.Background(), "user@example.com")
	assert.Error(t, err)
}

func TestVerifyCode_HappyPath(t *testing.T) {
	store := newFakeCodeStore()
	svc := NewService(nil, store, &fakeMailer{}, config.RateLimitRule{})
	require.NoError(t, svc.RequestVerificationCode(context.Background(), "user@example.com"))
	code := store.values["verify:code:user@example.com"]

	require.NoError(t, svc.VerifyCode(context.Background(), "user@example.com", code))

	// The code is consumed and a verified marker is left behind.
	_, stillThere := store.values["verify:code:user@example.com"]
	assert.False(t, stillThere)
	assert.Equal(t, "1", store.values["verify:ok:user@example.com"])
}

func TestVerifyCode_WrongCode(t *testing.T) {
	store := newFakeCodeStore()
	svc := NewService(nil, store, &fakeMailer{}, config.RateLimitRule{})
	require.NoError(t, svc.RequestVerificationCode(context.Background(), "user@example.com"))

	err := svc.VerifyCode(context.Background(), "user@example.com", "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)

	// The right code still works afterwards.
	code := store.values["verify:code:user@example.com"]
	assert.NoError(t, svc.VerifyCode(context.Background(), "user@example.com", code))
}

func TestVerifyCode_ExpiredOrNeverRequested(t *testing.T) {
	svc := NewService(nil, newFakeCodeStore(), &fakeMailer{}, config.RateLimitRule{})
	err := svc.VerifyCode(context.Background(), "user@example.com", "123456")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestVerifyCode_TooManyAttemptsInvalidatesCode(t *testing.T) {
	store := newFakeCodeStore()
	svc := NewService(nil, store, &fakeMailer{}, config.RateLimitRule{})
	require.NoError(t, svc.RequestVerificationCode(context.Background(), "user@example.com"))
	code := store.values["verify:code:user@example.com"]

	for i := 0; i < maxCodeAttempts; i++ {
		err := svc.VerifyCode(context.Background(), "user@example.com", "wrong")
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	// The next attempt trips the lockout even with the right code.
	err := svc.VerifyCode(context.Background(), "user@example.com", code)
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// And the code itself is gone.
	err = svc.VerifyCode(context.Background(), "user@example.com", code)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestRequestVerificationCode_PerEmailLimit(t *testing.T) {
	store := newFakeCodeStore()
	svc := NewService(nil, store, &fakeMailer{}, config.RateLimitRule{MaxCount: 3, Window: 15 * time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RequestVerificationCode(context.Background(), "user@example.com"))
	}
	err := svc.RequestVerificationCode(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// Other addresses have their own window.
	assert.NoError(t, svc.RequestVerificationCode(context.Background(), "other@example.com"))
}

func TestGenerateCode_SixDigits(t *testing.T) {
	for i := 0; i < 32; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		_, err = strconv.Atoi(code)
		require.NoError(t, err)
	}
}
