package auth_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-token-auth"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// MockDirectory implements auth.UserDirectory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	args := m.Called(ctx, identity)
	acc, _ := args.Get(0).(*auth.Account)
	return acc, args.Error(1)
}

func (m *MockDirectory) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	args := m.Called(ctx, identity)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) Create(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	args := m.Called(ctx, account)
	acc, _ := args.Get(0).(*auth.Account)
	return acc, args.Error(1)
}

func (m *MockDirectory) Update(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	args := m.Called(ctx, account)
	acc, _ := args.Get(0).(*auth.Account)
	return acc, args.Error(1)
}

// MockHasher implements auth.PasswordHasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Verify(plaintext, hash string) bool {
	args := m.Called(plaintext, hash)
	return args.Bool(0)
}

// MockRevocations implements auth.RevocationStore
type MockRevocations struct {
	mock.Mock
}

func (m *MockRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	args := m.Called(ctx, tokenID, expiresAt)
	return args.Error(0)
}

func (m *MockRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// captureLogger records log calls
type captureLogger struct {
	calls []string
}

func (l *captureLogger) Debug(msg string, args ...any) { l.calls = append(l.calls, "debug:"+msg) }
func (l *captureLogger) Info(msg string, args ...any)  { l.calls = append(l.calls, "info:"+msg) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.calls = append(l.calls, "warn:"+msg) }
func (l *captureLogger) Error(msg string, args ...any) { l.calls = append(l.calls, "error:"+msg) }

// fakeClock is a settable time source
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 10, 16, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
