package auth_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-token-auth"
)

type authHarness struct {
	clock       *fakeClock
	tokens      auth.TokenService
	directory   *MockDirectory
	hasher      *MockHasher
	revocations *MockRevocations
	events      []auth.ActivityEvent
	auther      *auth.Auther
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	h := &authHarness{
		clock:       newFakeClock(),
		directory:   &MockDirectory{},
		hasher:      &MockHasher{},
		revocations: &MockRevocations{},
	}
	h.tokens = newTestTokenService(t, h.clock)
	h.auther = auth.NewAuthenticator(h.directory, h.tokens, h.revocations, h.hasher).
		WithLogger(&captureLogger{}).
		WithClock(h.clock.Now).
		WithActivitySink(auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			h.events = append(h.events, e)
			return nil
		}))
	return h
}

func (h *authHarness) lastEvent() auth.ActivityEvent {
	if len(h.events) == 0 {
		return auth.ActivityEvent{}
	}
	return h.events[len(h.events)-1]
}

func testAccount() *auth.Account {
	return &auth.Account{
		ID:           uuid.MustParse("5a0c1a43-1c6c-4f6b-9f7a-0d3c5c1c7f11"),
		Email:        "alice@example.com",
		PasswordHash: "hashed:Sup3rSecret",
		Name:         "Alice",
	}
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token for the account email", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
		h.hasher.On("Verify", "Sup3rSecret", "hashed:Sup3rSecret").Return(true)

		result, err := h.auther.Login(ctx, "  Alice@Example.com ", "Sup3rSecret")
		require.NoError(t, err)

		claims, err := h.tokens.Parse(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Subject())
		assert.Equal(t, result.TokenID, claims.TokenID())
		assert.Equal(t, "Alice", result.Account.Name)
		assert.Equal(t, auth.ActivityEventLoginSuccess, h.lastEvent().EventType)
		assert.Equal(t, h.clock.Now(), h.lastEvent().OccurredAt)
	})

	t.Run("wrong password and unknown account are indistinguishable", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
		h.directory.On("FindByIdentity", ctx, "nobody@example.com").Return(nil, auth.ErrAccountNotFound)
		h.hasher.On("Verify", "wrong", "hashed:Sup3rSecret").Return(false)
		h.hasher.On("Verify", "wrong", "").Return(false)

		_, wrongPassword := h.auther.Login(ctx, "alice@example.com", "wrong")
		_, unknown := h.auther.Login(ctx, "nobody@example.com", "wrong")

		require.Error(t, wrongPassword)
		require.Error(t, unknown)
		assert.Same(t, auth.ErrInvalidCredentials, wrongPassword)
		assert.Same(t, wrongPassword, unknown)
		assert.Equal(t, wrongPassword.Error(), unknown.Error())

		// the unknown account still costs one hash comparison
		h.hasher.AssertCalled(t, "Verify", "wrong", "")
		h.hasher.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("directory failure is internal", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(nil, stderrors.New("connection refused"))

		_, err := h.auther.Login(ctx, "alice@example.com", "Sup3rSecret")
		require.Error(t, err)
		assert.Equal(t, auth.TextCodeInternal, auth.ErrorTextCode(err))
		h.hasher.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})
}

func TestAuther_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the account with a hashed password", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("ExistsByIdentity", ctx, "bob@example.com").Return(false, nil)
		h.hasher.On("Hash", "Sup3rSecret").Return("hashed:Sup3rSecret", nil)
		h.directory.On("Create", ctx, mock.MatchedBy(func(a *auth.Account) bool {
			return a.Email == "bob@example.com" && a.PasswordHash == "hashed:Sup3rSecret" && a.ID != uuid.Nil
		})).Return(&auth.Account{ID: uuid.New(), Email: "bob@example.com", Name: "Bob"}, nil)

		acc, err := h.auther.Signup(ctx, auth.SignupInput{
			Email:    "Bob@Example.com",
			Password: "Sup3rSecret",
			Name:     "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", acc.Email)
		assert.Equal(t, auth.ActivityEventSignup, h.lastEvent().EventType)
	})

	t.Run("duplicate is rejected before any write", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("ExistsByIdentity", ctx, "alice@example.com").Return(true, nil)

		_, err := h.auther.Signup(ctx, auth.SignupInput{Email: "alice@example.com", Password: "Sup3rSecret"})
		require.Error(t, err)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeDuplicateAccount))

		h.directory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		h.hasher.AssertNotCalled(t, "Hash", mock.Anything)
		assert.Equal(t, auth.ActivityEventSignupRejected, h.lastEvent().EventType)
	})

	t.Run("lost race on create maps to duplicate", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("ExistsByIdentity", ctx, "carol@example.com").Return(false, nil).Once()
		h.directory.On("ExistsByIdentity", ctx, "carol@example.com").Return(true, nil).Once()
		h.hasher.On("Hash", "Sup3rSecret").Return("hashed", nil)
		h.directory.On("Create", ctx, mock.Anything).Return(nil, stderrors.New("UNIQUE constraint failed: accounts.email"))

		_, err := h.auther.Signup(ctx, auth.SignupInput{Email: "carol@example.com", Password: "Sup3rSecret"})
		assert.True(t, auth.HasTextCode(err, auth.TextCodeDuplicateAccount))
	})

	t.Run("directory failure is internal", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("ExistsByIdentity", ctx, "dave@example.com").Return(false, stderrors.New("timeout"))

		_, err := h.auther.Signup(ctx, auth.SignupInput{Email: "dave@example.com", Password: "Sup3rSecret"})
		assert.Equal(t, auth.TextCodeInternal, auth.ErrorTextCode(err))
	})
}

func TestAuther_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the token id until expiry", func(t *testing.T) {
		h := newAuthHarness(t)
		issued, err := h.tokens.Mint("alice@example.com")
		require.NoError(t, err)

		h.revocations.On("Revoke", ctx, issued.TokenID, mock.MatchedBy(func(exp time.Time) bool {
			return exp.Equal(issued.ExpiresAt)
		})).Return(nil)

		require.NoError(t, h.auther.Logout(ctx, "Bearer "+issued.Token))
		h.revocations.AssertExpectations(t)
		assert.Equal(t, auth.ActivityEventLogout, h.lastEvent().EventType)
		assert.Equal(t, issued.TokenID, h.lastEvent().TokenID)
	})

	t.Run("missing header", func(t *testing.T) {
		h := newAuthHarness(t)
		for _, header := range []string{"", "Bearer", "Basic abc", "Bearerabc"} {
			err := h.auther.Logout(ctx, header)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenRequired), header)
		}
		h.revocations.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unparseable token", func(t *testing.T) {
		h := newAuthHarness(t)
		err := h.auther.Logout(ctx, "Bearer garbage")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidToken))
		h.revocations.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token", func(t *testing.T) {
		h := newAuthHarness(t)
		token, err := h.tokens.Issue("alice@example.com")
		require.NoError(t, err)
		h.clock.Advance(time.Hour)

		err = h.auther.Logout(ctx, "Bearer "+token)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidToken))
	})

	t.Run("token without jti", func(t *testing.T) {
		h := newAuthHarness(t)
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "alice@example.com",
			"exp": h.clock.Now().Add(time.Minute).Unix(),
		}).SignedString(testSigningKey)
		require.NoError(t, err)

		err = h.auther.Logout(ctx, "Bearer "+raw)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidToken))
		h.revocations.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		h := newAuthHarness(t)
		token, err := h.tokens.Issue("alice@example.com")
		require.NoError(t, err)
		h.revocations.On("Revoke", ctx, mock.Anything, mock.Anything).Return(stderrors.New("disk full"))

		err = h.auther.Logout(ctx, "Bearer "+token)
		assert.Equal(t, auth.TextCodeInternal, auth.ErrorTextCode(err))
	})
}

func TestAuther_Account(t *testing.T) {
	ctx := context.Background()
	h := newAuthHarness(t)
	h.directory.On("FindByIdentity", ctx, "ghost@example.com").Return(nil, auth.ErrAccountNotFound)

	_, err := h.auther.Account(ctx, "ghost@example.com")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAuthenticationRequired))
}

func TestAuther_IsIdentityAvailable(t *testing.T) {
	ctx := context.Background()
	h := newAuthHarness(t)
	h.directory.On("ExistsByIdentity", ctx, "alice@example.com").Return(true, nil)
	h.directory.On("ExistsByIdentity", ctx, "bob@example.com").Return(false, nil)

	ok, err := h.auther.IsIdentityAvailable(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.auther.IsIdentityAvailable(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuther_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	h := newAuthHarness(t)
	h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
	h.directory.On("Update", ctx, mock.MatchedBy(func(a *auth.Account) bool {
		return a.Name == "Alice B" && a.Phone == "+14155550100"
	})).Return(&auth.Account{Email: "alice@example.com", Name: "Alice B", Phone: "+14155550100"}, nil)

	acc, err := h.auther.UpdateProfile(ctx, "alice@example.com", auth.ProfileInput{Name: "Alice B", Phone: "+14155550100"})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", acc.Name)
	assert.Equal(t, auth.ActivityEventProfileUpdated, h.lastEvent().EventType)
}

func TestAuther_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the hash", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
		h.hasher.On("Verify", "Sup3rSecret", "hashed:Sup3rSecret").Return(true)
		h.hasher.On("Hash", "N3wSecret").Return("hashed:N3wSecret", nil)
		h.directory.On("Update", ctx, mock.MatchedBy(func(a *auth.Account) bool {
			return a.PasswordHash == "hashed:N3wSecret"
		})).Return(testAccount(), nil)

		require.NoError(t, h.auther.ChangePassword(ctx, "alice@example.com", "Sup3rSecret", "N3wSecret"))
		h.directory.AssertExpectations(t)
		assert.Equal(t, auth.ActivityEventPasswordChanged, h.lastEvent().EventType)
	})

	t.Run("wrong current password", func(t *testing.T) {
		h := newAuthHarness(t)
		h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
		h.hasher.On("Verify", "nope", "hashed:Sup3rSecret").Return(false)

		err := h.auther.ChangePassword(ctx, "alice@example.com", "nope", "N3wSecret")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))
		h.directory.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestAuther_ActivitySinkFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	h := newAuthHarness(t)
	logger := &captureLogger{}
	h.auther.WithLogger(logger).WithActivitySink(auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		return stderrors.New("sink down")
	}))
	h.directory.On("FindByIdentity", ctx, "alice@example.com").Return(testAccount(), nil)
	h.hasher.On("Verify", "Sup3rSecret", "hashed:Sup3rSecret").Return(true)

	_, err := h.auther.Login(ctx, "alice@example.com", "Sup3rSecret")
	require.NoError(t, err)
	assert.Contains(t, logger.calls, "warn:activity sink failed")
}
