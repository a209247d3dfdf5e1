package auth_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-token-auth"
)

func TestErrorTextCode(t *testing.T) {
	assert.Equal(t, auth.TextCodeTokenExpired, auth.ErrorTextCode(auth.ErrTokenExpired))
	assert.Equal(t, auth.TextCodeDuplicateAccount, auth.ErrorTextCode(fmt.Errorf("signup: %w", auth.ErrDuplicateAccount)))
	assert.Equal(t, "", auth.ErrorTextCode(stderrors.New("plain")))
	assert.Equal(t, "", auth.ErrorTextCode(nil))
}

func TestHasTextCode(t *testing.T) {
	assert.True(t, auth.HasTextCode(auth.ErrInvalidToken, auth.TextCodeInvalidToken))
	assert.False(t, auth.HasTextCode(auth.ErrInvalidToken, auth.TextCodeTokenRequired))
	assert.False(t, auth.HasTextCode(nil, ""))
}

func TestTokenErrorPredicates(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsMalformedError(auth.ErrInvalidSignature))
}

func TestErrorCodesAreDistinct(t *testing.T) {
	all := []error{
		auth.ErrTokenMalformed,
		auth.ErrInvalidSignature,
		auth.ErrTokenExpired,
		auth.ErrUnsupportedFormat,
		auth.ErrInvalidCredentials,
		auth.ErrDuplicateAccount,
		auth.ErrTokenRequired,
		auth.ErrInvalidToken,
		auth.ErrAuthenticationRequired,
		auth.ErrInvalidInput,
		auth.ErrAccountNotFound,
		auth.ErrInternal,
	}

	seen := map[string]bool{}
	for _, err := range all {
		code := auth.ErrorTextCode(err)
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], code)
		seen[code] = true
	}
}
