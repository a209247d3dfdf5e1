package auth

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeMalformedToken         = "MALFORMED_TOKEN"
	TextCodeInvalidSignature       = "INVALID_SIGNATURE"
	TextCodeTokenExpired           = "TOKEN_EXPIRED"
	TextCodeUnsupportedFormat      = "UNSUPPORTED_FORMAT"
	TextCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	TextCodeDuplicateAccount       = "DUPLICATE_ACCOUNT"
	TextCodeTokenRequired          = "TOKEN_REQUIRED"
	TextCodeInvalidToken           = "INVALID_TOKEN"
	TextCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	TextCodeInvalidInput           = "INVALID_INPUT"
	TextCodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	TextCodeInternal               = "INTERNAL_ERROR"
)

// ErrTokenMalformed is returned when a token cannot be decoded or is
// missing required claims.
var ErrTokenMalformed = errors.New("malformed token", errors.CategoryAuth).
	WithTextCode(TextCodeMalformedToken).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidSignature is returned when the token signature does not verify
// under the server key.
var ErrInvalidSignature = errors.New("invalid token signature", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when now is at or past the token expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUnsupportedFormat is returned for tokens signed with an algorithm other
// than HS256, including unsigned tokens.
var ErrUnsupportedFormat = errors.New("unsupported token format", errors.CategoryAuth).
	WithTextCode(TextCodeUnsupportedFormat).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is the single error for an unknown account and a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateAccount is returned by signup when the identity is taken.
var ErrDuplicateAccount = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(errors.CodeConflict)

// ErrTokenRequired is returned by logout when no bearer credential is sent.
var ErrTokenRequired = errors.New("bearer token required", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRequired).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned by logout when the bearer credential cannot
// be parsed or lacks the claims needed to revoke it.
var ErrInvalidToken = errors.New("invalid bearer token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrAuthenticationRequired is returned by protected routes reached without
// an established identity.
var ErrAuthenticationRequired = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationRequired).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidInput is returned when a request payload fails validation.
var ErrInvalidInput = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ErrAccountNotFound is returned by a UserDirectory for unknown identities.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrInternal is used for storage and signing failures surfaced to clients.
var ErrInternal = errors.New("internal server error", errors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(errors.CodeInternal)

// ErrIdentityNotFound is returned by the resolver when a verified subject has
// no directory entry.
var ErrIdentityNotFound = stderrors.New("identity not found")

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = stderrors.New("password must not be empty")

// ErrorTextCode returns the text code carried by err, or "" when err is not
// a rich error.
func ErrorTextCode(err error) string {
	var rich *errors.Error
	if errors.As(err, &rich) && rich != nil {
		return rich.TextCode
	}
	return ""
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	return err != nil && ErrorTextCode(err) == code
}

// withSource clones base and attaches the cause plus optional metadata.
func withSource(base *errors.Error, cause error, meta map[string]any) *errors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// IsTokenExpiredError reports whether err is an expired token error.
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError reports whether err is a malformed token error.
func IsMalformedError(err error) bool {
	return HasTextCode(err, TextCodeMalformedToken)
}
