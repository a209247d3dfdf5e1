package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MinSigningKeyLength is the minimum HS256 key size in bytes.
const MinSigningKeyLength = 32

// DefaultTokenTTL matches the deployment default of 900000 ms.
const DefaultTokenTTL = 15 * time.Minute

// TokenService issues and verifies bearer tokens
type TokenService interface {
	Issue(subject string) (string, error)
	Mint(subject string) (IssuedToken, error)
	Parse(token string) (*TokenClaims, error)
	IsExpired(token string) bool
	TTL() time.Duration
}

// IssuedToken is a freshly signed token plus the metadata clients need.
type IssuedToken struct {
	Token     string
	TokenID   string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the token lifetime in whole seconds
func (t IssuedToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

// TokenServiceImpl implements TokenService with HS256 signatures.
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	clock      func() time.Time
	logger     Logger
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithClock overrides the time source used to issue and verify tokens.
func WithClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.clock = clock
		}
	}
}

// WithIssuer sets the iss claim and requires it on parse.
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithAudience sets the aud claim and requires it on parse.
func WithAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = append(jwt.ClaimStrings{}, audience...)
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = logger
	}
}

// NewTokenService creates a new TokenService instance. The key must be at
// least MinSigningKeyLength bytes and the TTL at least one second; the TTL
// is truncated to whole seconds.
func NewTokenService(signingKey []byte, ttl time.Duration, opts ...TokenServiceOption) (TokenService, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("signing key is required", errors.CategoryValidation)
	}

	if len(signingKey) < MinSigningKeyLength {
		return nil, errors.New(
			fmt.Sprintf("signing key must be at least %d bytes", MinSigningKeyLength),
			errors.CategoryValidation,
		).WithMetadata(map[string]any{"length": len(signingKey)})
	}

	ttl = ttl.Truncate(time.Second)
	if ttl < time.Second {
		return nil, errors.New("token ttl must be at least one second", errors.CategoryValidation).
			WithMetadata(map[string]any{"ttl": ttl.String()})
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	ts := &TokenServiceImpl{
		signingKey: key,
		ttl:        ttl,
		clock:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	ts.logger = normalizeLogger(ts.logger)

	return ts, nil
}

// NewTokenServiceFromConfig builds a TokenService from cfg. A zero TTL
// selects DefaultTokenTTL.
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) (TokenService, error) {
	ttl := cfg.GetTokenTTL()
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}

	base := []TokenServiceOption{
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
	}

	return NewTokenService([]byte(cfg.GetSigningKey()), ttl, append(base, opts...)...)
}

// TTL returns the configured token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a new token for subject
func (ts *TokenServiceImpl) Issue(subject string) (string, error) {
	issued, err := ts.Mint(subject)
	if err != nil {
		return "", err
	}
	return issued.Token, nil
}

// Mint signs a new token for subject and returns it with its metadata
func (ts *TokenServiceImpl) Mint(subject string) (IssuedToken, error) {
	if subject == "" {
		return IssuedToken{}, errors.New("token subject is required", errors.CategoryBadInput)
	}

	issuedAt := ts.clock().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ts.ttl)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    ts.issuer,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return IssuedToken{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return IssuedToken{
		Token:     signed,
		TokenID:   claims.ID,
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse verifies the signature first and then the time bound claims.
func (ts *TokenServiceImpl) Parse(raw string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.clock),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			ts.logger.Warn("token signed with unsupported method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, classifyParseError(err)
	}

	if !token.Valid || claims.Subject() == "" {
		return nil, withSource(ErrTokenMalformed, nil, map[string]any{"reason": "missing subject"})
	}

	if !ts.acceptsAudience(claims.Audience) {
		return nil, withSource(ErrTokenMalformed, jwt.ErrTokenInvalidAudience, map[string]any{"reason": "audience mismatch"})
	}

	return claims, nil
}

// acceptsAudience reports whether aud names at least one configured
// audience. Without configured audiences every token is accepted.
func (ts *TokenServiceImpl) acceptsAudience(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		for _, got := range aud {
			if got == want {
				return true
			}
		}
	}
	return false
}

// IsExpired treats every parse failure as expiry.
func (ts *TokenServiceImpl) IsExpired(raw string) bool {
	_, err := ts.Parse(raw)
	return err != nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return withSource(ErrTokenMalformed, err, nil)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return withSource(ErrUnsupportedFormat, err, nil)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return withSource(ErrInvalidSignature, err, nil)
	case errors.Is(err, jwt.ErrTokenExpired):
		return withSource(ErrTokenExpired, err, nil)
	default:
		return withSource(ErrTokenMalformed, err, nil)
	}
}
