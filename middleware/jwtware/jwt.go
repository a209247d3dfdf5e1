package jwtware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup       = "header:" + fiber.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
	// ErrUnknownSubject is returned by an IdentityResolver when the token
	// subject has no account.
	ErrUnknownSubject = errors.New("unknown token subject")
)

// Claims mirrors the token claims from the auth package without an import
// cycle.
type Claims interface {
	Subject() string
	TokenID() string
	Expires() time.Time
}

// TokenValidator parses and verifies a raw token
type TokenValidator interface {
	Validate(token string) (Claims, error)
}

// RevocationChecker answers whether a token identifier was revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityResolver loads the identity for verified claims.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims Claims) (any, error)
}

// State is a step of the per request authentication state machine.
type State string

const (
	StateNoToken           State = "no_token"
	StateTokenPresent      State = "token_present"
	StateStructurallyValid State = "structurally_valid"
	StateNotRevoked        State = "not_revoked"
	StateIdentityResolved  State = "identity_resolved"
	StateAuthenticated     State = "authenticated"
	StateUnauthenticated   State = "unauthenticated"
)

// Reason explains the final state of a run.
type Reason string

const (
	ReasonAuthenticated         Reason = "authenticated"
	ReasonNoToken               Reason = "no_token"
	ReasonInvalidToken          Reason = "invalid_token"
	ReasonMissingTokenID        Reason = "missing_token_id"
	ReasonRevoked               Reason = "revoked"
	ReasonRevocationUnavailable Reason = "revocation_unavailable"
	ReasonUnknownSubject        Reason = "unknown_subject"
	ReasonIdentityUnavailable   Reason = "identity_unavailable"
)

// Outcome is the result of one middleware run. Stage is the last state
// reached before the run ended.
type Outcome struct {
	State   State
	Stage   State
	Reason  Reason
	Subject string
	TokenID string
	Err     error
}

// Authenticated reports whether an identity was attached
func (o Outcome) Authenticated() bool {
	return o.State == StateAuthenticated
}

// OutcomeListener is invoked once per inspected request.
type OutcomeListener func(c *fiber.Ctx, outcome Outcome)

type Config struct {
	// Filter skips inspection when it returns true.
	Filter func(*fiber.Ctx) bool

	TokenValidator    TokenValidator
	RevocationChecker RevocationChecker
	IdentityResolver  IdentityResolver

	// ContextKey is the fiber locals key for the resolved identity.
	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// ContextEnricher propagates the identity to the request context.
	ContextEnricher func(ctx context.Context, identity any) context.Context

	Listeners []OutcomeListener
}

// New returns the authentication middleware. It never rejects a request:
// failures leave the request without identity and downstream guards decide.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		outcome := cfg.authenticate(c, extractors)
		cfg.notify(c, outcome)

		return c.Next()
	}
}

func (cfg *Config) authenticate(c *fiber.Ctx, extractors []JWTExtractor) Outcome {
	c.Locals(cfg.ContextKey, nil)

	raw, err := ExtractRawToken(c, extractors)
	if err != nil || raw == "" {
		return reject(StateNoToken, ReasonNoToken, err)
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil || claims == nil {
		return reject(StateTokenPresent, ReasonInvalidToken, err)
	}

	outcome := Outcome{Subject: claims.Subject(), TokenID: claims.TokenID()}

	if claims.TokenID() == "" {
		return outcome.reject(StateStructurallyValid, ReasonMissingTokenID, nil)
	}

	ctx := c.UserContext()

	revoked, err := cfg.RevocationChecker.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return outcome.reject(StateStructurallyValid, ReasonRevocationUnavailable, err)
	}
	if revoked {
		return outcome.reject(StateStructurallyValid, ReasonRevoked, nil)
	}

	identity, err := cfg.IdentityResolver.ResolveIdentity(ctx, claims)
	if err != nil || identity == nil {
		reason := ReasonUnknownSubject
		if err != nil && !errors.Is(err, ErrUnknownSubject) {
			reason = ReasonIdentityUnavailable
		}
		return outcome.reject(StateNotRevoked, reason, err)
	}

	c.Locals(cfg.ContextKey, identity)
	if cfg.ContextEnricher != nil {
		c.SetUserContext(cfg.ContextEnricher(ctx, identity))
	}

	outcome.State = StateAuthenticated
	outcome.Stage = StateIdentityResolved
	outcome.Reason = ReasonAuthenticated
	return outcome
}

func reject(stage State, reason Reason, err error) Outcome {
	return Outcome{}.reject(stage, reason, err)
}

func (o Outcome) reject(stage State, reason Reason, err error) Outcome {
	o.State = StateUnauthenticated
	o.Stage = stage
	o.Reason = reason
	o.Err = err
	return o
}

func (cfg *Config) notify(c *fiber.Ctx, outcome Outcome) {
	for _, listener := range cfg.Listeners {
		if listener != nil {
			listener(c, outcome)
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.RevocationChecker == nil {
		panic("AUTH: JWT middleware configuration: RevocationChecker is required.")
	}

	if cfg.IdentityResolver == nil {
		panic("AUTH: JWT middleware configuration: IdentityResolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// ExtractRawToken returns the first token found by extractors.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, e := extractor(c)
		if raw != "" && e == nil {
			return raw, nil
		}
		if e != nil {
			err = e
		}
	}

	return "", err
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// ExtractBearer parses "<scheme> <token>" and returns the token.
func ExtractBearer(value, authScheme string) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	l := len(authScheme)
	if l == 0 {
		return "", ErrJWTMissingOrMalformed
	}

	value = strings.TrimSpace(value)
	if len(value) <= l+1 || value[l] != ' ' || !strings.EqualFold(value[:l], authScheme) {
		return "", ErrJWTMissingOrMalformed
	}

	token := strings.TrimSpace(value[l+1:])
	if token == "" {
		return "", ErrJWTMissingOrMalformed
	}
	return token, nil
}

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		return ExtractBearer(c.Get(header), authScheme)
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
