package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-token-auth/middleware/jwtware"
)

// DefaultPublicPaths are never inspected by the middleware. A trailing
// "/**" matches the prefix itself and everything below it, a trailing "*"
// is a plain prefix match, anything else must match exactly.
var DefaultPublicPaths = []string{
	"/",
	"/api/health*",
	"/api/auth/login",
	"/api/auth/signup",
	"/swagger-ui/**",
	"/v3/api-docs/**",
	"/favicon.ico",
	"/static/**",
	"/error*",
	"/metrics",
}

// SkipList decides which paths bypass token inspection.
type SkipList struct {
	exact    map[string]struct{}
	prefixes []string
	trees    []string
}

// NewSkipList compiles patterns
func NewSkipList(patterns ...string) *SkipList {
	s := &SkipList{exact: make(map[string]struct{})}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.HasSuffix(p, "/**"):
			s.trees = append(s.trees, strings.TrimSuffix(p, "/**"))
		case strings.HasSuffix(p, "*"):
			s.prefixes = append(s.prefixes, strings.TrimSuffix(p, "*"))
		default:
			s.exact[p] = struct{}{}
		}
	}
	return s
}

// ShouldSkip reports whether path bypasses authentication
func (s *SkipList) ShouldSkip(path string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.exact[path]; ok {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, t := range s.trees {
		if path == t || strings.HasPrefix(path, t+"/") {
			return true
		}
	}
	return false
}

// RouteAuthenticator wires the token middleware and route guards into a
// fiber app.
type RouteAuthenticator struct {
	auther      *Auther
	cfg         Config
	resolver    *IdentityResolver
	revocations RevocationStore
	skip        *SkipList
	listeners   []jwtware.OutcomeListener
	Logger      Logger
}

// RouteAuthenticatorOption configures a RouteAuthenticator
type RouteAuthenticatorOption func(*RouteAuthenticator)

// WithPublicPaths replaces DefaultPublicPaths
func WithPublicPaths(patterns ...string) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		a.skip = NewSkipList(patterns...)
	}
}

// WithOutcomeListener adds a listener for middleware outcomes
func WithOutcomeListener(listener jwtware.OutcomeListener) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		if listener != nil {
			a.listeners = append(a.listeners, listener)
		}
	}
}

// WithRouteLogger sets the logger
func WithRouteLogger(logger Logger) RouteAuthenticatorOption {
	return func(a *RouteAuthenticator) {
		a.Logger = normalizeLogger(logger)
	}
}

// NewHTTPAuthenticator wires the token middleware and route guards for
// auther. Public paths default to DefaultPublicPaths.
func NewHTTPAuthenticator(auther *Auther, resolver *IdentityResolver, revocations RevocationStore, cfg Config, opts ...RouteAuthenticatorOption) *RouteAuthenticator {
	a := &RouteAuthenticator{
		auther:      auther,
		cfg:         cfg,
		resolver:    resolver,
		revocations: revocations,
		skip:        NewSkipList(DefaultPublicPaths...),
		Logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// ShouldSkip reports whether path bypasses authentication
func (a *RouteAuthenticator) ShouldSkip(path string) bool {
	return a.skip.ShouldSkip(path)
}

// ContextKey returns the fiber locals key holding the Principal
func (a *RouteAuthenticator) ContextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}

// Middleware returns the per request authentication handler. It never
// rejects a request.
func (a *RouteAuthenticator) Middleware() fiber.Handler {
	listeners := append([]jwtware.OutcomeListener{a.logOutcome}, a.listeners...)

	return jwtware.New(jwtware.Config{
		Filter: func(c *fiber.Ctx) bool {
			return a.ShouldSkip(c.Path())
		},
		TokenValidator:    tokenValidator{tokens: a.auther.TokenService()},
		RevocationChecker: a.revocations,
		IdentityResolver:  identityResolver{resolver: a.resolver},
		ContextKey:        a.ContextKey(),
		TokenLookup:       a.cfg.GetTokenLookup(),
		AuthScheme:        a.cfg.GetAuthScheme(),
		ContextEnricher: func(ctx context.Context, identity any) context.Context {
			if p, ok := identity.(*Principal); ok {
				return WithContext(ctx, p)
			}
			return ctx
		},
		Listeners: listeners,
	})
}

// ProtectedRoute rejects requests without an established Principal.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	key := a.ContextKey()
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, ok := PrincipalFromRouter(ctx, key); !ok {
				return ErrAuthenticationRequired
			}
			return next(ctx)
		}
	}
}

func (a *RouteAuthenticator) logOutcome(c *fiber.Ctx, o jwtware.Outcome) {
	switch o.Reason {
	case jwtware.ReasonAuthenticated, jwtware.ReasonNoToken:
		return
	case jwtware.ReasonRevocationUnavailable, jwtware.ReasonIdentityUnavailable:
		a.Logger.Error("authentication failed closed",
			"path", c.Path(),
			"reason", string(o.Reason),
			"jti", o.TokenID,
			"error", o.Err,
		)
	default:
		a.Logger.Debug("request not authenticated",
			"path", c.Path(),
			"reason", string(o.Reason),
			"code", ErrorTextCode(o.Err),
			"jti", o.TokenID,
		)
	}
}

type tokenValidator struct {
	tokens TokenService
}

func (v tokenValidator) Validate(raw string) (jwtware.Claims, error) {
	claims, err := v.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type identityResolver struct {
	resolver *IdentityResolver
}

func (r identityResolver) ResolveIdentity(ctx context.Context, claims jwtware.Claims) (any, error) {
	tc, ok := claims.(*TokenClaims)
	if !ok {
		return nil, jwtware.ErrUnknownSubject
	}
	principal, err := r.resolver.Resolve(ctx, tc)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, jwtware.ErrUnknownSubject
		}
		return nil, err
	}
	return principal, nil
}
