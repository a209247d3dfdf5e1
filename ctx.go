package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// DefaultContextKey is the fiber locals key holding the Principal.
const DefaultContextKey = "user"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithContext sets the Principal in the given context
func WithContext(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// FromContext finds the Principal in the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// PrincipalFromFiber extracts the Principal stored in fiber locals under
// key, DefaultContextKey when empty.
func PrincipalFromFiber(c *fiber.Ctx, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok && principal != nil
}

// PrincipalFromRouter extracts the Principal from router locals under key,
// falling back to the request context.
func PrincipalFromRouter(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	if principal, ok := ctx.Locals(key).(*Principal); ok && principal != nil {
		return principal, true
	}
	return FromContext(ctx.Context())
}
