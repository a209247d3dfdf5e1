package auth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
)

// IdentityResolver materializes the Principal for a verified token subject.
type IdentityResolver struct {
	directory UserDirectory
	logger    Logger
}

// NewIdentityResolver returns a resolver backed by directory
func NewIdentityResolver(directory UserDirectory, logger Logger) *IdentityResolver {
	return &IdentityResolver{
		directory: directory,
		logger:    normalizeLogger(logger),
	}
}

// Resolve looks up the subject. Errors wrapping ErrIdentityNotFound mean
// the account no longer exists.
func (r *IdentityResolver) Resolve(ctx context.Context, claims *TokenClaims) (*Principal, error) {
	if claims == nil || claims.Subject() == "" {
		return nil, ErrIdentityNotFound
	}

	account, err := r.directory.FindByIdentity(ctx, NormalizeIdentity(claims.Subject()))
	if err != nil {
		if HasTextCode(err, TextCodeAccountNotFound) || errors.IsNotFound(err) {
			r.logger.Debug("token subject has no account", "subject", claims.Subject())
			return nil, fmt.Errorf("subject %q: %w", claims.Subject(), ErrIdentityNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve identity")
	}

	return NewPrincipal(account, claims), nil
}
