package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-token-auth"
)

// Revocations is the bun backed auth.RevocationStore.
type Revocations struct {
	db    bun.IDB
	clock func() time.Time
}

var (
	_ auth.RevocationStore  = (*Revocations)(nil)
	_ auth.RevocationPurger = (*Revocations)(nil)
)

func NewRevocations(db bun.IDB) *Revocations {
	return &Revocations{db: db, clock: time.Now}
}

// Revoke implements auth.RevocationStore. The primary key on token_id
// makes a second revoke a no-op.
func (r *Revocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required", errors.CategoryBadInput)
	}

	record := &auth.RevokedToken{
		TokenID:   tokenID,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: r.clock().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (token_id) DO NOTHING").
		Exec(ctx)
	if err != nil && !IsUniqueViolation(err) {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token").
			WithMetadata(map[string]any{"jti": tokenID})
	}

	return nil
}

// IsRevoked implements auth.RevocationStore.
func (r *Revocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*auth.RevokedToken)(nil)).
		Where("?TableAlias.token_id = ?", tokenID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
	}
	return exists, nil
}

// PurgeExpired implements auth.RevocationPurger.
func (r *Revocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*auth.RevokedToken)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to purge revoked tokens")
	}
	return res.RowsAffected()
}

// Count returns the number of revocation records
func (r *Revocations) Count(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*auth.RevokedToken)(nil)).Count(ctx)
}
