package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-token-auth"
)

// Accounts is the bun backed auth.UserDirectory.
type Accounts struct {
	repository.Repository[*auth.Account]
	db    *bun.DB
	clock func() time.Time
}

var _ auth.UserDirectory = (*Accounts)(nil)

func NewAccounts(db *bun.DB) *Accounts {
	repo := repository.NewRepository[*auth.Account](db, repository.ModelHandlers[*auth.Account]{
		NewRecord: func() *auth.Account { return &auth.Account{} },
		GetID: func(a *auth.Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *auth.Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &Accounts{
		Repository: repo,
		db:         db,
		clock:      time.Now,
	}
}

// FindByIdentity implements auth.UserDirectory.
func (r *Accounts) FindByIdentity(ctx context.Context, identity string) (*auth.Account, error) {
	return r.FindByIdentityTx(ctx, r.db, identity)
}

func (r *Accounts) FindByIdentityTx(ctx context.Context, tx bun.IDB, identity string) (*auth.Account, error) {
	identity = auth.NormalizeIdentity(identity)

	record := &auth.Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", identity).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, notFound(identity)
		}
		return nil, err
	}

	return record, nil
}

// ExistsByIdentity implements auth.UserDirectory.
func (r *Accounts) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	return r.db.NewSelect().
		Model((*auth.Account)(nil)).
		Where("?TableAlias.email = ?", auth.NormalizeIdentity(identity)).
		Exists(ctx)
}

// Create implements auth.UserDirectory. A unique violation on email is
// reported as auth.ErrDuplicateAccount.
func (r *Accounts) Create(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	return r.CreateTx(ctx, r.db, account)
}

func (r *Accounts) CreateTx(ctx context.Context, tx bun.IDB, account *auth.Account) (*auth.Account, error) {
	now := r.clock().UTC()
	account.Email = auth.NormalizeIdentity(account.Email)
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = &now
	account.UpdatedAt = &now

	created, err := r.Repository.CreateTx(ctx, tx, account)
	if err != nil {
		if IsUniqueViolation(err) {
			dup := auth.ErrDuplicateAccount.Clone()
			dup.Source = err
			return nil, dup
		}
		return nil, err
	}

	return created, nil
}

// Update implements auth.UserDirectory. Only profile fields and the
// password hash are written.
func (r *Accounts) Update(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	return r.UpdateTx(ctx, r.db, account)
}

func (r *Accounts) UpdateTx(ctx context.Context, tx bun.IDB, account *auth.Account) (*auth.Account, error) {
	now := r.clock().UTC()
	account.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(account).
		Column("name", "phone", "password_hash", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFound(account.Email)
	}

	return account, nil
}

func notFound(identity string) error {
	clone := auth.ErrAccountNotFound.Clone()
	return clone.WithMetadata(map[string]any{"identity": identity})
}
