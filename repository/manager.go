package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager exposes the bun repositories sharing one connection
type Manager struct {
	db          *bun.DB
	accounts    *Accounts
	revocations *Revocations
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:          db,
		accounts:    NewAccounts(db),
		revocations: NewRevocations(db),
	}
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Accounts() *Accounts {
	return m.accounts
}

func (m *Manager) Revocations() *Revocations {
	return m.revocations
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.revocations == nil {
		return errors.New("repository revocations should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Ping checks the database connection
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
