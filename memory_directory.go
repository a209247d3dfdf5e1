package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryDirectory is a process local UserDirectory keyed by normalized
// email.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	clock    func() time.Time
}

var _ UserDirectory = (*MemoryDirectory)(nil)

// NewMemoryDirectory returns an empty directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: make(map[string]Account),
		clock:    time.Now,
	}
}

// FindByIdentity implements UserDirectory.
func (d *MemoryDirectory) FindByIdentity(ctx context.Context, identity string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	acc, ok := d.accounts[NormalizeIdentity(identity)]
	if !ok {
		return nil, withSource(ErrAccountNotFound, nil, map[string]any{"identity": identity})
	}
	return &acc, nil
}

// ExistsByIdentity implements UserDirectory.
func (d *MemoryDirectory) ExistsByIdentity(ctx context.Context, identity string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.accounts[NormalizeIdentity(identity)]
	return ok, nil
}

// Create implements UserDirectory. The email acts as a unique key.
func (d *MemoryDirectory) Create(ctx context.Context, account *Account) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizeIdentity(account.Email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.accounts[key]; ok {
		return nil, withSource(ErrDuplicateAccount, nil, map[string]any{"email": key})
	}

	now := d.clock().UTC()
	acc := *account
	acc.Email = key
	acc.CreatedAt = &now
	acc.UpdatedAt = &now
	d.accounts[key] = acc

	return &acc, nil
}

// Update implements UserDirectory.
func (d *MemoryDirectory) Update(ctx context.Context, account *Account) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizeIdentity(account.Email)

	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.accounts[key]
	if !ok {
		return nil, withSource(ErrAccountNotFound, nil, map[string]any{"identity": key})
	}

	now := d.clock().UTC()
	acc := *account
	acc.Email = key
	acc.CreatedAt = current.CreatedAt
	acc.UpdatedAt = &now
	d.accounts[key] = acc

	return &acc, nil
}

// Len returns the number of stored accounts
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}
