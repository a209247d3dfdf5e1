package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordHashCost is the lowest bcrypt cost accepted by BcryptHasher.
const MinPasswordHashCost = 10

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost      int
	dummyHash []byte
}

var _ PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher returns a hasher using cost, raised to
// MinPasswordHashCost when lower. A zero cost selects the build default.
// The dummy hash used for missing accounts is generated here so the first
// failed lookup costs the same as every later one.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = passwordHashCost()
	}
	if cost < MinPasswordHashCost {
		cost = MinPasswordHashCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{
		cost:      cost,
		dummyHash: []byte(randomPasswordHash(cost)),
	}
}

// Cost returns the bcrypt work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash will generate a password hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(out), nil
}

// Verify reports whether password matches hash. An empty or invalid hash
// is still checked against a dummy hash so every call costs one bcrypt
// comparison.
func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" {
		h.burn(password)
		return false
	}

	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		h.burn(password)
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *BcryptHasher) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// randomPasswordHash hashes a random UUID. Nobody knows the plaintext.
func randomPasswordHash(cost int) string {
	out, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return randomPasswordHash(cost)
	}
	return string(out)
}
