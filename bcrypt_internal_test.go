package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewBcryptHasherPreparesDummyHash(t *testing.T) {
	h := NewBcryptHasher(MinPasswordHashCost)
	require.NotEmpty(t, h.dummyHash)

	cost, err := bcrypt.Cost(h.dummyHash)
	require.NoError(t, err)
	assert.Equal(t, h.Cost(), cost)

	prepared := string(h.dummyHash)
	assert.False(t, h.Verify("Sup3rSecret", ""))
	assert.False(t, h.Verify("Sup3rSecret", "not-a-hash"))
	assert.Equal(t, prepared, string(h.dummyHash))
}
