package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-token-auth"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := auth.NewMemoryDirectory()

	_, err := dir.FindByIdentity(ctx, "alice@example.com")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountNotFound))

	created, err := dir.Create(ctx, &auth.Account{ID: uuid.New(), Email: "Alice@Example.com", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", created.Email)
	require.NotNil(t, created.CreatedAt)

	exists, err := dir.ExistsByIdentity(ctx, " ALICE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = dir.Create(ctx, &auth.Account{ID: uuid.New(), Email: "alice@example.com"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeDuplicateAccount))
	assert.Equal(t, 1, dir.Len())

	created.Name = "Alice B"
	updated, err := dir.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	found, err := dir.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", found.Name)

	_, err = dir.Update(ctx, &auth.Account{Email: "ghost@example.com"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAccountNotFound))
}

func TestMemoryDirectory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	dir := auth.NewMemoryDirectory()

	_, err := dir.Create(ctx, &auth.Account{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)

	found, err := dir.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	found.Name = "mutated"

	again, err := dir.FindByIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}
