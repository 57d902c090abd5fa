package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndCompare(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	first, err := h.Hash(ctx, "pw1")
	require.NoError(t, err)
	second, err := h.Hash(ctx, "pw1")
	require.NoError(t, err)

	assert.NotEqual(t, "pw1", first)
	assert.NotEqual(t, first, second, "hashes are salted")

	cost, err := bcrypt.Cost([]byte(first))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	match, err := h.Compare(ctx, first, "pw1")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = h.Compare(ctx, first, "wrong")
	require.NoError(t, err)
	assert.False(t, match)

	match, err = h.Compare(ctx, "not-a-hash", "pw1")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestPasswordHasher_Defaults(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0, 0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(bcrypt.MaxCost+1, 1).Cost())
	assert.Equal(t, 12, NewPasswordHasher(12, 1).Cost())
}

func TestPasswordHasher_RejectsLongPasswords(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)

	_, err := h.Hash(context.Background(), strings.Repeat("x", 73))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)
}

func TestPasswordHasher_WaitsForSlot(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)
	require.NoError(t, h.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Hash(ctx, "pw")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.sem.Release(1)
	_, err = h.Hash(context.Background(), "pw")
	assert.NoError(t, err)
}

func TestPasswordHasher_CompareDummy(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost, 1)

	require.NoError(t, h.CompareDummy(context.Background(), "anything"))
	assert.NotEmpty(t, h.dummy)
}
