package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	for _, p := range []string{"Secret123", "пароль", " spaced "} {
		hash, err := h.Hash(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, hash)
		assert.True(t, h.Verify(p, hash))
		assert.False(t, h.Verify(p+"x", hash))
	}
}

func TestHasher_SaltsEachHash(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_UsesConfiguredCost(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(DefaultCost)
	require.NoError(t, err)

	hash, err := h.Hash("p")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestHasher_MalformedHash(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, h.Verify("p", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("p", ""))
}

func TestNewHasher_RejectsBadCost(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(3)
	require.Error(t, err)
	_, err = NewHasher(32)
	require.Error(t, err)
}
