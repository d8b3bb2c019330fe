package users

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAlice(t *testing.T, r *MemoryRepository) string {
	t.Helper()
	id, err := r.Create(context.Background(), &models.NewUser{
		UserName: "alice", Email: "alice@x.com", FullName: "Alice", Avatar: "http://a", PasswordHash: "h",
	})
	require.NoError(t, err)
	return id
}

func TestMemory_CreateAndLookup(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	id := seedAlice(t, r)

	u, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.UserName)
	assert.False(t, u.CreatedAt.IsZero())

	u, err = r.GetByUsernameOrEmail(ctx, "", "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = r.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.GetByUsernameOrEmail(ctx, "bob", "bob@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemory_CreateConflicts(t *testing.T) {
	r := NewMemoryRepository()
	seedAlice(t, r)

	_, err := r.Create(context.Background(), &models.NewUser{UserName: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = r.Create(context.Background(), &models.NewUser{UserName: "other", Email: "alice@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	ok, err := r.ExistsByUsernameOrEmail(context.Background(), "nobody", "alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	id := seedAlice(t, r)

	u, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	u.RefreshToken = "mutated"

	again, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, again.RefreshToken)
}

func TestMemory_RefreshSlot(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	id := seedAlice(t, r)

	// empty slot never matches
	ok, err := r.SwapRefreshToken(ctx, id, "", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetRefreshToken(ctx, id, "r0"))

	ok, err = r.SwapRefreshToken(ctx, id, "stale", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.SwapRefreshToken(ctx, id, "r0", "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	u, _ := r.GetByID(ctx, id)
	assert.Equal(t, "r1", u.RefreshToken)

	require.NoError(t, r.SetRefreshToken(ctx, id, ""))
	u, _ = r.GetByID(ctx, id)
	assert.Empty(t, u.RefreshToken)

	assert.ErrorIs(t, r.SetRefreshToken(ctx, "ghost", "x"), common.ErrorNotFound)
}

func TestMemory_SwapIsAtomic(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	id := seedAlice(t, r)
	require.NoError(t, r.SetRefreshToken(ctx, id, "r0"))

	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := r.SwapRefreshToken(ctx, id, "r0", "next")
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemory_Updates(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	id := seedAlice(t, r)
	_, err := r.Create(ctx, &models.NewUser{UserName: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	u, err := r.UpdateAccount(ctx, id, "Alice B", "ab@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.FullName)
	assert.Equal(t, "ab@x.com", u.Email)

	_, err = r.UpdateAccount(ctx, id, "Alice B", "bob@x.com")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	u, err = r.UpdateAvatar(ctx, id, "http://new")
	require.NoError(t, err)
	assert.Equal(t, "http://new", u.Avatar)

	u, err = r.UpdateCoverImage(ctx, id, "http://cover")
	require.NoError(t, err)
	assert.Equal(t, "http://cover", u.CoverImage)

	require.NoError(t, r.UpdatePassword(ctx, id, "h2"))
	u, _ = r.GetByID(ctx, id)
	assert.Equal(t, "h2", u.PasswordHash)

	_, err = r.UpdateAvatar(ctx, "ghost", "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
