package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository with the same semantics as
// the Postgres one. All operations are serialized by a single mutex, which
// makes SwapRefreshToken a true compare-and-swap.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*models.User),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, nu *models.NewUser) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(nu.UserName, nu.Email) != nil {
		return "", common.ErrorAlreadyExists
	}

	now := r.now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		UserName:     nu.UserName,
		Email:        nu.Email,
		FullName:     nu.FullName,
		Avatar:       nu.Avatar,
		CoverImage:   nu.CoverImage,
		PasswordHash: nu.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u

	return u.ID, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *MemoryRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.findLocked(username, email)
	if u == nil {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r *MemoryRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.findLocked(username, email) != nil, nil
}

func (r *MemoryRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.mutate(id, func(u *models.User) error {
		u.RefreshToken = token
		return nil
	})
}

func (r *MemoryRepository) SwapRefreshToken(ctx context.Context, id, old, new string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.RefreshToken == "" || u.RefreshToken != old {
		return false, nil
	}
	u.RefreshToken = new
	u.UpdatedAt = r.now().UTC()
	return true, nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.mutate(id, func(u *models.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *MemoryRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (*models.User, error) {
	return r.mutateReturning(id, func(u *models.User) error {
		for _, other := range r.users {
			if other.ID != id && other.Email == email {
				return common.ErrorAlreadyExists
			}
		}
		u.FullName = fullName
		u.Email = email
		return nil
	})
}

func (r *MemoryRepository) UpdateAvatar(ctx context.Context, id, url string) (*models.User, error) {
	return r.mutateReturning(id, func(u *models.User) error {
		u.Avatar = url
		return nil
	})
}

func (r *MemoryRepository) UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error) {
	return r.mutateReturning(id, func(u *models.User) error {
		u.CoverImage = url
		return nil
	})
}

func (r *MemoryRepository) findLocked(username, email string) *models.User {
	for _, u := range r.users {
		if u.UserName == username || u.Email == email {
			return u
		}
	}
	return nil
}

func (r *MemoryRepository) mutate(id string, fn func(u *models.User) error) error {
	_, err := r.mutateReturning(id, fn)
	return err
}

func (r *MemoryRepository) mutateReturning(id string, fn func(u *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.now().UTC()

	c := *u
	return &c, nil
}
