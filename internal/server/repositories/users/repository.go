package users

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// Repository persists user identities together with the single refresh-token
// slot. Lookups return common.ErrorNotFound for missing rows; unique
// violations on username or email surface as common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.NewUser) (string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// SetRefreshToken overwrites the slot unconditionally; an empty token clears it.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces the slot only if it still holds old and
	// reports whether the swap happened.
	SwapRefreshToken(ctx context.Context, id, old, new string) (bool, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAccount(ctx context.Context, id, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error)
}
