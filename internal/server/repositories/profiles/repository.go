// Package profiles reads channel pages and watch history, joining users with
// their subscriptions and watched videos.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type Repository interface {
	// ChannelProfile returns common.ErrorNotFound when no user has the username.
	ChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error)
	// WatchHistory lists watched videos, most recent first.
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
}
