package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// UserLookup is the part of the user store the memory profiles need.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
}

// Video is a stored video row as seen by the memory store.
type Video struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	VideoFile   string
	Thumbnail   string
	Duration    float64
	Views       int64
}

type watch struct {
	videoID string
	at      time.Time
}

type subscription struct {
	subscriber, channel string
}

// MemoryRepository keeps subscriptions, videos and watch history in memory and
// resolves users through UserLookup.
type MemoryRepository struct {
	users UserLookup

	mu      sync.RWMutex
	subs    map[subscription]struct{}
	videos  map[string]Video
	history map[string][]watch
}

func NewMemoryRepository(users UserLookup) *MemoryRepository {
	return &MemoryRepository{
		users:   users,
		subs:    make(map[subscription]struct{}),
		videos:  make(map[string]Video),
		history: make(map[string][]watch),
	}
}

func (r *MemoryRepository) Subscribe(subscriberID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[subscription{subscriberID, channelID}] = struct{}{}
}

func (r *MemoryRepository) AddVideo(v Video) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[v.ID] = v
}

// RecordWatch moves videoID to the top of userID's history.
func (r *MemoryRepository) RecordWatch(userID, videoID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.history[userID][:0:0]
	for _, w := range r.history[userID] {
		if w.videoID != videoID {
			h = append(h, w)
		}
	}
	r.history[userID] = append(h, watch{videoID: videoID, at: at})
}

func (r *MemoryRepository) ChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	u, err := r.users.GetByUsernameOrEmail(ctx, username, "")
	if err != nil {
		return nil, err
	}
	if u.UserName != username {
		return nil, common.ErrorNotFound
	}

	p := &models.ChannelProfile{
		ID:         u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for s := range r.subs {
		if s.channel == u.ID {
			p.SubscribersCount++
			if s.subscriber == viewerID {
				p.IsSubscribed = true
			}
		}
		if s.subscriber == u.ID {
			p.ChannelsSubscribedToCount++
		}
	}

	return p, nil
}

func (r *MemoryRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	r.mu.RLock()
	watched := append([]watch(nil), r.history[userID]...)
	videos := make(map[string]Video, len(watched))
	for _, w := range watched {
		if v, ok := r.videos[w.videoID]; ok {
			videos[w.videoID] = v
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(watched, func(i, j int) bool { return watched[i].at.After(watched[j].at) })

	result := make([]models.WatchedVideo, 0, len(watched))
	for _, w := range watched {
		v, ok := videos[w.videoID]
		if !ok {
			continue
		}
		owner, err := r.users.GetByID(ctx, v.OwnerID)
		if err != nil {
			continue
		}
		result = append(result, models.WatchedVideo{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			VideoFile:   v.VideoFile,
			Thumbnail:   v.Thumbnail,
			Duration:    v.Duration,
			Views:       v.Views,
			Owner: models.VideoOwner{
				UserName: owner.UserName,
				FullName: owner.FullName,
				Avatar:   owner.Avatar,
			},
			WatchedAt: w.at,
		})
	}

	return result, nil
}
