package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type UpdateAccountInput struct {
	FullName string `validate:"required"`
	Email    string `validate:"required"`
}

// ProfileService serves the authenticated user's own profile and the public
// channel pages built from subscriptions and watch history.
type ProfileService struct {
	base
}

func NewProfileService(d Deps) *ProfileService {
	return &ProfileService{base: newBase(d, "profiles")}
}

func (s *ProfileService) CurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	u, err := s.repomanager.Users(s.handle()).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User not found")
		}
		return nil, common.Internal("error loading user", err)
	}
	return u.Public(), nil
}

func (s *ProfileService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*models.PublicUser, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalize(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return nil, common.Validation("All fields are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, common.Validation("Email is not valid")
	}

	u, err := s.repomanager.Users(s.handle()).UpdateAccount(ctx, userID, in.FullName, in.Email)
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}
	return u.Public(), nil
}

func (s *ProfileService) UpdateAvatar(ctx context.Context, userID string, f *media.File) (*models.PublicUser, error) {
	if f == nil || f.Body == nil {
		return nil, common.Validation("Avatar file is missing")
	}

	up, err := s.uploader.Upload(ctx, *f)
	if err != nil {
		return nil, common.Upstream("Error while uploading avatar", err)
	}

	u, err := s.repomanager.Users(s.handle()).UpdateAvatar(ctx, userID, up.URL)
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}
	return u.Public(), nil
}

func (s *ProfileService) UpdateCoverImage(ctx context.Context, userID string, f *media.File) (*models.PublicUser, error) {
	if f == nil || f.Body == nil {
		return nil, common.Validation("Cover image file is missing")
	}

	up, err := s.uploader.Upload(ctx, *f)
	if err != nil {
		return nil, common.Upstream("Error while uploading cover image", err)
	}

	u, err := s.repomanager.Users(s.handle()).UpdateCoverImage(ctx, userID, up.URL)
	if err != nil {
		return nil, s.mapUpdateErr(err)
	}
	return u.Public(), nil
}

func (s *ProfileService) ChannelProfile(ctx context.Context, viewerID, username string) (*models.ChannelProfile, error) {
	username = normalize(username)
	if username == "" {
		return nil, common.Validation("username is missing")
	}

	p, err := s.repomanager.Profiles(s.handle()).ChannelProfile(ctx, viewerID, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("channel does not exist")
		}
		return nil, common.Internal("error loading channel", err)
	}
	return p, nil
}

func (s *ProfileService) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	h, err := s.repomanager.Profiles(s.handle()).WatchHistory(ctx, userID)
	if err != nil {
		return nil, common.Internal("error loading watch history", err)
	}
	return h, nil
}

func (s *ProfileService) mapUpdateErr(err error) error {
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return common.Conflict("Email already in use")
	case errors.Is(err, common.ErrorNotFound):
		return common.NotFound("User not found")
	default:
		return common.Internal("error updating user", err)
	}
}
