// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, password changes and the
// access/refresh token lifecycle.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type LoginResult struct {
	User   *models.PublicUser
	Tokens TokenPair
}

type RegisterInput struct {
	FullName   string `validate:"required"`
	Email      string `validate:"required"`
	UserName   string `validate:"required"`
	Password   string `validate:"required"`
	Avatar     *media.File
	CoverImage *media.File
}

type LoginInput struct {
	UserName string
	Email    string
	Password string
}

// UserService provides authentication-related operations:
//   - Register: create users
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate the refresh token and mint a new pair
//   - Logout: clear the stored refresh token
//   - ChangePassword: re-verify and replace the password hash
type UserService struct {
	base
	issuer *auth.Issuer
	hasher *auth.Hasher
}

func NewUserService(d Deps) *UserService {
	return &UserService{
		base:   newBase(d, "users"),
		issuer: d.Issuer,
		hasher: d.Hasher,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register validates input, uploads the avatar (and optional cover image),
// and creates the user. Validation and conflict failures never reach the
// uploader.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = normalize(in.Email)
	in.UserName = normalize(in.UserName)

	check := in
	check.Password = strings.TrimSpace(in.Password)
	if err := s.validate.Struct(check); err != nil {
		return nil, common.Validation("All fields are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, common.Validation("Email is not valid")
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, common.Validation("Password is too long")
	}
	if in.Avatar == nil || in.Avatar.Body == nil {
		return nil, common.Validation("Avatar image is required")
	}

	repo := s.repomanager.Users(s.handle())
	exists, err := repo.ExistsByUsernameOrEmail(ctx, in.UserName, in.Email)
	if err != nil {
		return nil, common.Internal("error checking existing user", err)
	}
	if exists {
		return nil, common.Conflict("Username or email already exists")
	}

	avatar, err := s.uploader.Upload(ctx, *in.Avatar)
	if err != nil {
		return nil, common.Upstream("Avatar upload failed", err)
	}

	var coverURL string
	if in.CoverImage != nil && in.CoverImage.Body != nil {
		cover, err := s.uploader.Upload(ctx, *in.CoverImage)
		if err != nil {
			return nil, common.Upstream("Cover image upload failed", err)
		}
		coverURL = cover.URL
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, common.Internal("error hashing password", err)
	}

	var created *models.User
	err = s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)
		id, err := repoTx.Create(ctx, &models.NewUser{
			UserName:     in.UserName,
			Email:        in.Email,
			FullName:     in.FullName,
			Avatar:       avatar.URL,
			CoverImage:   coverURL,
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.Conflict("Username or email already exists")
			}
			return common.Internal("error creating user", err)
		}

		created, err = repoTx.GetByID(ctx, id)
		if err != nil {
			return common.Internal("Something went wrong while creating user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info(ctx, "user registered", "user_id", created.ID)
	return created.Public(), nil
}

// Login verifies credentials and, on success, overwrites the stored refresh
// token with a freshly issued one. A wrong password leaves the slot as is.
func (s *UserService) Login(ctx context.Context, in LoginInput) (res *LoginResult, err error) {
	defer func() { s.metrics.AuthEvent("login", err) }()

	username, email := normalize(in.UserName), normalize(in.Email)
	if username == "" && email == "" {
		return nil, common.Validation("username or email is required")
	}

	repo := s.repomanager.Users(s.handle())
	user, err := repo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound("User does not exist")
		}
		return nil, common.Internal("error loading user", err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger(ctx).Info(ctx, "login rejected", "user_id", user.ID)
		return nil, common.Unauthorized("Invalid user credentials")
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, common.Internal("error storing refresh token", err)
	}

	return &LoginResult{User: user.Public(), Tokens: *pair}, nil
}

// RefreshToken validates the presented refresh token against its signature,
// expiry and the stored slot, then rotates the slot with a conditional swap.
// Every rejection looks the same to the caller.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer func() { s.metrics.AuthEvent("refresh", err) }()

	if refreshToken == "" {
		return nil, errInvalidRefresh()
	}

	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger(ctx).Debug(ctx, "refresh token rejected", "reason", err.Error())
		return nil, errInvalidRefresh()
	}

	repo := s.repomanager.Users(s.handle())
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger(ctx).Warn(ctx, "refresh token for unknown user", "user_id", claims.Subject)
			return nil, errInvalidRefresh()
		}
		return nil, common.Internal("error loading user", err)
	}

	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(user.RefreshToken)) != 1 {
		s.logger(ctx).Warn(ctx, "refresh token mismatch, possible reuse", "user_id", user.ID)
		return nil, errInvalidRefresh()
	}

	pair, err = s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}

	swapped, err := repo.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, common.Internal("error rotating refresh token", err)
	}
	if !swapped {
		s.logger(ctx).Warn(ctx, "refresh token rotated concurrently", "user_id", user.ID)
		return nil, errInvalidRefresh()
	}

	return pair, nil
}

// Logout clears the refresh slot. Calling it again is a no-op.
func (s *UserService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.AuthEvent("logout", err) }()

	repo := s.repomanager.Users(s.handle())
	if err := repo.SetRefreshToken(ctx, userID, ""); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.Internal("error clearing refresh token", err)
	}
	return nil
}

// ChangePassword replaces the password hash after re-verifying the old
// password. The refresh slot is left untouched.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (err error) {
	defer func() { s.metrics.AuthEvent("change_password", err) }()

	if strings.TrimSpace(newPassword) == "" || oldPassword == "" {
		return common.Validation("old and new password are required")
	}
	if len(newPassword) > maxPasswordBytes {
		return common.Validation("Password is too long")
	}

	repo := s.repomanager.Users(s.handle())
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.Unauthorized("Invalid old password")
		}
		return common.Internal("error loading user", err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return common.Unauthorized("Invalid old password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.Internal("error hashing password", err)
	}

	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return common.Internal("error updating password", err)
	}
	return nil
}

func errInvalidRefresh() error {
	return common.Unauthorized("Invalid refresh token")
}

func (s *UserService) generateTokenPair(user *models.User) (*TokenPair, error) {
	access, err := s.issuer.IssueAccessToken(auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
		UserName:         user.UserName,
		Email:            user.Email,
		FullName:         user.FullName,
	})
	if err != nil {
		return nil, common.Internal("error generating access token", err)
	}
	refresh, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, common.Internal("error generating refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
