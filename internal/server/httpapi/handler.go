// Package httpapi exposes the user and session operations over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	users     *services.UserService
	profiles  *services.ProfileService
	cookies   CookieConfig
	maxUpload int64
	logger    logging.Logger
}

func NewHandler(us *services.UserService, ps *services.ProfileService, cookies CookieConfig, maxUpload int64, l logging.Logger) *Handler {
	return &Handler{
		users:     us,
		profiles:  ps,
		cookies:   cookies,
		maxUpload: maxUpload,
		logger:    l.With("module", "http_handler"),
	}
}

type loginRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type loginResponse struct {
	User         *models.PublicUser `json:"user"`
	AccessToken  string             `json:"accessToken"`
	RefreshToken string             `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	avatar, closeAvatar, err := formFile(r, "avatar")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeAvatar()

	cover, closeCover, err := formFile(r, "coverImage")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeCover()

	u, err := h.users.Register(r.Context(), services.RegisterInput{
		FullName:   r.FormValue("fullname"),
		Email:      r.FormValue("email"),
		UserName:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, u, "User registered successfully")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), services.LoginInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.setTokens(w, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	writeSuccess(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

// RefreshToken accepts the refresh token from its cookie or, failing that,
// from the JSON body.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			h.fail(w, r, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.users.RefreshToken(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.setTokens(w, pair.AccessToken, pair.RefreshToken)
	writeSuccess(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "Access token refreshed")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	if err := h.users.Logout(r.Context(), u.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.clearTokens(w)
	writeSuccess(w, http.StatusOK, struct{}{}, "User logged out")
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), u.ID, req.OldPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	writeSuccess(w, http.StatusOK, u, "User fetched successfully")
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	var req updateAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.profiles.UpdateAccount(r.Context(), u.ID, services.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, "Account details updated successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.profiles.UpdateAvatar, "Avatar updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.profiles.UpdateCoverImage, "Cover image updated successfully")
}

type imageUpdater func(ctx context.Context, userID string, f *media.File) (*models.PublicUser, error)

func (h *Handler) updateImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdater, msg string) {
	u, _ := UserFromContext(r.Context())

	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, closeFile, err := formFile(r, field)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	updated, err := update(r.Context(), u.ID, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, msg)
}

func (h *Handler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	p, err := h.profiles.ChannelProfile(r.Context(), u.ID, chi.URLParam(r, "username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, p, "User channel fetched successfully")
}

func (h *Handler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	history, err := h.profiles.WatchHistory(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, history, "Watch history fetched successfully")
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.Validation("upload is too large")
		}
		return common.Validation("invalid multipart form")
	}
	return nil
}

// formFile returns nil when the field is absent. The returned close func is
// always safe to call.
func formFile(r *http.Request, field string) (*media.File, func(), error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, common.Validation("invalid file field " + field)
	}
	return fileFromHeader(f, hdr), func() { _ = f.Close() }, nil
}

func fileFromHeader(f multipart.File, hdr *multipart.FileHeader) *media.File {
	return &media.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        f,
	}
}
