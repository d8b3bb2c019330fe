package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAlice(t *testing.T, api *testAPI) {
	t.Helper()
	rec := api.do(t, multipartRequest(t, http.MethodPost, "/api/v1/users/register", aliceForm(),
		map[string]string{"avatar": "a.png"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func loginAlice(t *testing.T, api *testAPI) (access, refresh *http.Cookie) {
	t.Helper()
	rec := api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice",
		"password": "Secret123",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access = cookieByName(rec, common.AccessTokenCookieName)
	refresh = cookieByName(rec, common.RefreshTokenCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func TestSessionLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, multipartRequest(t, http.MethodPost, "/api/v1/users/register", aliceForm(),
		map[string]string{"avatar": "a.png"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "refreshToken")

	var registered map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, "alice", registered["username"])
	assert.Equal(t, "alice@x.com", registered["email"])
	assert.Equal(t, "http://media/a.png", registered["avatar"])
	assert.Equal(t, "", registered["coverImage"])

	rec = api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "alice@x.com",
		"password": "Secret123",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := cookieByName(rec, common.AccessTokenCookieName)
	refresh := cookieByName(rec, common.RefreshTokenCookieName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)

	var login loginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &login))
	assert.Equal(t, access.Value, login.AccessToken)
	assert.Equal(t, refresh.Value, login.RefreshToken)
	assert.Equal(t, "alice", login.User.UserName)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"username":"alice"`)

	api.clock.Advance(time.Second)
	rec = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil), refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	newAccess := cookieByName(rec, common.AccessTokenCookieName)
	newRefresh := cookieByName(rec, common.RefreshTokenCookieName)
	require.NotNil(t, newAccess)
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, refresh.Value, newRefresh.Value)

	// the rotated-out token is spent
	rec = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil), refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeEnvelope(t, rec).Message)

	rec = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil), newAccess)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cookieByName(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, "", c.Value)
		assert.Less(t, c.MaxAge, 0)
	}

	rec = api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil), newRefresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// access tokens stay valid until they expire
	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), newAccess)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.clock.Advance(16 * time.Minute)
	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil), newAccess)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Invalid token", decodeEnvelope(t, rec).Message)
}

func TestRegisterRejections(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, api *testAPI)
		fields  func() map[string]string
		files   map[string]string
		status  int
		message string
	}{
		{
			name:    "blank field",
			fields:  func() map[string]string { f := aliceForm(); f["fullname"] = "   "; return f },
			files:   map[string]string{"avatar": "a.png"},
			status:  http.StatusBadRequest,
			message: "All fields are required",
		},
		{
			name:    "missing avatar",
			fields:  aliceForm,
			status:  http.StatusBadRequest,
			message: "Avatar image is required",
		},
		{
			name:    "duplicate username",
			prepare: registerAlice,
			fields:  func() map[string]string { f := aliceForm(); f["email"] = "other@x.com"; return f },
			files:   map[string]string{"avatar": "a.png"},
			status:  http.StatusConflict,
			message: "Username or email already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			if tt.prepare != nil {
				tt.prepare(t, api)
			}
			before := api.uploads

			rec := api.do(t, multipartRequest(t, http.MethodPost, "/api/v1/users/register", tt.fields(), tt.files))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.status, env.StatusCode)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, before, api.uploads, "rejected registration must not upload")
		})
	}
}

func TestRegisterUploadFailure(t *testing.T) {
	api := newTestAPI(t)
	api.failUpload = errors.New("bucket unavailable")

	rec := api.do(t, multipartRequest(t, http.MethodPost, "/api/v1/users/register", aliceForm(),
		map[string]string{"avatar": "a.png"}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "bucket unavailable")
}

func TestLoginRejections(t *testing.T) {
	api := newTestAPI(t)
	registerAlice(t, api)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"no identifier", map[string]string{"password": "Secret123"}, http.StatusBadRequest},
		{"unknown user", map[string]string{"username": "bob", "password": "Secret123"}, http.StatusNotFound},
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/login", tt.body))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Nil(t, cookieByName(rec, common.AccessTokenCookieName))
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", strings.NewReader("{"))
		rec := api.do(t, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshTokenFromBody(t *testing.T) {
	api := newTestAPI(t)
	registerAlice(t, api)
	_, refresh := loginAlice(t, api)

	api.clock.Advance(time.Second)
	rec := api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/refresh-token",
		map[string]string{"refreshToken": refresh.Value}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair tokensResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, refresh.Value, pair.RefreshToken)
}

func TestRefreshTokenMissing(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePasswordOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	registerAlice(t, api)
	access, _ := loginAlice(t, api)

	rec := api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "wrong",
		"newPassword": "Another1",
	}), access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{
		"oldPassword": "Secret123",
		"newPassword": "Another1",
	}), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice",
		"password": "Another1",
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateAccountAndImages(t *testing.T) {
	api := newTestAPI(t)
	registerAlice(t, api)
	access, _ := loginAlice(t, api)

	rec := api.do(t, jsonRequest(t, http.MethodPatch, "/api/v1/users/update-account", map[string]string{
		"fullname": "Alice Cooper",
		"email":    "Cooper@X.com",
	}), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, body, `"fullname":"Alice Cooper"`)
	assert.Contains(t, body, `"email":"cooper@x.com"`)

	rec = api.do(t, multipartRequest(t, http.MethodPatch, "/api/v1/users/avatar", nil,
		map[string]string{"avatar": "b.png"}), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"avatar":"http://media/b.png"`)

	rec = api.do(t, multipartRequest(t, http.MethodPatch, "/api/v1/users/cover-image", nil,
		map[string]string{"coverImage": "c.png"}), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"coverImage":"http://media/c.png"`)

	rec = api.do(t, multipartRequest(t, http.MethodPatch, "/api/v1/users/avatar", nil, nil), access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChannelProfileAndHistory(t *testing.T) {
	api := newTestAPI(t)
	registerAlice(t, api)
	access, _ := loginAlice(t, api)

	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/c/ALICE", nil), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, body, `"username":"alice"`)
	assert.Contains(t, body, `"subscribersCount":0`)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/c/nobody", nil), access)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/users/history", nil), access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "[]", string(decodeEnvelope(t, rec).Data))
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}
