package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/metrics"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testAPI struct {
	router     http.Handler
	repos      *repomanager.MemoryRepositoryManager
	issuer     *auth.Issuer
	clock      *testClock
	uploads    int
	failUpload error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		repos: repomanager.NewMemoryRepositoryManager(),
		clock: &testClock{now: time.Now()},
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte("access-secret"),
		AccessExpiry:  15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshExpiry: 24 * time.Hour,
	}, auth.WithClock(api.clock.Now))
	require.NoError(t, err)
	api.issuer = issuer

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	uploader := media.UploaderFunc(func(ctx context.Context, f media.File) (*media.Uploaded, error) {
		api.uploads++
		if api.failUpload != nil {
			return nil, api.failUpload
		}
		return &media.Uploaded{URL: "http://media/" + f.Name, Key: f.Name}, nil
	})

	log := logging.Nop{}
	d := services.Deps{
		Repos:    api.repos,
		Issuer:   issuer,
		Hasher:   hasher,
		Uploader: uploader,
		Logger:   log,
	}

	h := NewHandler(services.NewUserService(d), services.NewProfileService(d), CookieConfig{
		Secure:        true,
		AccessMaxAge:  15 * time.Minute,
		RefreshMaxAge: 24 * time.Hour,
	}, 1<<20, log)

	api.router = NewRouter(h, issuer, log, metrics.New())
	return api
}

func (a *testAPI) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds a form with text fields and files keyed by field name.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func aliceForm() map[string]string {
	return map[string]string{
		"fullname": "Alice",
		"email":    "alice@x.com",
		"username": "alice",
		"password": "Secret123",
	}
}
