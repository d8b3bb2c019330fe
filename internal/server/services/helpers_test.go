package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeUploader records every upload and optionally fails.
type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, file media.File) (*media.Uploaded, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, file.Name)
	if f.err != nil {
		return nil, f.err
	}
	return &media.Uploaded{URL: "http://media/" + file.Name, Key: file.Name}, nil
}

func (f *fakeUploader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	repos    *repomanager.MemoryRepositoryManager
	uploader *fakeUploader
	issuer   *auth.Issuer
	users    *UserService
	profiles *ProfileService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repos:    repomanager.NewMemoryRepositoryManager(),
		uploader: &fakeUploader{},
		now:      time.Now(),
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte("access-secret"),
		AccessExpiry:  time.Hour,
		RefreshSecret: []byte("refresh-secret"),
		RefreshExpiry: 24 * time.Hour,
	}, auth.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.issuer = issuer

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)

	d := Deps{
		Repos:    f.repos,
		Issuer:   issuer,
		Hasher:   hasher,
		Uploader: f.uploader,
	}
	f.users = NewUserService(d)
	f.profiles = NewProfileService(d)
	return f
}

func avatar() *media.File {
	return &media.File{Name: "avatar.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
}

func aliceInput() RegisterInput {
	return RegisterInput{
		FullName: "Alice",
		Email:    "alice@x.com",
		UserName: "alice",
		Password: "Secret123",
		Avatar:   avatar(),
	}
}

func (f *fixture) registerAlice(t *testing.T) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), aliceInput())
	require.NoError(t, err)
	return u.ID
}

var errBoom = errors.New("boom")
