package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out the same in-memory repositories for every
// handle; the DBTX argument is ignored.
type MemoryRepositoryManager struct {
	users    *users.MemoryRepository
	profiles *profiles.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	u := users.NewMemoryRepository()
	return &MemoryRepositoryManager{
		users:    u,
		profiles: profiles.NewMemoryRepository(u),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) Profiles(dbx.DBTX) profiles.Repository { return m.profiles }

// ProfileStore exposes the concrete profiles store for seeding.
func (m *MemoryRepositoryManager) ProfileStore() *profiles.MemoryRepository { return m.profiles }
