package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/metrics"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
)

// Deps are the collaborators shared by the services. DB may be nil when the
// repository manager is not SQL-backed.
type Deps struct {
	DB       *sql.DB
	Repos    repomanager.RepositoryManager
	Issuer   *auth.Issuer
	Hasher   *auth.Hasher
	Uploader media.Uploader
	Logger   logging.Logger
	Metrics  *metrics.Metrics
}

type base struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	uploader    media.Uploader
	validate    *validator.Validate
	log         logging.Logger
	metrics     *metrics.Metrics
	module      string
}

func newBase(d Deps, module string) base {
	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}
	return base{
		db:          d.DB,
		repomanager: d.Repos,
		uploader:    d.Uploader,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         log.With("module", module),
		metrics:     d.Metrics,
		module:      module,
	}
}

func (b *base) handle() dbx.DBTX {
	if b.db == nil {
		return nil
	}
	return b.db
}

// withTx runs fn in a transaction when a database is configured, and
// directly otherwise.
func (b *base) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if b.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, b.db, nil, fn)
}

// logger prefers the request-scoped logger carried by ctx.
func (b *base) logger(ctx context.Context) logging.Logger {
	if l := logging.FromContext(ctx, nil); l != nil {
		return l.With("module", b.module)
	}
	return b.log
}
