// Package server wires the vidtube account service together: configuration,
// storage, token issuing, media uploads and the HTTP API. It also handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/httpapi"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/metrics"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret:  []byte(c.AccessTokenSecret),
		AccessExpiry:  c.AccessTokenExpiry,
		RefreshSecret: []byte(c.RefreshTokenSecret),
		RefreshExpiry: c.RefreshTokenExpiry,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token issuer error: %w", err)
	}

	hasher, err := auth.NewHasher(c.BcryptCost)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("password hasher error: %w", err)
	}

	uploader, err := media.NewS3Uploader(ctx, media.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		PublicURL:    c.S3PublicURL,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("media uploader error: %w", err)
	}

	m := metrics.New()
	deps := services.Deps{
		DB:       db,
		Repos:    rm,
		Issuer:   issuer,
		Hasher:   hasher,
		Uploader: uploader,
		Logger:   logger,
		Metrics:  m,
	}

	h := httpapi.NewHandler(
		services.NewUserService(deps),
		services.NewProfileService(deps),
		httpapi.CookieConfig{
			Secure:        c.CookieSecure,
			Domain:        c.CookieDomain,
			AccessMaxAge:  c.AccessTokenExpiry,
			RefreshMaxAge: c.RefreshTokenExpiry,
		},
		c.MaxUploadBytes,
		logger,
	)
	router := httpapi.NewRouter(h, issuer, logger, m)
	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, router, c.ShutdownTimeout)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
