// Package server wires configuration, storage, services and transports of
// the accountant server and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/dmitrijs2005/aiaccountant/internal/server/archive"
	"github.com/dmitrijs2005/aiaccountant/internal/server/assistant"
	"github.com/dmitrijs2005/aiaccountant/internal/server/auth"
	"github.com/dmitrijs2005/aiaccountant/internal/server/config"
	"github.com/dmitrijs2005/aiaccountant/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiaccountant/internal/server/rest"
	"github.com/dmitrijs2005/aiaccountant/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/aiaccountant/internal/server/grpc"
)

// ShutdownTimeout bounds how long in-flight HTTP requests may take to finish.
const ShutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

// NewApp connects to the database, applies migrations and builds the
// services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app, err := newApp(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	if c.SecretKey == config.DefaultSecretKey {
		logger.Warn(ctx, "SECRET_KEY is the development default, tokens can be forged", "gin_mode", c.GinMode)
	}

	var store services.TranscriptStore
	if c.ExportsEnabled() {
		a, err := archive.New(ctx, archive.Settings{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		store = a
	} else {
		logger.Info(ctx, "S3 bucket not configured, transcript export disabled")
	}

	users := services.NewUserService(db, rm, tokens, c)
	history := services.NewHistoryService(db, rm)
	asker := assistant.NewClient(c.AIBaseURL, c.AIAPIKey, c.AITimeout)
	chat := services.NewChatService(db, history, asker, c, logger)
	exports := services.NewExportService(history, store)

	gin.SetMode(c.GinMode)
	router := rest.NewRouter(rest.Deps{
		Users:          users,
		History:        history,
		Chat:           chat,
		Exports:        exports,
		Tokens:         tokens,
		Logger:         logger,
		RecheckUser:    c.AuthRecheckUser,
		AuthRateLimit:  c.AuthRateLimit,
		TrustedProxies: c.TrustedProxies,
	})

	return &App{config: c, logger: logger, db: db, handler: router}, nil
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
	listen, err := net.Listen("tcp", app.config.HTTPAddr)
	if err != nil {
		app.logger.Error(ctx, "http listen failed", "err", err)
		cancelFunc()
		return
	}
	if err := app.serveHTTP(ctx, listen); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// serveHTTP serves the API on lis until ctx is done, then drains in-flight
// requests for up to ShutdownTimeout.
func (app *App) serveHTTP(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: app.handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Stopping HTTP server...")
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return <-errCh
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.GRPCHealthAddr, app.logger, app.db, app.config.HealthCheckInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then closes the database.
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

	if app.config.GRPCHealthAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "err", err)
	}
	app.logger.Info(ctx, "App stopped")
}
