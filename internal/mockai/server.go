package mockai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/aiaccountant/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// New builds the echo server with routes and middleware.
func New(cfg *Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	NewHandler(cfg).RegisterRoutes(e)
	return e
}

// Run serves on cfg.Addr until ctx is done.
func Run(ctx context.Context, cfg *Config, logger logging.Logger) error {
	e := New(cfg)
	e.Use(requestLogger(logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting mock AI", "address", cfg.Addr, "delay", cfg.Delay.String())
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(ctx, "Stopping mock AI...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return err
	}
	return <-errCh
}

func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info(c.Request().Context(), "request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency", time.Since(start).String(),
			)
			return nil
		}
	}
}
