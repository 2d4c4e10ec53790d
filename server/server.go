// Package server hosts the HTTP surface of the pattern store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/server/internal/observability"
	"github.com/fieldwork/patternstore/server/middleware"
	"github.com/fieldwork/patternstore/server/router/apiv1"
	"github.com/fieldwork/patternstore/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	logger     *slog.Logger
}

func NewServer(profile *profile.Profile, store *store.Store) (*Server, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	logger := observability.NewLogger(profile)

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.CORS())
	echoServer.Use(observability.RequestLogger(logger))
	echoServer.Use(middleware.NewRateLimiter(0, 0).Middleware())

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	apiv1.NewAPIV1Service(profile, store).Register(echoServer)

	return &Server{
		Profile:    profile,
		Store:      store,
		echoServer: echoServer,
		logger:     logger,
	}, nil
}

// Start serves HTTP until the context is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server listening", slog.String("address", address), slog.String("mode", s.Profile.Mode))

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down server", slog.Any("error", err))
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", slog.Any("error", err))
	}
	s.logger.Info("server stopped")
}
