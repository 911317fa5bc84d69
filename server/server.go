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

	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/plugin/ai"
	apiv1 "github.com/hanroad/hanroad/server/router/api/v1"
	"github.com/hanroad/hanroad/server/runner/embedding"
	"github.com/hanroad/hanroad/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	logger     *slog.Logger
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.Debug = profile.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RemoveTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
	}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", "error", err, "path", c.Path())
			return err
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
		logger:     logger,
	}

	apiService, err := apiv1.NewAPIV1Service(profile, store, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create api service")
	}
	s.apiService = apiService
	apiService.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	s.apiService.StartLimiterCleanup(ctx)
	go s.startBackgroundRunners(ctx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started", "address", address, "mode", s.Profile.Mode)
	return s.echoServer.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server stopped")
}

// startBackgroundRunners launches the corpus embedding backfill when an
// embedding backend is configured.
func (s *Server) startBackgroundRunners(ctx context.Context) {
	if !s.Profile.IsEmbeddingEnabled() {
		return
	}

	aiConfig := ai.NewConfigFromProfile(s.Profile)
	embedder, err := ai.NewEmbeddingService(&aiConfig.Corpus)
	if err != nil {
		s.logger.Warn("embedding runner disabled", "error", err)
		return
	}

	runner := embedding.NewRunner(s.Store, embedder)
	runner.Run(ctx)
}
