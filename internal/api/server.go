package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/plantclef-go/internal/api/middleware"
	v1 "github.com/tphakala/plantclef-go/internal/api/v1"
	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/observability"
	"github.com/tphakala/plantclef-go/internal/projection"
)

// Server is the dashboard HTTP server.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	dataset    *dataset.Table
	projection []projection.Point
	images     v1.MontageProvider
	metrics    *observability.Metrics
	version    string

	apiController *v1.Controller
	dashboard     *Dashboard

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithConfig overrides the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithProjection supplies the embedding projection shown on the dashboard.
func WithProjection(points []projection.Point) ServerOption {
	return func(s *Server) {
		s.projection = points
	}
}

// WithImageProvider sets the species montage provider.
func WithImageProvider(p v1.MontageProvider) ServerOption {
	return func(s *Server) {
		s.images = p
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the build version reported by /health.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// New creates the server and registers all routes.
func New(settings *conf.Settings, table *dataset.Table, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		settings:  settings,
		logger:    GetLogger(),
		dataset:   table,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", s.config.Listen),
		logger.Int("dataset_rows", table.Len()),
		logger.Int("projection_points", len(s.projection)),
		logger.Bool("images", s.images != nil),
		logger.Bool("metrics", s.metrics != nil))
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.logger.Module("http"), func(c echo.Context) bool {
		return c.Path() == "/health" || c.Path() == "/metrics"
	}))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	security := mw.DefaultSecurityConfig()
	security.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(echomw.GzipWithConfig(echomw.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// PNG payloads are already compressed.
			if strings.HasSuffix(c.Path(), "/montage") {
				return true
			}
			return strings.Contains(c.Path(), "/charts/") && c.QueryParam("format") != "svg"
		},
	}))
	s.echo.Use(mw.NewSecureHeaders(security))
}

func (s *Server) setupRoutes() error {
	apiOpts := []v1.Option{v1.WithProjection(s.projection), v1.WithVersion(s.version)}
	if s.images != nil {
		apiOpts = append(apiOpts, v1.WithImageProvider(s.images))
	}
	if s.metrics != nil {
		apiOpts = append(apiOpts, v1.WithMetrics(s.metrics))
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	controller, err := v1.New(s.echo, s.dataset, s.settings, apiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v1: %w", err)
	}
	s.apiController = controller

	dashboard, err := NewDashboard(s.dataset, DashboardOptions{
		Title:         s.config.Title,
		HasProjection: len(s.projection) > 0,
		ImagesEnabled: s.images != nil,
	})
	if err != nil {
		return err
	}
	s.dashboard = dashboard
	s.echo.GET("/", dashboard.Serve)

	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// APIController returns the v1 API controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", logger.String("address", s.config.Listen))
		if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, initiating graceful shutdown")
		if err := s.Shutdown(); err != nil {
			return err
		}
		return <-errCh
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("server shutdown complete",
		logger.Duration("uptime", time.Since(s.startTime)))
	return nil
}
