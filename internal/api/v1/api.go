// Package v1 implements the JSON and image endpoints of the dashboard under /api/v1.
package v1

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/observability"
	"github.com/tphakala/plantclef-go/internal/projection"
)

// DefaultChartCacheTTL is used when the settings leave the chart cache TTL unset.
const DefaultChartCacheTTL = 10 * time.Minute

// MontageProvider builds the organ image montage of a species.
type MontageProvider interface {
	Montage(ctx context.Context, species string) ([]byte, error)
}

// Controller serves the v1 API. The dataset and projection are read-only
// after construction, so handlers need no locking.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	Dataset    *dataset.Table
	Projection []projection.Point
	Images     MontageProvider
	Version    string

	metrics    *observability.Metrics
	chartCache *cache.Cache
	logger     logger.Logger
	startTime  time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithProjection supplies precomputed embedding projection points.
func WithProjection(points []projection.Point) Option {
	return func(c *Controller) {
		c.Projection = points
	}
}

// WithImageProvider sets the montage provider.
func WithImageProvider(p MontageProvider) Option {
	return func(c *Controller) {
		c.Images = p
	}
}

// WithVersion sets the build version reported by the health check.
func WithVersion(version string) Option {
	return func(c *Controller) {
		c.Version = version
	}
}

// WithMetrics enables chart and error metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// GetLogger returns the api module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, table *dataset.Table, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if table == nil {
		return nil, errors.ValidationError("api controller requires a dataset")
	}
	if settings == nil {
		return nil, errors.ValidationError("api controller requires settings")
	}

	ttl := settings.WebServer.ChartCacheTTL
	if ttl <= 0 {
		ttl = DefaultChartCacheTTL
	}

	c := &Controller{
		Echo:       e,
		Group:      e.Group("/api/v1"),
		Settings:   settings,
		Dataset:    table,
		chartCache: cache.New(ttl, 2*ttl),
		logger:     GetLogger(),
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/health", c.HealthCheck)

	c.Group.GET("/frequencies/:taxon", c.GetFrequencies)
	c.Group.GET("/species", c.GetSpecies)
	c.Group.GET("/organs", c.GetOrgans)
	c.Group.GET("/images/:species/links", c.GetImageLinks)
	c.Group.GET("/images/:species/montage", c.GetMontage)

	c.Group.GET("/charts/cumulative/:taxon", c.GetCumulativeChart)
	c.Group.GET("/charts/organs", c.GetOrganChart)
	c.Group.GET("/charts/projection", c.GetProjectionChart)

	c.Group.POST("/submission", c.PostSubmission)
}

// HealthCheck reports liveness and what data is loaded.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        c.Version,
		"dataset_rows":   c.Dataset.Len(),
		"embeddings":     len(c.Projection),
		"images_enabled": c.Images != nil,
		"uptime":         uptime.Round(time.Second).String(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Shutdown releases controller resources.
func (c *Controller) Shutdown() {
	c.chartCache.Flush()
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response with a fresh correlation ID.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)
	req := ctx.Request()

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", req.URL.Path),
		logger.String("method", req.Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Warn("API request rejected", fields...)
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordError(req.Method, ctx.Path(), errorType(err))
	}

	return ctx.JSON(code, resp)
}

// HandleDomainError maps err's category to a status code and writes it.
func (c *Controller) HandleDomainError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.IsValidation(err), errors.IsCategory(err, errors.CategoryFileParsing):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryLimit):
		return http.StatusRequestEntityTooLarge
	case errors.IsCategory(err, errors.CategoryCancellation):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	if err == nil {
		return "none"
	}
	return string(errors.CategoryGeneric)
}

// speciesParam returns the unescaped :species path parameter.
func speciesParam(ctx echo.Context) string {
	raw := ctx.Param("species")
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}
