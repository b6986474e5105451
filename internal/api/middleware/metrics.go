package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/observability/metrics"
)

// NewMetrics records request counts, latency and response size. Requests are
// labelled by route pattern rather than raw path to bound cardinality.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			req := c.Request()
			res := c.Response()
			m.RecordRequest(req.Method, path, statusOf(res, err), time.Since(start), res.Size)
			return err
		}
	}
}

// statusOf returns the status the client will see once echo has handled err.
func statusOf(res *echo.Response, err error) int {
	if err == nil || res.Committed {
		return res.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
