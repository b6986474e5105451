package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/charts"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
)

// GetCumulativeChart renders the cumulative frequency chart of :taxon.
func (c *Controller) GetCumulativeChart(ctx echo.Context) error {
	taxon, err := dataset.ParseTaxon(ctx.Param("taxon"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid taxon", http.StatusBadRequest)
	}
	format, err := charts.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid chart format", http.StatusBadRequest)
	}

	key := fmt.Sprintf("cumulative|%s|%s", taxon, format)
	return c.serveChart(ctx, "cumulative", key, format, func() ([]byte, error) {
		rows, err := c.Dataset.Frequencies(taxon)
		if err != nil {
			return nil, err
		}
		return charts.Cumulative(rows, taxon, charts.Options{Format: format})
	})
}

// GetOrganChart renders the organ pie for ?species=, or the whole dataset.
func (c *Controller) GetOrganChart(ctx echo.Context) error {
	species := ctx.QueryParam("species")
	if species != "" && !c.Dataset.HasSpecies(species) {
		return c.HandleError(ctx, errors.NotFound("species %q not found", species), "Unknown species", http.StatusNotFound)
	}
	format, err := charts.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid chart format", http.StatusBadRequest)
	}

	key := fmt.Sprintf("organs|%s|%s", species, format)
	return c.serveChart(ctx, "organs", key, format, func() ([]byte, error) {
		return charts.OrganPie(c.Dataset.OrganDistribution(species), charts.OrganTitle(species), charts.Options{Format: format})
	})
}

// GetProjectionChart renders the embedding scatter plot. It is 404 when no
// embeddings were loaded.
func (c *Controller) GetProjectionChart(ctx echo.Context) error {
	if len(c.Projection) == 0 {
		return c.HandleError(ctx, errors.NotFound("no embeddings configured"), "Projection unavailable", http.StatusNotFound)
	}
	format, err := charts.ParseFormat(ctx.QueryParam("format"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid chart format", http.StatusBadRequest)
	}

	key := fmt.Sprintf("projection|%s", format)
	return c.serveChart(ctx, "projection", key, format, func() ([]byte, error) {
		return charts.Projection(c.Projection, charts.ProjectionTitle, charts.Options{Format: format})
	})
}

// serveChart writes the cached chart for key, rendering it on a miss.
func (c *Controller) serveChart(ctx echo.Context, kind, key string, format charts.Format, render func() ([]byte, error)) error {
	if cached, ok := c.chartCache.Get(key); ok {
		if c.metrics != nil {
			c.metrics.Charts.RecordCacheHit(kind)
		}
		return ctx.Blob(http.StatusOK, format.ContentType(), cached.([]byte))
	}
	if c.metrics != nil {
		c.metrics.Charts.RecordCacheMiss(kind)
	}

	start := time.Now()
	data, err := render()
	if c.metrics != nil {
		c.metrics.Charts.RecordRender(kind, string(format), time.Since(start), err)
	}
	if err != nil {
		return c.HandleDomainError(ctx, err, "Failed to render chart")
	}

	c.chartCache.SetDefault(key, data)
	return ctx.Blob(http.StatusOK, format.ContentType(), data)
}
