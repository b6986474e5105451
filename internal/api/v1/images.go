package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/errors"
)

// GetMontage returns the PNG organ montage of :species.
func (c *Controller) GetMontage(ctx echo.Context) error {
	if c.Images == nil {
		return c.HandleError(ctx, errors.NotFound("image provider disabled"), "Images unavailable", http.StatusNotFound)
	}

	species := speciesParam(ctx)
	if !c.Dataset.HasSpecies(species) {
		return c.HandleError(ctx, errors.NotFound("species %q not found", species), "Unknown species", http.StatusNotFound)
	}

	data, err := c.Images.Montage(ctx.Request().Context(), species)
	if err != nil {
		return c.HandleDomainError(ctx, err, "Failed to load species images")
	}

	ctx.Response().Header().Set("Cache-Control", "public, max-age=600")
	return ctx.Blob(http.StatusOK, "image/png", data)
}
