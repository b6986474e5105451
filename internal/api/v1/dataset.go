package v1

import (
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
)

// FrequencyResponse wraps the frequency table of one taxon.
type FrequencyResponse struct {
	Taxon string                 `json:"taxon"`
	Total int                    `json:"total_labels"`
	Rows  []dataset.FrequencyRow `json:"rows"`
}

// GetFrequencies returns the frequency table of :taxon, ascending by count.
// ?order=desc returns the dashboard table order instead.
func (c *Controller) GetFrequencies(ctx echo.Context) error {
	taxon, err := dataset.ParseTaxon(ctx.Param("taxon"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid taxon", http.StatusBadRequest)
	}

	rows, err := c.Dataset.Frequencies(taxon)
	if err != nil {
		return c.HandleDomainError(ctx, err, "Failed to compute frequencies")
	}

	switch ctx.QueryParam("order") {
	case "", "asc":
	case "desc":
		rows = dataset.ByCountDescending(rows)
	default:
		return c.HandleError(ctx, nil, "order must be asc or desc", http.StatusBadRequest)
	}

	return ctx.JSON(http.StatusOK, FrequencyResponse{
		Taxon: string(taxon),
		Total: len(rows),
		Rows:  rows,
	})
}

// GetSpecies returns the sorted species list.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Dataset.Species())
}

// GetOrgans returns organ counts for ?species=, or for the whole dataset.
func (c *Controller) GetOrgans(ctx echo.Context) error {
	species := ctx.QueryParam("species")
	if species != "" && !c.Dataset.HasSpecies(species) {
		return c.HandleError(ctx, errors.NotFound("species %q not found", species), "Unknown species", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, c.Dataset.OrganDistribution(species))
}

// GetImageLinks returns one image link per organ of :species. With
// ?random=true a random observation of each organ is chosen.
func (c *Controller) GetImageLinks(ctx echo.Context) error {
	species := speciesParam(ctx)
	if !c.Dataset.HasSpecies(species) {
		return c.HandleError(ctx, errors.NotFound("species %q not found", species), "Unknown species", http.StatusNotFound)
	}

	var rnd *rand.Rand
	if v := ctx.QueryParam("random"); v != "" {
		random, err := strconv.ParseBool(v)
		if err != nil {
			return c.HandleError(ctx, err, "random must be a boolean", http.StatusBadRequest)
		}
		if random {
			rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}

	return ctx.JSON(http.StatusOK, c.Dataset.ImagesByOrgan(species, rnd))
}
