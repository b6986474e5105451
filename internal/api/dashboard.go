package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/plantclef-go/internal/charts"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// DashboardTableRows caps the frequency table rendered into the page.
const DashboardTableRows = 100

// DashboardOptions controls which dashboard sections are rendered.
type DashboardOptions struct {
	Title         string
	HasProjection bool
	ImagesEnabled bool
}

// Dashboard renders the HTML overview page. Frequency tables are computed
// once since the dataset does not change while serving.
type Dashboard struct {
	tmpl        *template.Template
	opts        DashboardOptions
	rows        int
	species     []string
	frequencies map[dataset.Taxon][]dataset.FrequencyRow
	logger      logger.Logger
}

type taxonButton struct {
	Value  string
	Label  string
	Active bool
}

type dashboardPage struct {
	Title          string
	Rows           int
	SpeciesCount   int
	Taxa           []taxonButton
	Taxon          string
	TaxonTitle     string
	ChartTitle     string
	Frequencies    []dataset.FrequencyRow
	TotalLabels    int
	Species        string
	SpeciesOptions []string
	HasProjection  bool
	ImagesEnabled  bool
}

// NewDashboard parses the page template and precomputes the frequency tables.
func NewDashboard(table *dataset.Table, opts DashboardOptions) (*Dashboard, error) {
	if table == nil {
		return nil, errors.ValidationError("dashboard requires a dataset")
	}

	tmpl, err := template.New("dashboard.html").Funcs(template.FuncMap{
		"pct":        func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" },
		"pathEscape": url.PathEscape,
	}).ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("template", "dashboard.html").
			Build()
	}

	d := &Dashboard{
		tmpl:        tmpl,
		opts:        opts,
		rows:        table.Len(),
		species:     table.Species(),
		frequencies: make(map[dataset.Taxon][]dataset.FrequencyRow, len(dataset.Taxa)),
		logger:      GetLogger().Module("dashboard"),
	}
	for _, taxon := range dataset.Taxa {
		rows, err := table.Frequencies(taxon)
		if err != nil {
			return nil, err
		}
		d.frequencies[taxon] = dataset.ByCountDescending(rows)
	}
	return d, nil
}

// Serve renders the dashboard for ?taxon= (default genus) and ?species=
// (default the first species alphabetically).
func (d *Dashboard) Serve(c echo.Context) error {
	taxon := dataset.TaxonGenus
	if v := c.QueryParam("taxon"); v != "" {
		parsed, err := dataset.ParseTaxon(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		taxon = parsed
	}

	species := c.QueryParam("species")
	if species == "" && len(d.species) > 0 {
		species = d.species[0]
	}
	if species != "" && !d.hasSpecies(species) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown species")
	}

	freq := d.frequencies[taxon]
	page := dashboardPage{
		Title:          d.opts.Title,
		Rows:           d.rows,
		SpeciesCount:   len(d.species),
		Taxon:          string(taxon),
		TaxonTitle:     taxon.Title(),
		ChartTitle:     charts.CumulativeTitle(taxon),
		Frequencies:    freq[:min(len(freq), DashboardTableRows)],
		TotalLabels:    len(freq),
		Species:        species,
		SpeciesOptions: d.species,
		HasProjection:  d.opts.HasProjection,
		ImagesEnabled:  d.opts.ImagesEnabled,
	}
	for _, t := range dataset.Taxa {
		page.Taxa = append(page.Taxa, taxonButton{Value: string(t), Label: t.Title(), Active: t == taxon})
	}

	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, page); err != nil {
		d.logger.Error("failed to render dashboard", logger.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render dashboard")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (d *Dashboard) hasSpecies(species string) bool {
	_, found := slices.BinarySearch(d.species, species)
	return found
}
