// Package explorer turns loaded settings into the running pieces of the
// application: the metadata table, the embedding projection, the image
// provider and the dashboard server. The command line front end calls into it.
package explorer

import (
	"context"
	"time"

	"github.com/tphakala/plantclef-go/internal/api"
	"github.com/tphakala/plantclef-go/internal/buildinfo"
	"github.com/tphakala/plantclef-go/internal/conf"
	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/imageprovider"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/observability"
	"github.com/tphakala/plantclef-go/internal/projection"
)

// GetLogger returns the explorer module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("explorer")
}

// DatasetColumns maps the configured column names onto dataset.Columns.
func DatasetColumns(settings *conf.Settings) dataset.Columns {
	c := settings.Dataset.Columns
	return dataset.Columns{
		Species:   c.Species,
		Genus:     c.Genus,
		Family:    c.Family,
		Organ:     c.Organ,
		URL:       c.URL,
		BackupURL: c.BackupURL,
		SpeciesID: c.SpeciesID,
	}
}

// LoadDataset reads the configured training metadata table.
func LoadDataset(settings *conf.Settings) (*dataset.Table, error) {
	if settings.Dataset.Path == "" {
		return nil, errors.ValidationError("dataset.path is not configured")
	}

	start := time.Now()
	table, err := dataset.LoadFile(settings.Dataset.Path, DatasetColumns(settings), settings.Dataset.SeparatorRune())
	if err != nil {
		return nil, err
	}

	GetLogger().Info("dataset loaded",
		logger.String("path", settings.Dataset.Path),
		logger.Int("rows", table.Len()),
		logger.Duration("elapsed", time.Since(start)))
	return table, nil
}

// LoadProjection reads the configured embeddings and projects them to two
// dimensions. It returns nil when no embeddings file is configured.
func LoadProjection(settings *conf.Settings) ([]projection.Point, error) {
	path := settings.Embeddings.Path
	if path == "" {
		return nil, nil
	}

	cols := projection.DefaultColumns()
	if settings.Embeddings.LabelColumn != "" {
		cols.Label = settings.Embeddings.LabelColumn
	}
	cols.Organ = settings.Embeddings.OrganColumn

	start := time.Now()
	emb, err := projection.LoadFile(path, cols)
	if err != nil {
		return nil, err
	}
	points, err := projection.Project(emb)
	if err != nil {
		return nil, err
	}

	GetLogger().Info("embeddings projected",
		logger.String("path", path),
		logger.Int("points", len(points)),
		logger.Duration("elapsed", time.Since(start)))
	return points, nil
}

// ImageConfig maps the image settings onto an imageprovider.Config.
func ImageConfig(settings *conf.Settings) imageprovider.Config {
	s := settings.Images
	return imageprovider.Config{
		Timeout:   s.Timeout,
		RateLimit: s.RateLimit,
		Burst:     s.Burst,
		TileSize:  s.TileSize,
		CacheTTL:  s.CacheTTL,
		UserAgent: s.UserAgent,
	}
}

// Serve loads all configured data and runs the dashboard until ctx is done.
func Serve(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	table, err := LoadDataset(settings)
	if err != nil {
		return err
	}
	points, err := LoadProjection(settings)
	if err != nil {
		return err
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	m.InstallErrorHook()

	images := imageprovider.New(table, ImageConfig(settings), m.ImageProvider)
	defer images.Close()

	server, err := api.New(settings, table,
		api.WithProjection(points),
		api.WithImageProvider(images),
		api.WithMetrics(m),
		api.WithVersion(build.Version()))
	if err != nil {
		return err
	}
	return server.Run(ctx)
}
