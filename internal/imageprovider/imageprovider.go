// Package imageprovider downloads one example image per plant organ and
// composes them into a captioned montage for the dashboard.
package imageprovider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tphakala/plantclef-go/internal/dataset"
	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/httpclient"
	"github.com/tphakala/plantclef-go/internal/logger"
	"github.com/tphakala/plantclef-go/internal/observability/metrics"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 5.0
	DefaultBurst     = 3
	DefaultTileSize  = 256
	DefaultCacheTTL  = 30 * time.Minute

	// maxConcurrentFetches bounds parallel downloads for one montage; the
	// rate limiter still governs the overall request rate.
	maxConcurrentFetches = 4
)

// ImageSource lists the organ images of a species. *dataset.Table implements it.
type ImageSource interface {
	ImagesByOrgan(species string, rnd *rand.Rand) []dataset.OrganImage
}

// Config configures a Provider. Zero fields take defaults.
type Config struct {
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	TileSize  int
	CacheTTL  time.Duration
	UserAgent string

	// Transport overrides the HTTP transport, e.g. with a mock in tests
	Transport http.RoundTripper
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	if c.TileSize <= 0 {
		c.TileSize = DefaultTileSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

// Tile is one downloaded organ image.
type Tile struct {
	Organ string
	Image image.Image
}

// Provider fetches organ images and builds montages. Safe for concurrent use.
type Provider struct {
	source   ImageSource
	client   *httpclient.Client
	limiter  *rate.Limiter
	cache    *cache.Cache
	group    singleflight.Group
	metrics  *metrics.ImageProviderMetrics
	timeout  time.Duration
	tileSize int
	logger   logger.Logger
}

// GetLogger returns the imageprovider module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imageprovider")
}

// New creates a Provider. m may be nil.
func New(source ImageSource, cfg Config, m *metrics.ImageProviderMetrics) *Provider {
	cfg = cfg.withDefaults()
	return &Provider{
		source: source,
		client: httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			UserAgent:      cfg.UserAgent,
			Transport:      cfg.Transport,
		}),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		cache:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		metrics:  m,
		timeout:  cfg.Timeout,
		tileSize: cfg.TileSize,
		logger:   GetLogger(),
	}
}

// Close releases idle connections.
func (p *Provider) Close() {
	p.client.Close()
}

// Montage returns a PNG montage of one image per organ of species. Organs
// whose images cannot be loaded are skipped; when none load the error is
// in the not-found category. Results are cached.
func (p *Provider) Montage(ctx context.Context, species string) ([]byte, error) {
	if data, ok := p.cache.Get(species); ok {
		if p.metrics != nil {
			p.metrics.IncrementCacheHits()
		}
		return data.([]byte), nil
	}
	if p.metrics != nil {
		p.metrics.IncrementCacheMisses()
	}

	v, err, _ := p.group.Do(species, func() (any, error) {
		tiles, err := p.Tiles(ctx, species)
		if err != nil {
			return nil, err
		}
		data, err := ComposeMontage(tiles, p.tileSize)
		if err != nil {
			return nil, err
		}
		p.cache.SetDefault(species, data)
		if p.metrics != nil {
			p.metrics.IncrementMontages()
			p.metrics.SetCacheEntries(p.cache.ItemCount())
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Tiles downloads one image per organ of species, in organ order.
func (p *Provider) Tiles(ctx context.Context, species string) ([]Tile, error) {
	links := p.source.ImagesByOrgan(species, nil)
	if len(links) == 0 {
		return nil, errors.NotFound("no images listed for species %q", species)
	}

	loaded := make([]image.Image, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, link := range links {
		g.Go(func() error {
			img, err := p.Fetch(gctx, link)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				p.logger.Debug("skipping organ without loadable image",
					logger.String("species", species),
					logger.String("organ", link.Organ),
					logger.Error(err))
				return nil
			}
			loaded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tiles := make([]Tile, 0, len(links))
	for i, img := range loaded {
		if img != nil {
			tiles = append(tiles, Tile{Organ: links[i].Organ, Image: img})
		}
	}
	if len(tiles) == 0 {
		return nil, errors.NotFound("no images could be loaded for species %q", species)
	}

	p.logger.Debug("organ images loaded",
		logger.String("species", species),
		logger.Int("loaded", len(tiles)),
		logger.Int("listed", len(links)))
	return tiles, nil
}

// Fetch downloads and decodes link.URL, falling back to link.BackupURL when
// the primary fails with a transport error, a non-200 status or an
// undecodable body.
func (p *Provider) Fetch(ctx context.Context, link dataset.OrganImage) (image.Image, error) {
	var lastErr error
	for _, url := range []string{link.URL, link.BackupURL} {
		if url == "" {
			continue
		}
		img, err := p.fetchOne(ctx, url)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.NotFound("organ %q has no image URL", link.Organ)
	}
	return nil, lastErr
}

func (p *Provider) fetchOne(ctx context.Context, url string) (image.Image, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.New(fmt.Errorf("rate limiter wait: %w", err)).
			Category(errors.CategoryCancellation).
			Context("operation", "rate_limiter_wait").
			Context("url", url).
			Build()
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	data, err := p.client.GetBytes(reqCtx, url)
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncrementDownloadErrors("fetch")
		}
		return nil, errors.New(err).
			Category(errors.CategoryImageFetch).
			Context("url", url).
			Build()
	}
	if p.metrics != nil {
		p.metrics.IncrementImageDownloads()
		p.metrics.ObserveDownloadDuration(time.Since(start).Seconds())
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncrementDownloadErrors("decode")
		}
		return nil, errors.New(fmt.Errorf("failed to decode image: %w", err)).
			Category(errors.CategoryImageDecode).
			Context("url", url).
			Context("bytes", len(data)).
			Build()
	}

	p.logger.Trace("image downloaded",
		logger.String("url", url),
		logger.String("format", format),
		logger.Duration("elapsed", time.Since(start)))
	return img, nil
}
