// Package charts renders the dashboard figures server-side with go-chart.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/tphakala/plantclef-go/internal/errors"
	"github.com/tphakala/plantclef-go/internal/logger"
)

// Format is the output encoding of a rendered chart.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 512
)

// ParseFormat accepts png or svg in any case; empty selects PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", errors.Newf("unsupported chart format %q, expected png or svg", s).
		Category(errors.CategoryValidation).
		Context("format", s).
		Build()
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// Options controls chart size, encoding and, for line charts, colour.
// Zero fields take defaults.
type Options struct {
	Width     int
	Height    int
	Format    Format
	LineColor string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Format == "" {
		o.Format = FormatPNG
	}
	if o.LineColor == "" {
		o.LineColor = DefaultLineColor
	}
	return o
}

// GetLogger returns the charts module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("charts")
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func render(kind string, r renderable, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(f.provider(), &buf); err != nil {
		return nil, errors.New(fmt.Errorf("failed to render %s chart: %w", kind, err)).
			Category(errors.CategoryChartRender).
			Context("chart", kind).
			Context("format", string(f)).
			Build()
	}
	GetLogger().Debug("chart rendered",
		logger.String("chart", kind),
		logger.String("format", string(f)),
		logger.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func color(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func emptyInput(kind string) error {
	return errors.Newf("no data to plot in %s chart", kind).
		Category(errors.CategoryValidation).
		Context("chart", kind).
		Build()
}
