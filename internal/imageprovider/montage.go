package imageprovider

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/tphakala/plantclef-go/internal/errors"
)

const (
	montageColumns = 3
	tileGap        = 8
	captionHeight  = 20
)

var (
	backgroundColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	captionColor    = color.RGBA{R: 0x24, G: 0x23, B: 0x31, A: 0xff}
)

// Layout splits n tiles into rows of at most three columns; seven organs
// give [3, 3, 1].
func Layout(n int) []int {
	var rows []int
	for n > 0 {
		cols := min(n, montageColumns)
		rows = append(rows, cols)
		n -= cols
	}
	return rows
}

// MontageSize returns the pixel size of a montage of n tiles.
func MontageSize(n, tileSize int) (width, height int) {
	if n <= 0 {
		return 0, 0
	}
	rows := len(Layout(n))
	cols := min(n, montageColumns)
	width = cols*tileSize + (cols+1)*tileGap
	height = rows*(tileSize+captionHeight) + (rows+1)*tileGap
	return width, height
}

// ComposeMontage scales tiles to fit tileSize squares, lays them out with
// Layout, captions each with its organ and encodes the result as PNG.
func ComposeMontage(tiles []Tile, tileSize int) ([]byte, error) {
	if len(tiles) == 0 {
		return nil, errors.ValidationError("montage needs at least one tile")
	}
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}

	width, height := MontageSize(len(tiles), tileSize)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	next := 0
	for row, cols := range Layout(len(tiles)) {
		rowWidth := cols*tileSize + (cols-1)*tileGap
		x := (width - rowWidth) / 2
		y := tileGap + row*(tileSize+captionHeight+tileGap)
		for range cols {
			drawTile(canvas, tiles[next], x, y, tileSize)
			x += tileSize + tileGap
			next++
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, errors.New(fmt.Errorf("failed to encode montage: %w", err)).
			Category(errors.CategoryProcessing).
			Build()
	}
	return buf.Bytes(), nil
}

func drawTile(dst *image.RGBA, t Tile, x, y, size int) {
	thumb := resize.Thumbnail(uint(size), uint(size), t.Image, resize.Lanczos3)
	b := thumb.Bounds()
	at := image.Pt(x+(size-b.Dx())/2, y+(size-b.Dy())/2)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, thumb, b.Min, draw.Over)

	drawCaption(dst, t.Organ, x, y+size, size)
}

func drawCaption(dst *image.RGBA, text string, x, y, width int) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(captionColor), Face: face}

	if maxChars := width / face.Advance; len(text) > maxChars && maxChars > 1 {
		text = text[:maxChars-1] + "~"
	}

	advance := d.MeasureString(text).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	d.Dot = fixed.P(x+(width-advance)/2, y+(captionHeight+ascent)/2)
	d.DrawString(text)
}
