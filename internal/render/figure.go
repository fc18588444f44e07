// Package render is a small retained-mode plotting backend.
//
// A Figure holds one or more Axes. Axes collect artists (images, polylines,
// text, a colorbar) in data coordinates and are only rasterised when the
// figure is rendered, so the same figure renders to identical bytes every
// time. Data coordinates have y increasing upwards and every axes keeps an
// equal aspect ratio.
//
// Axes come in two kinds. Plain axes know nothing about world coordinates
// and label their ticks with data (pixel) values. WCS axes carry a
// Transform and label their ticks with world coordinates, the way
// coordinate-aware axes do in astronomy plotting packages.
//
// Drawing uses github.com/fogleman/gg with the 7x13 bitmap face from
// golang.org/x/image, which keeps output independent of the fonts installed
// on the machine.
package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"
)

// Default figure size in pixels (6.4 x 4.8 inches at 100 dpi).
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Rect is a region of the figure in fractions of its size, measured from
// the bottom-left corner.
type Rect struct {
	Left, Bottom, Width, Height float64
}

// DefaultRect is the area used by Gca and AddWCSAxes.
var DefaultRect = Rect{Left: 0.125, Bottom: 0.11, Width: 0.775, Height: 0.77}

// Transform converts between data (0-based pixel) coordinates and world
// coordinates in degrees.
type Transform interface {
	PixelToWorld(x, y float64) (lon, lat float64, ok bool)
	WorldToPixel(lon, lat float64) (x, y float64, ok bool)
	AxisLabels() (lon, lat string)
	DisplayScale() float64
}

// Figure is a canvas holding axes.
type Figure struct {
	Width  int
	Height int

	axes     []*Axes
	current  *Axes
	warnings []Warning
	log      *zap.Logger
}

// Option configures a Figure.
type Option func(*Figure)

// WithSize sets the figure size in pixels.
func WithSize(width, height int) Option {
	return func(f *Figure) {
		if width > 0 && height > 0 {
			f.Width, f.Height = width, height
		}
	}
}

// WithLogger sets the logger warnings are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(f *Figure) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFigure returns an empty white figure.
func NewFigure(opts ...Option) *Figure {
	f := &Figure{Width: DefaultWidth, Height: DefaultHeight, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Logger returns the figure's logger.
func (f *Figure) Logger() *zap.Logger { return f.log }

// Gca returns the current axes, creating plain axes if the figure has none.
func (f *Figure) Gca() *Axes {
	if f.current == nil {
		f.AddAxes(DefaultRect)
	}
	return f.current
}

// AddAxes adds plain axes occupying r and makes them current.
func (f *Figure) AddAxes(r Rect) *Axes {
	return f.add(&Axes{rect: r})
}

// AddWCSAxes adds coordinate-aware axes using t to label ticks and makes
// them current.
func (f *Figure) AddWCSAxes(t Transform) *Axes {
	ax := &Axes{rect: DefaultRect, transform: t}
	ax.xlabel, ax.ylabel = t.AxisLabels()
	return f.add(ax)
}

func (f *Figure) add(ax *Axes) *Axes {
	ax.fig = f
	f.axes = append(f.axes, ax)
	f.current = ax
	return ax
}

// Axes returns every axes of the figure in creation order.
func (f *Figure) Axes() []*Axes {
	return append([]*Axes(nil), f.axes...)
}

// Render rasterises the figure.
func (f *Figure) Render() image.Image {
	dc := gg.NewContext(f.Width, f.Height)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(color.White)
	dc.Clear()
	for _, ax := range f.axes {
		ax.draw(dc)
	}
	return dc.Image()
}

// EncodePNG writes the rendered figure as PNG.
func (f *Figure) EncodePNG(w io.Writer) error {
	if err := imgio.PNGEncoder()(w, f.Render()); err != nil {
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	return nil
}

// SavePNG renders the figure to a PNG file.
func (f *Figure) SavePNG(path string) error {
	if err := imgio.Save(path, f.Render(), imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save figure %s: %w", path, err)
	}
	return nil
}

// PNG returns the encoded figure.
func (f *Figure) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns the hex sha256 of the figure's PNG encoding.
func (f *Figure) Hash() (string, error) {
	b, err := f.PNG()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
