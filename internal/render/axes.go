package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/ironsheep/sunmap/internal/colormap"
)

// Extent is the data-coordinate box an image covers. X0/Y0 is the outer
// edge of the bottom-left pixel.
type Extent struct {
	X0, X1, Y0, Y1 float64
}

// LineStyle controls how a polyline is stroked.
type LineStyle struct {
	Color color.Color
	Width float64
	Dash  []float64
}

// TextStyle controls text placement. AnchorX/AnchorY are fractions of the
// text box: (0.5, 0.5) centres the text on its position.
type TextStyle struct {
	Color   color.Color
	AnchorX float64
	AnchorY float64
}

// Line is a polyline in data coordinates. NaN points split it into
// separate segments.
type Line struct {
	X, Y  []float64
	Style LineStyle
}

// Text is a string positioned in data coordinates.
type Text struct {
	X, Y  float64
	S     string
	Style TextStyle
}

type imageArtist struct {
	img    image.Image
	extent Extent
}

type colorbar struct {
	cmap  *colormap.Colormap
	norm  colormap.Norm
	label string
}

// Axes is a plotting area with its own data coordinates.
type Axes struct {
	fig       *Figure
	rect      Rect
	transform Transform

	xlim, ylim [2]float64
	limitsSet  bool

	title, xlabel, ylabel string

	images   []imageArtist
	lines    []Line
	texts    []Text
	colorbar *colorbar
}

// Figure returns the figure the axes belong to.
func (a *Axes) Figure() *Figure { return a.fig }

// IsWCS reports whether the axes are coordinate-aware.
func (a *Axes) IsWCS() bool { return a.transform != nil }

// Transform returns the world transform of WCS axes, nil for plain axes.
func (a *Axes) Transform() Transform { return a.transform }

// SetTitle sets the text drawn above the axes.
func (a *Axes) SetTitle(s string) { a.title = s }

// Title returns the axes title.
func (a *Axes) Title() string { return a.title }

// SetLabels sets the x and y axis labels.
func (a *Axes) SetLabels(x, y string) { a.xlabel, a.ylabel = x, y }

// Labels returns the x and y axis labels.
func (a *Axes) Labels() (x, y string) { return a.xlabel, a.ylabel }

// SetLimits fixes the visible data range.
func (a *Axes) SetLimits(x0, x1, y0, y1 float64) {
	a.xlim = [2]float64{x0, x1}
	a.ylim = [2]float64{y0, y1}
	a.limitsSet = true
}

// Limits returns the visible data range. Without explicit limits it is the
// extent of the first image, or the bounds of all lines.
func (a *Axes) Limits() (x0, x1, y0, y1 float64) {
	if a.limitsSet {
		return a.xlim[0], a.xlim[1], a.ylim[0], a.ylim[1]
	}
	if len(a.images) > 0 {
		e := a.images[0].extent
		return e.X0, e.X1, e.Y0, e.Y1
	}
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, l := range a.lines {
		for i := range l.X {
			if math.IsNaN(l.X[i]) || math.IsNaN(l.Y[i]) {
				continue
			}
			x0, x1 = math.Min(x0, l.X[i]), math.Max(x1, l.X[i])
			y0, y1 = math.Min(y0, l.Y[i]), math.Max(y1, l.Y[i])
		}
	}
	if math.IsInf(x0, 1) || x0 == x1 || y0 == y1 {
		return 0, 1, 0, 1
	}
	return x0, x1, y0, y1
}

// Image adds an image covering extent. img is in display order: its first
// row is drawn at the top (Y1).
func (a *Axes) Image(img image.Image, extent Extent) {
	a.images = append(a.images, imageArtist{img: img, extent: extent})
}

// Plot adds a polyline.
func (a *Axes) Plot(xs, ys []float64, style LineStyle) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("plot: %d x values but %d y values", len(xs), len(ys))
	}
	if style.Color == nil {
		style.Color = color.Black
	}
	if style.Width <= 0 {
		style.Width = 1
	}
	a.lines = append(a.lines, Line{
		X:     append([]float64(nil), xs...),
		Y:     append([]float64(nil), ys...),
		Style: style,
	})
	return nil
}

// Text adds a label at a data position. Text is never clipped to the axes.
func (a *Axes) Text(x, y float64, s string, style TextStyle) {
	if style.Color == nil {
		style.Color = color.Black
	}
	a.texts = append(a.texts, Text{X: x, Y: y, S: s, Style: style})
}

// Colorbar attaches a colorbar for cmap and norm to the right of the axes.
func (a *Axes) Colorbar(cmap *colormap.Colormap, norm colormap.Norm, label string) {
	a.colorbar = &colorbar{cmap: cmap, norm: norm, label: label}
}

// HasColorbar reports whether a colorbar is attached.
func (a *Axes) HasColorbar() bool { return a.colorbar != nil }

// Lines returns copies of the polylines added so far.
func (a *Axes) Lines() []Line {
	out := make([]Line, len(a.lines))
	for i, l := range a.lines {
		out[i] = Line{X: append([]float64(nil), l.X...), Y: append([]float64(nil), l.Y...), Style: l.Style}
	}
	return out
}

// Texts returns the text artists added so far.
func (a *Axes) Texts() []Text {
	return append([]Text(nil), a.texts...)
}

// NumImages returns the number of images shown on the axes.
func (a *Axes) NumImages() int { return len(a.images) }

// view maps data coordinates to figure pixels for one render.
type view struct {
	x0, y0   float64 // data origin
	bx, by   float64 // box top-left in pixels
	bw, bh   float64
	scale    float64 // pixels per data unit
	cbx, cbw float64 // colorbar strip, zero width without a colorbar
}

func (v view) px(x float64) float64 { return v.bx + (x-v.x0)*v.scale }
func (v view) py(y float64) float64 { return v.by + v.bh - (y-v.y0)*v.scale }

func (a *Axes) layout(w, h int) view {
	rw := a.rect.Width * float64(w)
	rh := a.rect.Height * float64(h)
	rx := a.rect.Left * float64(w)
	ry := (1 - a.rect.Bottom - a.rect.Height) * float64(h)

	cb := 0.0
	if a.colorbar != nil {
		cb = 0.15 * rw
		rw -= cb
	}

	var v view
	x0, x1, y0, y1 := a.Limits()
	dx, dy := x1-x0, y1-y0
	v.scale = math.Min(rw/dx, rh/dy)
	v.bw, v.bh = dx*v.scale, dy*v.scale
	v.bx = rx + (rw-v.bw)/2
	v.by = ry + (rh-v.bh)/2
	v.x0, v.y0 = x0, y0
	v.cbx, v.cbw = v.bx+v.bw+0.2*cb, 0.25*cb
	return v
}

func (a *Axes) draw(dc *gg.Context) {
	v := a.layout(dc.Width(), dc.Height())

	dc.DrawRectangle(v.bx, v.by, v.bw, v.bh)
	dc.Clip()
	for _, im := range a.images {
		drawImage(dc, v, im)
	}
	for _, l := range a.lines {
		drawLine(dc, v, l)
	}
	dc.ResetClip()

	for _, t := range a.texts {
		dc.SetColor(t.Style.Color)
		dc.DrawStringAnchored(t.S, v.px(t.X), v.py(t.Y), t.Style.AnchorX, t.Style.AnchorY)
	}

	dc.SetDash()
	dc.SetLineWidth(1)
	dc.SetColor(color.Black)
	dc.DrawRectangle(v.bx, v.by, v.bw, v.bh)
	dc.Stroke()

	a.drawTicks(dc, v)

	if a.title != "" {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(a.title, v.bx+v.bw/2, v.by-8, 0.5, 0)
	}
	if a.colorbar != nil {
		a.colorbar.draw(dc, v)
	}
}

func drawImage(dc *gg.Context, v view, im imageArtist) {
	left, right := v.px(im.extent.X0), v.px(im.extent.X1)
	top, bottom := v.py(im.extent.Y1), v.py(im.extent.Y0)
	w := int(math.Round(right - left))
	h := int(math.Round(bottom - top))
	if w <= 0 || h <= 0 {
		return
	}
	scaled := imaging.Resize(im.img, w, h, imaging.NearestNeighbor)
	dc.DrawImage(scaled, int(math.Round(left)), int(math.Round(top)))
}

func drawLine(dc *gg.Context, v view, l Line) {
	dc.SetColor(l.Style.Color)
	dc.SetLineWidth(l.Style.Width)
	dc.SetDash(l.Style.Dash...)
	pen := false
	for i := range l.X {
		if math.IsNaN(l.X[i]) || math.IsNaN(l.Y[i]) {
			pen = false
			continue
		}
		x, y := v.px(l.X[i]), v.py(l.Y[i])
		if pen {
			dc.LineTo(x, y)
		} else {
			dc.MoveTo(x, y)
		}
		pen = true
	}
	dc.Stroke()
	dc.SetDash()
}
