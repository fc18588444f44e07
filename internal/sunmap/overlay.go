package sunmap

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/ironsheep/sunmap/internal/colormap"
	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/render"
)

// DefaultGridSpacing is the heliographic grid spacing used when none is
// given.
const DefaultGridSpacing = coords.Angle(15)

const (
	gridSamples = 181
	limbSamples = 360
	edgeSamples = 25
)

// worldLine converts world coordinates to a pixel polyline. Points that
// cannot be placed become NaN gaps, as do jumps of more than half the image
// size, which occur where a longitude wraps around.
func (m *Map) worldLine(points []coords.Coordinate, hide func(coords.Coordinate) bool) (xs, ys []float64) {
	xs = make([]float64, 0, len(points))
	ys = make([]float64, 0, len(points))
	nan := math.NaN()
	for _, p := range points {
		if hide != nil && hide(p) {
			xs, ys = append(xs, nan), append(ys, nan)
			continue
		}
		x, y, err := m.WorldToPixel(p)
		if err != nil {
			xs, ys = append(xs, nan), append(ys, nan)
			continue
		}
		if n := len(xs); n > 0 && !math.IsNaN(xs[n-1]) &&
			(math.Abs(x-xs[n-1]) > float64(m.width)/2 || math.Abs(y-ys[n-1]) > float64(m.height)/2) {
			xs, ys = append(xs, nan), append(ys, nan)
		}
		xs, ys = append(xs, x), append(ys, y)
	}
	return xs, ys
}

func (m *Map) insideImage(x, y float64) bool {
	return x >= -0.5 && x <= float64(m.width)-0.5 && y >= -0.5 && y <= float64(m.height)-0.5
}

type gridConfig struct {
	lon, lat   coords.Angle
	annotate   bool
	carrington bool
	style      render.LineStyle
}

// GridOption configures DrawGrid.
type GridOption func(*gridConfig)

// GridSpacing sets the longitude and latitude spacing.
func GridSpacing(lon, lat coords.Angle) GridOption {
	return func(c *gridConfig) { c.lon, c.lat = lon, lat }
}

// GridAnnotate turns grid line labels on or off; they are on by default.
func GridAnnotate(on bool) GridOption {
	return func(c *gridConfig) { c.annotate = on }
}

// GridCarrington draws Carrington instead of Stonyhurst longitudes.
func GridCarrington() GridOption {
	return func(c *gridConfig) { c.carrington = true }
}

// GridColor sets the grid line colour.
func GridColor(col color.Color) GridOption {
	return func(c *gridConfig) { c.style.Color = col }
}

// DrawGrid overlays lines of constant heliographic longitude and latitude.
// On helioprojective maps segments on the far side of the Sun are hidden.
func (m *Map) DrawGrid(ax *render.Axes, opts ...GridOption) error {
	if ax == nil || !ax.IsWCS() {
		return ErrNotWCSAxes
	}
	cfg := gridConfig{
		lon:      DefaultGridSpacing,
		lat:      DefaultGridSpacing,
		annotate: true,
		style:    render.LineStyle{Color: color.White, Width: 1, Dash: []float64{2, 2}},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.lon <= 0 || cfg.lat <= 0 {
		return fmt.Errorf("grid spacing must be positive, got (%v, %v)", cfg.lon, cfg.lat)
	}

	frameName, lonStart := coords.HeliographicStonyhurst, -180.0
	if cfg.carrington {
		frameName, lonStart = coords.HeliographicCarrington, 0
	}
	grid := m.wcs.Frame.WithName(frameName)

	var hide func(coords.Coordinate) bool
	if m.wcs.IsHelioprojective() {
		obs := m.wcs.Frame.Observer
		hide = func(c coords.Coordinate) bool { return !coords.Visible(c, obs) }
	}
	label := render.TextStyle{Color: cfg.style.Color, AnchorX: 0, AnchorY: 1}

	for lon := lonStart; lon < lonStart+360-1e-9; lon += cfg.lon.Degrees() {
		pts := make([]coords.Coordinate, gridSamples)
		for i := range pts {
			lat := -90 + 180*float64(i)/(gridSamples-1)
			pts[i] = coords.New(coords.Deg(lon), coords.Deg(lat), grid)
		}
		xs, ys := m.worldLine(pts, hide)
		if err := ax.Plot(xs, ys, cfg.style); err != nil {
			return err
		}
		if cfg.annotate {
			m.annotate(ax, coords.New(coords.Deg(lon), 0, grid), hide, formatDeg(lon), label)
		}
	}

	refLon := grid.Observer.Lon
	if cfg.carrington {
		refLon = (refLon + grid.CarringtonOffset).Wrap(0)
	}
	for k := math.Ceil(-90 / cfg.lat.Degrees()); k*cfg.lat.Degrees() < 90; k++ {
		lat := k * cfg.lat.Degrees()
		if lat <= -90 {
			continue
		}
		pts := make([]coords.Coordinate, gridSamples)
		for i := range pts {
			lon := lonStart + 360*float64(i)/(gridSamples-1)
			pts[i] = coords.New(coords.Deg(lon), coords.Deg(lat), grid)
		}
		xs, ys := m.worldLine(pts, hide)
		if err := ax.Plot(xs, ys, cfg.style); err != nil {
			return err
		}
		if cfg.annotate {
			m.annotate(ax, coords.New(refLon, coords.Deg(lat), grid), hide, formatDeg(lat), label)
		}
	}
	return nil
}

func (m *Map) annotate(ax *render.Axes, at coords.Coordinate, hide func(coords.Coordinate) bool, text string, style render.TextStyle) {
	if hide != nil && hide(at) {
		return
	}
	x, y, err := m.WorldToPixel(at)
	if err != nil || !m.insideImage(x, y) {
		return
	}
	ax.Text(x, y, text, style)
}

func formatDeg(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1000)/1000)
}

// DrawLimb overlays the solar limb as seen by the map's observer.
func (m *Map) DrawLimb(ax *render.Axes, style ...render.LineStyle) error {
	if ax == nil || !ax.IsWCS() {
		return ErrNotWCSAxes
	}
	st := render.LineStyle{Color: color.White, Width: 1}
	if len(style) > 0 {
		st = style[0]
	}

	frame := m.wcs.Frame
	limbFrame := frame
	if !frame.Heliographic() {
		limbFrame = frame.WithName(coords.HeliographicStonyhurst)
	}
	xs, ys := m.worldLine(coords.LimbCircle(limbFrame, limbSamples), nil)
	return ax.Plot(xs, ys, st)
}

type rectConfig struct {
	size     *[2]coords.Angle
	topRight *coords.Coordinate
	style    render.LineStyle
}

// RectangleOption configures DrawRectangle.
type RectangleOption func(*rectConfig)

// RectSize gives the rectangle's extent from the bottom-left corner.
func RectSize(width, height coords.Angle) RectangleOption {
	return func(c *rectConfig) { c.size = &[2]coords.Angle{width, height} }
}

// RectTopRight gives the rectangle's opposite corner.
func RectTopRight(tr coords.Coordinate) RectangleOption {
	return func(c *rectConfig) { c.topRight = &tr }
}

// RectColor sets the edge colour.
func RectColor(col color.Color) RectangleOption {
	return func(c *rectConfig) { c.style.Color = col }
}

// RectLineWidth sets the edge width in pixels.
func RectLineWidth(w float64) RectangleOption {
	return func(c *rectConfig) { c.style.Width = w }
}

// DrawRectangle outlines the region bounded by lines of constant longitude
// and latitude starting at bottomLeft. Exactly one of RectSize and
// RectTopRight must be given; both forms produce the same outline for the
// same region because edges are sampled in world coordinates.
func (m *Map) DrawRectangle(ax *render.Axes, bottomLeft coords.Coordinate, opts ...RectangleOption) error {
	if ax == nil || !ax.IsWCS() {
		return ErrNotWCSAxes
	}
	cfg := rectConfig{style: render.LineStyle{Color: color.White, Width: 1}}
	for _, opt := range opts {
		opt(&cfg)
	}

	var rect coords.Rectangle
	var err error
	switch {
	case cfg.size != nil && cfg.topRight != nil:
		return fmt.Errorf("%w: give either a size or a top right corner, not both", coords.ErrRectangleArgs)
	case cfg.size != nil:
		rect, err = coords.RectangleFromSize(bottomLeft, cfg.size[0], cfg.size[1])
	case cfg.topRight != nil:
		rect, err = coords.RectangleFromCorners(bottomLeft, *cfg.topRight)
	default:
		return fmt.Errorf("%w: need a size or a top right corner", coords.ErrRectangleArgs)
	}
	if err != nil {
		return err
	}

	xs, ys := m.worldLine(rect.Outline(edgeSamples), nil)
	return ax.Plot(xs, ys, cfg.style)
}

// Levels are contour levels, either absolute data values or percentages of
// the data maximum.
type Levels struct {
	Values  []float64
	Percent bool
}

// Percent returns levels given as percentages of the data maximum.
func Percent(values ...float64) Levels { return Levels{Values: values, Percent: true} }

// Absolute returns levels in data units.
func Absolute(values ...float64) Levels { return Levels{Values: values} }

// ContourOption configures DrawContours.
type ContourOption func(*contourStyle)

type contourStyle struct {
	color color.Color
	width float64
	cmap  string
}

// ContourColor draws every level in one colour instead of colouring levels
// through a colormap.
func ContourColor(c color.Color) ContourOption {
	return func(s *contourStyle) { s.color = c }
}

// ContourLineWidth sets the line width.
func ContourLineWidth(w float64) ContourOption {
	return func(s *contourStyle) { s.width = w }
}

// DrawContours overlays contour lines at levels. Lines are coloured by level
// through viridis unless ContourColor is given.
func (m *Map) DrawContours(ax *render.Axes, levels Levels, opts ...ContourOption) error {
	if ax == nil {
		return errors.New("draw contours: nil axes")
	}
	st := contourStyle{width: 1, cmap: "viridis"}
	for _, opt := range opts {
		opt(&st)
	}
	lines, err := m.Contours(levels)
	if err != nil {
		return err
	}
	cm, err := colormap.Get(st.cmap)
	if err != nil {
		return err
	}
	values := m.levelValues(levels)
	norm := colormap.NewNorm(minOf(values), maxOf(values), nil)
	for _, l := range lines {
		col := st.color
		if col == nil {
			col = cm.At(norm.Scale(l.Level))
		}
		if err := ax.Plot(l.X, l.Y, render.LineStyle{Color: col, Width: st.width}); err != nil {
			return err
		}
	}
	return nil
}

func minOf(v []float64) float64 {
	out := math.Inf(1)
	for _, x := range v {
		out = math.Min(out, x)
	}
	return out
}

func maxOf(v []float64) float64 {
	out := math.Inf(-1)
	for _, x := range v {
		out = math.Max(out, x)
	}
	return out
}
