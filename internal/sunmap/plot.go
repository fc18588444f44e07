package sunmap

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/sunmap/internal/colormap"
	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/render"
)

// NonWCSAxesWarning is recorded when a map is plotted on axes that do not
// know its coordinate system.
const NonWCSAxesWarning = "WCSAxes not being used as the axes object for this plot. " +
	"Plots may have unexpected behaviour. To fix this pass set the `projection` " +
	"keyword to this map when creating the axes."

// ErrNotWCSAxes is returned by overlays that need coordinate-aware axes.
var ErrNotWCSAxes = errors.New("sunmap: overlays can only be drawn on WCS axes")

type plotConfig struct {
	axes     *render.Axes
	clip     *[2]float64
	cmap     *colormap.Colormap
	norm     *colormap.Norm
	title    *string
	colorbar bool
}

// PlotOption configures Plot.
type PlotOption func(*plotConfig)

// WithAxes draws onto ax instead of the figure's current axes.
func WithAxes(ax *render.Axes) PlotOption {
	return func(c *plotConfig) { c.axes = ax }
}

// WithClipInterval scales intensities between the lo and hi percentiles
// (0-100) of the unmasked data.
func WithClipInterval(lo, hi float64) PlotOption {
	return func(c *plotConfig) { c.clip = &[2]float64{lo, hi} }
}

// WithColormap overrides the instrument colormap.
func WithColormap(cm *colormap.Colormap) PlotOption {
	return func(c *plotConfig) { c.cmap = cm }
}

// WithNorm overrides the intensity normalisation. A clip interval still
// replaces its limits.
func WithNorm(n colormap.Norm) PlotOption {
	return func(c *plotConfig) { c.norm = &n }
}

// WithTitle overrides the map name as title; an empty title hides it.
func WithTitle(s string) PlotOption {
	return func(c *plotConfig) { c.title = &s }
}

// WithColorbar attaches a colorbar to the axes.
func WithColorbar() PlotOption {
	return func(c *plotConfig) { c.colorbar = true }
}

// Plot draws the map as an image. Without WithAxes it uses the figure's
// current axes, adding WCS axes for the map when the figure has none. On
// plain axes the map is drawn in pixel coordinates and a UserWarning is
// recorded on the figure.
func (m *Map) Plot(fig *render.Figure, opts ...PlotOption) (*render.Axes, error) {
	cfg := plotConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	ax := cfg.axes
	switch {
	case ax != nil:
		fig = ax.Figure()
	case fig == nil:
		return nil, fmt.Errorf("plot: need a figure or axes")
	case len(fig.Axes()) > 0:
		ax = fig.Gca()
	default:
		ax = fig.AddWCSAxes(m.wcs)
	}

	if !ax.IsWCS() {
		fig.Warn(render.Warning{Category: render.UserWarning, Message: NonWCSAxesWarning})
		ax.SetLabels("X [pixel]", "Y [pixel]")
	}

	cmap := cfg.cmap
	if cmap == nil {
		cmap = colormap.ForInstrument(m.meta)
	}
	norm, err := m.norm(cfg)
	if err != nil {
		return nil, err
	}

	img := cmap.Colorize(m.data, m.mask, m.width, m.height, norm)
	ax.Image(imaging.FlipV(img), render.Extent{
		X0: -0.5, X1: float64(m.width) - 0.5,
		Y0: -0.5, Y1: float64(m.height) - 0.5,
	})

	title := m.Name()
	if cfg.title != nil {
		title = *cfg.title
	}
	ax.SetTitle(title)
	if cfg.colorbar {
		ax.Colorbar(cmap, norm, m.meta.StringOr("BUNIT", ""))
	}
	return ax, nil
}

// norm resolves the intensity normalisation: the explicit norm or the
// instrument stretch over the data range, with limits replaced by the clip
// interval when one is given. Maps without valid pixels scale over [0, 1].
func (m *Map) norm(cfg plotConfig) (colormap.Norm, error) {
	var n colormap.Norm
	if cfg.norm != nil {
		n = *cfg.norm
	} else {
		lo, hi, err := colormap.DataRange(m.data, m.mask)
		if errors.Is(err, colormap.ErrNoValidData) {
			lo, hi = 0, 1
		}
		n = colormap.NewNorm(lo, hi, colormap.StretchFor(m.meta))
	}
	if cfg.clip != nil {
		lo, hi, err := colormap.PercentileInterval(m.data, m.mask, cfg.clip[0], cfg.clip[1])
		if err != nil && !errors.Is(err, colormap.ErrNoValidData) {
			return colormap.Norm{}, fmt.Errorf("clip interval: %w", err)
		}
		if err == nil {
			n.VMin, n.VMax = lo, hi
		}
	}
	return n, nil
}

type peekConfig struct {
	grid       bool
	spacing    [2]coords.Angle
	limb       bool
	noColorbar bool
	figOpts    []render.Option
	plotOpts   []PlotOption
}

// PeekOption configures Peek.
type PeekOption func(*peekConfig)

// PeekGrid overlays the default heliographic grid.
func PeekGrid() PeekOption {
	return func(c *peekConfig) { c.grid = true }
}

// PeekGridSpacing overlays a heliographic grid with the given spacing.
func PeekGridSpacing(lon, lat coords.Angle) PeekOption {
	return func(c *peekConfig) {
		c.grid = true
		c.spacing = [2]coords.Angle{lon, lat}
	}
}

// PeekLimb overlays the solar limb.
func PeekLimb() PeekOption {
	return func(c *peekConfig) { c.limb = true }
}

// PeekNoColorbar leaves out the colorbar.
func PeekNoColorbar() PeekOption {
	return func(c *peekConfig) { c.noColorbar = true }
}

// PeekFigure passes options to the new figure.
func PeekFigure(opts ...render.Option) PeekOption {
	return func(c *peekConfig) { c.figOpts = append(c.figOpts, opts...) }
}

// PeekPlot passes options to Plot.
func PeekPlot(opts ...PlotOption) PeekOption {
	return func(c *peekConfig) { c.plotOpts = append(c.plotOpts, opts...) }
}

// Peek builds a complete figure of the map: WCS axes, title, a colorbar and
// optional grid and limb overlays.
func (m *Map) Peek(opts ...PeekOption) (*render.Figure, error) {
	cfg := peekConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	figOpts := append([]render.Option{render.WithLogger(m.log)}, cfg.figOpts...)
	fig := render.NewFigure(figOpts...)
	ax := fig.AddWCSAxes(m.wcs)

	plotOpts := append([]PlotOption{WithAxes(ax)}, cfg.plotOpts...)
	if !cfg.noColorbar {
		plotOpts = append(plotOpts, WithColorbar())
	}
	if _, err := m.Plot(fig, plotOpts...); err != nil {
		return nil, err
	}

	if cfg.grid {
		var gridOpts []GridOption
		if cfg.spacing != [2]coords.Angle{} {
			gridOpts = append(gridOpts, GridSpacing(cfg.spacing[0], cfg.spacing[1]))
		}
		if err := m.DrawGrid(ax, gridOpts...); err != nil {
			return nil, err
		}
	}
	if cfg.limb {
		if err := m.DrawLimb(ax); err != nil {
			return nil, err
		}
	}
	return fig, nil
}
