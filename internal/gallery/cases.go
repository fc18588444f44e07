package gallery

import (
	"fmt"
	"sort"

	"github.com/ironsheep/sunmap/internal/colormap"
	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/render"
	"github.com/ironsheep/sunmap/internal/sunmap"
)

// DrawFunc renders one figure from the fixtures. figOpts must be passed to
// any figure the function creates.
type DrawFunc func(fx *Fixtures, figOpts ...render.Option) (*render.Figure, error)

// Case is a named figure of the suite.
type Case struct {
	Name string

	// ExpectWarning is a substring of the warning the figure must record;
	// empty means the figure must record none.
	ExpectWarning string

	Draw DrawFunc
}

const nonWCS = "WCSAxes not being used as the axes"

var registry = map[string]Case{}

func register(name, expectWarning string, draw DrawFunc) {
	registry[name] = Case{Name: name, ExpectWarning: expectWarning, Draw: draw}
}

// Cases returns every registered case sorted by name.
func Cases() []Case {
	out := make([]Case, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the case called name.
func Lookup(name string) (Case, bool) {
	c, ok := registry[name]
	return c, ok
}

// Select returns the named cases in the given order, or all cases when
// names is empty.
func Select(names []string) ([]Case, error) {
	if len(names) == 0 {
		return Cases(), nil
	}
	out := make([]Case, 0, len(names))
	for _, n := range names {
		c, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("unknown figure case %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

func plot(m *sunmap.Map, figOpts []render.Option, opts ...sunmap.PlotOption) (*render.Figure, *render.Axes, error) {
	fig := render.NewFigure(figOpts...)
	ax, err := m.Plot(fig, opts...)
	return fig, ax, err
}

func plotNonWCS(m *sunmap.Map, figOpts []render.Option) (*render.Figure, error) {
	fig := render.NewFigure(figOpts...)
	_, err := m.Plot(fig, sunmap.WithAxes(fig.Gca()))
	return fig, err
}

func superpixel(m *sunmap.Map) (*sunmap.Map, error) {
	return m.Superpixel(9, 7, 4, 4, nil)
}

// rectangle draws a rectangle on a plot of m either by size or by its
// opposite corner.
func rectangle(m *sunmap.Map, figOpts []render.Option, bl coords.Coordinate, w, h coords.Angle, col string, byCorner bool) (*render.Figure, error) {
	fig, ax, err := plot(m, figOpts)
	if err != nil {
		return nil, err
	}
	opts := []sunmap.RectangleOption{}
	if col != "" {
		c, err := colormap.ParseColor(col)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sunmap.RectColor(c))
	}
	if byCorner {
		opts = append(opts, sunmap.RectTopRight(bl.Offset(w, h)))
	} else {
		opts = append(opts, sunmap.RectSize(w, h))
	}
	return fig, m.DrawRectangle(ax, bl, opts...)
}

func percentLevels() sunmap.Levels {
	values := make([]float64, 0, 10)
	for v := 1.0; v < 100; v += 10 {
		values = append(values, v)
	}
	return sunmap.Percent(values...)
}

func init() {
	register("plot_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, _, err := plot(fx.AIA171, o)
		return fig, err
	})
	register("plot_aia171_clip", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, _, err := plot(fx.AIA171, o, sunmap.WithClipInterval(5, 99))
		return fig, err
	})
	register("peek_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.AIA171.Peek(sunmap.PeekFigure(o...))
	})
	register("peek_grid_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.AIA171.Peek(sunmap.PeekFigure(o...), sunmap.PeekGrid())
	})
	register("peek_grid_spacing_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.AIA171.Peek(sunmap.PeekFigure(o...), sunmap.PeekGridSpacing(5, 5))
	})
	register("peek_limb_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.AIA171.Peek(sunmap.PeekFigure(o...), sunmap.PeekLimb())
	})
	register("draw_grid_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, ax, err := plot(fx.AIA171, o)
		if err != nil {
			return nil, err
		}
		return fig, fx.AIA171.DrawGrid(ax, sunmap.GridSpacing(30, 40))
	})
	register("peek_grid_limb_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.AIA171.Peek(sunmap.PeekFigure(o...), sunmap.PeekGrid(), sunmap.PeekLimb())
	})
	register("plot_aia171_nowcsaxes", nonWCS, func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return plotNonWCS(fx.AIA171, o)
	})
	register("rectangle_aia171_width_height", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		bl := coords.New(0, 0, fx.AIA171.CoordinateFrame())
		return rectangle(fx.AIA171, o, bl, coords.Arcsec(100), coords.Arcsec(100), "", false)
	})
	register("rectangle_aia171_top_right", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		bl := coords.New(0, 0, fx.AIA171.CoordinateFrame())
		return rectangle(fx.AIA171, o, bl, coords.Arcsec(100), coords.Arcsec(100), "", true)
	})
	register("plot_masked_aia171", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, _, err := plot(fx.MaskedAIA171, o)
		return fig, err
	})
	register("plot_masked_aia171_nowcsaxes", nonWCS, func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return plotNonWCS(fx.MaskedAIA171, o)
	})
	register("plot_aia171_superpixel", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		sp, err := superpixel(fx.AIA171)
		if err != nil {
			return nil, err
		}
		fig, _, err := plot(sp, o)
		return fig, err
	})
	register("plot_aia171_superpixel_nowcsaxes", nonWCS, func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		sp, err := superpixel(fx.AIA171)
		if err != nil {
			return nil, err
		}
		return plotNonWCS(sp, o)
	})
	register("plot_masked_aia171_superpixel", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		sp, err := superpixel(fx.MaskedAIA171)
		if err != nil {
			return nil, err
		}
		fig, _, err := plot(sp, o)
		return fig, err
	})
	register("plot_masked_aia171_superpixel_nowcsaxes", nonWCS, func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		sp, err := superpixel(fx.MaskedAIA171)
		if err != nil {
			return nil, err
		}
		return plotNonWCS(sp, o)
	})
	register("draw_contours_aia", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, ax, err := plot(fx.AIA171, o)
		if err != nil {
			return nil, err
		}
		return fig, fx.AIA171.DrawContours(ax, percentLevels())
	})
	register("heliographic_peek", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		return fx.Heliographic.Peek(sunmap.PeekFigure(o...))
	})
	register("heliographic_rectangle_width_height", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		bl := coords.New(60, 50, fx.Heliographic.CoordinateFrame())
		return rectangle(fx.Heliographic, o, bl, 13, 13, "cyan", false)
	})
	register("heliographic_rectangle_top_right", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		bl := coords.New(60, 50, fx.Heliographic.CoordinateFrame())
		return rectangle(fx.Heliographic, o, bl, 13, 13, "cyan", true)
	})
	register("heliographic_grid_annotations", "", func(fx *Fixtures, o ...render.Option) (*render.Figure, error) {
		fig, ax, err := plot(fx.Heliographic, o)
		if err != nil {
			return nil, err
		}
		return fig, fx.Heliographic.DrawGrid(ax, sunmap.GridAnnotate(false))
	})
}
