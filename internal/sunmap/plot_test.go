package sunmap

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/render"
)

func figureHash(t *testing.T, fig *render.Figure) string {
	t.Helper()
	h, err := fig.Hash()
	require.NoError(t, err)
	return h
}

func TestPlot_NewFigureUsesWCSAxes(t *testing.T) {
	m := createTestMap(t, 64, 64)
	fig := render.NewFigure()
	ax, err := m.Plot(fig)
	require.NoError(t, err)

	assert.True(t, ax.IsWCS())
	assert.Empty(t, fig.Warnings())
	assert.Equal(t, 1, ax.NumImages())
	assert.Equal(t, m.Name(), ax.Title())
	assert.False(t, ax.HasColorbar())
	x0, x1, y0, y1 := ax.Limits()
	assert.Equal(t, []float64{-0.5, 63.5, -0.5, 63.5}, []float64{x0, x1, y0, y1})

	xl, yl := ax.Labels()
	assert.Contains(t, xl, "Helioprojective Longitude")
	assert.Contains(t, yl, "Helioprojective Latitude")
}

func TestPlot_NonWCSAxesWarns(t *testing.T) {
	maps := map[string]*Map{
		"helioprojective": createTestMap(t, 64, 64),
		"carrington":      createCarringtonMap(t),
	}
	for name, m := range maps {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			fig := render.NewFigure(render.WithLogger(zap.New(core)))
			ax := fig.Gca()

			_, err := m.Plot(fig, WithAxes(ax))
			require.NoError(t, err)

			warnings := fig.Warnings()
			require.Len(t, warnings, 1)
			assert.Equal(t, render.UserWarning, warnings[0].Category)
			assert.Contains(t, warnings[0].Message, "WCSAxes not being used as the axes object for this plot")

			entries := logs.FilterMessageSnippet("WCSAxes not being used").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "UserWarning", entries[0].ContextMap()["category"])

			xl, yl := ax.Labels()
			assert.Equal(t, "X [pixel]", xl)
			assert.Equal(t, "Y [pixel]", yl)
		})
	}
}

func TestPlot_CurrentPlainAxesWarns(t *testing.T) {
	m := createTestMap(t, 32, 32)
	fig := render.NewFigure()
	fig.Gca()
	ax, err := m.Plot(fig)
	require.NoError(t, err)
	assert.False(t, ax.IsWCS())
	assert.Len(t, fig.Warnings(), 1)
}

func TestPlot_Options(t *testing.T) {
	m := createTestMap(t, 64, 64)

	plain := render.NewFigure()
	_, err := m.Plot(plain)
	require.NoError(t, err)

	clipped := render.NewFigure()
	ax, err := m.Plot(clipped, WithClipInterval(5, 99), WithTitle("clipped"), WithColorbar())
	require.NoError(t, err)
	assert.Equal(t, "clipped", ax.Title())
	assert.True(t, ax.HasColorbar())
	assert.NotEqual(t, figureHash(t, plain), figureHash(t, clipped))

	_, err = m.Plot(render.NewFigure(), WithClipInterval(99, 5))
	assert.Error(t, err)
	_, err = m.Plot(nil)
	assert.Error(t, err)
}

func TestPlot_MaskedMap(t *testing.T) {
	m, err := createTestMap(t, 64, 64).WithMask(lowerLeftMask(64, 64))
	require.NoError(t, err)
	fig := render.NewFigure()
	_, err = m.Plot(fig)
	require.NoError(t, err)

	full := render.NewFigure()
	_, err = createTestMap(t, 64, 64).Plot(full)
	require.NoError(t, err)
	assert.NotEqual(t, figureHash(t, full), figureHash(t, fig))
}

func TestPeek(t *testing.T) {
	m := createTestMap(t, 128, 128)

	fig, err := m.Peek()
	require.NoError(t, err)
	require.Len(t, fig.Axes(), 1)
	ax := fig.Axes()[0]
	assert.True(t, ax.IsWCS())
	assert.True(t, ax.HasColorbar())
	assert.Empty(t, ax.Lines())
	assert.Empty(t, fig.Warnings())

	fig, err = m.Peek(PeekGrid(), PeekLimb())
	require.NoError(t, err)
	assert.Len(t, fig.Axes()[0].Lines(), 24+11+1)

	fig, err = m.Peek(PeekGridSpacing(5, 5), PeekNoColorbar())
	require.NoError(t, err)
	assert.Len(t, fig.Axes()[0].Lines(), 72+35)
	assert.False(t, fig.Axes()[0].HasColorbar())

	fig, err = m.Peek(PeekFigure(render.WithSize(320, 240)))
	require.NoError(t, err)
	assert.Equal(t, 320, fig.Render().Bounds().Dx())
}

func TestPeek_Idempotent(t *testing.T) {
	m := createTestMap(t, 64, 64)
	build := []struct {
		name string
		opts []PeekOption
	}{
		{"plain", nil},
		{"grid", []PeekOption{PeekGrid()}},
		{"limb", []PeekOption{PeekLimb()}},
		{"grid and limb", []PeekOption{PeekGrid(), PeekLimb()}},
	}
	for _, b := range build {
		t.Run(b.name, func(t *testing.T) {
			a, err := m.Peek(b.opts...)
			require.NoError(t, err)
			c, err := m.Peek(b.opts...)
			require.NoError(t, err)
			assert.Equal(t, figureHash(t, a), figureHash(t, c))
			assert.Equal(t, figureHash(t, a), figureHash(t, a))
		})
	}
}

func TestOverlays_RequireWCSAxes(t *testing.T) {
	m := createTestMap(t, 32, 32)
	fig := render.NewFigure()
	ax := fig.Gca()
	bl := coords.New(0, 0, m.CoordinateFrame())

	assert.ErrorIs(t, m.DrawGrid(ax), ErrNotWCSAxes)
	assert.ErrorIs(t, m.DrawLimb(ax), ErrNotWCSAxes)
	assert.ErrorIs(t, m.DrawRectangle(ax, bl, RectSize(coords.Arcsec(100), coords.Arcsec(100))), ErrNotWCSAxes)
	assert.ErrorIs(t, m.DrawGrid(nil), ErrNotWCSAxes)
	assert.Empty(t, ax.Lines())
}

func TestDrawGrid(t *testing.T) {
	m := createTestMap(t, 128, 128)
	fig := render.NewFigure()
	ax, err := m.Plot(fig)
	require.NoError(t, err)

	require.NoError(t, m.DrawGrid(ax))
	lines := ax.Lines()
	require.Len(t, lines, 24+11)
	assert.NotEmpty(t, ax.Texts())

	// Longitude -180 is on the far side at the equator.
	assert.True(t, math.IsNaN(lines[0].X[gridSamples/2]))
	// The central meridian crosses the disk centre column.
	assert.InDelta(t, 63.5, lines[12].X[gridSamples/2], 1e-6)

	ax2 := render.NewFigure().AddWCSAxes(m.WCS())
	require.NoError(t, m.DrawGrid(ax2, GridAnnotate(false), GridColor(color.Black)))
	assert.Empty(t, ax2.Texts())
	assert.Equal(t, color.Black, ax2.Lines()[0].Style.Color)

	assert.Error(t, m.DrawGrid(ax2, GridSpacing(0, 10)))
}

func TestDrawGrid_Heliographic(t *testing.T) {
	m := createCarringtonMap(t)
	ax := render.NewFigure().AddWCSAxes(m.WCS())
	require.NoError(t, m.DrawGrid(ax, GridAnnotate(false)))
	lines := ax.Lines()
	require.Len(t, lines, 24+11)

	// Nothing is hidden on a full-Sun map; the equator spans the image.
	equator := lines[24+5]
	finite := 0
	for _, x := range equator.X {
		if !math.IsNaN(x) {
			finite++
		}
	}
	assert.Greater(t, finite, gridSamples/2)
}

func TestDrawLimb(t *testing.T) {
	m := createTestMap(t, 128, 128)
	ax := render.NewFigure().AddWCSAxes(m.WCS())
	require.NoError(t, m.DrawLimb(ax))
	require.Len(t, ax.Lines(), 1)

	radius := m.RSunObs().Arcseconds() / 19.2
	limb := ax.Lines()[0]
	assert.Len(t, limb.X, limbSamples+1)
	for i := range limb.X {
		r := math.Hypot(limb.X[i]-63.5, limb.Y[i]-63.5)
		assert.InDelta(t, radius, r, 0.05)
	}
}

func TestDrawRectangle_SizeMatchesCorners(t *testing.T) {
	aia := createTestMap(t, 128, 128)
	car := createCarringtonMap(t)
	tests := []struct {
		name  string
		m     *Map
		bl    coords.Coordinate
		w, h  coords.Angle
		color color.Color
	}{
		{"helioprojective", aia, coords.New(0, 0, aia.CoordinateFrame()), coords.Arcsec(100), coords.Arcsec(100), color.White},
		{"carrington", car, coords.New(60, 50, car.CoordinateFrame()), 13, 13, color.RGBA{0, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bySize, err := tt.m.Peek()
			require.NoError(t, err)
			require.NoError(t, tt.m.DrawRectangle(bySize.Axes()[0], tt.bl, RectSize(tt.w, tt.h), RectColor(tt.color)))

			tr := tt.bl.Offset(tt.w, tt.h)
			byCorner, err := tt.m.Peek()
			require.NoError(t, err)
			require.NoError(t, tt.m.DrawRectangle(byCorner.Axes()[0], tt.bl, RectTopRight(tr), RectColor(tt.color)))

			a, b := bySize.Axes()[0].Lines(), byCorner.Axes()[0].Lines()
			require.Len(t, a, 1)
			assert.Equal(t, a, b)
			assert.Equal(t, figureHash(t, bySize), figureHash(t, byCorner))
		})
	}
}

func TestDrawRectangle_Arguments(t *testing.T) {
	m := createTestMap(t, 64, 64)
	ax := render.NewFigure().AddWCSAxes(m.WCS())
	bl := coords.New(0, 0, m.CoordinateFrame())
	tr := coords.New(coords.Arcsec(100), coords.Arcsec(100), m.CoordinateFrame())

	err := m.DrawRectangle(ax, bl)
	assert.ErrorIs(t, err, coords.ErrRectangleArgs)
	err = m.DrawRectangle(ax, bl, RectSize(coords.Arcsec(1), coords.Arcsec(1)), RectTopRight(tr))
	assert.ErrorIs(t, err, coords.ErrRectangleArgs)
	assert.Empty(t, ax.Lines())

	require.NoError(t, m.DrawRectangle(ax, bl, RectTopRight(tr), RectLineWidth(2)))
	line := ax.Lines()[0]
	assert.Equal(t, 2.0, line.Style.Width)
	assert.Len(t, line.X, 4*edgeSamples+1)
}
