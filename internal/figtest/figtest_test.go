package figtest

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/sunmap/internal/render"
)

func createTestFigure(t *testing.T, y1 float64) *render.Figure {
	t.Helper()
	fig := render.NewFigure(render.WithSize(160, 120))
	ax := fig.Gca()
	ax.SetLimits(0, 1, 0, 1)
	require.NoError(t, ax.Plot([]float64{0, 1}, []float64{0, y1}, render.LineStyle{Color: color.Black, Width: 2}))
	return fig
}

func createSolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestLibrary_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes", "library.json")
	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Len())

	lib.Set("b", "2")
	lib.Set("a", "1")
	require.NoError(t, lib.Save())

	loaded, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.Names())
	h, ok := loaded.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", h)
	assert.Equal(t, path, loaded.Path())
}

func TestLoadLibrary_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadLibrary(path)
	assert.Error(t, err)
}

func TestCompare_Images(t *testing.T) {
	white := createSolidImage(10, 10, color.White)
	d, err := Compare(white, white)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.RMS)
	assert.Equal(t, 0, d.PixelsDifferent)
	assert.Equal(t, 100, d.TotalPixels)

	black := createSolidImage(10, 10, color.Black)
	d, err = Compare(white, black)
	require.NoError(t, err)
	assert.InDelta(t, 255, d.RMS, 1e-9)
	assert.Equal(t, 100, d.PixelsDifferent)
	require.NotNil(t, d.Image)
	assert.Equal(t, white.Bounds(), d.Image.Bounds())

	_, err = Compare(white, createSolidImage(5, 10, color.White))
	assert.Error(t, err)
}

func TestComparer_UpdateThenMatch(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(filepath.Join(dir, "hashes.json"))
	opts := Options{BaselineDir: filepath.Join(dir, "baseline"), Update: true}

	res, err := NewComparer(lib, opts, nil).Compare("line", createTestFigure(t, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, res.Status)
	assert.FileExists(t, filepath.Join(dir, "baseline", "line.png"))
	h, ok := lib.Get("line")
	require.True(t, ok)
	assert.Equal(t, res.Hash, h)

	opts.Update = false
	res, err = NewComparer(lib, opts, nil).Compare("line", createTestFigure(t, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusMatch, res.Status)
	assert.True(t, res.Passed())
}

func TestComparer_Missing(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lib := NewLibrary(filepath.Join(t.TempDir(), "hashes.json"))

	res, err := NewComparer(lib, Options{}, zap.New(core)).Compare("new", createTestFigure(t, 1))
	require.NoError(t, err)
	assert.Equal(t, StatusMissing, res.Status)
	assert.Equal(t, 1, logs.FilterMessage("No reference for figure").Len())

	res, err = NewComparer(lib, Options{Strict: true}, nil).Compare("new", createTestFigure(t, 1))
	assert.ErrorIs(t, err, ErrNoReference)
	assert.False(t, res.Passed())
}

func TestComparer_Tolerance(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(filepath.Join(dir, "hashes.json"))
	base := filepath.Join(dir, "baseline")
	results := filepath.Join(dir, "results")

	_, err := NewComparer(lib, Options{BaselineDir: base, Update: true}, nil).Compare("line", createTestFigure(t, 1))
	require.NoError(t, err)

	changed := createTestFigure(t, 0.9)
	res, err := NewComparer(lib, Options{BaselineDir: base, Tolerance: 255}, nil).Compare("line", changed)
	require.NoError(t, err)
	assert.Equal(t, StatusWithinTolerance, res.Status)
	assert.Greater(t, res.RMS, 0.0)

	res, err = NewComparer(lib, Options{BaselineDir: base, ResultsDir: results, Tolerance: 1e-6}, nil).Compare("line", changed)
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, StatusFailed, res.Status)
	assert.FileExists(t, res.DiffPath)
	assert.FileExists(t, filepath.Join(results, "line.png"))

	// Without a baseline a hash mismatch cannot be excused.
	_, err = NewComparer(lib, Options{}, nil).Compare("line", changed)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestCheckIdempotent(t *testing.T) {
	fig := createTestFigure(t, 1)
	h, err := CheckIdempotent(fig)
	require.NoError(t, err)
	want, err := fig.Hash()
	require.NoError(t, err)
	assert.Equal(t, want, h)

	png, err := fig.PNG()
	require.NoError(t, err)
	assert.Equal(t, want, Hash(png))
}

func TestAssert(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(filepath.Join(dir, "hashes.json"))
	c := NewComparer(lib, Options{Update: true}, nil)
	res := Assert(t, c, "line", createTestFigure(t, 1))
	assert.Equal(t, StatusUpdated, res.Status)

	c = NewComparer(lib, Options{}, nil)
	res = Assert(t, c, "line", createTestFigure(t, 1))
	assert.Equal(t, StatusMatch, res.Status)
}
