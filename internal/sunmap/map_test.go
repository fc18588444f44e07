package sunmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/meta"
)

func aiaMeta(width, height int) meta.Meta {
	return meta.New(map[string]any{
		"CTYPE1":   "HPLN-TAN",
		"CTYPE2":   "HPLT-TAN",
		"CUNIT1":   "arcsec",
		"CUNIT2":   "arcsec",
		"CRPIX1":   float64(width)/2 + 0.5,
		"CRPIX2":   float64(height)/2 + 0.5,
		"CDELT1":   19.2,
		"CDELT2":   19.2,
		"CRVAL1":   0.0,
		"CRVAL2":   0.0,
		"HGLN_OBS": 0.0,
		"HGLT_OBS": -6.7,
		"CRLN_OBS": 14.6,
		"DSUN_OBS": 1.4784e11,
		"DATE-OBS": "2011-02-15T00:00:00.34",
		"INSTRUME": "AIA_3",
		"WAVELNTH": 171,
	})
}

func carringtonMeta() meta.Meta {
	return meta.New(map[string]any{
		"CTYPE1":   "CRLN-CAR",
		"CTYPE2":   "CRLT-CAR",
		"CUNIT1":   "deg",
		"CUNIT2":   "deg",
		"CRPIX1":   90.5,
		"CRPIX2":   45.5,
		"CDELT1":   2.0,
		"CDELT2":   2.0,
		"CRVAL1":   180.0,
		"CRVAL2":   0.0,
		"HGLN_OBS": 0.0,
		"HGLT_OBS": -6.7,
		"CRLN_OBS": 14.6,
		"DSUN_OBS": 1.4784e11,
		"DATE-OBS": "2011-02-15T00:00:00",
	})
}

// createTestMap builds a map with a bright Gaussian disk centred on the
// reference pixel.
func createTestMap(t *testing.T, width, height int) *Map {
	t.Helper()
	data := make([]float64, width*height)
	cx, cy := float64(width-1)/2, float64(height-1)/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r2 := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
			data[y*width+x] = 10 + 1000*math.Exp(-r2/(2*30*30))
		}
	}
	m, err := New(data, width, height, aiaMeta(width, height))
	require.NoError(t, err)
	return m
}

func createCarringtonMap(t *testing.T) *Map {
	t.Helper()
	const w, h = 180, 90
	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = math.Sin(float64(x)/10) * math.Cos(float64(y)/7)
		}
	}
	m, err := New(data, w, h, carringtonMeta())
	require.NoError(t, err)
	return m
}

func lowerLeftMask(width, height int) Mask {
	mask := NewMask(width, height)
	for y := 0; y < height/2; y++ {
		for x := 0; x < width/2; x++ {
			mask.Set(x, y, true)
		}
	}
	return mask
}

func TestNewMasked_ShapeMismatch(t *testing.T) {
	data := make([]float64, 6)
	tests := []struct {
		name string
		mask Mask
	}{
		{"transposed", NewMask(2, 3)},
		{"too small", NewMask(3, 1)},
		{"short bits", Mask{Width: 3, Height: 2, Bits: make([]bool, 5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMasked(data, 3, 2, tt.mask, aiaMeta(3, 2))
			assert.ErrorIs(t, err, ErrMaskShape)
		})
	}

	m, err := NewMasked(data, 3, 2, NewMask(3, 2), aiaMeta(3, 2))
	require.NoError(t, err)
	assert.True(t, m.HasMask())
}

func TestNew_DataShape(t *testing.T) {
	_, err := New(make([]float64, 5), 3, 2, aiaMeta(3, 2))
	assert.ErrorIs(t, err, ErrDataShape)
	_, err = New(nil, 0, 0, aiaMeta(3, 2))
	assert.ErrorIs(t, err, ErrDataShape)
}

func TestNew_MissingMetadataWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	header := meta.New(map[string]any{"CDELT1": 1.0, "CDELT2": 1.0})
	m, err := New(make([]float64, 4), 2, 2, header, WithLogger(zap.New(core)))
	require.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "Missing metadata")
	assert.InDelta(t, coords.AU, m.CoordinateFrame().Observer.Distance, 1)
	assert.Equal(t, "Generic Map", m.Name())
}

func TestMap_Immutable(t *testing.T) {
	m := createTestMap(t, 8, 8)
	data := m.Data()
	data[0] = -1
	assert.NotEqual(t, -1.0, m.At(0, 0))

	header := m.Meta()
	header.Set("CDELT1", 99.0)
	x, _ := m.Scale()
	assert.InDelta(t, 19.2, x.Arcseconds(), 1e-9)

	mask := m.Mask()
	mask.Set(0, 0, true)
	assert.False(t, m.Masked(0, 0))
	assert.False(t, m.HasMask())
}

func TestMap_Properties(t *testing.T) {
	m := createTestMap(t, 128, 128)
	w, h := m.Dimensions()
	assert.Equal(t, 128, w)
	assert.Equal(t, 128, h)
	assert.Equal(t, "AIA 171.0 Angstrom 2011-02-15 00:00:00", m.Name())
	assert.Equal(t, 2011, m.Date().Year())
	rx, ry := m.ReferencePixel()
	assert.Equal(t, 63.5, rx)
	assert.Equal(t, 63.5, ry)
	assert.Equal(t, coords.Helioprojective, m.ReferenceCoordinate().Frame.Name)
	assert.InDelta(t, 970, m.RSunObs().Arcseconds(), 10)
	wave, unit, ok := m.Wavelength()
	require.True(t, ok)
	assert.Equal(t, 171.0, wave)
	assert.Equal(t, "Angstrom", unit)
	assert.Contains(t, m.String(), "128x128")
}

func TestMinMax_MaskAware(t *testing.T) {
	data := []float64{5, math.NaN(), 1, 100}
	mask := NewMask(2, 2)
	mask.Set(1, 1, true)
	m, err := NewMasked(data, 2, 2, mask, aiaMeta(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Min())
	assert.Equal(t, 5.0, m.Max())

	all := NewMask(2, 2)
	for i := range all.Bits {
		all.Bits[i] = true
	}
	empty, err := m.WithMask(all)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(empty.Max()))
}

func TestPixelWorldRoundTrip(t *testing.T) {
	m := createTestMap(t, 128, 128)
	c, err := m.PixelToWorld(10, 100)
	require.NoError(t, err)
	assert.Equal(t, coords.Helioprojective, c.Frame.Name)

	x, y, err := m.WorldToPixel(c)
	require.NoError(t, err)
	assert.InDelta(t, 10, x, 1e-6)
	assert.InDelta(t, 100, y, 1e-6)

	// Disk centre in Stonyhurst lands near the reference pixel.
	hgs := m.CoordinateFrame().WithName(coords.HeliographicStonyhurst)
	centre, err := coords.New(0, 0, m.CoordinateFrame()).Transform(hgs)
	require.NoError(t, err)
	x, y, err = m.WorldToPixel(centre)
	require.NoError(t, err)
	assert.InDelta(t, 63.5, x, 1e-6)
	assert.InDelta(t, 63.5, y, 1e-6)

	// The far side cannot be placed on the image.
	_, _, err = m.WorldToPixel(coords.New(coords.Deg(120), 0, m.CoordinateFrame()))
	assert.ErrorIs(t, err, ErrOutsideProjection)
}

func TestToFileAndLoad(t *testing.T) {
	m, err := createTestMap(t, 16, 8).WithMask(lowerLeftMask(16, 8))
	require.NoError(t, err)

	f := m.ToFile()
	assert.True(t, math.IsNaN(f.Data[0]), "masked pixels are written as NaN")

	path := t.TempDir() + "/map.fits.gz"
	require.NoError(t, fitsfile.Save(path, f))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, loaded.Width())
	assert.Equal(t, m.Name(), loaded.Name())
	assert.InDelta(t, m.At(15, 7), loaded.At(15, 7), 1e-9)

	cache := fitsfile.NewCache()
	cached, err := LoadCached(cache, path)
	require.NoError(t, err)
	assert.Equal(t, 8, cached.Height())
	assert.Equal(t, 1, cache.Len())
}
