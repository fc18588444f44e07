package colormap

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/sunmap/internal/meta"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"cyan", color.RGBA{0, 255, 255, 255}},
		{"White", color.RGBA{255, 255, 255, 255}},
		{"#FF8040", color.RGBA{255, 128, 64, 255}},
		{"ff8040", color.RGBA{255, 128, 64, 255}},
		{"#f00", color.RGBA{255, 0, 0, 255}},
		{"#00000000", color.RGBA{0, 0, 0, 0}},
		{"#FFFFFFFF", color.RGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#12", "notacolor", "#GGGGGG"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#FF8040", Hex(color.RGBA{255, 128, 64, 255}))
}

func TestBuiltins(t *testing.T) {
	for _, name := range []string{"gray", "viridis", "sdoaia94", "sdoaia131", "sdoaia171",
		"sdoaia193", "sdoaia211", "sdoaia304", "sdoaia335", "hmimag", "rhessi"} {
		cm, err := Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, cm.Name)
	}
	_, err := Get("jet")
	assert.Error(t, err)
	assert.Contains(t, Names(), "sdoaia171")
}

func TestGray_Endpoints(t *testing.T) {
	cm, err := Get("gray")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, cm.At(0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, cm.At(1))
	assert.Equal(t, cm.At(1), cm.At(7), "values above one clamp")
	assert.Equal(t, cm.At(0), cm.At(-3), "values below zero clamp")
	assert.Equal(t, color.RGBA{}, cm.At(math.NaN()), "bad pixels are transparent")
}

func TestAIA171_IsRedTemperature(t *testing.T) {
	cm, err := Get("sdoaia171")
	require.NoError(t, err)
	top := cm.At(1)
	assert.Equal(t, uint8(255), top.R)
	assert.Equal(t, uint8(255), top.G)
	mid := cm.At(0.5)
	assert.Greater(t, mid.R, mid.B)
}

func TestFromStops_Invalid(t *testing.T) {
	_, err := FromStops("one", Stop{0, "red"})
	assert.Error(t, err)
	_, err = FromStops("gap", Stop{0.1, "red"}, Stop{1, "blue"})
	assert.Error(t, err)
	_, err = FromStops("order", Stop{0, "red"}, Stop{0.8, "blue"}, Stop{0.5, "green"}, Stop{1, "white"})
	assert.Error(t, err)
	_, err = FromStops("color", Stop{0, "red"}, Stop{1, "nope"})
	assert.Error(t, err)
}

func TestForInstrument(t *testing.T) {
	aia := meta.New(map[string]any{"INSTRUME": "AIA_3", "WAVELNTH": 171})
	assert.Equal(t, "sdoaia171", ForInstrument(aia).Name)

	hmi := meta.New(map[string]any{"INSTRUME": "HMI_FRONT2", "CONTENT": "MAGNETOGRAM"})
	assert.Equal(t, "hmimag", ForInstrument(hmi).Name)

	odd := meta.New(map[string]any{"INSTRUME": "AIA", "WAVELNTH": 5000})
	assert.Equal(t, "gray", ForInstrument(odd).Name)

	assert.Equal(t, "gray", ForInstrument(meta.Meta{}).Name)
}

func TestColorize(t *testing.T) {
	cm, err := Get("gray")
	require.NoError(t, err)
	data := []float64{0, 1, math.NaN(), 2}
	mask := []bool{false, false, false, true}
	img := cm.Colorize(data, mask, 2, 2, NewNorm(0, 1, nil))

	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(1, 0))
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 1).A, "NaN is transparent")
	assert.Equal(t, uint8(0), img.NRGBAAt(1, 1).A, "masked is transparent")
}

func TestNorm(t *testing.T) {
	n := NewNorm(10, 20, nil)
	assert.InDelta(t, 0.5, n.Scale(15), 1e-12)
	assert.InDelta(t, 1.5, n.Scale(25), 1e-12, "no clipping")
	assert.True(t, math.IsNaN(n.Scale(math.NaN())))
	assert.InDelta(t, 15, n.Value(0.5), 1e-12)
	assert.Equal(t, 0.0, NewNorm(3, 3, nil).Scale(3))

	a := NewNorm(0, 1, AsinhStretch{A: 0.01})
	assert.InDelta(t, 0, a.Scale(0), 1e-12)
	assert.InDelta(t, 1, a.Scale(1), 1e-12)
	assert.Greater(t, a.Scale(0.1), 0.5, "asinh brightens faint values")
	assert.InDelta(t, 0.1, a.Value(a.Scale(0.1)), 1e-12)
}

func TestStretchFor(t *testing.T) {
	assert.Equal(t, AsinhStretch{A: 0.01}, StretchFor(meta.New(map[string]any{"INSTRUME": "AIA_3"})))
	assert.Equal(t, LinearStretch{}, StretchFor(meta.Meta{}))
}

func TestDataRange(t *testing.T) {
	data := []float64{5, math.NaN(), -2, 100, math.Inf(1)}
	mask := []bool{false, false, false, true, false}
	lo, hi, err := DataRange(data, mask)
	require.NoError(t, err)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 5.0, hi)

	_, _, err = DataRange([]float64{math.NaN()}, nil)
	assert.ErrorIs(t, err, ErrNoValidData)
}

func TestPercentileInterval(t *testing.T) {
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(100 - i)
	}
	lo, hi, err := PercentileInterval(data, nil, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 100.0, hi)

	lo, hi, err = PercentileInterval(data, nil, 5, 99)
	require.NoError(t, err)
	assert.InDelta(t, 5, lo, 1.01)
	assert.InDelta(t, 99, hi, 1.01)
	assert.Less(t, lo, hi)

	mask := make([]bool, len(data))
	mask[0] = true // hides the maximum
	_, hi, err = PercentileInterval(data, mask, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 99.0, hi)

	_, _, err = PercentileInterval(data, nil, 50, 10)
	assert.Error(t, err)
}
