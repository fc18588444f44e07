package fitsfile

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/sunmap/internal/meta"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, math.NaN()}
	in := &File{
		Header: meta.New(map[string]any{
			"CTYPE1":   "HPLN-TAN",
			"CRPIX1":   1.5,
			"NAXIS1":   99, // structural, must be ignored
			"EXPOSED":  true,
			"DATE-OBS": "2011-02-15T00:00:00.34",
		}),
		Width:  3,
		Height: 2,
		Data:   data,
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.Zero(t, buf.Len()%2880, "FITS streams are padded to 2880-byte blocks")

	out, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, 3, out.Width)
	assert.Equal(t, 2, out.Height)
	require.Len(t, out.Data, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, data[i], out.Data[i], "pixel %d", i)
	}
	assert.True(t, math.IsNaN(out.Data[5]), "NaN must survive the round trip")

	assert.Equal(t, "HPLN-TAN", out.Header.StringOr("CTYPE1", ""))
	assert.InDelta(t, 1.5, out.Header.FloatOr("CRPIX1", 0), 1e-12)
	assert.False(t, out.Header.Has("NAXIS1"), "structural keywords are not kept in Header")
	b, ok := out.Header.Bool("EXPOSED")
	assert.True(t, ok && b)
}

func TestSaveOpen_Gzip(t *testing.T) {
	in := &File{
		Header: meta.New(map[string]any{"CTYPE1": "CRLN-CAR"}),
		Width:  4,
		Height: 4,
		Data:   make([]float64, 16),
	}
	for i := range in.Data {
		in.Data[i] = float64(i) * 0.5
	}

	path := filepath.Join(t.TempDir(), "phase.fits.gz")
	require.NoError(t, Save(path, in))

	out, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, out.Path)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, "CRLN-CAR", out.Header.StringOr("CTYPE1", ""))
}

func TestWrite_InvalidShape(t *testing.T) {
	err := Write(&bytes.Buffer{}, &File{Width: 2, Height: 2, Data: []float64{1}})
	assert.Error(t, err)
}

func TestRead_Garbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("SIMPLE = nonsense")))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotImage))
}

func TestCardValue(t *testing.T) {
	assert.Equal(t, 5, cardValue(int64(5)))
	assert.Equal(t, 2.5, cardValue(float32(2.5)))
	assert.Equal(t, "x", cardValue("x"))
	assert.Equal(t, "[1 2]", cardValue([]int{1, 2}))
}
