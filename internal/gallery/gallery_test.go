package gallery

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ironsheep/sunmap/internal/config"
	"github.com/ironsheep/sunmap/internal/figtest"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	fixturesOnce sync.Once
	fixtures     *Fixtures
	fixturesErr  error
)

func loadTestFixtures(t *testing.T) *Fixtures {
	t.Helper()
	fixturesOnce.Do(func() {
		fixtures, fixturesErr = LoadFixtures(config.FixtureConfig{Seed: 171}, fitsfile.NewCache(), nil)
	})
	require.NoError(t, fixturesErr)
	return fixtures
}

func resultsByName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Case] = r
	}
	return out
}

func TestRegistry(t *testing.T) {
	cases := Cases()
	require.Len(t, cases, 22)

	warned := 0
	for _, c := range cases {
		if c.ExpectWarning != "" {
			warned++
			assert.Contains(t, c.Name, "nowcsaxes")
		}
	}
	assert.Equal(t, 4, warned)

	_, ok := Lookup("peek_aia171")
	assert.True(t, ok)
	_, err := Select([]string{"peek_aia171", "nope"})
	assert.Error(t, err)
	sel, err := Select([]string{"heliographic_peek", "plot_aia171"})
	require.NoError(t, err)
	assert.Equal(t, "heliographic_peek", sel[0].Name)
}

func TestGenerateFixtures_Deterministic(t *testing.T) {
	a, err := GenerateAIA171(7)
	require.NoError(t, err)
	b, err := GenerateAIA171(7)
	require.NoError(t, err)
	c, err := GenerateAIA171(8)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())
	assert.NotEqual(t, a.Data(), c.Data())
	assert.Equal(t, 128, a.Width())
	assert.Equal(t, "AIA 171.0 Angstrom 2011-02-15 00:00:00", a.Name())
	assert.GreaterOrEqual(t, a.Min(), 0.0)

	hg, err := GenerateHeliographic(7)
	require.NoError(t, err)
	w, h := hg.Dimensions()
	assert.Equal(t, 180, w)
	assert.Equal(t, 90, h)
}

func TestFixtures_NoMissingMetadata(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	_, err := LoadFixtures(config.FixtureConfig{Seed: 1}, fitsfile.NewCache(), zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())
}

func TestFixtures_MaskedQuadrant(t *testing.T) {
	fx := loadTestFixtures(t)
	m := fx.MaskedAIA171
	assert.True(t, m.Masked(0, 0))
	assert.True(t, m.Masked(63, 63))
	assert.False(t, m.Masked(64, 0))
	assert.False(t, m.Masked(0, 64))

	sp, err := superpixel(m)
	require.NoError(t, err)
	assert.Equal(t, (128-4)/9, sp.Width())
	assert.Equal(t, (128-4)/7, sp.Height())
}

func TestWriteAndLoadFixtures(t *testing.T) {
	fx := loadTestFixtures(t)
	dir := t.TempDir()
	paths, err := WriteFixtures(dir, fx)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, HeliographicFile), paths[1])

	loaded, err := LoadFixtures(config.FixtureConfig{AIA171: paths[0], Heliographic: paths[1]}, fitsfile.NewCache(), nil)
	require.NoError(t, err)
	assert.Equal(t, fx.AIA171.Name(), loaded.AIA171.Name())
	assert.InDeltaSlice(t, fx.AIA171.Data(), loaded.AIA171.Data(), 1e-9)
	assert.Equal(t, fx.Heliographic.Width(), loaded.Heliographic.Width())
}

func TestRun_AllCases(t *testing.T) {
	fx := loadTestFixtures(t)
	results, err := Run(context.Background(), Cases(), fx, Options{
		Workers: 4,
		Figure:  []render.Option{render.WithSize(320, 240)},
	})
	require.NoError(t, err)
	require.Len(t, results, 22)

	for _, r := range results {
		assert.NoError(t, r.Err, r.Case)
		assert.NotEmpty(t, r.Hash, r.Case)
	}
	passed, failed := Summary(results)
	assert.Equal(t, 22, passed)
	assert.Equal(t, 0, failed)

	byName := resultsByName(results)
	for _, name := range []string{"plot_aia171_nowcsaxes", "plot_masked_aia171_nowcsaxes",
		"plot_aia171_superpixel_nowcsaxes", "plot_masked_aia171_superpixel_nowcsaxes"} {
		require.Len(t, byName[name].Warnings, 1, name)
		assert.Contains(t, byName[name].Warnings[0], "UserWarning: WCSAxes not being used as the axes")
	}

	// The two ways of giving a rectangle draw the same figure.
	assert.Equal(t, byName["rectangle_aia171_width_height"].Hash, byName["rectangle_aia171_top_right"].Hash)
	assert.Equal(t, byName["heliographic_rectangle_width_height"].Hash, byName["heliographic_rectangle_top_right"].Hash)
	assert.NotEqual(t, byName["plot_aia171"].Hash, byName["plot_aia171_clip"].Hash)
	assert.NotEqual(t, byName["plot_aia171"].Hash, byName["plot_masked_aia171"].Hash)
}

func TestRun_Deterministic(t *testing.T) {
	fx := loadTestFixtures(t)
	cases, err := Select([]string{"peek_grid_limb_aia171", "draw_contours_aia", "heliographic_grid_annotations"})
	require.NoError(t, err)
	opts := Options{Workers: 3, Figure: []render.Option{render.WithSize(240, 180)}}

	first, err := Run(context.Background(), cases, fx, opts)
	require.NoError(t, err)
	second, err := Run(context.Background(), cases, fx, opts)
	require.NoError(t, err)
	for i := range first {
		assert.Equal(t, first[i].Hash, second[i].Hash, first[i].Case)
	}
}

func TestRun_WithComparer(t *testing.T) {
	fx := loadTestFixtures(t)
	cases, err := Select([]string{"plot_aia171", "heliographic_peek"})
	require.NoError(t, err)
	lib := figtest.NewLibrary(filepath.Join(t.TempDir(), "hashes.json"))
	figOpts := []render.Option{render.WithSize(200, 150)}

	results, err := Run(context.Background(), cases, fx, Options{
		Comparer: figtest.NewComparer(lib, figtest.Options{Update: true}, nil),
		Figure:   figOpts,
	})
	require.NoError(t, err)
	for _, r := range results {
		require.NotNil(t, r.Comparison)
		assert.Equal(t, figtest.StatusUpdated, r.Comparison.Status)
	}
	assert.Equal(t, 2, lib.Len())

	results, err = Run(context.Background(), cases, fx, Options{
		Comparer: figtest.NewComparer(lib, figtest.Options{Strict: true}, nil),
		Figure:   figOpts,
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Passed(), r.Case)
		assert.Equal(t, figtest.StatusMatch, r.Comparison.Status)
	}
}

func TestRun_Cancelled(t *testing.T) {
	fx := loadTestFixtures(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Cases(), fx, Options{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuite(t *testing.T) {
	data := []byte(`
version: 1
name: smoke
cases:
  - name: plot_aia171
  - name: plot_aia171_nowcsaxes
    expect_warning: none
  - name: peek_aia171
    skip: true
`)
	s, err := ParseSuite(data)
	require.NoError(t, err)
	cases, err := s.Resolve()
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Empty(t, cases[1].ExpectWarning)

	// With the expectation removed, the recorded warning fails the case.
	results, err := Run(context.Background(), cases, loadTestFixtures(t), Options{
		Figure: []render.Option{render.WithSize(160, 120)},
	})
	require.NoError(t, err)
	assert.True(t, results[0].Passed())
	assert.ErrorIs(t, results[1].Err, ErrWarning)

	_, err = (&Suite{Name: "bad", Cases: []SuiteCase{{Name: "missing"}}}).Resolve()
	assert.Error(t, err)
	_, err = ParseSuite([]byte("cases: ["))
	assert.Error(t, err)
}

func TestDefaultSuite_RoundTrip(t *testing.T) {
	data, err := DefaultSuite().Marshal()
	require.NoError(t, err)
	s, err := ParseSuite(data)
	require.NoError(t, err)
	cases, err := s.Resolve()
	require.NoError(t, err)
	want := Cases()
	require.Len(t, cases, len(want))
	for i := range want {
		assert.Equal(t, want[i].Name, cases[i].Name)
		assert.Equal(t, want[i].ExpectWarning, cases[i].ExpectWarning)
	}
}
