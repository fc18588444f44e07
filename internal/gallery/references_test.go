package gallery

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/sunmap/internal/config"
	"github.com/ironsheep/sunmap/internal/figtest"
	"github.com/ironsheep/sunmap/internal/render"
)

var updateReferences = flag.Bool("update", false, "record figure hashes and baselines under testdata")

var (
	referenceLibrary  = filepath.Join("testdata", "figure_hashes.json")
	referenceBaseline = filepath.Join("testdata", "baseline")
)

// referenceOptions renders at the configured default size so the library
// matches the one `sunmap figures --update` writes from the repository root.
func referenceOptions(t *testing.T, comparer *figtest.Comparer) Options {
	t.Helper()
	cfg := config.DefaultConfig()
	return Options{
		Workers:  cfg.Figures.Workers,
		Figure:   []render.Option{render.WithSize(cfg.Figure.Width, cfg.Figure.Height)},
		Comparer: comparer,
	}
}

func TestFigures_MatchReferences(t *testing.T) {
	fx := loadTestFixtures(t)

	if *updateReferences {
		lib := figtest.NewLibrary(referenceLibrary)
		comparer := figtest.NewComparer(lib, figtest.Options{BaselineDir: referenceBaseline, Update: true}, nil)
		results, err := Run(context.Background(), Cases(), fx, referenceOptions(t, comparer))
		require.NoError(t, err)
		for _, r := range results {
			require.NoError(t, r.Err, r.Case)
		}
		require.NoError(t, lib.Save())
		t.Logf("recorded %d figures in %s", lib.Len(), referenceLibrary)
		return
	}

	if _, err := os.Stat(referenceLibrary); os.IsNotExist(err) {
		t.Skipf("%s not recorded yet; run go test ./internal/gallery -run TestFigures_MatchReferences -update", referenceLibrary)
	}
	lib, err := figtest.LoadLibrary(referenceLibrary)
	require.NoError(t, err)

	comparer := figtest.NewComparer(lib, figtest.Options{
		BaselineDir: referenceBaseline,
		ResultsDir:  t.TempDir(),
		Tolerance:   config.DefaultConfig().Figures.Tolerance,
		Strict:      true,
	}, nil)
	results, err := Run(context.Background(), Cases(), fx, referenceOptions(t, comparer))
	require.NoError(t, err)
	require.Len(t, results, len(Cases()))

	for _, r := range results {
		assert.NoError(t, r.Err, r.Case)
		if assert.NotNil(t, r.Comparison, r.Case) {
			assert.Contains(t, []figtest.Status{figtest.StatusMatch, figtest.StatusWithinTolerance}, r.Comparison.Status, r.Case)
		}
	}
}

func TestStrictComparer_RejectsUnrecordedFigure(t *testing.T) {
	lib := figtest.NewLibrary(filepath.Join(t.TempDir(), "hashes.json"))
	comparer := figtest.NewComparer(lib, figtest.Options{Strict: true}, nil)

	res, err := comparer.Compare("plot_aia171", render.NewFigure())
	assert.ErrorIs(t, err, figtest.ErrNoReference)
	assert.Equal(t, figtest.StatusFailed, res.Status)
	assert.False(t, res.Passed())
}
