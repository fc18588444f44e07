package figtest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/render"
)

// DefaultTolerance is the RMS difference accepted against a baseline PNG.
const DefaultTolerance = 2.0

var (
	// ErrMismatch is returned when a figure differs from its reference.
	ErrMismatch = errors.New("figtest: figure does not match reference")

	// ErrNoReference is returned in strict mode for figures without a
	// recorded hash.
	ErrNoReference = errors.New("figtest: no reference recorded")

	// ErrNotIdempotent is returned when rendering a figure twice gives
	// different PNGs.
	ErrNotIdempotent = errors.New("figtest: figure rendering is not idempotent")
)

// Status is the outcome of a comparison.
type Status string

const (
	StatusMatch           Status = "match"
	StatusWithinTolerance Status = "within_tolerance"
	StatusMissing         Status = "missing"
	StatusUpdated         Status = "updated"
	StatusFailed          Status = "failed"
)

// Options configures a Comparer.
type Options struct {
	// BaselineDir holds reference PNGs named <figure>.png. Optional.
	BaselineDir string

	// ResultsDir receives the rendered and diff images of failed figures.
	ResultsDir string

	// Tolerance is the accepted RMS difference; DefaultTolerance when zero.
	Tolerance float64

	// Update records hashes and baselines instead of comparing.
	Update bool

	// Strict fails figures that have no reference.
	Strict bool
}

// Result describes one comparison.
type Result struct {
	Name     string  `json:"name"`
	Status   Status  `json:"status"`
	Hash     string  `json:"hash"`
	Expected string  `json:"expected,omitempty"`
	RMS      float64 `json:"rms,omitempty"`
	DiffPath string  `json:"diff_path,omitempty"`
}

// Passed reports whether the figure is acceptable.
func (r Result) Passed() bool { return r.Status != StatusFailed }

// Comparer checks figures against a hash library and baseline images.
type Comparer struct {
	lib  *Library
	opts Options
	log  *zap.Logger
}

// NewComparer returns a comparer backed by lib. A nil logger disables
// logging.
func NewComparer(lib *Library, opts Options, log *zap.Logger) *Comparer {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Comparer{lib: lib, opts: opts, log: log}
}

// Library returns the hash library.
func (c *Comparer) Library() *Library { return c.lib }

// Hash returns the hex sha256 of png.
func Hash(png []byte) string {
	sum := sha256.Sum256(png)
	return hex.EncodeToString(sum[:])
}

// Compare renders fig and checks it against the reference recorded under
// name. Failures return a Result with StatusFailed and an error wrapping
// ErrMismatch or ErrNoReference.
func (c *Comparer) Compare(name string, fig *render.Figure) (Result, error) {
	png, err := fig.PNG()
	if err != nil {
		return Result{Name: name, Status: StatusFailed}, err
	}
	res := Result{Name: name, Hash: Hash(png)}

	if c.opts.Update {
		c.lib.Set(name, res.Hash)
		if c.opts.BaselineDir != "" {
			if err := writeFile(c.baselinePath(name), png); err != nil {
				return res, err
			}
		}
		res.Status = StatusUpdated
		c.log.Debug("Recorded figure", zap.String("name", name), zap.String("hash", res.Hash))
		return res, nil
	}

	expected, ok := c.lib.Get(name)
	if !ok {
		if c.opts.Strict {
			res.Status = StatusFailed
			return res, fmt.Errorf("%w: %s", ErrNoReference, name)
		}
		res.Status = StatusMissing
		c.log.Info("No reference for figure", zap.String("name", name), zap.String("hash", res.Hash))
		return res, nil
	}
	res.Expected = expected
	if expected == res.Hash {
		res.Status = StatusMatch
		return res, nil
	}

	baseline, err := imgio.Open(c.baselinePath(name))
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("%w: %s hash %s, expected %s", ErrMismatch, name, res.Hash, expected)
	}
	actual := fig.Render()
	diff, err := Compare(baseline, actual)
	if err != nil {
		res.Status = StatusFailed
		return res, fmt.Errorf("%w: %s: %w", ErrMismatch, name, err)
	}
	res.RMS = diff.RMS
	if diff.RMS <= c.opts.Tolerance {
		res.Status = StatusWithinTolerance
		c.log.Debug("Figure within tolerance", zap.String("name", name), zap.Float64("rms", diff.RMS))
		return res, nil
	}

	res.Status = StatusFailed
	if c.opts.ResultsDir != "" {
		res.DiffPath = filepath.Join(c.opts.ResultsDir, name+"-failed-diff.png")
		if err := os.MkdirAll(c.opts.ResultsDir, 0o755); err != nil {
			return res, fmt.Errorf("failed to create results directory: %w", err)
		}
		if err := imgio.Save(res.DiffPath, diff.Image, imgio.PNGEncoder()); err != nil {
			return res, fmt.Errorf("failed to save diff image: %w", err)
		}
		if err := writeFile(filepath.Join(c.opts.ResultsDir, name+".png"), png); err != nil {
			return res, err
		}
	}
	c.log.Warn("Figure differs from baseline",
		zap.String("name", name), zap.Float64("rms", diff.RMS), zap.Int("pixels_different", diff.PixelsDifferent))
	return res, fmt.Errorf("%w: %s RMS %.3f exceeds %.3f", ErrMismatch, name, diff.RMS, c.opts.Tolerance)
}

func (c *Comparer) baselinePath(name string) string {
	return filepath.Join(c.opts.BaselineDir, name+".png")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CheckIdempotent renders fig twice and returns the hash when both renders
// agree.
func CheckIdempotent(fig *render.Figure) (string, error) {
	a, err := fig.Hash()
	if err != nil {
		return "", err
	}
	b, err := fig.Hash()
	if err != nil {
		return "", err
	}
	if a != b {
		return "", fmt.Errorf("%w: %s then %s", ErrNotIdempotent, a, b)
	}
	return a, nil
}

// Assert fails t unless fig renders idempotently and matches its reference.
func Assert(t testing.TB, c *Comparer, name string, fig *render.Figure) Result {
	t.Helper()
	if _, err := CheckIdempotent(fig); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	res, err := c.Compare(name, fig)
	if err != nil {
		t.Errorf("%s: %v", name, err)
	}
	return res
}
