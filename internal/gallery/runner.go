package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sunmap/internal/figtest"
	"github.com/ironsheep/sunmap/internal/render"
)

// ErrWarning is returned for figures whose recorded warnings do not match
// the case's expectation.
var ErrWarning = errors.New("gallery: unexpected warnings")

// Options configures Run.
type Options struct {
	// Workers bounds the number of figures rendered at once.
	Workers int

	// Figure options applied to every figure.
	Figure []render.Option

	// Comparer checks each figure against its reference when set.
	Comparer *figtest.Comparer

	Logger *zap.Logger
}

// Result is the outcome of one case.
type Result struct {
	Case       string          `json:"case"`
	Hash       string          `json:"hash,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Comparison *figtest.Result `json:"comparison,omitempty"`
	Duration   time.Duration   `json:"duration"`
	Err        error           `json:"-"`
	Figure     *render.Figure  `json:"-"`
}

// Passed reports whether the case rendered, matched its expected warnings
// and its reference.
func (r Result) Passed() bool { return r.Err == nil }

// Run renders cases concurrently. Per-case failures are reported in the
// results; the returned error is only set when ctx is cancelled.
func Run(ctx context.Context, cases []Case, fx *Fixtures, opts Options) ([]Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(cases))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			results[i] = runCase(c, fx, opts, log)
			results[i].Duration = time.Since(start)
			if results[i].Err != nil {
				log.Warn("Figure case failed", zap.String("case", c.Name), zap.Error(results[i].Err))
			} else {
				log.Debug("Figure case passed", zap.String("case", c.Name), zap.Duration("duration", results[i].Duration))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("figure run interrupted: %w", err)
	}
	return results, nil
}

func runCase(c Case, fx *Fixtures, opts Options, log *zap.Logger) Result {
	res := Result{Case: c.Name}
	figOpts := append([]render.Option{render.WithLogger(log.With(zap.String("case", c.Name)))}, opts.Figure...)
	fig, err := c.Draw(fx, figOpts...)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", c.Name, err)
		return res
	}
	res.Figure = fig
	for _, w := range fig.Warnings() {
		res.Warnings = append(res.Warnings, w.String())
	}
	if err := checkWarnings(c, fig.Warnings()); err != nil {
		res.Err = err
		return res
	}

	res.Hash, err = figtest.CheckIdempotent(fig)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", c.Name, err)
		return res
	}
	if opts.Comparer != nil {
		cmp, err := opts.Comparer.Compare(c.Name, fig)
		res.Comparison = &cmp
		if err != nil {
			res.Err = err
		}
	}
	return res
}

func checkWarnings(c Case, warnings []render.Warning) error {
	if c.ExpectWarning == "" {
		if len(warnings) > 0 {
			return fmt.Errorf("%w: %s recorded %q", ErrWarning, c.Name, warnings[0].Message)
		}
		return nil
	}
	for _, w := range warnings {
		if w.Category == render.UserWarning && strings.Contains(w.Message, c.ExpectWarning) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s did not warn %q", ErrWarning, c.Name, c.ExpectWarning)
}

// Summary counts passed and failed results.
func Summary(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
