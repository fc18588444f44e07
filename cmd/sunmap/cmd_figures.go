package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/figtest"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/gallery"
	"github.com/ironsheep/sunmap/internal/render"
)

var (
	updateFigures bool
	strictFigures bool
	listFigures   bool
	suitePath     string
	figureWorkers int
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures <dir>",
	Short: "Write the gallery test maps as FITS files",
	Long: `Generates the AIA 171 and heliographic test maps from the configured seed
and writes them to dir. Point fixtures.aia171 and fixtures.heliographic in the
configuration at the written files to run the figures against them.`,
	Args: cobra.ExactArgs(1),
	RunE: runFixtures,
}

var figuresCmd = &cobra.Command{
	Use:   "figures [case...]",
	Short: "Render the figure suite and compare it with the hash library",
	Long: `Renders every figure case (or the named ones, or those of a YAML suite)
concurrently, checks expected warnings and idempotency, and compares each
figure with the recorded hash. With --update the hashes and baseline images
are recorded instead.`,
	RunE: runFigures,
}

func init() {
	figuresCmd.Flags().BoolVar(&updateFigures, "update", false, "Record hashes and baselines instead of comparing")
	figuresCmd.Flags().BoolVar(&strictFigures, "strict", false, "Fail figures without a reference")
	figuresCmd.Flags().BoolVar(&listFigures, "list", false, "List the cases and exit")
	figuresCmd.Flags().StringVar(&suitePath, "suite", "", "YAML suite file (default from config)")
	figuresCmd.Flags().IntVarP(&figureWorkers, "workers", "w", 0, "Concurrent figures (default from config)")
}

func runFixtures(cmd *cobra.Command, args []string) error {
	fx, err := gallery.LoadFixtures(cfg.Fixtures, fitsfile.NewCache(), logger)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(args[0], 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	paths, err := gallery.WriteFixtures(args[0], fx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func selectCases(args []string) ([]gallery.Case, error) {
	path := suitePath
	if path == "" && len(args) == 0 {
		path = cfg.Figures.Suite
	}
	if path == "" {
		return gallery.Select(args)
	}
	suite, err := gallery.LoadSuite(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Suite loaded", zap.String("name", suite.Name), zap.Int("cases", len(suite.Cases)))
	return suite.Resolve()
}

func runFigures(cmd *cobra.Command, args []string) error {
	cases, err := selectCases(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if listFigures {
		for _, c := range cases {
			if c.ExpectWarning != "" {
				fmt.Fprintf(out, "%s (warns %q)\n", c.Name, c.ExpectWarning)
			} else {
				fmt.Fprintln(out, c.Name)
			}
		}
		return nil
	}

	fx, err := gallery.LoadFixtures(cfg.Fixtures, fitsfile.NewCache(), logger)
	if err != nil {
		return err
	}
	lib, err := figtest.LoadLibrary(cfg.Figures.HashLibrary)
	if err != nil {
		return err
	}
	comparer := figtest.NewComparer(lib, figtest.Options{
		BaselineDir: cfg.Figures.BaselineDir,
		ResultsDir:  cfg.Figures.ResultsDir,
		Tolerance:   cfg.Figures.Tolerance,
		Update:      updateFigures,
		Strict:      strictFigures || cfg.Figures.Strict,
	}, logger)

	workers := figureWorkers
	if workers <= 0 {
		workers = cfg.Figures.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, err := gallery.Run(ctx, cases, fx, gallery.Options{
		Workers:  workers,
		Figure:   []render.Option{render.WithSize(cfg.Figure.Width, cfg.Figure.Height)},
		Comparer: comparer,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tSTATUS\tHASH\tTIME")
	for _, r := range results {
		status := "error"
		if r.Comparison != nil {
			status = string(r.Comparison.Status)
		}
		if r.Err != nil && r.Comparison == nil {
			status = "error: " + r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Case, status, shortHash(r.Hash), r.Duration.Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if updateFigures {
		if err := lib.Save(); err != nil {
			return err
		}
		logger.Info("Hash library updated", zap.String("path", lib.Path()), zap.Int("figures", lib.Len()))
	}

	passed, failed := gallery.Summary(results)
	fmt.Fprintf(out, "%d passed, %d failed in %s\n", passed, failed, time.Since(start).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d of %d figures failed", failed, len(results))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
