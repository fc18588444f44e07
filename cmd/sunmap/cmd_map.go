package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/colormap"
	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/render"
	"github.com/ironsheep/sunmap/internal/sunmap"
)

var (
	outputPath string

	// plot / peek
	clipInterval    []float64
	colormapName    string
	drawGrid        bool
	gridSpacing     float64
	drawLimb        bool
	nonWCSAxes      bool
	contourPercents []float64

	// superpixel
	superDims   []int
	superOffset []int
	reducerName string
)

var infoCmd = &cobra.Command{
	Use:   "info <file.fits>",
	Short: "Describe a FITS map",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var plotCmd = &cobra.Command{
	Use:   "plot <file.fits>",
	Short: "Plot a map to PNG",
	Long: `Plots the map on world-coordinate axes and writes the figure as PNG.

With --nowcs the map is drawn on plain pixel axes instead; this records a
UserWarning and overlays other than contours are unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlot,
}

var peekCmd = &cobra.Command{
	Use:   "peek <file.fits>",
	Short: "Write the quick-look figure of a map",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeek,
}

var superpixelCmd = &cobra.Command{
	Use:     "superpixel <file.fits>",
	Short:   "Bin a map into superpixels and write it as FITS",
	Example: `  sunmap superpixel aia.fits --dims 9,7 --offset 4,4 -o binned.fits.gz`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSuperpixel,
}

func init() {
	for _, c := range []*cobra.Command{plotCmd, peekCmd, superpixelCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "Output file")
		_ = c.MarkFlagRequired("output")
	}
	for _, c := range []*cobra.Command{plotCmd, peekCmd} {
		c.Flags().BoolVar(&drawGrid, "grid", false, "Overlay a heliographic grid")
		c.Flags().Float64Var(&gridSpacing, "grid-spacing", 0, "Grid spacing in degrees (default from config)")
		c.Flags().BoolVar(&drawLimb, "limb", false, "Draw the solar limb")
	}

	plotCmd.Flags().Float64SliceVar(&clipInterval, "clip", nil, "Percentile clip interval, e.g. 1,99.5")
	plotCmd.Flags().StringVar(&colormapName, "cmap", "", "Colormap name (default from the instrument)")
	plotCmd.Flags().BoolVar(&nonWCSAxes, "nowcs", false, "Plot on plain pixel axes")
	plotCmd.Flags().Float64SliceVar(&contourPercents, "contours", nil, "Contour levels as percent of the maximum")

	superpixelCmd.Flags().IntSliceVar(&superDims, "dims", nil, "Superpixel size x,y")
	superpixelCmd.Flags().IntSliceVar(&superOffset, "offset", []int{0, 0}, "Offset x,y in pixels")
	superpixelCmd.Flags().StringVar(&reducerName, "reducer", "sum", "Block reducer: sum, mean or median")
	_ = superpixelCmd.MarkFlagRequired("dims")
}

func loadMap(path string) (*sunmap.Map, error) {
	return sunmap.Load(path, sunmap.WithLogger(logger))
}

func figureOptions() []render.Option {
	return []render.Option{
		render.WithSize(cfg.Figure.Width, cfg.Figure.Height),
		render.WithLogger(logger),
	}
}

// gridSpacings resolves --grid-spacing against the configured default.
func gridSpacings() (lon, lat coords.Angle) {
	if gridSpacing > 0 {
		return coords.Deg(gridSpacing), coords.Deg(gridSpacing)
	}
	return coords.Deg(cfg.Grid.LonSpacing), coords.Deg(cfg.Grid.LatSpacing)
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := loadMap(args[0])
	if err != nil {
		return err
	}
	info, err := fitsfile.LoadInfo(fitsfile.NewCache(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	sx, sy := m.Scale()
	rx, ry := m.ReferencePixel()
	fmt.Fprintf(out, "Name:            %s\n", m.Name())
	fmt.Fprintf(out, "Dimensions:      %d x %d\n", m.Width(), m.Height())
	fmt.Fprintf(out, "Frame:           %s\n", m.CoordinateFrame().Name)
	if !m.Date().IsZero() {
		fmt.Fprintf(out, "Date:            %s\n", m.Date().UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Scale:           %v x %v\n", sx, sy)
	fmt.Fprintf(out, "Reference pixel: (%.2f, %.2f)\n", rx, ry)
	fmt.Fprintf(out, "Reference coord: %v\n", m.ReferenceCoordinate())
	fmt.Fprintf(out, "Data range:      %g .. %g\n", m.Min(), m.Max())
	fmt.Fprintf(out, "Header cards:    %d\n", info.Keywords)
	fmt.Fprintf(out, "File size:       %d bytes (compressed: %t)\n", info.FileSizeBytes, info.Compressed)
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	m, err := loadMap(args[0])
	if err != nil {
		return err
	}

	fig := render.NewFigure(figureOptions()...)
	var opts []sunmap.PlotOption
	if nonWCSAxes {
		opts = append(opts, sunmap.WithAxes(fig.Gca()))
	}
	if len(clipInterval) > 0 {
		if len(clipInterval) != 2 {
			return fmt.Errorf("--clip needs two percentiles, got %v", clipInterval)
		}
		opts = append(opts, sunmap.WithClipInterval(clipInterval[0], clipInterval[1]))
	}
	if colormapName != "" {
		cm, err := colormap.Get(colormapName)
		if err != nil {
			return err
		}
		opts = append(opts, sunmap.WithColormap(cm))
	}

	ax, err := m.Plot(fig, opts...)
	if err != nil {
		return err
	}
	if drawGrid || gridSpacing > 0 {
		if err := m.DrawGrid(ax, sunmap.GridSpacing(gridSpacings())); err != nil {
			return err
		}
	}
	if drawLimb {
		if err := m.DrawLimb(ax); err != nil {
			return err
		}
	}
	if len(contourPercents) > 0 {
		if err := m.DrawContours(ax, sunmap.Percent(contourPercents...)); err != nil {
			return err
		}
	}
	return saveFigure(cmd, fig)
}

func runPeek(cmd *cobra.Command, args []string) error {
	m, err := loadMap(args[0])
	if err != nil {
		return err
	}
	opts := []sunmap.PeekOption{sunmap.PeekFigure(figureOptions()...)}
	if drawGrid || gridSpacing > 0 {
		opts = append(opts, sunmap.PeekGridSpacing(gridSpacings()))
	}
	if drawLimb {
		opts = append(opts, sunmap.PeekLimb())
	}
	fig, err := m.Peek(opts...)
	if err != nil {
		return err
	}
	return saveFigure(cmd, fig)
}

func saveFigure(cmd *cobra.Command, fig *render.Figure) error {
	for _, w := range fig.Warnings() {
		fmt.Fprintln(cmd.ErrOrStderr(), w.String())
	}
	if err := fig.SavePNG(outputPath); err != nil {
		return err
	}
	hash, err := fig.Hash()
	if err != nil {
		return err
	}
	logger.Info("Figure written", zap.String("path", outputPath), zap.String("hash", hash))
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", hash, outputPath)
	return nil
}

func runSuperpixel(cmd *cobra.Command, args []string) error {
	if len(superDims) != 2 || len(superOffset) != 2 {
		return fmt.Errorf("--dims and --offset take two values x,y")
	}
	reduce, err := sunmap.ReducerByName(reducerName)
	if err != nil {
		return err
	}
	m, err := loadMap(args[0])
	if err != nil {
		return err
	}
	sp, err := m.Superpixel(superDims[0], superDims[1], superOffset[0], superOffset[1], reduce)
	if err != nil {
		return err
	}
	if err := fitsfile.Save(outputPath, sp.ToFile()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d x %d)\n", m.Name(), outputPath, sp.Width(), sp.Height())
	return nil
}
