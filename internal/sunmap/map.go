// Package sunmap pairs solar image data with its world coordinate system.
//
// A Map holds a 2D array of float64 pixel values in FITS order (row 0 is the
// bottom row, x varies fastest), an optional boolean mask of the same shape
// and the header metadata the WCS is derived from. Maps are immutable:
// accessors return copies and every operation that changes data or
// metadata (masking, superpixel binning, cropping, resampling) returns a new
// Map.
//
// Rendering lives alongside: Plot draws a map onto render axes, Peek builds
// a complete figure, and DrawGrid, DrawLimb, DrawRectangle and DrawContours
// add overlays positioned through the map's WCS.
package sunmap

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/meta"
	"github.com/ironsheep/sunmap/internal/wcs"
)

var (
	// ErrMaskShape is returned when a mask does not have the data's shape.
	ErrMaskShape = errors.New("sunmap: mask shape does not match data shape")

	// ErrDataShape is returned when the data length is not width x height.
	ErrDataShape = errors.New("sunmap: data length does not match dimensions")

	// ErrOutsideProjection is returned for pixels or coordinates the
	// projection cannot represent.
	ErrOutsideProjection = errors.New("sunmap: position outside the projection")
)

// Mask is a row-major boolean array; true marks an invalid pixel.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask returns an all-false mask.
func NewMask(width, height int) Mask {
	return Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// Set marks or clears pixel (x, y).
func (k Mask) Set(x, y int, masked bool) {
	k.Bits[y*k.Width+x] = masked
}

// Map is an immutable solar image with coordinates.
type Map struct {
	width, height int
	data          []float64
	mask          []bool // nil when the map has no mask

	meta meta.Meta
	wcs  *wcs.WCS
	log  *zap.Logger
}

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger used for metadata and plotting warnings.
func WithLogger(l *zap.Logger) Option {
	return func(m *Map) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates a map from row-major data in FITS order and header metadata.
// Absent observer metadata is replaced by an Earth-based observer and
// reported as a warning.
func New(data []float64, width, height int, header meta.Meta, opts ...Option) (*Map, error) {
	return newMap(data, nil, width, height, header, opts)
}

// NewMasked creates a map whose mask must have the same shape as the data.
func NewMasked(data []float64, width, height int, mask Mask, header meta.Meta, opts ...Option) (*Map, error) {
	if mask.Width != width || mask.Height != height || len(mask.Bits) != width*height {
		return nil, fmt.Errorf("%w: mask %dx%d, data %dx%d", ErrMaskShape, mask.Width, mask.Height, width, height)
	}
	return newMap(data, mask.Bits, width, height, header, opts)
}

func newMap(data []float64, mask []bool, width, height int, header meta.Meta, opts []Option) (*Map, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrDataShape, len(data), width, height)
	}
	m := &Map{
		width:  width,
		height: height,
		data:   append([]float64(nil), data...),
		meta:   header.Copy(),
		log:    zap.NewNop(),
	}
	if mask != nil {
		m.mask = append([]bool(nil), mask...)
	}
	for _, opt := range opts {
		opt(m)
	}
	m.meta.Set("NAXIS1", width)
	m.meta.Set("NAXIS2", height)

	w, err := wcs.FromMeta(m.meta)
	if err != nil {
		return nil, fmt.Errorf("failed to build WCS: %w", err)
	}
	m.wcs = w
	if len(w.Missing) > 0 {
		m.log.Warn("Missing metadata for observer: assuming Earth-based observer",
			zap.Strings("keys", w.Missing))
	}
	return m, nil
}

// derive builds a map sharing m's logger, skipping the copies New makes.
func (m *Map) derive(data []float64, mask []bool, width, height int, header meta.Meta) (*Map, error) {
	d := &Map{width: width, height: height, data: data, mask: mask, meta: header, log: m.log}
	d.meta.Set("NAXIS1", width)
	d.meta.Set("NAXIS2", height)
	w, err := wcs.FromMeta(d.meta)
	if err != nil {
		return nil, fmt.Errorf("failed to build WCS: %w", err)
	}
	d.wcs = w
	return d, nil
}

// FromFile creates a map from a parsed FITS file.
func FromFile(f *fitsfile.File, opts ...Option) (*Map, error) {
	return New(f.Data, f.Width, f.Height, f.Header, opts...)
}

// Load reads a map from a FITS file, gzip-compressed or not.
func Load(path string, opts ...Option) (*Map, error) {
	f, err := fitsfile.Open(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f, opts...)
}

// LoadCached reads a map through cache so repeated loads parse once.
func LoadCached(cache *fitsfile.Cache, path string, opts ...Option) (*Map, error) {
	f, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return FromFile(f, opts...)
}

// ToFile converts the map to a FITS file. Masked pixels are written as NaN.
func (m *Map) ToFile() *fitsfile.File {
	data := m.Data()
	for i := range data {
		if m.mask != nil && m.mask[i] {
			data[i] = math.NaN()
		}
	}
	return &fitsfile.File{Header: m.Meta(), Width: m.width, Height: m.height, Data: data}
}

// Width returns the number of columns.
func (m *Map) Width() int { return m.width }

// Height returns the number of rows.
func (m *Map) Height() int { return m.height }

// Dimensions returns width and height.
func (m *Map) Dimensions() (width, height int) { return m.width, m.height }

// At returns the value of pixel (x, y); row 0 is the bottom row.
func (m *Map) At(x, y int) float64 { return m.data[y*m.width+x] }

// Masked reports whether pixel (x, y) is masked.
func (m *Map) Masked(x, y int) bool {
	return m.mask != nil && m.mask[y*m.width+x]
}

// HasMask reports whether the map carries a mask.
func (m *Map) HasMask() bool { return m.mask != nil }

// Data returns a copy of the pixel values.
func (m *Map) Data() []float64 { return append([]float64(nil), m.data...) }

// Mask returns a copy of the mask, all false when the map has none.
func (m *Map) Mask() Mask {
	if m.mask == nil {
		return NewMask(m.width, m.height)
	}
	return Mask{Width: m.width, Height: m.height, Bits: append([]bool(nil), m.mask...)}
}

// WithMask returns a copy of m carrying mask.
func (m *Map) WithMask(mask Mask) (*Map, error) {
	return NewMasked(m.data, m.width, m.height, mask, m.meta, WithLogger(m.log))
}

// Meta returns a copy of the header metadata.
func (m *Map) Meta() meta.Meta { return m.meta.Copy() }

// WCS returns the map's world coordinate system.
func (m *Map) WCS() *wcs.WCS { return m.wcs }

// Logger returns the map's logger.
func (m *Map) Logger() *zap.Logger { return m.log }

// CoordinateFrame returns the frame of the map's world coordinates.
func (m *Map) CoordinateFrame() coords.Frame { return m.wcs.Frame }

// Name is the display name, for example "AIA 171.0 Angstrom 2011-02-15 00:00:00".
func (m *Map) Name() string { return m.meta.Name() }

// Date returns the observation time, zero when unknown.
func (m *Map) Date() time.Time { return m.wcs.Frame.ObsTime }

// Wavelength returns the observed wavelength and its unit.
func (m *Map) Wavelength() (value float64, unit string, ok bool) { return m.meta.Wavelength() }

// Scale returns the pixel size along each axis.
func (m *Map) Scale() (x, y coords.Angle) {
	return coords.Deg(m.wcs.CDelt[0]), coords.Deg(m.wcs.CDelt[1])
}

// ReferencePixel returns the 0-based reference pixel.
func (m *Map) ReferencePixel() (x, y float64) {
	return m.wcs.CRPix[0] - 1, m.wcs.CRPix[1] - 1
}

// ReferenceCoordinate returns the world coordinate of the reference pixel.
func (m *Map) ReferenceCoordinate() coords.Coordinate {
	return coords.New(coords.Deg(m.wcs.CRVal[0]), coords.Deg(m.wcs.CRVal[1]), m.wcs.Frame)
}

// RSunObs returns the angular radius of the solar disk seen by the observer.
func (m *Map) RSunObs() coords.Angle {
	if v, ok := m.meta.Float("RSUN_OBS"); ok && v > 0 {
		return coords.Arcsec(v)
	}
	return m.wcs.Frame.LimbAngle()
}

// validValues returns the finite, unmasked pixel values.
func (m *Map) validValues() []float64 {
	out := make([]float64, 0, len(m.data))
	for i, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) || (m.mask != nil && m.mask[i]) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Min returns the smallest finite unmasked value, NaN if there is none.
func (m *Map) Min() float64 {
	v := m.validValues()
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

// Max returns the largest finite unmasked value, NaN if there is none.
func (m *Map) Max() float64 {
	v := m.validValues()
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

// PixelToWorld returns the world coordinate of 0-based pixel (x, y).
func (m *Map) PixelToWorld(x, y float64) (coords.Coordinate, error) {
	lon, lat, ok := m.wcs.PixelToWorld(x, y)
	if !ok {
		return coords.Coordinate{}, fmt.Errorf("%w: pixel (%g, %g)", ErrOutsideProjection, x, y)
	}
	return coords.New(coords.Deg(lon), coords.Deg(lat), m.wcs.Frame), nil
}

// WorldToPixel returns the 0-based pixel position of c, transforming it
// into the map's frame first when needed.
func (m *Map) WorldToPixel(c coords.Coordinate) (x, y float64, err error) {
	c, err = m.toMapFrame(c)
	if err != nil {
		return 0, 0, err
	}
	x, y, ok := m.wcs.WorldToPixel(c.Lon.Degrees(), c.Lat.Degrees())
	if !ok {
		return 0, 0, fmt.Errorf("%w: %v", ErrOutsideProjection, c)
	}
	return x, y, nil
}

func (m *Map) toMapFrame(c coords.Coordinate) (coords.Coordinate, error) {
	f := m.wcs.Frame
	if c.Frame.Name == f.Name && c.Frame.Observer == f.Observer {
		return c, nil
	}
	return c.Transform(f)
}

func (m *Map) String() string {
	x, y := m.Scale()
	return fmt.Sprintf("%s [%dx%d, %s, scale %.3f x %.3f arcsec/pix]",
		m.Name(), m.width, m.height, m.wcs.Frame.Name, x.Arcseconds(), y.Arcseconds())
}
