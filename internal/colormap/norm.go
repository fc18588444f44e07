package colormap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sunmap/internal/meta"
)

// ErrNoValidData is returned when every pixel is NaN or masked.
var ErrNoValidData = errors.New("colormap: no valid pixels")

// Stretch maps normalised values in [0, 1] onto [0, 1].
type Stretch interface {
	Apply(x float64) float64
	Invert(y float64) float64
	String() string
}

// LinearStretch is the identity stretch.
type LinearStretch struct{}

func (LinearStretch) Apply(x float64) float64  { return x }
func (LinearStretch) Invert(y float64) float64 { return y }
func (LinearStretch) String() string           { return "linear" }

// AsinhStretch is y = asinh(x/a) / asinh(1/a); small a compresses bright
// values strongly.
type AsinhStretch struct{ A float64 }

func (s AsinhStretch) Apply(x float64) float64 {
	return math.Asinh(x/s.A) / math.Asinh(1/s.A)
}

func (s AsinhStretch) Invert(y float64) float64 {
	return math.Sinh(y*math.Asinh(1/s.A)) * s.A
}

func (s AsinhStretch) String() string { return fmt.Sprintf("asinh(%g)", s.A) }

// Norm maps data values onto [0, 1] for colormap lookup. Values outside
// [VMin, VMax] are not clipped; the colormap clamps them to its ends.
type Norm struct {
	VMin, VMax float64
	Stretch    Stretch
}

// NewNorm returns a norm over [vmin, vmax]. A nil stretch is linear.
func NewNorm(vmin, vmax float64, s Stretch) Norm {
	if s == nil {
		s = LinearStretch{}
	}
	return Norm{VMin: vmin, VMax: vmax, Stretch: s}
}

// Scale returns the normalised, stretched value of v. NaN stays NaN.
func (n Norm) Scale(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if n.VMax == n.VMin {
		return 0
	}
	s := n.Stretch
	if s == nil {
		s = LinearStretch{}
	}
	return s.Apply((v - n.VMin) / (n.VMax - n.VMin))
}

// Value is the inverse of Scale: the data value displayed at t.
func (n Norm) Value(t float64) float64 {
	s := n.Stretch
	if s == nil {
		s = LinearStretch{}
	}
	return n.VMin + s.Invert(t)*(n.VMax-n.VMin)
}

// StretchFor returns the default stretch for an instrument: asinh(0.01) for
// AIA, linear otherwise.
func StretchFor(m meta.Meta) Stretch {
	if m.Instrument() == "AIA" {
		return AsinhStretch{A: 0.01}
	}
	return LinearStretch{}
}

// valid returns the finite, unmasked values of data.
func valid(data []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(data))
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) || (mask != nil && mask[i]) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// DataRange returns the minimum and maximum finite, unmasked values.
func DataRange(data []float64, mask []bool) (vmin, vmax float64, err error) {
	v := valid(data, mask)
	if len(v) == 0 {
		return 0, 0, ErrNoValidData
	}
	return floats.Min(v), floats.Max(v), nil
}

// PercentileInterval returns the values at the lo and hi percentiles
// (0-100) of the finite, unmasked data, using linearly interpolated
// quantiles.
func PercentileInterval(data []float64, mask []bool, lo, hi float64) (vmin, vmax float64, err error) {
	if lo < 0 || hi > 100 || lo >= hi {
		return 0, 0, fmt.Errorf("invalid percentile interval [%g, %g]", lo, hi)
	}
	v := valid(data, mask)
	if len(v) == 0 {
		return 0, 0, ErrNoValidData
	}
	sort.Float64s(v)
	return stat.Quantile(lo/100, stat.LinInterp, v, nil),
		stat.Quantile(hi/100, stat.LinInterp, v, nil), nil
}
