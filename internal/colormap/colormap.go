// Package colormap turns scalar image data into colours.
//
// A Colormap is a 256-entry lookup table built either from colour stops
// (interpolated with go-colorful) or from per-channel curves, the way the
// SDO/AIA tables are defined. A Norm maps data values to [0, 1] through an
// optional stretch before the lookup. Bad pixels (NaN or masked) map to the
// colormap's Bad colour, transparent by default.
//
// # Coordinate System
//
// Colorize keeps the data row order: row 0 of the image is row 0 of the
// data. Callers displaying FITS data (row 0 at the bottom) flip vertically.
package colormap

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/sunmap/internal/meta"
)

// N is the number of entries in every lookup table.
const N = 256

// Colormap is a named lookup table.
type Colormap struct {
	Name string
	Bad  color.RGBA
	lut  [N]color.RGBA
}

// Stop is a colour at a position in [0, 1].
type Stop struct {
	Pos   float64
	Color string // hex or named colour accepted by ParseColor
}

// FromStops builds a colormap interpolating linearly in RGB between stops.
// Stops must be sorted by position and cover 0 and 1.
func FromStops(name string, stops ...Stop) (*Colormap, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("colormap %s: need at least two stops", name)
	}
	if stops[0].Pos != 0 || stops[len(stops)-1].Pos != 1 {
		return nil, fmt.Errorf("colormap %s: stops must span [0, 1]", name)
	}
	cols := make([]colorful.Color, len(stops))
	for i, s := range stops {
		if i > 0 && s.Pos < stops[i-1].Pos {
			return nil, fmt.Errorf("colormap %s: stops out of order", name)
		}
		c, err := ParseColor(s.Color)
		if err != nil {
			return nil, fmt.Errorf("colormap %s: %w", name, err)
		}
		cols[i], _ = colorful.MakeColor(c)
	}

	cm := &Colormap{Name: name}
	j := 0
	for i := 0; i < N; i++ {
		t := float64(i) / (N - 1)
		for j < len(stops)-2 && t > stops[j+1].Pos {
			j++
		}
		span := stops[j+1].Pos - stops[j].Pos
		f := 0.0
		if span > 0 {
			f = (t - stops[j].Pos) / span
		}
		cm.lut[i] = toRGBA(cols[j].BlendRgb(cols[j+1], f))
	}
	return cm, nil
}

// FromChannels builds a colormap from per-channel curves evaluated at the
// table index 0..255 and returning intensities in 0..255.
func FromChannels(name string, r, g, b func(i int) float64) *Colormap {
	cm := &Colormap{Name: name}
	for i := 0; i < N; i++ {
		c := colorful.Color{R: clamp01(r(i) / 255), G: clamp01(g(i) / 255), B: clamp01(b(i) / 255)}
		cm.lut[i] = toRGBA(c)
	}
	return cm
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// At returns the colour for t in [0, 1]; values outside are clamped to the
// ends and NaN gives the bad colour.
func (cm *Colormap) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		return cm.Bad
	}
	i := int(clamp01(t) * N)
	if i >= N {
		i = N - 1
	}
	return cm.lut[i]
}

// Colorize maps a row-major width x height array through norm and the
// colormap. mask may be nil; masked pixels get the bad colour.
func (cm *Colormap) Colorize(data []float64, mask []bool, width, height int, norm Norm) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			c := cm.Bad
			if mask == nil || !mask[i] {
				c = cm.At(norm.Scale(data[i]))
			}
			img.SetNRGBA(x, y, color.NRGBA(c))
		}
	}
	return img
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var registry = map[string]*Colormap{}

// Register adds cm to the set returned by Get, replacing any colormap with
// the same name.
func Register(cm *Colormap) {
	registry[strings.ToLower(cm.Name)] = cm
}

// Get returns the named colormap.
func Get(name string) (*Colormap, error) {
	cm, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q", name)
	}
	return cm, nil
}

// Names lists the registered colormaps in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForInstrument returns the default colormap for the instrument described by
// m: the SDO/AIA table for the wavelength, hmimag for HMI magnetograms,
// rhessi for RHESSI and gray otherwise.
func ForInstrument(m meta.Meta) *Colormap {
	name := "gray"
	switch m.Instrument() {
	case "AIA":
		if w, _, ok := m.Wavelength(); ok {
			name = fmt.Sprintf("sdoaia%d", int(math.Round(w)))
		}
	case "HMI":
		if strings.Contains(strings.ToLower(m.StringOr("CONTENT", "")), "magnetogram") {
			name = "hmimag"
		}
	case "RHESSI":
		name = "rhessi"
	}
	if cm, err := Get(name); err == nil {
		return cm
	}
	return registry["gray"]
}
