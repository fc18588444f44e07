package sunmap

import (
	"fmt"
	"math"

	"github.com/ironsheep/sunmap/internal/coords"
)

// SubmapPixels crops the map to the pixel region [x0, x1) x [y0, y1). The
// reference pixel moves with the crop so world coordinates are unchanged.
func (m *Map) SubmapPixels(x0, y0, x1, y1 int) (*Map, error) {
	if x0 < 0 || y0 < 0 || x1 > m.width || y1 > m.height {
		return nil, fmt.Errorf("submap region (%d,%d)-(%d,%d) outside map bounds (0,0)-(%d,%d)",
			x0, y0, x1, y1, m.width, m.height)
	}
	if x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("invalid submap region: x0 must be < x1, y0 must be < y1")
	}

	w, h := x1-x0, y1-y0
	data := make([]float64, 0, w*h)
	var mask []bool
	if m.mask != nil {
		mask = make([]bool, 0, w*h)
	}
	for y := y0; y < y1; y++ {
		row := y * m.width
		data = append(data, m.data[row+x0:row+x1]...)
		if mask != nil {
			mask = append(mask, m.mask[row+x0:row+x1]...)
		}
	}

	header := m.meta.Copy()
	header.Set("CRPIX1", header.FloatOr("CRPIX1", 0)-float64(x0))
	header.Set("CRPIX2", header.FloatOr("CRPIX2", 0)-float64(y0))
	return m.derive(data, mask, w, h, header)
}

// Submap crops the map to the smallest pixel region containing the world
// rectangle spanned by bottomLeft and topRight. Pixels whose centres fall
// inside the rectangle are kept; the region is clipped to the map.
func (m *Map) Submap(bottomLeft, topRight coords.Coordinate) (*Map, error) {
	rect, err := coords.RectangleFromCorners(bottomLeft, topRight)
	if err != nil {
		return nil, err
	}
	xmin, ymin := math.Inf(1), math.Inf(1)
	xmax, ymax := math.Inf(-1), math.Inf(-1)
	for _, c := range rect.Outline(4) {
		x, y, err := m.WorldToPixel(c)
		if err != nil {
			return nil, fmt.Errorf("submap corner: %w", err)
		}
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}
	x0 := clampInt(int(math.Floor(xmin+0.5)), 0, m.width)
	y0 := clampInt(int(math.Floor(ymin+0.5)), 0, m.height)
	x1 := clampInt(int(math.Ceil(xmax+0.5)), 0, m.width)
	y1 := clampInt(int(math.Ceil(ymax+0.5)), 0, m.height)
	return m.SubmapPixels(x0, y0, x1, y1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Interpolation selects how Resample samples the input.
type Interpolation int

const (
	Nearest Interpolation = iota
	Bilinear
)

// Resample returns the map resampled onto width x height pixels covering
// the same field of view.
func (m *Map) Resample(width, height int, method Interpolation) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("resample dimensions must be positive, got %dx%d", width, height)
	}
	fx := float64(m.width) / float64(width)
	fy := float64(m.height) / float64(height)

	data := make([]float64, width*height)
	var mask []bool
	if m.mask != nil {
		mask = make([]bool, width*height)
	}
	for y := 0; y < height; y++ {
		sy := (float64(y)+0.5)*fy - 0.5
		for x := 0; x < width; x++ {
			sx := (float64(x)+0.5)*fx - 0.5
			o := y*width + x
			nx := clampInt(int(math.Round(sx)), 0, m.width-1)
			ny := clampInt(int(math.Round(sy)), 0, m.height-1)
			if mask != nil {
				mask[o] = m.mask[ny*m.width+nx]
			}
			if method == Bilinear {
				data[o] = m.bilinear(sx, sy)
			} else {
				data[o] = m.data[ny*m.width+nx]
			}
		}
	}

	header := rebinMeta(m.meta, fx, fy, 0, 0)
	return m.derive(data, mask, width, height, header)
}

func (m *Map) bilinear(x, y float64) float64 {
	x = math.Max(0, math.Min(float64(m.width-1), x))
	y = math.Max(0, math.Min(float64(m.height-1), y))
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := clampInt(x0+1, 0, m.width-1), clampInt(y0+1, 0, m.height-1)
	tx, ty := x-float64(x0), y-float64(y0)
	at := func(px, py int) float64 { return m.data[py*m.width+px] }
	top := at(x0, y0)*(1-tx) + at(x1, y0)*tx
	bottom := at(x0, y1)*(1-tx) + at(x1, y1)*tx
	return top*(1-ty) + bottom*ty
}
