package sunmap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/sunmap/internal/meta"
)

// Reducer combines the unmasked values of one superpixel block. It is never
// called with an empty slice.
type Reducer func(values []float64) float64

// Sum adds the block values.
func Sum(values []float64) float64 { return floats.Sum(values) }

// Mean averages the block values.
func Mean(values []float64) float64 { return stat.Mean(values, nil) }

// Median returns the middle value, averaging the two middle values for even
// counts.
func Median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// ReducerByName maps "sum", "mean" and "median" to reducers.
func ReducerByName(name string) (Reducer, error) {
	switch name {
	case "", "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	}
	return nil, fmt.Errorf("unknown reducer %q", name)
}

// Superpixel bins the map into blocks of dimX x dimY pixels starting offX,
// offY pixels from the bottom-left corner. The new size is
// (width-offX)/dimX by (height-offY)/dimY; pixels that do not fill a whole
// block are dropped. reduce combines each block (Sum when nil). Masked
// inputs are left out of a block, and a block whose inputs are all masked
// is masked in the result.
//
// The pixel scale is multiplied by the block size and the reference pixel
// moved so that world coordinates of the binned pixels are preserved.
func (m *Map) Superpixel(dimX, dimY, offX, offY int, reduce Reducer) (*Map, error) {
	if dimX <= 0 || dimY <= 0 {
		return nil, fmt.Errorf("superpixel dimensions must be positive, got (%d, %d)", dimX, dimY)
	}
	if offX < 0 || offY < 0 {
		return nil, fmt.Errorf("superpixel offset must be non-negative, got (%d, %d)", offX, offY)
	}
	if offX >= m.width || offY >= m.height {
		return nil, fmt.Errorf("superpixel offset (%d, %d) outside %dx%d map", offX, offY, m.width, m.height)
	}
	nx, ny := (m.width-offX)/dimX, (m.height-offY)/dimY
	if nx == 0 || ny == 0 {
		return nil, fmt.Errorf("superpixel block (%d, %d) larger than the %dx%d map", dimX, dimY, m.width-offX, m.height-offY)
	}
	if reduce == nil {
		reduce = Sum
	}

	data := make([]float64, nx*ny)
	var mask []bool
	if m.mask != nil {
		mask = make([]bool, nx*ny)
	}
	block := make([]float64, 0, dimX*dimY)
	for by := 0; by < ny; by++ {
		for bx := 0; bx < nx; bx++ {
			block = block[:0]
			for y := offY + by*dimY; y < offY+(by+1)*dimY; y++ {
				for x := offX + bx*dimX; x < offX+(bx+1)*dimX; x++ {
					i := y*m.width + x
					if m.mask != nil && m.mask[i] {
						continue
					}
					block = append(block, m.data[i])
				}
			}
			o := by*nx + bx
			if len(block) == 0 {
				mask[o] = true
				data[o] = math.NaN()
				continue
			}
			data[o] = reduce(block)
		}
	}

	header := rebinMeta(m.meta, float64(dimX), float64(dimY), float64(offX), float64(offY))
	return m.derive(data, mask, nx, ny, header)
}

// rebinMeta scales the linear transform for pixels fx by fy times larger
// whose first pixel starts offX, offY original pixels in.
func rebinMeta(src meta.Meta, fx, fy, offX, offY float64) meta.Meta {
	m := src.Copy()
	scale := func(key string, f float64) {
		if v, ok := m.Float(key); ok {
			m.Set(key, v*f)
		}
	}
	scale("CDELT1", fx)
	scale("CD1_1", fx)
	scale("CD2_1", fx)
	scale("CDELT2", fy)
	scale("CD1_2", fy)
	scale("CD2_2", fy)
	scale("PC1_2", fy/fx)
	scale("PC2_1", fx/fy)

	crpix1 := m.FloatOr("CRPIX1", 0)
	crpix2 := m.FloatOr("CRPIX2", 0)
	m.Set("CRPIX1", (crpix1-0.5-offX)/fx+0.5)
	m.Set("CRPIX2", (crpix2-0.5-offY)/fy+0.5)
	return m
}
