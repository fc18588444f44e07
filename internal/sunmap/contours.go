package sunmap

import (
	"errors"
	"math"
	"sort"

	"github.com/fogleman/contourmap"
)

// ContourLine is one contour at Level in 0-based pixel coordinates. NaN
// entries separate pieces interrupted by masked pixels or the image edge.
type ContourLine struct {
	Level float64
	X, Y  []float64
}

func (m *Map) levelValues(levels Levels) []float64 {
	out := make([]float64, len(levels.Values))
	scale := 1.0
	if levels.Percent {
		scale = m.Max() / 100
	}
	for i, v := range levels.Values {
		out[i] = v * scale
	}
	return out
}

// Contours traces the data at each level with marching squares. Masked and
// NaN pixels do not contribute: lines stop where they reach them.
func (m *Map) Contours(levels Levels) ([]ContourLine, error) {
	if len(levels.Values) == 0 {
		return nil, errors.New("contours: no levels given")
	}
	lo := m.Min()
	if math.IsNaN(lo) {
		return nil, errors.New("contours: map has no valid pixels")
	}

	grid := make([]float64, len(m.data))
	bad := make([]bool, len(m.data))
	for i, v := range m.data {
		if math.IsNaN(v) || math.IsInf(v, 0) || (m.mask != nil && m.mask[i]) {
			grid[i], bad[i] = lo, true
			continue
		}
		grid[i] = v
	}
	cm := contourmap.FromFloat64s(m.width, m.height, grid).Closed()

	maxX, maxY := float64(m.width-1), float64(m.height-1)
	blocked := func(x, y float64) bool {
		if x < 0 || y < 0 || x > maxX || y > maxY {
			return true
		}
		for _, px := range [2]int{int(math.Floor(x)), int(math.Ceil(x))} {
			for _, py := range [2]int{int(math.Floor(y)), int(math.Ceil(y))} {
				if bad[py*m.width+px] {
					return true
				}
			}
		}
		return false
	}

	var lines []ContourLine
	for _, z := range m.levelValues(levels) {
		for _, c := range canonicalContours(cm.Contours(z)) {
			line := ContourLine{Level: z, X: make([]float64, 0, len(c)), Y: make([]float64, 0, len(c))}
			visible := 0
			for _, p := range c {
				x, y := p.X-1, p.Y-1
				if blocked(x, y) {
					x, y = math.NaN(), math.NaN()
				} else {
					visible++
				}
				line.X = append(line.X, x)
				line.Y = append(line.Y, y)
			}
			if visible > 1 {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

// canonicalContours puts contours in an order that does not depend on map
// iteration inside contourmap: closed rings start at their smallest point and
// the rings are sorted by length, then point by point.
func canonicalContours(cs []contourmap.Contour) []contourmap.Contour {
	out := make([]contourmap.Contour, len(cs))
	for i, c := range cs {
		out[i] = rotateRing(c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if c := comparePoints(a[k], b[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out
}

// rotateRing returns a closed contour (first point repeated at the end)
// starting at its smallest point. Open contours are returned unchanged.
func rotateRing(c contourmap.Contour) contourmap.Contour {
	n := len(c) - 1
	if n < 2 || c[0] != c[n] {
		return c
	}
	ring := c[:n]
	best := 0
	for i := 1; i < n; i++ {
		if compareRotations(ring, i, best) < 0 {
			best = i
		}
	}
	out := make(contourmap.Contour, 0, len(c))
	out = append(out, ring[best:]...)
	out = append(out, ring[:best]...)
	return append(out, ring[best])
}

func compareRotations(ring contourmap.Contour, i, j int) int {
	n := len(ring)
	for k := 0; k < n; k++ {
		if c := comparePoints(ring[(i+k)%n], ring[(j+k)%n]); c != 0 {
			return c
		}
	}
	return 0
}

func comparePoints(a, b contourmap.Point) int {
	switch {
	case a.X < b.X:
		return -1
	case a.X > b.X:
		return 1
	case a.Y < b.Y:
		return -1
	case a.Y > b.Y:
		return 1
	}
	return 0
}
