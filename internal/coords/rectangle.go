package coords

import (
	"errors"
	"fmt"
)

// ErrRectangleArgs is returned for rectangles that are empty or specified
// with conflicting arguments.
var ErrRectangleArgs = errors.New("coords: invalid rectangle specification")

// Rectangle is a region bounded by lines of constant longitude and latitude,
// stored canonically as its bottom-left and top-right corners in one frame.
type Rectangle struct {
	BottomLeft Coordinate
	TopRight   Coordinate
}

// RectangleFromSize builds the rectangle that starts at bottomLeft and spans
// width in longitude and height in latitude. Negative sizes extend towards
// smaller angles; the result is reordered so BottomLeft holds the minima.
func RectangleFromSize(bottomLeft Coordinate, width, height Angle) (Rectangle, error) {
	if width == 0 || height == 0 {
		return Rectangle{}, fmt.Errorf("%w: width and height must be non-zero", ErrRectangleArgs)
	}
	return canonical(bottomLeft, bottomLeft.Offset(width, height)), nil
}

// RectangleFromCorners builds the rectangle spanned by two opposite
// corners. topRight is transformed into the frame of bottomLeft when needed.
func RectangleFromCorners(bottomLeft, topRight Coordinate) (Rectangle, error) {
	if topRight.Frame.Name != bottomLeft.Frame.Name || topRight.Frame.Observer != bottomLeft.Frame.Observer {
		tr, err := topRight.Transform(bottomLeft.Frame)
		if err != nil {
			return Rectangle{}, fmt.Errorf("failed to transform top right corner: %w", err)
		}
		topRight = tr
	}
	if topRight.Lon == bottomLeft.Lon || topRight.Lat == bottomLeft.Lat {
		return Rectangle{}, fmt.Errorf("%w: corners span an empty region", ErrRectangleArgs)
	}
	return canonical(bottomLeft, topRight), nil
}

func canonical(a, b Coordinate) Rectangle {
	bl, tr := a, a
	bl.Lon, tr.Lon = minMax(a.Lon, b.Lon)
	bl.Lat, tr.Lat = minMax(a.Lat, b.Lat)
	return Rectangle{BottomLeft: bl, TopRight: tr}
}

func minMax(a, b Angle) (Angle, Angle) {
	if a <= b {
		return a, b
	}
	return b, a
}

// Frame returns the frame the rectangle is expressed in.
func (r Rectangle) Frame() Frame { return r.BottomLeft.Frame }

// Width returns the longitude extent.
func (r Rectangle) Width() Angle { return r.TopRight.Lon - r.BottomLeft.Lon }

// Height returns the latitude extent.
func (r Rectangle) Height() Angle { return r.TopRight.Lat - r.BottomLeft.Lat }

// Outline returns the closed boundary walked anticlockwise from the
// bottom-left corner, with each edge sampled at n+1 points so it follows
// lines of constant longitude and latitude.
func (r Rectangle) Outline(n int) []Coordinate {
	if n < 1 {
		n = 1
	}
	bl, w, h := r.BottomLeft, r.Width(), r.Height()
	pts := make([]Coordinate, 0, 4*n+1)
	edge := func(lon0, lat0, dlon, dlat Angle) {
		for i := 0; i < n; i++ {
			f := Angle(float64(i) / float64(n))
			pts = append(pts, Coordinate{Lon: lon0 + dlon*f, Lat: lat0 + dlat*f, Frame: bl.Frame})
		}
	}
	edge(bl.Lon, bl.Lat, w, 0)
	edge(bl.Lon+w, bl.Lat, 0, h)
	edge(bl.Lon+w, bl.Lat+h, -w, 0)
	edge(bl.Lon, bl.Lat+h, 0, -h)
	return append(pts, bl)
}
