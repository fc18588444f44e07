// Package coords models solar coordinate frames and the transformations
// between them.
//
// Three frames are supported: helioprojective (angles on the observer's sky),
// heliographic Stonyhurst (longitude zero facing Earth) and heliographic
// Carrington (longitude rotating with the Sun). Heliocentric cartesian is
// used internally as the pivot between them.
package coords

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// FrameName identifies a coordinate frame.
type FrameName string

const (
	Helioprojective        FrameName = "helioprojective"
	HeliographicStonyhurst FrameName = "heliographic_stonyhurst"
	HeliographicCarrington FrameName = "heliographic_carrington"
)

// Physical constants in metres.
const (
	RSun = 6.957e8
	AU   = 1.495978707e11
)

var (
	// ErrOffDisk is returned when a helioprojective line of sight does not
	// intersect the solar sphere.
	ErrOffDisk = errors.New("coords: coordinate is off the solar disk")

	// ErrFrameMismatch is returned when two coordinates must share a frame.
	ErrFrameMismatch = errors.New("coords: coordinates are in different frames")
)

// Observer is the position of the observer in heliographic Stonyhurst
// coordinates.
type Observer struct {
	Lon      Angle   // Stonyhurst longitude
	Lat      Angle   // Stonyhurst latitude (B0 angle)
	Distance float64 // metres from Sun centre
}

// EarthObserver returns an observer at 1 AU on the Sun-Earth line.
func EarthObserver() Observer {
	return Observer{Distance: AU}
}

// Frame describes a coordinate frame and the observation it belongs to.
type Frame struct {
	Name     FrameName
	Observer Observer
	ObsTime  time.Time

	// RSun is the solar radius used for surface intersections, in metres.
	RSun float64

	// CarringtonOffset is the Carrington longitude of Stonyhurst longitude
	// zero (L0 - HGLN_OBS), used to convert between the heliographic frames.
	CarringtonOffset Angle
}

// NewFrame returns a frame with an Earth observer and the standard radius.
func NewFrame(name FrameName) Frame {
	return Frame{Name: name, Observer: EarthObserver(), RSun: RSun}
}

// WithName returns a copy of f for another frame sharing the same observer.
func (f Frame) WithName(name FrameName) Frame {
	f.Name = name
	return f
}

// Heliographic reports whether the frame is Stonyhurst or Carrington.
func (f Frame) Heliographic() bool {
	return f.Name == HeliographicStonyhurst || f.Name == HeliographicCarrington
}

func (f Frame) radius() float64 {
	if f.RSun > 0 {
		return f.RSun
	}
	return RSun
}

func (f Frame) distance() float64 {
	if f.Observer.Distance > 0 {
		return f.Observer.Distance
	}
	return AU
}

// LimbAngle returns the angular radius of the solar disk seen by the
// frame's observer.
func (f Frame) LimbAngle() Angle {
	return Rad(math.Asin(f.radius() / f.distance()))
}

func (f Frame) String() string {
	return fmt.Sprintf("%s(observer=%.3g m, lon=%v, lat=%v)", f.Name, f.distance(), f.Observer.Lon, f.Observer.Lat)
}

// Coordinate is a position with two angular components in a frame. For
// helioprojective frames Lon and Lat are Tx and Ty.
type Coordinate struct {
	Lon   Angle
	Lat   Angle
	Frame Frame
}

// New returns a coordinate in frame.
func New(lon, lat Angle, frame Frame) Coordinate {
	return Coordinate{Lon: lon, Lat: lat, Frame: frame}
}

func (c Coordinate) String() string {
	if c.Frame.Name == Helioprojective {
		return fmt.Sprintf("<%s Tx=%.3f arcsec, Ty=%.3f arcsec>", c.Frame.Name, c.Lon.Arcseconds(), c.Lat.Arcseconds())
	}
	return fmt.Sprintf("<%s lon=%.3f deg, lat=%.3f deg>", c.Frame.Name, c.Lon.Degrees(), c.Lat.Degrees())
}

// Offset returns c moved by dlon and dlat along its spherical components.
func (c Coordinate) Offset(dlon, dlat Angle) Coordinate {
	c.Lon += dlon
	c.Lat += dlat
	return c
}

// Separation returns the great-circle distance between a and b, which must
// be in the same frame.
func Separation(a, b Coordinate) (Angle, error) {
	if a.Frame.Name != b.Frame.Name {
		return 0, ErrFrameMismatch
	}
	lat1, lat2 := a.Lat.Radians(), b.Lat.Radians()
	dlon := (b.Lon - a.Lon).Radians()
	// Vincenty formula, stable for small and antipodal separations.
	num := math.Hypot(math.Cos(lat2)*math.Sin(dlon),
		math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon))
	den := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return Rad(math.Atan2(num, den)), nil
}
