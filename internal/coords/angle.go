package coords

import (
	"fmt"
	"math"
)

// Angle is an angular quantity stored in degrees.
type Angle float64

const (
	arcsecPerDegree = 3600.0
	degPerRad       = 180.0 / math.Pi
)

// Deg returns an Angle of d degrees.
func Deg(d float64) Angle { return Angle(d) }

// Arcsec returns an Angle of a arcseconds.
func Arcsec(a float64) Angle { return Angle(a / arcsecPerDegree) }

// Rad returns an Angle of r radians.
func Rad(r float64) Angle { return Angle(r * degPerRad) }

// Degrees returns the angle in degrees.
func (a Angle) Degrees() float64 { return float64(a) }

// Arcseconds returns the angle in arcseconds.
func (a Angle) Arcseconds() float64 { return float64(a) * arcsecPerDegree }

// Radians returns the angle in radians.
func (a Angle) Radians() float64 { return float64(a) / degPerRad }

func (a Angle) String() string {
	return fmt.Sprintf("%gdeg", float64(a))
}

// Wrap returns the angle wrapped into [lo, lo+360).
func (a Angle) Wrap(lo float64) Angle {
	d := math.Mod(float64(a)-lo, 360)
	if d < 0 {
		d += 360
	}
	return Angle(d + lo)
}
