package coords

import (
	"fmt"
	"math"
)

// cartesian is a heliocentric cartesian position in metres: z points from
// Sun centre to the observer, y towards solar north in the plane of sky.
type cartesian struct{ x, y, z float64 }

// Transform converts c into the frame to. Helioprojective coordinates are
// mapped onto the solar surface (radius Frame.RSun) when leaving the
// helioprojective frame, which fails with ErrOffDisk for lines of sight
// that miss the Sun.
func (c Coordinate) Transform(to Frame) (Coordinate, error) {
	from := c.Frame
	if from.Name == to.Name && from.Observer == to.Observer {
		c.Frame = to
		return c, nil
	}

	var hcc cartesian
	switch from.Name {
	case Helioprojective:
		var err error
		hcc, err = hpcToHCC(c.Lon, c.Lat, from)
		if err != nil {
			return Coordinate{}, err
		}
	case HeliographicStonyhurst:
		hcc = hgsToHCC(c.Lon, c.Lat, from.radius(), to.Observer)
	case HeliographicCarrington:
		hcc = hgsToHCC(c.Lon-from.CarringtonOffset, c.Lat, from.radius(), to.Observer)
	default:
		return Coordinate{}, fmt.Errorf("coords: unknown frame %q", from.Name)
	}

	// hcc is relative to the observer of from for helioprojective input and
	// relative to the observer of to otherwise; re-base when they differ.
	if from.Name == Helioprojective && from.Observer != to.Observer {
		lon, lat, r := hccToHGS(hcc, from.Observer)
		hcc = hgsToHCC(lon, lat, r, to.Observer)
	}

	out := Coordinate{Frame: to}
	switch to.Name {
	case Helioprojective:
		out.Lon, out.Lat = hccToHPC(hcc, to)
	case HeliographicStonyhurst:
		out.Lon, out.Lat, _ = hccToHGS(hcc, to.Observer)
		out.Lon = out.Lon.Wrap(-180)
	case HeliographicCarrington:
		lon, lat, _ := hccToHGS(hcc, to.Observer)
		out.Lon = (lon + to.CarringtonOffset).Wrap(0)
		out.Lat = lat
	default:
		return Coordinate{}, fmt.Errorf("coords: unknown frame %q", to.Name)
	}
	return out, nil
}

// Visible reports whether a heliographic coordinate lies on the hemisphere
// facing observer. Helioprojective coordinates are always visible.
func Visible(c Coordinate, observer Observer) bool {
	var lon Angle
	switch c.Frame.Name {
	case HeliographicStonyhurst:
		lon = c.Lon
	case HeliographicCarrington:
		lon = c.Lon - c.Frame.CarringtonOffset
	default:
		return true
	}
	r := c.Frame.radius()
	hcc := hgsToHCC(lon, c.Lat, r, observer)
	d := observer.Distance
	if d <= 0 {
		d = AU
	}
	return hcc.z > r*r/d
}

func hpcToHCC(tx, ty Angle, f Frame) (cartesian, error) {
	d := f.distance()
	r := f.radius()
	cx, sx := math.Cos(tx.Radians()), math.Sin(tx.Radians())
	cy, sy := math.Cos(ty.Radians()), math.Sin(ty.Radians())

	b := d * cy * cx
	disc := b*b - d*d + r*r
	if disc < 0 {
		return cartesian{}, ErrOffDisk
	}
	dist := b - math.Sqrt(disc)
	return cartesian{
		x: dist * cy * sx,
		y: dist * sy,
		z: d - dist*cy*cx,
	}, nil
}

func hccToHPC(p cartesian, f Frame) (tx, ty Angle) {
	zeta := f.distance() - p.z
	dist := math.Sqrt(p.x*p.x + p.y*p.y + zeta*zeta)
	return Rad(math.Atan2(p.x, zeta)), Rad(math.Asin(p.y / dist))
}

func hgsToHCC(lon, lat Angle, r float64, obs Observer) cartesian {
	dl := (lon - obs.Lon).Radians()
	la := lat.Radians()
	b0 := obs.Lat.Radians()
	return cartesian{
		x: r * math.Cos(la) * math.Sin(dl),
		y: r * (math.Sin(la)*math.Cos(b0) - math.Cos(la)*math.Cos(dl)*math.Sin(b0)),
		z: r * (math.Sin(la)*math.Sin(b0) + math.Cos(la)*math.Cos(dl)*math.Cos(b0)),
	}
}

func hccToHGS(p cartesian, obs Observer) (lon, lat Angle, r float64) {
	b0 := obs.Lat.Radians()
	r = math.Sqrt(p.x*p.x + p.y*p.y + p.z*p.z)
	if r == 0 {
		return obs.Lon, 0, 0
	}
	lat = Rad(math.Asin((p.y*math.Cos(b0) + p.z*math.Sin(b0)) / r))
	lon = obs.Lon + Rad(math.Atan2(p.x, p.z*math.Cos(b0)-p.y*math.Sin(b0)))
	return lon, lat, r
}

// LimbCircle returns n points on the great circle of the solar surface that
// the observer sees as the limb, in the heliographic frame f.
func LimbCircle(f Frame, n int) []Coordinate {
	rho := math.Acos(f.radius() / f.distance())
	b0 := f.Observer.Lat.Radians()
	pts := make([]Coordinate, 0, n+1)
	for i := 0; i <= n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		lat := math.Asin(math.Sin(b0)*math.Cos(rho) + math.Cos(b0)*math.Sin(rho)*math.Cos(t))
		dlon := math.Atan2(math.Sin(t)*math.Sin(rho)*math.Cos(b0),
			math.Cos(rho)-math.Sin(b0)*math.Sin(lat))
		lon := f.Observer.Lon + Rad(dlon)
		if f.Name == HeliographicCarrington {
			lon = (lon + f.CarringtonOffset).Wrap(0)
		} else {
			lon = lon.Wrap(-180)
		}
		pts = append(pts, Coordinate{Lon: lon, Lat: Rad(lat), Frame: f})
	}
	return pts
}
