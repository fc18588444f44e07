// Package wcs implements the FITS world coordinate system for solar images.
//
// A WCS maps 0-based pixel positions to world coordinates (longitude and
// latitude in degrees) following FITS WCS papers I and II: the pixel offset
// from CRPIX is rotated by the PC matrix, scaled by CDELT into intermediate
// world coordinates, deprojected to native spherical coordinates and rotated
// onto the celestial (here: solar) sphere.
//
// Supported projections are TAN (helioprojective images), CAR and CEA
// (heliographic synoptic and phase maps).
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/meta"
)

// Projection is the FITS projection code of a WCS.
type Projection string

const (
	Gnomonic             Projection = "TAN"
	PlateCarree          Projection = "CAR"
	CylindricalEqualArea Projection = "CEA"
)

const (
	degPerRad     = 180 / math.Pi
	poleTolerance = 1e-10
)

// ErrUnsupported is returned for CTYPE values this package cannot handle.
var ErrUnsupported = errors.New("wcs: unsupported coordinate type")

// WCS is an immutable world coordinate transform for a 2D image.
type WCS struct {
	CType [2]string
	CUnit [2]string
	CRPix [2]float64 // 1-based reference pixel
	CDelt [2]float64 // degrees per pixel after unit conversion
	CRVal [2]float64 // degrees
	PC    *mat.Dense

	Projection Projection
	Frame      coords.Frame

	// Missing lists metadata keys that were absent and replaced by defaults.
	Missing []string

	pcInv  *mat.Dense
	lambda float64 // CEA PV2_1

	theta0 float64 // native latitude of the reference point, degrees
	alphaP float64 // celestial longitude of the native pole, degrees
	deltaP float64 // celestial latitude of the native pole, degrees
	phiP   float64 // native longitude of the celestial pole, degrees
}

// axisKind maps the first four CTYPE characters of the longitude axis to a
// frame.
var axisKind = map[string]coords.FrameName{
	"HPLN": coords.Helioprojective,
	"HGLN": coords.HeliographicStonyhurst,
	"CRLN": coords.HeliographicCarrington,
}

var latFor = map[string]string{"HPLN": "HPLT", "HGLN": "HGLT", "CRLN": "CRLT"}

func unitScale(unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "deg", "degree", "degrees", "":
		return 1, nil
	case "arcsec", "asec":
		return 1.0 / 3600, nil
	case "arcmin", "amin":
		return 1.0 / 60, nil
	case "rad":
		return degPerRad, nil
	case "mas":
		return 1.0 / 3600e3, nil
	}
	return 0, fmt.Errorf("%w: unit %q", ErrUnsupported, unit)
}

// FromMeta builds a WCS from FITS header keywords.
func FromMeta(m meta.Meta) (*WCS, error) {
	w := &WCS{lambda: 1}

	for i := 0; i < 2; i++ {
		n := i + 1
		w.CType[i] = strings.ToUpper(m.StringOr(fmt.Sprintf("CTYPE%d", n), ""))
	}
	if w.CType[0] == "" || w.CType[1] == "" {
		// Solar images without CTYPE are helioprojective by convention.
		w.CType = [2]string{"HPLN-TAN", "HPLT-TAN"}
		w.Missing = append(w.Missing, "CTYPE1", "CTYPE2")
	}

	lonKind, lonProj, err := splitCType(w.CType[0])
	if err != nil {
		return nil, err
	}
	latKind, latProj, err := splitCType(w.CType[1])
	if err != nil {
		return nil, err
	}
	frameName, ok := axisKind[lonKind]
	if !ok || latFor[lonKind] != latKind {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, w.CType[0], w.CType[1])
	}
	if lonProj != latProj {
		return nil, fmt.Errorf("%w: mixed projections %s and %s", ErrUnsupported, lonProj, latProj)
	}
	w.Projection = Projection(lonProj)

	defUnit := "deg"
	if frameName == coords.Helioprojective {
		defUnit = "arcsec"
	}
	var scale [2]float64
	for i := 0; i < 2; i++ {
		n := i + 1
		w.CUnit[i] = m.StringOr(fmt.Sprintf("CUNIT%d", n), defUnit)
		if scale[i], err = unitScale(w.CUnit[i]); err != nil {
			return nil, err
		}
		w.CRPix[i] = m.FloatOr(fmt.Sprintf("CRPIX%d", n), 0)
		w.CRVal[i] = m.FloatOr(fmt.Sprintf("CRVAL%d", n), 0) * scale[i]
		w.CDelt[i] = m.FloatOr(fmt.Sprintf("CDELT%d", n), 1) * scale[i]
	}

	if w.CDelt[0] == 0 || w.CDelt[1] == 0 {
		return nil, fmt.Errorf("wcs: zero CDELT")
	}
	w.PC = pcMatrix(m, &w.CDelt, scale)
	var inv mat.Dense
	if err := inv.Inverse(w.PC); err != nil {
		return nil, fmt.Errorf("wcs: singular PC matrix: %w", err)
	}
	w.pcInv = &inv

	switch w.Projection {
	case Gnomonic:
		w.theta0 = 90
	case PlateCarree:
		w.theta0 = 0
	case CylindricalEqualArea:
		w.theta0 = 0
		w.lambda = m.FloatOr("PV2_1", 1)
		if w.lambda <= 0 || w.lambda > 1 {
			return nil, fmt.Errorf("wcs: CEA lambda %g outside (0, 1]", w.lambda)
		}
	default:
		return nil, fmt.Errorf("%w: projection %q", ErrUnsupported, w.Projection)
	}
	if err := w.setPole(m); err != nil {
		return nil, err
	}

	w.Frame, w.Missing = frameFromMeta(m, frameName, w.Missing)
	return w, nil
}

func splitCType(ctype string) (kind, proj string, err error) {
	parts := strings.FieldsFunc(ctype, func(r rune) bool { return r == '-' })
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 3 {
		return "", "", fmt.Errorf("%w: CTYPE %q", ErrUnsupported, ctype)
	}
	return parts[0], parts[1], nil
}

// pcMatrix builds the linear transformation matrix from PCi_j, CDi_j or
// CROTA2, in that order of precedence. A CD matrix replaces CDELT, which is
// then set to one unit per pixel.
func pcMatrix(m meta.Meta, cdelt *[2]float64, scale [2]float64) *mat.Dense {
	key := func(prefix string, i, j int) string { return fmt.Sprintf("%s%d_%d", prefix, i, j) }
	has := func(prefix string) bool {
		for i := 1; i <= 2; i++ {
			for j := 1; j <= 2; j++ {
				if m.Has(key(prefix, i, j)) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("PC"):
		pc := mat.NewDense(2, 2, nil)
		for i := 1; i <= 2; i++ {
			for j := 1; j <= 2; j++ {
				def := 0.0
				if i == j {
					def = 1
				}
				pc.Set(i-1, j-1, m.FloatOr(key("PC", i, j), def))
			}
		}
		return pc
	case has("CD"):
		pc := mat.NewDense(2, 2, nil)
		for i := 1; i <= 2; i++ {
			for j := 1; j <= 2; j++ {
				pc.Set(i-1, j-1, m.FloatOr(key("CD", i, j), 0))
			}
		}
		cdelt[0], cdelt[1] = scale[0], scale[1]
		return pc
	default:
		rho := m.FloatOr("CROTA2", m.FloatOr("CROTA", 0)) / degPerRad
		c, s := math.Cos(rho), math.Sin(rho)
		ratio := cdelt[1] / cdelt[0]
		return mat.NewDense(2, 2, []float64{
			c, -s * ratio,
			s / ratio, c,
		})
	}
}

// setPole computes the celestial coordinates of the native pole from the
// reference point, LONPOLE and LATPOLE (FITS WCS paper II, section 2.4).
func (w *WCS) setPole(m meta.Meta) error {
	alpha0, delta0 := w.CRVal[0], w.CRVal[1]
	const phi0 = 0.0

	w.phiP = 0
	if delta0 < w.theta0 {
		w.phiP = 180
	}
	w.phiP = m.FloatOr("LONPOLE", w.phiP)
	latPole := m.FloatOr("LATPOLE", 90)

	if w.theta0 == 90 {
		w.alphaP, w.deltaP = alpha0, delta0
		return nil
	}

	t0 := w.theta0 / degPerRad
	dp := (w.phiP - phi0) / degPerRad
	d0 := delta0 / degPerRad

	a := math.Atan2(math.Sin(t0), math.Cos(t0)*math.Cos(dp))
	denom := math.Sqrt(1 - math.Pow(math.Cos(t0)*math.Sin(dp), 2))
	if denom == 0 {
		return fmt.Errorf("wcs: undefined native pole")
	}
	b := math.Acos(clampUnit(math.Sin(d0) / denom))

	best, found := 0.0, false
	for _, cand := range []float64{a + b, a - b} {
		cand = math.Remainder(cand, 2*math.Pi)
		if math.Abs(cand) > math.Pi/2+poleTolerance {
			continue
		}
		if !found || math.Abs(cand*degPerRad-latPole) < math.Abs(best*degPerRad-latPole) {
			best, found = cand, true
		}
	}
	if !found {
		return fmt.Errorf("wcs: no valid native pole latitude")
	}
	w.deltaP = best * degPerRad

	switch {
	case math.Abs(w.deltaP-90) < poleTolerance:
		w.alphaP = alpha0 + w.phiP - phi0 - 180
	case math.Abs(w.deltaP+90) < poleTolerance:
		w.alphaP = alpha0 - w.phiP + phi0
	default:
		dP := w.deltaP / degPerRad
		w.alphaP = alpha0 - math.Atan2(
			math.Sin(dp)*math.Cos(t0)/math.Cos(d0),
			(math.Sin(t0)-math.Sin(dP)*math.Sin(d0))/(math.Cos(dP)*math.Cos(d0)),
		)*degPerRad
	}
	return nil
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// frameFromMeta builds the coordinate frame from observer metadata,
// appending the keys that had to be defaulted to missing.
func frameFromMeta(m meta.Meta, name coords.FrameName, missing []string) (coords.Frame, []string) {
	f := coords.NewFrame(name)

	if lon, ok := m.Float("HGLN_OBS"); ok {
		f.Observer.Lon = coords.Deg(lon)
	} else {
		missing = append(missing, "HGLN_OBS")
	}
	if lat, ok := m.Float("HGLT_OBS"); ok {
		f.Observer.Lat = coords.Deg(lat)
	} else if lat, ok := m.Float("CRLT_OBS"); ok {
		f.Observer.Lat = coords.Deg(lat)
	} else {
		missing = append(missing, "HGLT_OBS")
	}
	if d, ok := m.Float("DSUN_OBS"); ok && d > 0 {
		f.Observer.Distance = d
	} else {
		missing = append(missing, "DSUN_OBS")
	}
	if r, ok := m.Float("RSUN_REF"); ok && r > 0 {
		f.RSun = r
	}
	if crln, ok := m.Float("CRLN_OBS"); ok {
		f.CarringtonOffset = coords.Deg(crln) - f.Observer.Lon
	} else if name == coords.HeliographicCarrington {
		missing = append(missing, "CRLN_OBS")
	}
	if t, ok := m.Date(); ok {
		f.ObsTime = t
	} else {
		missing = append(missing, "DATE-OBS")
	}
	return f, missing
}

// IsHelioprojective reports whether the image axes are helioprojective.
func (w *WCS) IsHelioprojective() bool {
	return w.Frame.Name == coords.Helioprojective
}

// PixelToWorld converts a 0-based pixel position to world longitude and
// latitude in degrees. ok is false outside the projection's domain.
func (w *WCS) PixelToWorld(x, y float64) (lon, lat float64, ok bool) {
	p := mat.NewVecDense(2, []float64{x + 1 - w.CRPix[0], y + 1 - w.CRPix[1]})
	var q mat.VecDense
	q.MulVec(w.PC, p)
	ix, iy := q.AtVec(0)*w.CDelt[0], q.AtVec(1)*w.CDelt[1]

	phi, theta, ok := w.deproject(ix, iy)
	if !ok {
		return 0, 0, false
	}
	lon, lat = w.nativeToCelestial(phi, theta)
	return w.wrapLon(lon), lat, true
}

// WorldToPixel converts world longitude and latitude in degrees to a 0-based
// pixel position. ok is false for points the projection cannot represent,
// such as the far hemisphere of a gnomonic projection.
func (w *WCS) WorldToPixel(lon, lat float64) (x, y float64, ok bool) {
	phi, theta := w.celestialToNative(lon, lat)
	ix, iy, ok := w.project(phi, theta)
	if !ok {
		return 0, 0, false
	}
	q := mat.NewVecDense(2, []float64{ix / w.CDelt[0], iy / w.CDelt[1]})
	var p mat.VecDense
	p.MulVec(w.pcInv, q)
	return p.AtVec(0) + w.CRPix[0] - 1, p.AtVec(1) + w.CRPix[1] - 1, true
}

// deproject maps intermediate world coordinates (degrees) to native
// spherical coordinates (degrees).
func (w *WCS) deproject(x, y float64) (phi, theta float64, ok bool) {
	switch w.Projection {
	case Gnomonic:
		r := math.Hypot(x, y)
		if r == 0 {
			return 0, 90, true
		}
		return math.Atan2(x, -y) * degPerRad, math.Atan2(degPerRad, r) * degPerRad, true
	case PlateCarree:
		return x, y, true
	case CylindricalEqualArea:
		s := y * w.lambda / degPerRad
		if math.Abs(s) > 1 {
			return 0, 0, false
		}
		return x, math.Asin(s) * degPerRad, true
	}
	return 0, 0, false
}

// project is the inverse of deproject.
func (w *WCS) project(phi, theta float64) (x, y float64, ok bool) {
	switch w.Projection {
	case Gnomonic:
		if theta <= 0 {
			return 0, 0, false
		}
		t := theta / degPerRad
		r := degPerRad * math.Cos(t) / math.Sin(t)
		p := phi / degPerRad
		return r * math.Sin(p), -r * math.Cos(p), true
	case PlateCarree:
		return wrap180(phi), theta, true
	case CylindricalEqualArea:
		return wrap180(phi), degPerRad * math.Sin(theta/degPerRad) / w.lambda, true
	}
	return 0, 0, false
}

func (w *WCS) nativeToCelestial(phi, theta float64) (alpha, delta float64) {
	t, dphi := theta/degPerRad, (phi-w.phiP)/degPerRad
	dp := w.deltaP / degPerRad
	alpha = w.alphaP + math.Atan2(
		-math.Cos(t)*math.Sin(dphi),
		math.Sin(t)*math.Cos(dp)-math.Cos(t)*math.Sin(dp)*math.Cos(dphi),
	)*degPerRad
	delta = math.Asin(clampUnit(math.Sin(t)*math.Sin(dp)+math.Cos(t)*math.Cos(dp)*math.Cos(dphi))) * degPerRad
	return alpha, delta
}

func (w *WCS) celestialToNative(alpha, delta float64) (phi, theta float64) {
	d, da := delta/degPerRad, (alpha-w.alphaP)/degPerRad
	dp := w.deltaP / degPerRad
	phi = w.phiP + math.Atan2(
		-math.Cos(d)*math.Sin(da),
		math.Sin(d)*math.Cos(dp)-math.Cos(d)*math.Sin(dp)*math.Cos(da),
	)*degPerRad
	theta = math.Asin(clampUnit(math.Sin(d)*math.Sin(dp)+math.Cos(d)*math.Cos(dp)*math.Cos(da))) * degPerRad
	return phi, theta
}

func (w *WCS) wrapLon(lon float64) float64 {
	if w.Frame.Name == coords.HeliographicCarrington {
		return float64(coords.Deg(lon).Wrap(0))
	}
	return wrap180(lon)
}

func wrap180(v float64) float64 {
	return float64(coords.Deg(v).Wrap(-180))
}

// AxisLabels returns human readable labels for the longitude and latitude
// axes including their display units.
func (w *WCS) AxisLabels() (lon, lat string) {
	switch w.Frame.Name {
	case coords.Helioprojective:
		return "Helioprojective Longitude (Solar-X) [arcsec]", "Helioprojective Latitude (Solar-Y) [arcsec]"
	case coords.HeliographicCarrington:
		return "Carrington Longitude [deg]", "Latitude [deg]"
	default:
		return "Longitude [deg]", "Latitude [deg]"
	}
}

// DisplayScale converts degrees to the axis display unit: arcsec for
// helioprojective images, degrees otherwise.
func (w *WCS) DisplayScale() float64 {
	if w.IsHelioprojective() {
		return 3600
	}
	return 1
}
