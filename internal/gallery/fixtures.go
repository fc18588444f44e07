// Package gallery is the figure regression suite: a registry of named
// figures drawn from a small set of test maps, a concurrent runner and YAML
// suite files selecting cases and their expected warnings.
package gallery

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/config"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/meta"
	"github.com/ironsheep/sunmap/internal/sunmap"
)

// File names used by WriteFixtures.
const (
	AIA171File       = "aia_171_level1.fits"
	HeliographicFile = "heliographic_phase_map.fits.gz"
)

// Fixtures are the maps the cases draw. They are read concurrently and
// never modified.
type Fixtures struct {
	AIA171       *sunmap.Map
	Heliographic *sunmap.Map
	MaskedAIA171 *sunmap.Map
}

// LoadFixtures reads the maps named in cfg, generating any that are not
// configured.
func LoadFixtures(cfg config.FixtureConfig, cache *fitsfile.Cache, log *zap.Logger) (*Fixtures, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []sunmap.Option{sunmap.WithLogger(log)}

	var aia, hg *sunmap.Map
	var err error
	if cfg.AIA171 != "" {
		aia, err = sunmap.LoadCached(cache, cfg.AIA171, opts...)
	} else {
		aia, err = GenerateAIA171(cfg.Seed, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AIA 171 fixture: %w", err)
	}
	if cfg.Heliographic != "" {
		hg, err = sunmap.LoadCached(cache, cfg.Heliographic, opts...)
	} else {
		hg, err = GenerateHeliographic(cfg.Seed, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load heliographic fixture: %w", err)
	}
	return NewFixtures(aia, hg)
}

// NewFixtures derives the masked map from aia.
func NewFixtures(aia, heliographic *sunmap.Map) (*Fixtures, error) {
	masked, err := aia.WithMask(LowerLeftMask(aia.Width(), aia.Height()))
	if err != nil {
		return nil, err
	}
	return &Fixtures{AIA171: aia, Heliographic: heliographic, MaskedAIA171: masked}, nil
}

// LowerLeftMask masks the bottom-left quadrant.
func LowerLeftMask(width, height int) sunmap.Mask {
	mask := sunmap.NewMask(width, height)
	for y := 0; y < height/2; y++ {
		for x := 0; x < width/2; x++ {
			mask.Set(x, y, true)
		}
	}
	return mask
}

// WriteFixtures saves the generated maps to dir as FITS files.
func WriteFixtures(dir string, f *Fixtures) ([]string, error) {
	paths := []string{filepath.Join(dir, AIA171File), filepath.Join(dir, HeliographicFile)}
	for i, m := range []*sunmap.Map{f.AIA171, f.Heliographic} {
		if err := fitsfile.Save(paths[i], m.ToFile()); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// aiaHeader describes a 128x128 full-disk AIA 171 image binned from
// 4096x4096.
func aiaHeader() meta.Meta {
	return meta.New(map[string]any{
		"TELESCOP": "SDO/AIA",
		"INSTRUME": "AIA_3",
		"DETECTOR": "AIA",
		"WAVELNTH": 171,
		"WAVEUNIT": "angstrom",
		"DATE-OBS": "2011-02-15T00:00:00.34",
		"BUNIT":    "DN",
		"CTYPE1":   "HPLN-TAN",
		"CTYPE2":   "HPLT-TAN",
		"CUNIT1":   "arcsec",
		"CUNIT2":   "arcsec",
		"CRPIX1":   64.5,
		"CRPIX2":   64.5,
		"CRVAL1":   0.0,
		"CRVAL2":   0.0,
		"CDELT1":   19.2,
		"CDELT2":   19.2,
		"CROTA2":   0.0,
		"DSUN_OBS": 1.4767e11,
		"HGLN_OBS": 0.0,
		"HGLT_OBS": -6.82,
		"CRLN_OBS": 124.6,
		"RSUN_OBS": 972.5,
	})
}

// GenerateAIA171 builds a deterministic coronal image: a limb-brightened
// disk with active regions, an exponentially fading corona and noise.
func GenerateAIA171(seed int64, opts ...sunmap.Option) (*sunmap.Map, error) {
	const n = 128
	rng := rand.New(rand.NewSource(seed))
	header := aiaHeader()
	radius := header.FloatOr("RSUN_OBS", 972.5) / header.FloatOr("CDELT1", 19.2)
	c := header.FloatOr("CRPIX1", 64.5) - 1

	type region struct{ x, y, sigma, peak float64 }
	regions := make([]region, 5)
	for i := range regions {
		r := radius * 0.8 * math.Sqrt(rng.Float64())
		a := 2 * math.Pi * rng.Float64()
		regions[i] = region{
			x:     c + r*math.Cos(a),
			y:     c + r*math.Sin(a),
			sigma: 2 + 4*rng.Float64(),
			peak:  1500 + 3000*rng.Float64(),
		}
	}

	data := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx, dy := float64(x)-c, float64(y)-c
			r := math.Hypot(dx, dy)
			var v float64
			if r < radius {
				mu := math.Sqrt(1 - (r/radius)*(r/radius))
				v = 250 + 350*(1-mu)
			} else {
				v = 600 * math.Exp(-(r-radius)/6)
			}
			for _, g := range regions {
				d2 := (float64(x)-g.x)*(float64(x)-g.x) + (float64(y)-g.y)*(float64(y)-g.y)
				v += g.peak * math.Exp(-d2/(2*g.sigma*g.sigma))
			}
			v += math.Sqrt(v+1) * rng.NormFloat64()
			data[y*n+x] = math.Max(v, 0)
		}
	}
	return sunmap.New(data, n, n, header, opts...)
}

func heliographicHeader() meta.Meta {
	return meta.New(map[string]any{
		"TELESCOP": "NSO-GONG",
		"OBSRVTRY": "NSO-GONG",
		"DATE-OBS": "2019-04-04T00:00:00",
		"CTYPE1":   "CRLN-CAR",
		"CTYPE2":   "CRLT-CAR",
		"CUNIT1":   "deg",
		"CUNIT2":   "deg",
		"CRPIX1":   90.5,
		"CRPIX2":   45.5,
		"CRVAL1":   180.0,
		"CRVAL2":   0.0,
		"CDELT1":   2.0,
		"CDELT2":   2.0,
		"DSUN_OBS": 1.4960e11,
		"HGLN_OBS": 0.0,
		"HGLT_OBS": -6.2,
		"CRLN_OBS": 82.5,
	})
}

// GenerateHeliographic builds a deterministic full-Sun Carrington phase
// map: smooth large-scale structure plus a few far-side features and noise.
func GenerateHeliographic(seed int64, opts ...sunmap.Option) (*sunmap.Map, error) {
	const w, h = 180, 90
	rng := rand.New(rand.NewSource(seed + 1))
	type feature struct{ lon, lat, width, depth float64 }
	features := make([]feature, 4)
	for i := range features {
		features[i] = feature{
			lon:   360 * rng.Float64(),
			lat:   -30 + 60*rng.Float64(),
			width: 5 + 10*rng.Float64(),
			depth: 0.2 + 0.3*rng.Float64(),
		}
	}

	data := make([]float64, w*h)
	for y := 0; y < h; y++ {
		lat := -89 + 2*float64(y)
		for x := 0; x < w; x++ {
			lon := 1 + 2*float64(x)
			v := 0.05*math.Sin(lon*math.Pi/45)*math.Cos(lat*math.Pi/180) + 0.03*rng.NormFloat64()
			for _, f := range features {
				dlon := math.Mod(math.Abs(lon-f.lon), 360)
				dlon = math.Min(dlon, 360-dlon)
				d2 := dlon*dlon + (lat-f.lat)*(lat-f.lat)
				v -= f.depth * math.Exp(-d2/(2*f.width*f.width))
			}
			data[y*w+x] = v
		}
	}
	return sunmap.New(data, w, h, heliographicHeader(), opts...)
}
