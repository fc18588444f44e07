// Package meta holds FITS-style header metadata for solar maps.
//
// Keys are case-insensitive and stored upper case, matching the FITS
// convention. Values keep the Go type they were parsed with (float64, int,
// string or bool); the typed getters convert between numeric kinds.
package meta

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Meta is a keyword dictionary describing a map: its instrument, its
// observation time and its world coordinate system.
type Meta map[string]any

// New returns a Meta populated from kv, normalising every key.
func New(kv map[string]any) Meta {
	m := make(Meta, len(kv))
	for k, v := range kv {
		m.Set(k, v)
	}
	return m
}

func norm(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Set stores value under key.
func (m Meta) Set(key string, value any) {
	m[norm(key)] = value
}

// Delete removes key if present.
func (m Meta) Delete(key string) {
	delete(m, norm(key))
}

// Has reports whether key is present.
func (m Meta) Has(key string) bool {
	_, ok := m[norm(key)]
	return ok
}

// Get returns the raw value stored under key.
func (m Meta) Get(key string) (any, bool) {
	v, ok := m[norm(key)]
	return v, ok
}

// Copy returns a shallow copy. Values are scalars so the copy is independent.
func (m Meta) Copy() Meta {
	c := make(Meta, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Keys returns all keys in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float returns key as a float64. Integer values and numeric strings are
// converted.
func (m Meta) Float(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FloatOr returns key as a float64, or def when it is absent or not numeric.
func (m Meta) FloatOr(key string, def float64) float64 {
	if f, ok := m.Float(key); ok && !math.IsNaN(f) {
		return f
	}
	return def
}

// Int returns key as an int. Float values are truncated.
func (m Meta) Int(key string) (int, bool) {
	f, ok := m.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns key as a trimmed string. Numbers are formatted.
func (m Meta) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}

// StringOr returns key as a string, or def when absent or empty.
func (m Meta) StringOr(key, def string) string {
	if s, ok := m.String(key); ok && s != "" {
		return s
	}
	return def
}

// Bool returns key as a bool. FITS logical values arrive as bool; "T"/"F"
// strings are accepted too.
func (m Meta) Bool(key string) (bool, bool) {
	v, ok := m.Get(key)
	if !ok {
		return false, false
	}
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToUpper(strings.TrimSpace(x)) {
		case "T", "TRUE":
			return true, true
		case "F", "FALSE":
			return false, true
		}
	}
	return false, false
}

// Instrument returns INSTRUME with the detector channel suffix removed, so
// "AIA_3" becomes "AIA".
func (m Meta) Instrument() string {
	s := m.StringOr("INSTRUME", "")
	if i := strings.Index(s, "_"); i > 0 {
		s = s[:i]
	}
	return strings.ToUpper(s)
}

// Observatory returns OBSRVTRY or the part of TELESCOP before the slash.
func (m Meta) Observatory() string {
	if s := m.StringOr("OBSRVTRY", ""); s != "" {
		return s
	}
	s := m.StringOr("TELESCOP", "")
	if i := strings.Index(s, "/"); i > 0 {
		s = s[:i]
	}
	return s
}

// Detector returns DETECTOR, falling back to the instrument.
func (m Meta) Detector() string {
	return m.StringOr("DETECTOR", m.Instrument())
}

// Wavelength returns WAVELNTH and its unit (WAVEUNIT, default "Angstrom").
// ok is false when no wavelength is recorded.
func (m Meta) Wavelength() (value float64, unit string, ok bool) {
	value, ok = m.Float("WAVELNTH")
	if !ok {
		return 0, "", false
	}
	unit = m.StringOr("WAVEUNIT", "Angstrom")
	switch strings.ToLower(unit) {
	case "angstrom", "a":
		unit = "Angstrom"
	}
	return value, unit, true
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
	"2006/01/02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a FITS DATE-OBS style timestamp as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Date returns the observation time from DATE-OBS (or DATE_OBS). ok is false
// when neither key parses.
func (m Meta) Date() (time.Time, bool) {
	for _, key := range []string{"DATE-OBS", "DATE_OBS", "DATE"} {
		s, ok := m.String(key)
		if !ok || s == "" {
			continue
		}
		if t, err := ParseDate(s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Name is the display name used for figure titles, for example
// "AIA 171.0 Angstrom 2011-02-15 00:00:00".
func (m Meta) Name() string {
	parts := make([]string, 0, 3)
	if inst := m.Instrument(); inst != "" {
		parts = append(parts, inst)
	} else if obs := m.Observatory(); obs != "" {
		parts = append(parts, obs)
	}
	if w, unit, ok := m.Wavelength(); ok {
		parts = append(parts, fmt.Sprintf("%.1f %s", w, unit))
	}
	if t, ok := m.Date(); ok {
		parts = append(parts, t.Format("2006-01-02 15:04:05"))
	}
	if len(parts) == 0 {
		return "Generic Map"
	}
	return strings.Join(parts, " ")
}
