package fitsfile

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/ironsheep/sunmap/internal/meta"
)

// ErrNotImage is returned when the primary HDU does not hold a 2D image.
var ErrNotImage = errors.New("fitsfile: primary HDU is not a 2D image")

// File is a decoded FITS image.
type File struct {
	// Path is the file the image was read from, empty for in-memory data.
	Path string

	// Header holds every non-structural header card.
	Header meta.Meta

	// Width is NAXIS1, Height is NAXIS2.
	Width  int
	Height int

	// Data has Width*Height values in FITS order (row 0 at the bottom).
	Data []float64
}

// structural keywords are derived from the data when writing and are never
// copied into Header.
var structural = map[string]bool{
	"SIMPLE": true, "BITPIX": true, "NAXIS": true, "NAXIS1": true, "NAXIS2": true,
	"EXTEND": true, "BSCALE": true, "BZERO": true, "BLANK": true, "END": true,
	"COMMENT": true, "HISTORY": true, "": true,
}

// Read decodes the primary HDU of a FITS stream.
func Read(r io.Reader) (*File, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS stream: %w", err)
	}
	defer f.Close()

	hdu := f.HDU(0)
	img, ok := hdu.(fitsio.Image)
	if !ok {
		return nil, ErrNotImage
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) != 2 {
		return nil, fmt.Errorf("%w: NAXIS=%d", ErrNotImage, len(axes))
	}

	out := &File{
		Header: meta.Meta{},
		Width:  axes[0],
		Height: axes[1],
	}

	bscale, bzero := 1.0, 0.0
	var blank *int64
	for _, key := range hdr.Keys() {
		card := hdr.Get(key)
		if card == nil {
			continue
		}
		switch strings.ToUpper(key) {
		case "BSCALE":
			bscale = toFloat(card.Value, 1)
		case "BZERO":
			bzero = toFloat(card.Value, 0)
		case "BLANK":
			b := int64(toFloat(card.Value, 0))
			blank = &b
		}
		if structural[strings.ToUpper(key)] {
			continue
		}
		out.Header.Set(key, card.Value)
	}

	raw, err := readPixels(img, hdr.Bitpix(), out.Width*out.Height, blank)
	if err != nil {
		return nil, err
	}
	for i, v := range raw {
		if !math.IsNaN(v) {
			raw[i] = bzero + bscale*v
		}
	}
	out.Data = raw
	return out, nil
}

// readPixels reads the image into a slice of the Go type matching BITPIX and
// widens it to float64.
func readPixels(img fitsio.Image, bitpix, n int, blank *int64) ([]float64, error) {
	out := make([]float64, n)
	isBlank := func(v int64) bool { return blank != nil && v == *blank }

	switch bitpix {
	case 8:
		data := make([]byte, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		for i, v := range data {
			out[i] = float64(v)
			if isBlank(int64(v)) {
				out[i] = math.NaN()
			}
		}
	case 16:
		data := make([]int16, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		for i, v := range data {
			out[i] = float64(v)
			if isBlank(int64(v)) {
				out[i] = math.NaN()
			}
		}
	case 32:
		data := make([]int32, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		for i, v := range data {
			out[i] = float64(v)
			if isBlank(int64(v)) {
				out[i] = math.NaN()
			}
		}
	case 64:
		data := make([]int64, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		for i, v := range data {
			out[i] = float64(v)
			if isBlank(v) {
				out[i] = math.NaN()
			}
		}
	case -32:
		data := make([]float32, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		for i, v := range data {
			out[i] = float64(v)
		}
	case -64:
		data := make([]float64, n)
		if err := img.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		copy(out, data)
	default:
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	return out, nil
}

func toFloat(v any, def float64) float64 {
	m := meta.Meta{"V": v}
	return m.FloatOr("V", def)
}

// gzipMagic prefixes every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// Open reads a FITS file from disk, decompressing gzip input.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FITS file: %w", err)
	}
	defer fh.Close()

	br := bufio.NewReader(fh)
	var r io.Reader = br
	if head, err := br.Peek(2); err == nil && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	f, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	f.Path = path
	return f, nil
}

// Write encodes f as a single-HDU FITS stream with BITPIX -64.
func Write(w io.Writer, f *File) error {
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) != f.Width*f.Height {
		return fmt.Errorf("invalid image: %dx%d with %d values", f.Width, f.Height, len(f.Data))
	}

	out, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("failed to create FITS stream: %w", err)
	}
	defer out.Close()

	img := fitsio.NewImage(-64, []int{f.Width, f.Height})
	defer img.Close()

	cards := make([]fitsio.Card, 0, len(f.Header))
	for _, key := range f.Header.Keys() {
		if structural[key] {
			continue
		}
		v, _ := f.Header.Get(key)
		cards = append(cards, fitsio.Card{Name: key, Value: cardValue(v)})
	}
	if err := img.Header().Append(cards...); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := img.Write(f.Data); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}
	if err := out.Write(img); err != nil {
		return fmt.Errorf("failed to write HDU: %w", err)
	}
	return nil
}

// cardValue narrows a header value to a type fitsio can encode.
func cardValue(v any) any {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int32:
		return int(x)
	case int16:
		return int(x)
	case float32:
		return float64(x)
	case string, bool, int, float64:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// Save writes f to path. A ".gz" suffix produces a gzip-compressed file.
func Save(path string, f *File) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create FITS file: %w", err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(fh)
		if err := Write(zw, f); err != nil {
			return err
		}
		return zw.Close()
	}
	return Write(fh, f)
}
