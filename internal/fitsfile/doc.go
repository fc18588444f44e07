// Package fitsfile reads and writes the two-dimensional FITS images that back
// solar maps.
//
// Only the primary HDU is used. Pixel values are returned as float64 with
// BSCALE/BZERO applied, and blank pixels (the BLANK value for integer images,
// NaN for floating point ones) become NaN.
//
// # Pixel Order
//
// Data is kept in FITS order: index y*Width+x, with x the fastest varying
// axis (NAXIS1) and row 0 the bottom row of the image. This is the reverse
// of the image.Image convention used when rendering, where row 0 is the top.
//
// # Compression
//
// Files compressed with gzip (typically named *.fits.gz) are decompressed
// transparently; the gzip magic bytes are detected, not the file extension.
//
// # Thread Safety
//
// Cache is safe for concurrent use. Read, Open, Write and Save keep no shared
// state.
package fitsfile
