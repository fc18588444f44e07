package figtest

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/blend"
)

// Diff summarises the difference between two images of equal size.
type Diff struct {
	// RMS is the root mean square difference of the RGB channels on a
	// 0-255 scale.
	RMS float64 `json:"rms"`

	// PixelsDifferent counts pixels whose mean channel difference exceeds
	// 10 levels.
	PixelsDifferent int `json:"pixels_different"`
	TotalPixels     int `json:"total_pixels"`

	// Image highlights the differing pixels.
	Image *image.RGBA `json:"-"`
}

// Compare measures how far actual is from expected.
func Compare(expected, actual image.Image) (*Diff, error) {
	eb, ab := expected.Bounds(), actual.Bounds()
	if eb.Dx() != ab.Dx() || eb.Dy() != ab.Dy() {
		return nil, fmt.Errorf("image sizes differ: expected %dx%d, got %dx%d",
			eb.Dx(), eb.Dy(), ab.Dx(), ab.Dy())
	}

	d := &Diff{TotalPixels: eb.Dx() * eb.Dy()}
	if d.TotalPixels == 0 {
		return d, nil
	}
	var sumSq float64
	for dy := 0; dy < eb.Dy(); dy++ {
		for dx := 0; dx < eb.Dx(); dx++ {
			r1, g1, b1, _ := expected.At(eb.Min.X+dx, eb.Min.Y+dy).RGBA()
			r2, g2, b2, _ := actual.At(ab.Min.X+dx, ab.Min.Y+dy).RGBA()

			dr := channelDiff(r1, r2)
			dg := channelDiff(g1, g2)
			db := channelDiff(b1, b2)
			sumSq += dr*dr + dg*dg + db*db
			if (dr+dg+db)/3 > 10 {
				d.PixelsDifferent++
			}
		}
	}
	d.RMS = math.Sqrt(sumSq / float64(3*d.TotalPixels))
	d.Image = blend.Difference(expected, actual)
	return d, nil
}

func channelDiff(a, b uint32) float64 {
	return math.Abs(float64(a>>8) - float64(b>>8))
}
