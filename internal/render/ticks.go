package render

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/fogleman/gg"
)

const (
	tickLength = 4
	tickPad    = 3
	edgeSteps  = 200
)

// tick is a labelled position along an axis edge, in data coordinates.
type tick struct {
	pos   float64
	label string
}

// niceStep returns a 1, 2 or 5 times power of ten step giving about n
// intervals over span.
func niceStep(span float64, n int) float64 {
	if span <= 0 || n <= 0 {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch f := raw / mag; {
	case f < 1.5:
		return mag
	case f < 3.5:
		return 2 * mag
	case f < 7.5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// niceTicks returns multiples of a nice step inside [lo, hi].
func niceTicks(lo, hi float64, n int) (values []float64, step float64) {
	if hi < lo {
		lo, hi = hi, lo
	}
	step = niceStep(hi-lo, n)
	for k := math.Ceil(lo / step); k*step <= hi+step*1e-9; k++ {
		values = append(values, k*step)
	}
	return values, step
}

func formatTick(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if s == "-0" {
		s = "0"
	}
	return s
}

// linearTicks labels data coordinates directly.
func linearTicks(lo, hi float64) []tick {
	values, step := niceTicks(lo, hi, 5)
	ticks := make([]tick, len(values))
	for i, v := range values {
		ticks[i] = tick{pos: v, label: formatTick(v, step)}
	}
	return ticks
}

// worldTicks walks an axis edge from lo to hi, evaluating a world
// coordinate at each step, and places ticks where that coordinate crosses a
// multiple of a nice step. Jumps larger than half the range are treated as
// longitude wrap-arounds and skipped.
func worldTicks(lo, hi float64, world func(t float64) (float64, bool)) []tick {
	ts := make([]float64, edgeSteps+1)
	vals := make([]float64, edgeSteps+1)
	oks := make([]bool, edgeSteps+1)
	vmin, vmax := math.Inf(1), math.Inf(-1)
	for i := range ts {
		ts[i] = lo + (hi-lo)*float64(i)/edgeSteps
		vals[i], oks[i] = world(ts[i])
		if oks[i] {
			vmin, vmax = math.Min(vmin, vals[i]), math.Max(vmax, vals[i])
		}
	}
	if !(vmax > vmin) {
		return nil
	}
	step := niceStep(vmax-vmin, 5)

	var ticks []tick
	for i := 1; i < len(ts); i++ {
		if !oks[i-1] || !oks[i] {
			continue
		}
		a, b := vals[i-1], vals[i]
		if math.Abs(b-a) > (vmax-vmin)/2 {
			continue
		}
		ka, kb := math.Floor(a/step), math.Floor(b/step)
		if ka == kb {
			continue
		}
		v := math.Max(ka, kb) * step
		frac := (v - a) / (b - a)
		ticks = append(ticks, tick{pos: ts[i-1] + frac*(ts[i]-ts[i-1]), label: formatTick(v, step)})
	}
	return ticks
}

func (a *Axes) edgeTicks() (bottom, left []tick) {
	x0, x1, y0, y1 := a.Limits()
	if a.transform == nil {
		return linearTicks(x0, x1), linearTicks(y0, y1)
	}
	t := a.transform
	scale := t.DisplayScale()
	bottom = worldTicks(x0, x1, func(x float64) (float64, bool) {
		lon, _, ok := t.PixelToWorld(x, y0)
		return lon * scale, ok
	})
	left = worldTicks(y0, y1, func(y float64) (float64, bool) {
		_, lat, ok := t.PixelToWorld(x0, y)
		return lat * scale, ok
	})
	return bottom, left
}

func (a *Axes) drawTicks(dc *gg.Context, v view) {
	bottom, left := a.edgeTicks()
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)

	base := v.by + v.bh
	for _, tk := range bottom {
		x := v.px(tk.pos)
		dc.DrawLine(x, base, x, base+tickLength)
		dc.Stroke()
		dc.DrawStringAnchored(tk.label, x, base+tickLength+tickPad, 0.5, 1)
	}

	widest := 0.0
	for _, tk := range left {
		y := v.py(tk.pos)
		dc.DrawLine(v.bx-tickLength, y, v.bx, y)
		dc.Stroke()
		dc.DrawStringAnchored(tk.label, v.bx-tickLength-tickPad, y, 1, 0.5)
		if w, _ := dc.MeasureString(tk.label); w > widest {
			widest = w
		}
	}

	_, lineH := dc.MeasureString("0")
	if a.xlabel != "" {
		dc.DrawStringAnchored(a.xlabel, v.bx+v.bw/2, base+tickLength+2*tickPad+lineH+4, 0.5, 1)
	}
	if a.ylabel != "" {
		x := v.bx - tickLength - 2*tickPad - widest - lineH/2 - 2
		y := v.by + v.bh/2
		dc.Push()
		dc.RotateAbout(-math.Pi/2, x, y)
		dc.DrawStringAnchored(a.ylabel, x, y, 0.5, 0.5)
		dc.Pop()
	}
}

func (cb *colorbar) draw(dc *gg.Context, v view) {
	if cb.cmap == nil || v.cbw <= 0 {
		return
	}
	x, y, w, h := v.cbx, v.by, v.cbw, v.bh
	rows := int(math.Round(h))
	cols := int(math.Round(w))
	if rows <= 0 || cols <= 0 {
		return
	}
	strip := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		c := cb.cmap.At(1 - (float64(r)+0.5)/float64(rows))
		for col := 0; col < cols; col++ {
			strip.SetRGBA(col, r, c)
		}
	}
	dc.DrawImage(strip, int(math.Round(x)), int(math.Round(y)))

	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	values, step := niceTicks(cb.norm.VMin, cb.norm.VMax, 5)
	for _, val := range values {
		t := cb.norm.Scale(val)
		if t < 0 || t > 1 || math.IsNaN(t) {
			continue
		}
		ty := y + h*(1-t)
		dc.DrawLine(x+w, ty, x+w+tickLength, ty)
		dc.Stroke()
		dc.DrawStringAnchored(formatTick(val, step), x+w+tickLength+tickPad, ty, 0, 0.5)
	}
	if cb.label != "" {
		dc.DrawStringAnchored(cb.label, x+w/2, y+h+tickLength+tickPad, 0.5, 1)
	}
}
