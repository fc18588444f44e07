package colormap

import (
	"math"
	"strconv"
)

// Channel curves of the SDO/AIA colour tables.
func c0(i int) float64 { return float64(i) }
func c1(i int) float64 { return math.Sqrt(float64(i)) * math.Sqrt(255) }
func c2(i int) float64 { return float64(i*i) / 255 }
func c3(i int) float64 { return (c1(i) + c2(i)/2) * 255 / (255 + 255.0/2) }

// Red temperature table used by several AIA channels.
func r0(i int) float64 { return math.Min(255, float64(i)*255/176) }
func g0(i int) float64 { return math.Max(0, float64(i-120)) * 255 / 135 }
func b0(i int) float64 { return math.Max(0, float64(i-190)) * 255 / 65 }

func half(f func(int) float64) func(int) float64 {
	return func(i int) float64 { return f(i) / 2 }
}

var aiaChannels = map[int][3]func(int) float64{
	94:   {c2, c3, c0},
	131:  {g0, r0, r0},
	171:  {r0, c0, b0},
	193:  {c1, c0, c2},
	211:  {c1, c0, c3},
	304:  {r0, g0, b0},
	335:  {c2, c0, c1},
	1600: {c3, c3, c2},
	1700: {c1, c0, c0},
	4500: {c0, c0, half(b0)},
}

var stopTables = map[string][]Stop{
	"gray": {{0, "#000000"}, {1, "#ffffff"}},
	"viridis": {
		{0.0, "#440154"}, {0.1, "#482475"}, {0.2, "#414487"}, {0.3, "#355f8d"},
		{0.4, "#2a788e"}, {0.5, "#21918c"}, {0.6, "#22a884"}, {0.7, "#44bf70"},
		{0.8, "#7ad151"}, {0.9, "#bddf26"}, {1.0, "#fde725"},
	},
	"hmimag": {
		{0.0, "#000000"}, {0.15, "#3b0f70"}, {0.3, "#1f5fc8"}, {0.45, "#9ecae1"},
		{0.5, "#808080"}, {0.55, "#fdd49e"}, {0.7, "#f16913"}, {0.85, "#a50f15"},
		{1.0, "#ffffff"},
	},
	"rhessi": {
		{0.0, "#000000"}, {0.15, "#4b0082"}, {0.3, "#0000ff"}, {0.5, "#00c800"},
		{0.7, "#ffff00"}, {0.85, "#ff0000"}, {1.0, "#ffffff"},
	},
}

func init() {
	for wave, ch := range aiaChannels {
		Register(FromChannels(aiaName(wave), ch[0], ch[1], ch[2]))
	}
	for name, stops := range stopTables {
		cm, err := FromStops(name, stops...)
		if err != nil {
			panic(err)
		}
		Register(cm)
	}
}

func aiaName(wave int) string {
	return "sdoaia" + strconv.Itoa(wave)
}
