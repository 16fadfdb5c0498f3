package planecutaux

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/glgl/math/ms1"
)

// HSV interpolation adapted from Esme Lamb's (@dedelala) color manipulation
// work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{R: 40, G: 90, B: 230, A: 255}
)

// ColorConversionGradient returns a function mapping t in [0,1] to a color
// interpolated in HSV space between c0 and c1. Values outside the range are
// clamped and NaN maps to black.
func ColorConversionGradient(c0, c1 color.Color) func(t float32) color.Color {
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	return func(t float32) color.Color {
		if math.IsNaN(t) {
			return color.Black
		}
		t = ms1.Clamp(t, 0, 1)
		c := rgbToC(hsvToRGB(interpHSV(h0, s0, v0, h1, s1, v1, t)))
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

func percentUint64(num, denom uint64) float32 {
	if denom == 0 {
		return 0
	}
	return math.Trunc(10000*float32(num)/float32(denom)) / 100
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	// Take the short way around the hue circle.
	switch {
	case h1-h0 > 0.5:
		h0 += 1
	case h1-h0 < -0.5:
		h1 += 1
	}
	h = ms1.Interp(h0, h1, t)
	if h > 1 {
		h -= 1
	}
	return h, ms1.Interp(s0, s1, t), ms1.Interp(v0, v1, t)
}

func colorToHSV(c color.Color) (h, s, v float32) {
	r, g, b, _ := c.RGBA()
	return rgbToHSV(float32(r>>8)/math.MaxUint8, float32(g>>8)/math.MaxUint8, float32(b>>8)/math.MaxUint8)
}

// rgbToC packs r, g and b in [0,1] into the low 24 bits of a uint32.
func rgbToC(r, g, b float32) uint32 {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8)
}

// hsvToRGB converts hue, saturation and value in [0,1] to RGB in [0,1].
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	c := s * v
	x := c * (1 - math.Abs(math.Mod(h*6, 2)-1))
	m := v - c
	switch sector := int(h * 6); sector {
	case 0, 6:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts RGB in [0,1] to hue, saturation and value in [0,1].
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	xmax := max(r, g, b)
	c := xmax - min(r, g, b)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	default:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
