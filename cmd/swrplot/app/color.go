package app

import (
	"image/color"
	"math"
)

const (
	hueGood = 120.0 // green
	hueBad  = 0.0   // red

	// SWR from which the curve is drawn fully red
	badVSWR = 3.0
)

var (
	gridColor   = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	markerColor = color.RGBA{R: 0x20, G: 0x40, B: 0xc0, A: 0xff}
)

// HSV represents a color in HSV color space
type HSV struct {
	H float64 // Hue [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value [0-1]
}

// SWRToColor maps an SWR value to a green to red gradient.
// Values at or above badVSWR are red.
func SWRToColor(vswr float64) color.Color {
	normalized := (vswr - 1) / (badVSWR - 1)
	normalized = math.Max(0, math.Min(1, normalized))

	return HSVToRGB(HSV{
		H: hueGood - (normalized * (hueGood - hueBad)),
		S: 0.9,
		V: 0.85,
	})
}

// HSVToRGB converts HSV color space to RGB
// H: [0-360], S: [0-1], V: [0-1]
func HSVToRGB(hsv HSV) color.Color {
	h := hsv.H
	s := hsv.S
	v := hsv.V

	if s <= 0.0 {
		rgb := uint8(v * 255)
		return color.RGBA{R: rgb, G: rgb, B: rgb, A: 0xff}
	}

	// Normalize hue to [0-6]
	h = math.Mod(h, 360) / 60
	i := math.Floor(h)
	f := h - i

	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64

	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}
