package palette

import "math"

// RGB is a color with channels in [0, 1].
type RGB [3]float32

const (
	saturation = 0.6
	value      = 0.7
	startHue   = 0.0

	// pastHueShift separates the "past" particle color from the top color.
	pastHueShift = 120.0

	shakeMagnitude = 0.003
)

// Colors is the per-frame color set handed to the compositor.
type Colors struct {
	Top    RGB
	Bottom RGB
	Recent RGB
	Past   RGB
	Shake  [2]float32
}

// Derive computes the frame colors from elapsed seconds and the cumulative
// intensity of the run. A non-negative alarm factor forces both background
// colors to red scaled by the factor. The shake offset ignores the alarm.
func Derive(elapsed, cumulative, alarm float32) Colors {
	t := float64(elapsed)
	total := float64(cumulative)

	topHue := ((t*0.15-total*0.05)*0.1 + startHue) * 360.0
	botHue := ((t*0.25+total*0.05)*0.02 + startHue) * 360.0

	top := FromHSV(topHue, saturation, value)
	bottom := FromHSV(botHue, saturation, value)
	if alarm >= 0 {
		top = RGB{alarm, 0, 0}
		bottom = RGB{alarm, 0, 0}
	}

	return Colors{
		Top:    top,
		Bottom: bottom,
		Recent: top,
		Past:   FromHSV(topHue+pastHueShift, saturation, value),
		Shake:  Shake(elapsed, cumulative),
	}
}

// Shake returns the small screen-space jitter applied to the foreground.
func Shake(elapsed, cumulative float32) [2]float32 {
	t := float64(elapsed)
	total := float64(cumulative)
	return [2]float32{
		float32(math.Cos(t*9.0+total*0.3) * shakeMagnitude),
		float32(math.Cos(t*5.0+total*0.3) * shakeMagnitude),
	}
}

// FromHSV converts a hue in degrees (any range, wrapped onto [0, 360)) with
// saturation and value in [0, 1] to RGB.
func FromHSV(hueDeg, s, v float64) RGB {
	h := math.Mod(hueDeg, 360.0)
	if h < 0 {
		h += 360.0
	}
	r, g, b := hsvToRGB(h/360.0, s, v)
	return RGB{float32(r), float32(g), float32(b)}
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	h = clamp01(h)
	s = clamp01(s)
	v = clamp01(v)

	if s == 0 {
		return v, v, v
	}

	hv := h * 6.0
	i := math.Floor(hv)
	f := hv - i
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))

	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
