// Package colorconv converts color scalars between the live representation
// (RGBA components in 0..1) and the portable multi-format bundle (hex plus
// derived css strings). It is stateless; the reconciliation core calls it at
// every color boundary.
package colorconv

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tknatwork/tokensync/internal/token"
)

// RGBA holds color components in the live 0..1 range.
type RGBA struct {
	R, G, B, A float64
}

// FromHex parses #RGB, #RRGGBB, or #RRGGBBAA.
func FromHex(s string) (RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	c := RGBA{A: 1}
	if len(h) == 8 {
		c.A = float64(n&0xFF) / 255
		n >>= 8
	}
	c.B = float64(n&0xFF) / 255
	n >>= 8
	c.G = float64(n&0xFF) / 255
	n >>= 8
	c.R = float64(n&0xFF) / 255
	return c, nil
}

// ToHex renders the canonical hex form: uppercase #RRGGBB, with an alpha
// byte appended only when alpha is not fully opaque.
func (c RGBA) ToHex() string {
	r := channelByte(c.R)
	g := channelByte(c.G)
	b := channelByte(c.B)
	a := channelByte(c.A)
	if a == 255 {
		return fmt.Sprintf("#%02X%02X%02X", r, g, b)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", r, g, b, a)
}

func channelByte(v float64) int {
	return int(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// ToRGBAString renders the css rgba() form.
func (c RGBA) ToRGBAString() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)",
		channelByte(c.R), channelByte(c.G), channelByte(c.B), trimFloat(c.A))
}

// ToHSLAString renders the css hsla() form.
func (c RGBA) ToHSLAString() string {
	h, s, l := c.hsl()
	return fmt.Sprintf("hsla(%d, %d%%, %d%%, %s)",
		int(math.Round(h)), int(math.Round(s*100)), int(math.Round(l*100)), trimFloat(c.A))
}

func (c RGBA) hsl() (h, s, l float64) {
	max := math.Max(c.R, math.Max(c.G, c.B))
	min := math.Min(c.R, math.Min(c.G, c.B))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}
	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}
	switch max {
	case c.R:
		h = (c.G - c.B) / d
		if c.G < c.B {
			h += 6
		}
	case c.G:
		h = (c.B-c.R)/d + 2
	default:
		h = (c.R-c.G)/d + 4
	}
	return h * 60, s, l
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// Bundle builds the portable multi-format representation.
func (c RGBA) Bundle() *token.ColorBundle {
	return &token.ColorBundle{
		Hex:  c.ToHex(),
		RGBA: c.ToRGBAString(),
		HSLA: c.ToHSLAString(),
	}
}

var (
	rgbPattern = regexp.MustCompile(`^rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*(?:,\s*([\d.]+)\s*)?\)$`)
	hslPattern = regexp.MustCompile(`^hsla?\(\s*([\d.]+)\s*,\s*([\d.]+)%\s*,\s*([\d.]+)%\s*(?:,\s*([\d.]+)\s*)?\)$`)
)

// Parse accepts any supported css form (hex, rgb(), rgba(), hsl(), hsla()).
func Parse(s string) (RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		return FromHex(s)
	}
	if m := rgbPattern.FindStringSubmatch(s); m != nil {
		r, _ := strconv.ParseFloat(m[1], 64)
		g, _ := strconv.ParseFloat(m[2], 64)
		b, _ := strconv.ParseFloat(m[3], 64)
		a := 1.0
		if m[4] != "" {
			a, _ = strconv.ParseFloat(m[4], 64)
		}
		return RGBA{R: r / 255, G: g / 255, B: b / 255, A: a}, nil
	}
	if m := hslPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.ParseFloat(m[1], 64)
		sat, _ := strconv.ParseFloat(m[2], 64)
		l, _ := strconv.ParseFloat(m[3], 64)
		a := 1.0
		if m[4] != "" {
			a, _ = strconv.ParseFloat(m[4], 64)
		}
		c := fromHSL(h, sat/100, l/100)
		c.A = a
		return c, nil
	}
	return RGBA{}, fmt.Errorf("unrecognized color %q", s)
}

func fromHSL(h, s, l float64) RGBA {
	if s == 0 {
		return RGBA{R: l, G: l, B: l, A: 1}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	h /= 360
	return RGBA{
		R: hueChannel(p, q, h+1.0/3),
		G: hueChannel(p, q, h),
		B: hueChannel(p, q, h-1.0/3),
		A: 1,
	}
}

func hueChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// FromBundle parses a wire color bundle, preferring the canonical hex field.
func FromBundle(b *token.ColorBundle) (RGBA, error) {
	if b == nil {
		return RGBA{}, fmt.Errorf("nil color bundle")
	}
	if b.Hex != "" {
		return FromHex(b.Hex)
	}
	if b.RGBA != "" {
		return Parse(b.RGBA)
	}
	if b.HSLA != "" {
		return Parse(b.HSLA)
	}
	return RGBA{}, fmt.Errorf("empty color bundle")
}

// NormalizeHex reduces any supported color form to the canonical hex string.
// Diff comparisons use this form so float rounding never produces a false
// "modified".
func NormalizeHex(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	return c.ToHex(), nil
}
