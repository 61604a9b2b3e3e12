package spaceeye

import (
	"fmt"
	"strconv"
	"strings"
)

// RGBA is a color with every channel in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// ParseColor parses "#RRGGBB" or "#RRGGBBAA". A missing alpha is opaque.
func ParseColor(s string) (RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return RGBA{}, fmt.Errorf("color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	ch := func(shift uint) float64 { return float64((v>>shift)&0xff) / 255 }
	return RGBA{R: ch(24), G: ch(16), B: ch(8), A: ch(0)}, nil
}

func (c RGBA) String() string {
	b := func(f float64) uint8 { return uint8(f*255 + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x%02x", b(c.R), b(c.G), b(c.B), b(c.A))
}

func (c RGBA) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *RGBA) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c RGBA) validate() error {
	for i, v := range [4]float64{c.R, c.G, c.B, c.A} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("color channel %d out of range: %g", i, v)
		}
	}
	return nil
}

// RenderOptions controls how an image is placed on a display.
type RenderOptions struct {
	Scaling         ScalingMode
	BackgroundColor RGBA
	AllowClipping   bool
}

// DefaultRenderOptions fits the image proportionally over a yellow fill,
// with clipping allowed.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Scaling:         ScaleProportionalFit,
		BackgroundColor: RGBA{R: 1, G: 1, B: 0, A: 1},
		AllowClipping:   true,
	}
}

func (o RenderOptions) Validate() error {
	if !o.Scaling.Valid() {
		return fmt.Errorf("invalid scaling mode %d", int(o.Scaling))
	}
	return o.BackgroundColor.validate()
}

// DesktopImageOptions is the option bundle handed to the display service.
type DesktopImageOptions struct {
	ScalingCode   int
	AllowClipping bool
	FillColor     [4]float64 // r, g, b, a
}

func (o RenderOptions) desktopOptions() (DesktopImageOptions, error) {
	if err := o.Validate(); err != nil {
		return DesktopImageOptions{}, err
	}
	code, err := o.Scaling.Code()
	if err != nil {
		return DesktopImageOptions{}, err
	}
	c := o.BackgroundColor
	return DesktopImageOptions{
		ScalingCode:   code,
		AllowClipping: o.AllowClipping,
		FillColor:     [4]float64{c.R, c.G, c.B, c.A},
	}, nil
}
