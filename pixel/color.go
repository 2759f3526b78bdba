package pixel

import "image/color"

// Models for the standard color types.
var (
	XRGB8888Model color.Model = color.ModelFunc(xrgb8888Model)
)

// Common colors.
var (
	Black   = XRGB8888{0x000000}
	White   = XRGB8888{0xffffff}
	Magenta = XRGB8888{0xff00ff}
)

// XRGB8888 represents a 32-bit pixel with 24 significant bits: 8-bit red,
// green and blue in the low three bytes, the top byte is ignored.
type XRGB8888 struct {
	V uint32
}

// RGB builds a color from its components.
func RGB(r, g, b uint8) XRGB8888 {
	return XRGB8888{uint32(r)<<16 | uint32(g)<<8 | uint32(b)}
}

func (c XRGB8888) RGBA() (r, g, b, a uint32) {
	r = c.V >> 16 & 0xff
	g = c.V >> 8 & 0xff
	b = c.V & 0xff
	// Duplicate the byte in the high byte.
	r |= r << 8
	g |= g << 8
	b |= b << 8
	return r, g, b, 0xffff
}

func xrgb8888Model(c color.Color) color.Color {
	switch c := c.(type) {
	case XRGB8888:
		return XRGB8888{c.V & 0xffffff}
	default:
		r, g, b, _ := c.RGBA()
		return XRGB8888{(r>>8)<<16 | (g>>8)<<8 | b>>8}
	}
}
