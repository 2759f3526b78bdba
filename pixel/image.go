package pixel

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"periph.io/x/conn/v3/display"

	"github.com/BeatGlow/kms/draw"
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

// Clear zeroes all of Pix, including row padding.
func (p *Buffer) Clear() {
	clear(p.Pix)
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

// XRGB8888Image is a 32-bits per pixel image in the DRM XRGB8888 format:
// each pixel is a little endian uint32 0xXXRRGGBB.
type XRGB8888Image struct {
	Buffer
}

// NewXRGB8888Image allocates an image in process memory.
func NewXRGB8888Image(w, h int) *XRGB8888Image {
	return &XRGB8888Image{
		Buffer: makeBuffer(w, h, w*4, w*4*h),
	}
}

// WrapXRGB8888Image uses pix, typically a mapped scanout buffer, as the
// storage of a w×h image with stride bytes per row.
func WrapXRGB8888Image(pix []byte, w, h, stride int) (*XRGB8888Image, error) {
	if w < 0 || h < 0 || stride < w*4 {
		return nil, fmt.Errorf("pixel: invalid geometry %dx%d stride %d", w, h, stride)
	}
	if h > 0 && len(pix) < (h-1)*stride+w*4 {
		return nil, fmt.Errorf("pixel: buffer of %d bytes too small for %dx%d stride %d", len(pix), w, h, stride)
	}
	return &XRGB8888Image{
		Buffer: Buffer{
			Rect:   image.Rect(0, 0, w, h),
			Pix:    pix,
			Stride: stride,
		},
	}, nil
}

func (p *XRGB8888Image) ColorModel() color.Model {
	return XRGB8888Model
}

// PixOffset is the index of the first byte of pixel (x, y), equal to
// 4 * (y * stride/4 + x).
func (p *XRGB8888Image) PixOffset(x, y int) int {
	return y*p.Stride + x*4
}

func (p *XRGB8888Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}
	return p.XRGB8888At(x, y)
}

// XRGB8888At returns the pixel at (x, y), black when out of bounds.
func (p *XRGB8888Image) XRGB8888At(x, y int) XRGB8888 {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return XRGB8888{}
	}
	return XRGB8888{binary.LittleEndian.Uint32(p.Pix[p.PixOffset(x, y):]) & 0xffffff}
}

func (p *XRGB8888Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}
	binary.LittleEndian.PutUint32(p.Pix[p.PixOffset(x, y):], xrgb8888Model(c).(XRGB8888).V)
}

// SetXRGB8888 sets a single pixel; out of bounds writes are dropped.
func (p *XRGB8888Image) SetXRGB8888(x, y int, c XRGB8888) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}
	binary.LittleEndian.PutUint32(p.Pix[p.PixOffset(x, y):], c.V)
}

func (p *XRGB8888Image) Fill(c color.Color) {
	p.FillRect(p.Rect, c)
}

// FillRect fills the part of r that lies within the image bounds. Pixels of r
// outside the image, and row padding, are never written.
func (p *XRGB8888Image) FillRect(r image.Rectangle, c color.Color) {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return
	}

	var (
		v     = xrgb8888Model(c).(XRGB8888).V
		first = p.Pix[p.PixOffset(r.Min.X, r.Min.Y):p.PixOffset(r.Max.X, r.Min.Y)]
	)
	for i := 0; i < len(first); i += 4 {
		binary.LittleEndian.PutUint32(first[i:], v)
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(p.Pix[p.PixOffset(r.Min.X, y):], first)
	}
}

// Draw implements periph's display.Drawer, it copies src over r.
func (p *XRGB8888Image) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	draw.Draw(p, r, src, sp, draw.Src)
	return nil
}

func (p *XRGB8888Image) String() string {
	return fmt.Sprintf("XRGB8888 %s stride %d", p.Rect.Size(), p.Stride)
}

// Halt is a no-op, the image has no device of its own.
func (p *XRGB8888Image) Halt() error {
	return nil
}

// Interface checks.
var (
	_ Image          = (*XRGB8888Image)(nil)
	_ display.Drawer = (*XRGB8888Image)(nil)
)
