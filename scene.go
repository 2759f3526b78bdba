package kms

import (
	"image"
	"image/color"

	"github.com/BeatGlow/kms/draw"
	"github.com/BeatGlow/kms/pixel"
)

// Scene produces the content of presented frames.
type Scene interface {
	// Render draws a frame into dst, which has been cleared to black.
	Render(dst *pixel.XRGB8888Image) error

	// Advance is called once after each presented frame.
	Advance(bounds image.Rectangle)
}

// RenderFunc is a Scene drawing directly into mapped memory: pix holds height
// rows of pitch bytes, each pixel is a little endian 0x00RRGGBB word at
// row*pitch + col*4.
type RenderFunc func(pix []byte, width, height, pitch int) error

func (f RenderFunc) Render(dst *pixel.XRGB8888Image) error {
	return f(dst.Pix, dst.Rect.Dx(), dst.Rect.Dy(), dst.Stride)
}

func (RenderFunc) Advance(image.Rectangle) {}

// BouncingRect is a solid rectangle bouncing around the screen.
type BouncingRect struct {
	AnimationState
}

// NewBouncingRect returns a 100×100 magenta rectangle at (50,50) moving 3.5
// pixels per frame on both axes.
func NewBouncingRect() *BouncingRect {
	return &BouncingRect{AnimationState{
		X: 50, Y: 50,
		VX: 3.5, VY: 3.5,
		W: 100, H: 100,
		Color: pixel.Magenta,
	}}
}

func (s *BouncingRect) Render(dst *pixel.XRGB8888Image) error {
	draw.Box(dst, s.Rect(), s.Color)
	return nil
}

func (s *BouncingRect) Advance(bounds image.Rectangle) {
	s.Step(bounds.Dx(), bounds.Dy())
}

// Static shows an image, centered and scaled to fit the screen.
type Static struct {
	Image image.Image
}

func (s Static) Render(dst *pixel.XRGB8888Image) error {
	var (
		src  = s.Image.Bounds()
		area = draw.Fit(dst.Bounds(), src.Size())
	)
	if area.Size() == src.Size() {
		return dst.Draw(area, s.Image, src.Min)
	}
	draw.Scale(dst, area, s.Image, draw.Src)
	return nil
}

func (Static) Advance(image.Rectangle) {}

// Border outlines the screen on top of another scene.
type Border struct {
	Scene
	Color color.Color
}

func (s Border) Render(dst *pixel.XRGB8888Image) error {
	if s.Scene != nil {
		if err := s.Scene.Render(dst); err != nil {
			return err
		}
	}
	draw.Rectangle(dst, dst.Bounds(), s.Color)
	return nil
}

func (s Border) Advance(bounds image.Rectangle) {
	if s.Scene != nil {
		s.Scene.Advance(bounds)
	}
}

// Layers renders scenes bottom to top.
type Layers []Scene

func (l Layers) Render(dst *pixel.XRGB8888Image) error {
	for _, s := range l {
		if err := s.Render(dst); err != nil {
			return err
		}
	}
	return nil
}

func (l Layers) Advance(bounds image.Rectangle) {
	for _, s := range l {
		s.Advance(bounds)
	}
}
