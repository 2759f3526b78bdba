package kms

import (
	"image"

	"github.com/BeatGlow/kms/pixel"
)

// AnimationState is a rectangle moving at a constant velocity that bounces off
// the edges of the screen.
type AnimationState struct {
	X, Y   float64 // top left corner
	VX, VY float64 // pixels per frame
	W, H   int
	Color  pixel.XRGB8888
}

// Rect is the rectangle to draw, positions are truncated toward zero.
func (a *AnimationState) Rect() image.Rectangle {
	x, y := int(a.X), int(a.Y)
	return image.Rect(x, y, x+a.W, y+a.H)
}

// Step advances one frame inside a width×height screen. A velocity component
// is negated when the new position touches or crosses the matching edge.
func (a *AnimationState) Step(width, height int) {
	a.X += a.VX
	a.Y += a.VY
	if a.X+float64(a.W) >= float64(width) || a.X <= 0 {
		a.VX = -a.VX
	}
	if a.Y+float64(a.H) >= float64(height) || a.Y <= 0 {
		a.VY = -a.VY
	}
}

// Clamp moves the rectangle so that it starts inside a width×height screen.
// A rectangle larger than the screen is placed at the origin.
func (a *AnimationState) Clamp(width, height int) {
	a.X = max(0, min(a.X, float64(width-a.W)))
	a.Y = max(0, min(a.Y, float64(height-a.H)))
}
