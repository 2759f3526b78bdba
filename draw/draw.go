// Package draw provides drawing primitives for scanout buffers on top of
// [image/draw] and [golang.org/x/image/draw].
package draw

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Drawer is an alias for [image/draw.Drawer].
type Drawer = draw.Drawer

// Image is an alias for [image/draw.Image].
type Image = draw.Image

// Op is an alias for image/draw.Op
type Op = draw.Op

const (
	// Over specifies ``(src in mask) over dst''.
	Over Op = iota

	// Src specifies ``src in mask''.
	Src
)

// Draw calls [DrawMask] with a nil mask.
func Draw(dst Image, r image.Rectangle, src image.Image, sp image.Point, op Op) {
	DrawMask(dst, r, src, sp, nil, image.Point{}, op)
}

// DrawMask aligns r.Min in dst with sp in src and mp in mask and then replaces the rectangle r
// in dst with the result of a Porter-Duff composition. A nil mask is treated as opaque.
func DrawMask(dst Image, r image.Rectangle, src image.Image, sp image.Point, mask image.Image, mp image.Point, op Op) {
	draw.DrawMask(dst, r, src, sp, mask, mp, op)
}

// Scale draws all of src into r, resampling it bilinearly. Scaling is skipped
// for an empty r.
func Scale(dst Image, r image.Rectangle, src image.Image, op Op) {
	if r.Empty() {
		return
	}
	xdraw.BiLinear.Scale(dst, r, src, src.Bounds(), op, nil)
}

// Fit returns the largest rectangle with the aspect ratio of size that fits
// centered inside bounds.
func Fit(bounds image.Rectangle, size image.Point) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 || bounds.Empty() {
		return image.Rectangle{}
	}
	w, h := bounds.Dx(), bounds.Dy()
	if w*size.Y > h*size.X {
		w = h * size.X / size.Y
	} else {
		h = w * size.Y / size.X
	}
	origin := bounds.Min.Add(image.Pt((bounds.Dx()-w)/2, (bounds.Dy()-h)/2))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
}
