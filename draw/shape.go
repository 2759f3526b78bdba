package draw

import (
	"image"
	"image/color"
)

// RectFiller is implemented by images with a fast, clipped rectangle fill.
type RectFiller interface {
	FillRect(image.Rectangle, color.Color)
}

// Line draws a line between two points.
func Line(dst Image, a, b image.Point, c color.Color) {
	bresenham(dst, a.X, a.Y, b.X, b.Y, c)
}

// HorizontalLine draws a line between (x,y) and (x+w-1,y).
func HorizontalLine(dst Image, x, y, w int, c color.Color) {
	if w > 0 {
		Box(dst, image.Rect(x, y, x+w, y+1), c)
	}
}

// VerticalLine draws a line between (x,y) and (x,y+h-1).
func VerticalLine(dst Image, x, y, h int, c color.Color) {
	if h > 0 {
		Box(dst, image.Rect(x, y, x+1, y+h), c)
	}
}

// Rectangle draws the one pixel outline of rect.
func Rectangle(dst Image, rect image.Rectangle, c color.Color) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}
	var (
		w = rect.Dx()
		h = rect.Dy()
	)
	HorizontalLine(dst, rect.Min.X, rect.Min.Y, w, c)
	HorizontalLine(dst, rect.Min.X, rect.Max.Y-1, w, c)
	VerticalLine(dst, rect.Min.X, rect.Min.Y, h, c)
	VerticalLine(dst, rect.Max.X-1, rect.Min.Y, h, c)
}

// RoundedRectangle draws a rectangle with radius pixels rounded corners.
func RoundedRectangle(dst Image, rect image.Rectangle, radius int, c color.Color) {
	var (
		r = clampRadius(rect, radius)
		x = rect.Min.X
		y = rect.Min.Y
		w = rect.Dx()
		h = rect.Dy()
	)
	HorizontalLine(dst, x+r, y, w-2*r, c)
	HorizontalLine(dst, x+r, y+h-1, w-2*r, c)
	VerticalLine(dst, x, y+r, h-2*r, c)
	VerticalLine(dst, x+w-1, y+r, h-2*r, c)
	roundedCorner(dst, x+r, y+r, r, 1, c)
	roundedCorner(dst, x+w-r-1, y+r, r, 2, c)
	roundedCorner(dst, x+w-r-1, y+h-r-1, r, 4, c)
	roundedCorner(dst, x+r, y+h-r-1, r, 8, c)
}

// Box draws a filled rectangle, clipped to the bounds of dst.
func Box(dst Image, rect image.Rectangle, c color.Color) {
	rect = rect.Canon().Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	if f, ok := dst.(RectFiller); ok {
		f.FillRect(rect, c)
		return
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, y, c)
		}
	}
}

// RoundedBox draws a filled rectangle with radius pixels rounded corners.
func RoundedBox(dst Image, rect image.Rectangle, radius int, c color.Color) {
	var (
		r = clampRadius(rect, radius)
		x = rect.Min.X
		y = rect.Min.Y
		w = rect.Dx()
		h = rect.Dy()
	)
	Box(dst, image.Rect(x, y+r, x+w, y+h-r), c)
	// Fill the top and bottom bands row by row, narrowing towards the edge.
	for dy := 0; dy < r; dy++ {
		inset := r - isqrt(r*r-(r-dy)*(r-dy))
		HorizontalLine(dst, x+inset, y+dy, w-2*inset, c)
		HorizontalLine(dst, x+inset, y+h-1-dy, w-2*inset, c)
	}
}

func clampRadius(rect image.Rectangle, radius int) int {
	r := radius
	if m := rect.Dx() / 2; r > m {
		r = m
	}
	if m := rect.Dy() / 2; r > m {
		r = m
	}
	if r < 0 {
		r = 0
	}
	return r
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// roundedCorner plots one quadrant of a midpoint circle around (x0, y0);
// quadrant is a mask of 1 (top left), 2 (top right), 4 (bottom right) and
// 8 (bottom left).
func roundedCorner(dst Image, x0, y0, radius, quadrant int, c color.Color) {
	var (
		f    = 1 - radius
		ddFx = 1
		ddFy = -2 * radius
		x    = 0
		y    = radius
	)
	for x <= y {
		if quadrant&1 != 0 {
			dst.Set(x0-y, y0-x, c)
			dst.Set(x0-x, y0-y, c)
		}
		if quadrant&2 != 0 {
			dst.Set(x0+x, y0-y, c)
			dst.Set(x0+y, y0-x, c)
		}
		if quadrant&4 != 0 {
			dst.Set(x0+x, y0+y, c)
			dst.Set(x0+y, y0+x, c)
		}
		if quadrant&8 != 0 {
			dst.Set(x0-y, y0+x, c)
			dst.Set(x0-x, y0+y, c)
		}

		if f >= 0 {
			y--
			ddFy += 2
			f += ddFy
		}
		x++
		ddFx += 2
		f += ddFx
	}
}

// bresenham plots an integer line in any octant, both end points included.
func bresenham(dst Image, x1, y1, x2, y2 int, c color.Color) {
	var (
		dx = abs(x2 - x1)
		dy = -abs(y2 - y1)
		sx = sign(x2 - x1)
		sy = sign(y2 - y1)
		e  = dx + dy
	)
	for {
		dst.Set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x1 += sx
		}
		if e2 <= dx {
			e += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
