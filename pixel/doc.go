// Package pixel implements the pixel formats used for KMS scanout buffers.
//
// Images in this package are compatible with Go's native [color.Color] and
// [image.Image] / [draw.Image] interfaces, and can wrap memory that is mapped
// from the display device, honouring a row pitch larger than the visible width.
package pixel
