package kms

import (
	"errors"
	"fmt"
	"image"

	"github.com/BeatGlow/kms/pixel"
)

// Scanout format: 32 bits per pixel of which 24 carry color (XRGB8888).
const (
	bitsPerPixel = 32
	colorDepth   = 24
)

// PixelBuffer is a dumb buffer registered as a framebuffer and mapped into
// process memory. The fields are read only.
type PixelBuffer struct {
	Width, Height int

	Handle uint32 // dumb buffer handle
	Pitch  uint32 // bytes per row, at least Width*4
	Size   uint64 // bytes, at least Pitch*Height
	FB     uint32 // framebuffer ID

	// Pix is the mapping, len(Pix) == Size.
	Pix []byte

	dev   Device
	image *pixel.XRGB8888Image
}

// AllocateBuffer creates a width×height XRGB8888 scanout buffer. On failure
// every object created so far is released again.
func AllocateBuffer(dev Device, width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrBufferAllocation, width, height)
	}

	dumb, err := dev.CreateDumb(uint32(width), uint32(height), bitsPerPixel)
	if err != nil {
		return nil, fmt.Errorf("%w: create dumb buffer: %w", ErrBufferAllocation, err)
	}

	b := &PixelBuffer{
		Width:  width,
		Height: height,
		Handle: dumb.Handle,
		Pitch:  dumb.Pitch,
		Size:   dumb.Size,
		dev:    dev,
	}
	if b.Pitch < uint32(width)*4 || b.Size < uint64(b.Pitch)*uint64(height) {
		err = fmt.Errorf("%w: kernel returned pitch %d size %d for %dx%d", ErrBufferAllocation, b.Pitch, b.Size, width, height)
		return nil, errors.Join(err, b.Destroy())
	}

	if b.FB, err = dev.AddFB(uint32(width), uint32(height), colorDepth, bitsPerPixel, b.Pitch, b.Handle); err != nil {
		err = fmt.Errorf("%w: add framebuffer: %w", ErrBufferAllocation, err)
		return nil, errors.Join(err, b.Destroy())
	}

	if b.Pix, err = dev.Map(b.Handle, b.Size); err != nil {
		b.Pix = nil
		err = fmt.Errorf("%w: map: %w", ErrBufferAllocation, err)
		return nil, errors.Join(err, b.Destroy())
	} else if uint64(len(b.Pix)) != b.Size {
		err = fmt.Errorf("%w: mapped %d bytes, want %d", ErrBufferAllocation, len(b.Pix), b.Size)
		return nil, errors.Join(err, b.Destroy())
	}

	if b.image, err = pixel.WrapXRGB8888Image(b.Pix, width, height, int(b.Pitch)); err != nil {
		err = fmt.Errorf("%w: %w", ErrBufferAllocation, err)
		return nil, errors.Join(err, b.Destroy())
	}

	return b, nil
}

// Image is a view on the mapped pixels. Only valid until Destroy.
func (b *PixelBuffer) Image() *pixel.XRGB8888Image {
	return b.image
}

// Bounds of the buffer.
func (b *PixelBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Clear the whole mapping to black, row padding included.
func (b *PixelBuffer) Clear() {
	clear(b.Pix)
}

func (b *PixelBuffer) String() string {
	return fmt.Sprintf("buffer %d (fb %d) %dx%d pitch %d", b.Handle, b.FB, b.Width, b.Height, b.Pitch)
}

// Destroy unmaps the buffer, removes the framebuffer and frees the dumb
// buffer, in that order. Each step is attempted even if an earlier one failed;
// released objects are not released twice.
func (b *PixelBuffer) Destroy() error {
	var errs []error
	if b.Pix != nil {
		if err := b.dev.Unmap(b.Pix); err != nil {
			errs = append(errs, fmt.Errorf("unmap buffer %d: %w", b.Handle, err))
		}
		b.Pix, b.image = nil, nil
	}
	if b.FB != 0 {
		if err := b.dev.RemoveFB(b.FB); err != nil {
			errs = append(errs, fmt.Errorf("remove framebuffer %d: %w", b.FB, err))
		}
		b.FB = 0
	}
	if b.Handle != 0 {
		if err := b.dev.DestroyDumb(b.Handle); err != nil {
			errs = append(errs, fmt.Errorf("destroy dumb buffer %d: %w", b.Handle, err))
		}
		b.Handle = 0
	}
	return errors.Join(errs...)
}
