// Package kms drives a display directly through Linux kernel mode-setting,
// without a windowing system.
//
// A [Session] takes exclusive control of the first connected output: it
// allocates two scanout buffers, programs the output's preferred mode and then
// presents frames rendered by a [Scene] with vertical blank synchronized page
// flips. Closing the session puts back the display configuration that was
// active before and releases every kernel object it created.
package kms

import (
	"fmt"
	"io"

	"github.com/BeatGlow/kms/drm"
)

// Device is the kernel display subsystem. It is implemented by [drm.Card].
type Device interface {
	io.Closer

	// Capability queries a driver capability.
	Capability(capability uint64) (uint64, error)

	// Resources lists CRTCs, connectors and encoders.
	Resources() (*drm.Resources, error)

	// Connector queries a connector.
	Connector(id uint32) (*drm.Connector, error)

	// Encoder returns an encoder.
	Encoder(id uint32) (*drm.Encoder, error)

	// Crtc returns the current configuration of a CRTC.
	Crtc(id uint32) (*drm.Crtc, error)

	// SetCrtc programs a CRTC.
	SetCrtc(crtcID, fbID, x, y uint32, connectors []uint32, mode *drm.ModeInfo) error

	// CreateDumb allocates a linear buffer in device memory.
	CreateDumb(width, height, bpp uint32) (*drm.DumbBuffer, error)

	// DestroyDumb frees a buffer allocated by CreateDumb.
	DestroyDumb(handle uint32) error

	// AddFB wraps a buffer as a framebuffer that can be scanned out.
	AddFB(width, height uint32, depth, bpp uint8, pitch, handle uint32) (uint32, error)

	// RemoveFB removes a framebuffer.
	RemoveFB(fbID uint32) error

	// Map maps a buffer into process memory, read/write and shared.
	Map(handle uint32, size uint64) ([]byte, error)

	// Unmap releases a mapping.
	Unmap([]byte) error

	// PageFlip schedules a flip to fbID at the next vertical blank, the
	// completion event carries userData.
	PageFlip(crtcID, fbID uint32, userData uint64) error

	// ReadEvents blocks until events are available.
	ReadEvents() ([]drm.Event, error)
}

// Open the display device node, typically [drm.DefaultCard], exclusively.
func Open(path string) (Device, error) {
	dev, err := openCard(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceOpen, err)
	}
	return dev, nil
}
